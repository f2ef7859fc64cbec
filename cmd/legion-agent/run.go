package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/legionhq/legion/checkpoint"
	"github.com/legionhq/legion/config"
	"github.com/legionhq/legion/core"
	"github.com/legionhq/legion/internal/util"
	"github.com/legionhq/legion/logging"
	"github.com/legionhq/legion/model"
	"github.com/legionhq/legion/model/anthropic"
	"github.com/legionhq/legion/model/openai"
	"github.com/legionhq/legion/prompt"
	"github.com/legionhq/legion/runner"
	"github.com/legionhq/legion/sidecar"
	"github.com/legionhq/legion/task"
	"github.com/legionhq/legion/tool"
)

const reportSummaryLimit = 16000

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	start := time.Now()

	descriptor, err := task.LoadDescriptor(cfg.TaskPath)
	if err != nil {
		logger.Error("task descriptor unusable", "path", cfg.TaskPath, "error", err)
		writeFailure(cfg, logger, taskIDFallback(cfg), err.Error(), start)
		os.Exit(1)
	}

	logger.Info("task loaded",
		"task_id", descriptor.TaskID,
		"role", descriptor.Role,
		"tier", descriptor.Tier,
		"capabilities", strings.Join(descriptor.Capabilities, ","),
	)

	waitForSidecar(ctx, cfg, logger)

	controller := buildController(cfg, descriptor, logger)
	spawner := delegationController(descriptor, controller)

	registry := tool.BuildRegistry(descriptor, func(o *tool.CatalogOptions) {
		o.Controller = spawner
		o.ShellWork = cfg.WorkDir
		o.Logger = logger
	})

	store := checkpoint.NewStore(cfg.StatePath, logger)
	cp := store.Load()
	childResults := task.LoadChildResults(cfg.ChildResultsDir, logger)

	systemPrompt := prompt.Build(prompt.Params{
		Role:           descriptor.Role,
		Tier:           descriptor.Tier,
		ToolNames:      registry.Names(),
		AvailableRoles: fetchRoles(ctx, spawner, logger),
		BudgetTokens:   descriptor.Budget.MaxTokens,
		BudgetUSD:      descriptor.Budget.MaxCostUSD,
	})

	userTurn := descriptor.Prompt
	decisions := 0
	if cp != nil {
		logger.Info("resuming from checkpoint",
			"task_id", cp.TaskID,
			"pending_children", len(cp.PendingChildren),
			"new_results", len(childResults),
		)
		userTurn = checkpoint.BuildResumeContext(cp, childResults)
		decisions = len(cp.Decisions)
	}
	contents := []core.Content{
		core.NewSystemContent(systemPrompt),
		core.NewUserContent(userTurn),
	}

	cancel := runner.NewCancelToken()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Warn("signal received, requesting cancellation", "signal", sig.String())
		cancel.Cancel()
	}()
	defer signal.Stop(sigCh)

	mdl := buildModel(cfg, descriptor, logger)

	r := runner.New(descriptor.TaskID, mdl, registry, store, func(o *runner.Options) {
		o.Logger = logger
	})
	res := r.Run(ctx, contents, descriptor.Budget, cancel)

	duration := int(time.Since(start).Seconds())
	logger.Info("run finished",
		"task_id", descriptor.TaskID,
		"status", res.Status,
		"tokens_in", res.TokensIn,
		"tokens_out", res.TokensOut,
		"artifacts", len(res.Artifacts),
		"pending_children", len(res.PendingChildren),
		"duration_s", duration,
	)

	writeRecords(cfg, logger, &task.Result{
		TaskID:     descriptor.TaskID,
		Status:     res.Status,
		Summary:    res.Output,
		Artifacts:  res.Artifacts,
		Decisions:  decisions,
		TokensUsed: task.TokensUsed{Input: int(res.TokensIn), Output: int(res.TokensOut)},
		Duration:   duration,
	})

	report(ctx, controller, logger, res)
	return nil
}

// waitForSidecar gives the redaction sidecar time to come up. A sidecar that
// never becomes healthy only disables redaction; the run itself proceeds.
func waitForSidecar(ctx context.Context, cfg config.Config, logger logging.Logger) bool {
	if cfg.PIIEndpoint == "" {
		return true
	}
	wait := time.Duration(cfg.PIIWaitSeconds) * time.Second
	if err := sidecar.WaitReady(ctx, cfg.PIIEndpoint, wait, logger); err != nil {
		logger.Warn("redaction sidecar not reachable, continuing without it",
			"endpoint", cfg.PIIEndpoint,
			"error", err,
		)
		return false
	}
	return true
}

// buildController wires the CLI bridge to the controlling process. Every tier
// reports its outcome upstream, so the controller exists unconditionally.
func buildController(cfg config.Config, d *task.Descriptor, logger logging.Logger) tool.Controller {
	return tool.NewCLIController(func(o *tool.CLIControllerOptions) {
		o.Binary = cfg.ControllerBin
		o.Parent = parentName(cfg, d)
		o.Namespace = cfg.Namespace
		o.Logger = logger
	})
}

// delegationController returns the controller only for tiers allowed to spawn
// children; leaf tiers get nil so no delegation tools are registered.
func delegationController(d *task.Descriptor, c tool.Controller) tool.Controller {
	if !d.Tier.CanSpawn() {
		return nil
	}
	return c
}

func buildLogger(cfg config.Config) logging.Logger {
	level := logging.LogLevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = logging.LogLevelDebug
	case "warn":
		level = logging.LogLevelWarn
	case "error":
		level = logging.LogLevelError
	}
	return logging.New(&logging.Config{Level: level, Format: cfg.LogFormat})
}

// buildModel picks the provider from the model id and applies a custom
// endpoint from the descriptor unless it points at a first-party API host.
func buildModel(cfg config.Config, d *task.Descriptor, logger logging.Logger) model.Model {
	modelID := cfg.Model
	if modelID == "" {
		modelID = "claude-sonnet-4-20250514"
	}

	endpoint := customEndpoint(d.Model.Endpoint)
	logger.Info("model selected", "model", modelID, "endpoint", endpoint)

	if strings.Contains(modelID, "claude") {
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(modelID)
			o.BaseURL = endpoint
		})
	}
	return openai.NewModel(func(o *openai.Options) {
		o.Model = modelID
		o.BaseURL = endpoint
	})
}

// customEndpoint keeps only genuinely custom endpoints, such as a local
// redaction proxy; first-party API hosts are reached through the SDK default.
func customEndpoint(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	for _, host := range []string{"anthropic.com", "openai.com"} {
		if strings.Contains(endpoint, host) {
			return ""
		}
	}
	return endpoint
}

func fetchRoles(ctx context.Context, controller tool.Controller, logger logging.Logger) []prompt.RoleInfo {
	if controller == nil {
		return nil
	}
	roles, err := controller.RolesList(ctx)
	if err != nil {
		// Listing roles is advisory prompt context; spawning still works
		// without it.
		logger.Warn("role listing unavailable", "error", err)
		return nil
	}
	infos := make([]prompt.RoleInfo, 0, len(roles))
	for _, r := range roles {
		infos = append(infos, prompt.RoleInfo{
			Name:         r.Name,
			TierAffinity: r.TierAffinity,
			Description:  r.Description,
		})
	}
	return infos
}

func writeRecords(cfg config.Config, logger logging.Logger, res *task.Result) {
	if err := task.WriteResult(cfg.ResultPath, res); err != nil {
		logger.Error("result write failed", "path", cfg.ResultPath, "error", err)
	}
	usage := &task.Usage{
		Input:  res.TokensUsed.Input,
		Output: res.TokensUsed.Output,
		Total:  res.TokensUsed.Input + res.TokensUsed.Output,
	}
	if err := task.WriteUsage(cfg.UsagePath, usage); err != nil {
		logger.Error("usage write failed", "path", cfg.UsagePath, "error", err)
	}
}

// writeFailure records a terminal failure for input and startup errors so
// the controller always finds a result, then the caller exits nonzero.
func writeFailure(cfg config.Config, logger logging.Logger, taskID, reason string, start time.Time) {
	writeRecords(cfg, logger, &task.Result{
		TaskID:   taskID,
		Status:   task.StatusFailed,
		Summary:  reason,
		Duration: int(time.Since(start).Seconds()),
	})
}

func report(ctx context.Context, controller tool.Controller, logger logging.Logger, res runner.Result) {
	req := tool.ReportRequest{
		Result:    util.TruncateHead(res.Output, reportSummaryLimit),
		TokensIn:  int(res.TokensIn),
		TokensOut: int(res.TokensOut),
	}
	if err := controller.Report(ctx, req); err != nil {
		logger.Warn("upstream report failed", "error", err)
	}
}

func parentName(cfg config.Config, d *task.Descriptor) string {
	if cfg.TaskName != "" {
		return cfg.TaskName
	}
	return d.TaskID
}

func taskIDFallback(cfg config.Config) string {
	if cfg.TaskName != "" {
		return cfg.TaskName
	}
	return fmt.Sprintf("unknown-%s", filepath.Base(cfg.TaskPath))
}
