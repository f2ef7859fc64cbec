package runner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/legionhq/legion/checkpoint"
	"github.com/legionhq/legion/core"
	"github.com/legionhq/legion/internal/util"
	"github.com/legionhq/legion/logging"
	"github.com/legionhq/legion/model"
	"github.com/legionhq/legion/task"
	"github.com/legionhq/legion/tool"
)

const (
	// DefaultMaxIterations bounds pathological tool-call loops.
	DefaultMaxIterations = 200

	// contextWindow and contextSnippetLimit shape the accumulated context
	// persisted in a waiting checkpoint: the last N assistant texts, each
	// bounded, joined by a separator.
	contextWindow       = 3
	contextSnippetLimit = 500
	contextSeparator    = "\n---\n"
)

// Options configures a Runner.
type Options struct {
	MaxIterations int
	Logger        logging.Logger
}

// Runner drives the conversation loop for one task. It is single-use: Run
// consumes the initial conversation and returns a terminal result.
type Runner struct {
	taskID   string
	model    model.Model
	registry *tool.Registry
	store    *checkpoint.Store
	logger   logging.Logger
	opts     Options
}

// Result is the terminal outcome of a run. Status is always one of
// completed, failed, or budget_exceeded; suspension paths report failure or
// budget exhaustion while leaving a waiting checkpoint behind for the next
// incarnation.
type Result struct {
	Status          task.Status
	Output          string
	TokensIn        int64
	TokensOut       int64
	Artifacts       []string
	PendingChildren []string
}

// New creates a Runner. store may be nil, in which case suspensions skip
// persistence.
func New(taskID string, m model.Model, registry *tool.Registry, store *checkpoint.Store, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxIterations: DefaultMaxIterations,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return &Runner{
		taskID:   taskID,
		model:    m,
		registry: registry,
		store:    store,
		logger:   logging.OrNoOp(opts.Logger),
		opts:     opts,
	}
}

// Run executes the loop until the model completes, a budget or iteration
// bound trips, cancellation is observed, or the transport fails. Contents
// must open with the system message and the task prompt.
func (r *Runner) Run(ctx context.Context, contents []core.Content, budget task.Budget, cancel *CancelToken) Result {
	var (
		tokensIn       int64
		tokensOut      int64
		assistantTexts []string
		spawned        []string
		pending        []string
		artifacts      []string
	)

	result := func(status task.Status, output string) Result {
		return Result{
			Status:          status,
			Output:          output,
			TokensIn:        tokensIn,
			TokensOut:       tokensOut,
			Artifacts:       artifacts,
			PendingChildren: pending,
		}
	}
	suspend := func(status task.Status, output string) Result {
		r.saveCheckpoint(assistantTexts, spawned, pending)
		return result(status, output)
	}

	tools := r.registry.Definitions()

	for iteration := 1; iteration <= r.opts.MaxIterations; iteration++ {
		if cancel != nil && cancel.Cancelled() {
			r.logger.Warn("cancellation observed", "task_id", r.taskID, "iteration", iteration)
			return suspend(task.StatusFailed, "task cancelled")
		}
		if err := ctx.Err(); err != nil {
			r.logger.Warn("context done before generation", "task_id", r.taskID, "error", err)
			return suspend(task.StatusFailed, "task cancelled: "+err.Error())
		}
		if budget.MaxTokens > 0 && tokensIn+tokensOut >= budget.MaxTokens {
			r.logger.Warn("token budget exhausted",
				"task_id", r.taskID,
				"used", tokensIn+tokensOut,
				"budget", budget.MaxTokens,
			)
			return suspend(task.StatusBudgetExceeded, "token budget exceeded")
		}

		r.logger.Info("iteration start",
			"task_id", r.taskID,
			"iteration", iteration,
			"prompt_hash", promptHash(contents),
			"messages", len(contents),
		)

		resp, err := r.generate(ctx, model.Request{Contents: contents, Tools: tools})
		if err != nil {
			// Transport failure: the conversation state is unknown, so no
			// checkpoint is written.
			r.logger.Error("model call failed", "task_id", r.taskID, "error", err)
			return result(task.StatusFailed, "model call failed: "+err.Error())
		}

		if resp.Usage != nil {
			tokensIn += int64(resp.Usage.PromptTokens)
			tokensOut += int64(resp.Usage.CompletionTokens)
		}

		content := resp.Content
		if content.Role == "" {
			content.Role = "assistant"
		}
		contents = append(contents, content)
		if text := content.Text(); text != "" {
			assistantTexts = append(assistantTexts, text)
		}

		calls := content.FunctionCalls()
		if len(calls) > 0 {
			for _, call := range calls {
				id := call.ID
				if id == "" {
					id = uuid.NewString()
				}
				outcome := r.dispatch(ctx, call)
				r.track(call.Name, outcome, &spawned, &pending, &artifacts)
				contents = append(contents, core.NewToolContent(id, call.Name, outcome.Encode()))
			}
			continue
		}

		text := content.Text()
		switch resp.FinishReason {
		case "stop", "end_turn":
			return result(task.StatusCompleted, text)
		default:
			if text != "" {
				r.logger.Warn("treating stop reason as completion",
					"task_id", r.taskID,
					"finish_reason", resp.FinishReason,
				)
				return result(task.StatusCompleted, text)
			}
			return result(task.StatusFailed, "model stopped without output: "+resp.FinishReason)
		}
	}

	r.logger.Warn("iteration limit reached", "task_id", r.taskID, "limit", r.opts.MaxIterations)
	return suspend(task.StatusFailed, "iteration limit reached")
}

// generate drains one model call down to its final response.
func (r *Runner) generate(ctx context.Context, req model.Request) (model.Response, error) {
	respCh, errCh := r.model.Generate(ctx, req)

	var final model.Response
	var got bool
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !resp.Partial {
				final = resp
				got = true
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return model.Response{}, err
			}
		}
	}
	if !got {
		return model.Response{}, context.Canceled
	}
	return final, nil
}

// dispatch decodes a call's argument payload and routes it to the registry.
// A malformed argument string becomes a failed outcome fed back to the model
// rather than an aborted run.
func (r *Runner) dispatch(ctx context.Context, call core.FunctionCall) tool.Outcome {
	args := map[string]any{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return tool.Errorf("invalid arguments for %s: %v", call.Name, err)
		}
	}
	return r.registry.Dispatch(ctx, call.Name, args)
}

// track updates child and artifact bookkeeping from a tool outcome. Child
// names accumulate in a deduplicated spawned list; pending marks the async
// subset. Completed is derived as spawned minus pending, so a name can never
// land in both checkpoint lists.
func (r *Runner) track(name string, outcome tool.Outcome, spawned, pending, artifacts *[]string) {
	if !outcome.Success {
		return
	}
	switch p := outcome.Payload.(type) {
	case tool.SpawnPayload:
		if p.TaskName == "" {
			return
		}
		*spawned = appendUnique(*spawned, p.TaskName)
		if p.Async {
			*pending = appendUnique(*pending, p.TaskName)
		}
	case tool.WritePayload:
		const artifactPrefix = "/outbox/artifacts/"
		if rel, ok := strings.CutPrefix(p.Path, artifactPrefix); ok && rel != "" {
			*artifacts = append(*artifacts, rel)
		}
	case tool.WaitPayload:
		// Voluntary-suspension sentinel. The result is appended to the
		// conversation like any other; the loop keeps running.
		r.logger.Debug("checkpoint_and_wait acknowledged", "task_id", r.taskID, "summary", p.Summary)
	}
}

// saveCheckpoint persists the waiting snapshot. Persistence failures are
// logged and swallowed so a suspension still reaches its terminal status.
func (r *Runner) saveCheckpoint(assistantTexts, spawned, pending []string) {
	if r.store == nil {
		return
	}
	cp := &checkpoint.Checkpoint{
		TaskID:             r.taskID,
		Phase:              checkpoint.PhaseWaiting,
		CompletedChildren:  childRefs(subtract(spawned, pending), checkpoint.ChildCompleted),
		PendingChildren:    childRefs(pending, checkpoint.ChildRunning),
		Decisions:          []string{},
		AccumulatedContext: accumulatedContext(assistantTexts),
	}
	if err := r.store.Save(cp); err != nil {
		r.logger.Error("checkpoint save failed", "task_id", r.taskID, "error", err)
	}
}

func appendUnique(list []string, name string) []string {
	for _, item := range list {
		if item == name {
			return list
		}
	}
	return append(list, name)
}

// subtract returns the names in all that are absent from exclude, preserving
// order.
func subtract(all, exclude []string) []string {
	var out []string
	for _, name := range all {
		skip := false
		for _, ex := range exclude {
			if name == ex {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, name)
		}
	}
	return out
}

func childRefs(names []string, status string) []checkpoint.ChildRef {
	refs := make([]checkpoint.ChildRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, checkpoint.ChildRef{Name: name, Status: status})
	}
	return refs
}

// accumulatedContext condenses the conversation into the snapshot carried
// across reincarnations: the last few assistant texts, each bounded.
func accumulatedContext(assistantTexts []string) string {
	if len(assistantTexts) == 0 {
		return ""
	}
	start := len(assistantTexts) - contextWindow
	if start < 0 {
		start = 0
	}
	snippets := make([]string, 0, contextWindow)
	for _, text := range assistantTexts[start:] {
		snippets = append(snippets, util.TruncateHead(text, contextSnippetLimit))
	}
	return strings.Join(snippets, contextSeparator)
}

// promptHash fingerprints the newest user message so reincarnations of the
// same task are correlatable in logs without logging prompt text.
func promptHash(contents []core.Content) string {
	for i := len(contents) - 1; i >= 0; i-- {
		if contents[i].Role == "user" {
			sum := sha256.Sum256([]byte(contents[i].Text()))
			return hex.EncodeToString(sum[:])[:16]
		}
	}
	return ""
}
