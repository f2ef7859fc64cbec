package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/legionhq/legion/logging"
)

// Command protocol timeouts. Synchronous spawn-and-wait blocks for the
// duration of the child run; everything else is a quick control call.
const (
	spawnAsyncTimeout = 30 * time.Second
	spawnWaitTimeout  = 600 * time.Second
	controlTimeout    = 15 * time.Second
	reportTimeout     = 30 * time.Second
)

// CLIControllerOptions configures the subprocess-backed controller.
type CLIControllerOptions struct {
	// Binary is the controller CLI name or path.
	Binary string
	// Parent is the spawning task's name, recorded on children.
	Parent string
	// Namespace scopes controller operations.
	Namespace string
	Logger    logging.Logger
}

// CLIController implements Controller by shelling out to the external
// controller CLI. Each call runs one subprocess expected to print a single
// JSON object on stdout; a nonzero exit or unparseable output becomes a
// structured error, never a raised failure.
type CLIController struct {
	opts CLIControllerOptions
}

var _ Controller = (*CLIController)(nil)

// NewCLIController constructs a controller bound to the given CLI.
func NewCLIController(optFns ...func(o *CLIControllerOptions)) *CLIController {
	opts := CLIControllerOptions{Binary: "legionctl"}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &CLIController{opts: opts}
}

// run executes one CLI invocation and returns its stdout.
func (c *CLIController) run(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.opts.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	c.opts.Logger.Debug("controller call",
		"args", strings.Join(args, " "),
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", c.opts.Binary, args[0], msg)
	}
	return stdout.Bytes(), nil
}

// runJSON executes one CLI invocation and decodes the single JSON object it
// prints. Unparseable output is surfaced under the "raw" convention used by
// the loose replies below.
func (c *CLIController) runJSON(ctx context.Context, timeout time.Duration, args ...string) (map[string]any, string, error) {
	out, err := c.run(ctx, timeout, args...)
	if err != nil {
		return nil, "", err
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		return nil, strings.TrimSpace(string(out)), nil
	}
	return decoded, "", nil
}

// Spawn implements Controller.
func (c *CLIController) Spawn(ctx context.Context, req SpawnRequest) (SpawnReply, error) {
	if req.Prompt == "" {
		return SpawnReply{}, fmt.Errorf("prompt is required")
	}

	args := []string{"spawn", "--prompt", req.Prompt}
	if c.opts.Parent != "" {
		args = append(args, "--parent", c.opts.Parent)
	}
	if req.Role != "" {
		args = append(args, "--role", req.Role)
	}
	if req.Tier != "" {
		args = append(args, "--tier", req.Tier)
	}
	if req.Capabilities != "" {
		args = append(args, "--capabilities", req.Capabilities)
	}
	timeout := spawnAsyncTimeout
	if req.Wait {
		args = append(args, "--wait")
		timeout = spawnWaitTimeout
	}
	args = append(args, "-o", "json")

	decoded, raw, err := c.runJSON(ctx, timeout, args...)
	if err != nil {
		return SpawnReply{}, err
	}
	if decoded == nil {
		return SpawnReply{Output: raw}, nil
	}

	name := str(decoded, "name")
	if name == "" {
		name = str(decoded, "task")
	}
	return SpawnReply{
		TaskName: name,
		Phase:    str(decoded, "phase"),
		Output:   str(decoded, "output"),
	}, nil
}

// Status implements Controller.
func (c *CLIController) Status(ctx context.Context, name string) (StatusReply, error) {
	decoded, raw, err := c.runJSON(ctx, controlTimeout, "status", name, "-o", "json")
	if err != nil {
		return StatusReply{}, err
	}
	if decoded == nil {
		return StatusReply{Name: name, Phase: "Unknown", Message: raw}, nil
	}
	phase := str(decoded, "phase")
	if phase == "" {
		phase = "Unknown"
	}
	return StatusReply{Name: name, Phase: phase, Message: str(decoded, "message")}, nil
}

// Result implements Controller.
func (c *CLIController) Result(ctx context.Context, name string) (ResultReply, error) {
	decoded, raw, err := c.runJSON(ctx, controlTimeout, "result", name, "-o", "json")
	if err != nil {
		return ResultReply{}, err
	}
	if decoded == nil {
		return ResultReply{Name: name, Output: raw}, nil
	}
	return ResultReply{
		Name:   name,
		Phase:  str(decoded, "phase"),
		Output: str(decoded, "output"),
	}, nil
}

// Cancel implements Controller.
func (c *CLIController) Cancel(ctx context.Context, name string) error {
	_, err := c.run(ctx, controlTimeout, "cancel", name)
	return err
}

// RolesList implements Controller.
func (c *CLIController) RolesList(ctx context.Context) ([]Role, error) {
	out, err := c.run(ctx, controlTimeout, "roles", "list", "-o", "json")
	if err != nil {
		return nil, err
	}
	var roles []Role
	if err := json.Unmarshal(out, &roles); err != nil {
		return nil, fmt.Errorf("parse roles output: %w", err)
	}
	return roles, nil
}

// RoleDescribe implements Controller.
func (c *CLIController) RoleDescribe(ctx context.Context, name string) (Role, error) {
	out, err := c.run(ctx, controlTimeout, "roles", "describe", name, "-o", "json")
	if err != nil {
		return Role{}, err
	}
	var role Role
	if err := json.Unmarshal(out, &role); err != nil {
		return Role{}, fmt.Errorf("parse role output: %w", err)
	}
	return role, nil
}

// Report implements Controller.
func (c *CLIController) Report(ctx context.Context, req ReportRequest) error {
	_, err := c.run(ctx, reportTimeout, "report",
		"--result", req.Result,
		"--tokens-in", strconv.Itoa(req.TokensIn),
		"--tokens-out", strconv.Itoa(req.TokensOut),
	)
	return err
}

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
