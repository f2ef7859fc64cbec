package tool

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/legionhq/legion/internal/util"
	"github.com/legionhq/legion/logging"
)

// Output truncation thresholds for shell results (head+tail preserved).
const (
	shellStdoutLimit = 10000
	shellStderrLimit = 5000
)

// ShellToolOptions configures a ShellTool.
type ShellToolOptions struct {
	// WorkDir is the fixed working directory for every command.
	WorkDir string
	// DefaultTimeout applies when the model does not pass one.
	DefaultTimeout time.Duration
	// Policy supplies the command policy per call. Defaults to
	// ShellPolicyFromEnv so policy changes apply without restart.
	Policy func() ShellPolicy
	Logger logging.Logger
}

// ShellTool executes shell commands under the command policy.
type ShellTool struct {
	opts ShellToolOptions
}

// NewShellTool constructs the run_shell tool.
func NewShellTool(optFns ...func(o *ShellToolOptions)) *ShellTool {
	opts := ShellToolOptions{
		WorkDir:        "/workspace",
		DefaultTimeout: 120 * time.Second,
		Policy:         ShellPolicyFromEnv,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &ShellTool{opts: opts}
}

// Name implements Tool.
func (t *ShellTool) Name() string { return "run_shell" }

// Description implements Tool.
func (t *ShellTool) Description() string {
	return "Execute a shell command in /workspace/. Returns stdout, stderr, and exit code. " +
		"Use for: running tests, installing packages, compiling code, git operations, etc."
}

type shellArgs struct {
	Command string `json:"command" description:"The shell command to execute."`
	Timeout *int   `json:"timeout" description:"Timeout in seconds (default: 120)."`
}

// Parameters implements Tool.
func (t *ShellTool) Parameters() map[string]any {
	return util.CreateSchema(shellArgs{})
}

// Call checks the command policy, then runs the command with a bounded
// timeout in the fixed working directory. A policy violation rejects before
// any process spawns; a timeout yields a distinguishable failure outcome.
func (t *ShellTool) Call(ctx context.Context, args map[string]any) Outcome {
	command, ok := stringArg(args, "command")
	if !ok {
		return Errorf("command is required")
	}

	if err := t.opts.Policy().Check(command); err != nil {
		return Errorf("%s", err)
	}

	timeout := t.opts.DefaultTimeout
	if secs := intArg(args, "timeout", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = t.opts.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Fail(ShellPayload{ExitCode: -1},
			"command timed out after %s", timeout)
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return Errorf("command failed to start: %s", err)
		}
	}

	payload := ShellPayload{
		ExitCode: exitCode,
		Stdout:   util.TruncateHeadTail(stdout.String(), shellStdoutLimit),
		Stderr:   util.TruncateHeadTail(stderr.String(), shellStderrLimit),
	}
	if exitCode != 0 {
		return Fail(payload, "command exited with code %d", exitCode)
	}
	return Ok(payload)
}
