package tool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShellTool(t *testing.T, policy ShellPolicy) *ShellTool {
	t.Helper()
	return NewShellTool(func(o *ShellToolOptions) {
		o.WorkDir = t.TempDir()
		o.Policy = func() ShellPolicy { return policy }
	})
}

func TestShellToolSuccess(t *testing.T) {
	tool := newTestShellTool(t, ShellPolicy{})

	out := tool.Call(t.Context(), map[string]any{"command": "echo hello"})
	require.True(t, out.Success)

	payload, ok := out.Payload.(ShellPayload)
	require.True(t, ok)
	assert.Equal(t, 0, payload.ExitCode)
	assert.Equal(t, "hello\n", payload.Stdout)
	assert.Empty(t, payload.Stderr)
}

func TestShellToolNonZeroExit(t *testing.T) {
	tool := newTestShellTool(t, ShellPolicy{})

	out := tool.Call(t.Context(), map[string]any{"command": "echo oops >&2; exit 3"})
	require.False(t, out.Success)
	assert.Contains(t, out.Error, "3")

	payload, ok := out.Payload.(ShellPayload)
	require.True(t, ok)
	assert.Equal(t, 3, payload.ExitCode)
	assert.Equal(t, "oops\n", payload.Stderr)
}

func TestShellToolTimeout(t *testing.T) {
	tool := newTestShellTool(t, ShellPolicy{})

	out := tool.Call(t.Context(), map[string]any{"command": "sleep 5", "timeout": float64(1)})
	require.False(t, out.Success)
	assert.Contains(t, out.Error, "timed out")

	payload, ok := out.Payload.(ShellPayload)
	require.True(t, ok)
	assert.Equal(t, -1, payload.ExitCode)
}

func TestShellToolPolicyRejection(t *testing.T) {
	tool := newTestShellTool(t, ShellPolicy{Allowed: []string{"echo"}})

	out := tool.Call(t.Context(), map[string]any{"command": "curl http://example.com"})
	require.False(t, out.Success)
	assert.Contains(t, out.Error, "curl")
	assert.Nil(t, out.Payload)
}

func TestShellToolMissingCommand(t *testing.T) {
	tool := newTestShellTool(t, ShellPolicy{})

	out := tool.Call(t.Context(), map[string]any{})
	require.False(t, out.Success)
	assert.Contains(t, out.Error, "command is required")
}

func TestShellToolTruncatesLongOutput(t *testing.T) {
	tool := newTestShellTool(t, ShellPolicy{})

	out := tool.Call(t.Context(), map[string]any{
		"command": "head -c 20000 /dev/zero | tr '\\0' 'x'",
	})
	require.True(t, out.Success)

	payload := out.Payload.(ShellPayload)
	assert.Less(t, len(payload.Stdout), 11000)
	assert.Contains(t, payload.Stdout, "truncated")
	assert.True(t, strings.HasPrefix(payload.Stdout, "xxxx"))
	assert.True(t, strings.HasSuffix(payload.Stdout, "xxxx"))
}
