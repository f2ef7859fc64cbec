package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legionhq/legion/checkpoint"
	"github.com/legionhq/legion/core"
	"github.com/legionhq/legion/model"
	"github.com/legionhq/legion/task"
	"github.com/legionhq/legion/tool"
)

func textResponse(text, finish string, usage *model.TokenUsage) model.Response {
	return model.Response{
		Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: text}}},
		FinishReason: finish,
		Usage:        usage,
	}
}

func toolCallResponse(text string, calls ...core.FunctionCall) model.Response {
	parts := []core.Part{}
	if text != "" {
		parts = append(parts, core.TextPart{Text: text})
	}
	for _, c := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}
	return model.Response{
		Content:      core.Content{Role: "assistant", Parts: parts},
		FinishReason: "tool_calls",
		Usage:        &model.TokenUsage{PromptTokens: 10, CompletionTokens: 5},
	}
}

// fixedTool returns a canned outcome and records its invocations.
type fixedTool struct {
	name    string
	outcome tool.Outcome
	calls   []map[string]any
}

func (f *fixedTool) Name() string               { return f.name }
func (f *fixedTool) Description() string        { return "test tool" }
func (f *fixedTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (f *fixedTool) Call(_ context.Context, args map[string]any) tool.Outcome {
	f.calls = append(f.calls, args)
	return f.outcome
}

// scriptedTool plays back a sequence of outcomes, one per invocation.
type scriptedTool struct {
	name     string
	outcomes []tool.Outcome
	calls    int
}

func (s *scriptedTool) Name() string               { return s.name }
func (s *scriptedTool) Description() string        { return "test tool" }
func (s *scriptedTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (s *scriptedTool) Call(_ context.Context, _ map[string]any) tool.Outcome {
	outcome := s.outcomes[s.calls]
	s.calls++
	return outcome
}

type fixture struct {
	mock     *model.MockModel
	registry *tool.Registry
	store    *checkpoint.Store
	path     string
}

func newFixture(t *testing.T, tools ...tool.Tool) *fixture {
	t.Helper()
	reg := tool.NewRegistry(nil)
	for _, tl := range tools {
		reg.Register(tl)
	}
	path := filepath.Join(t.TempDir(), "state.json")
	return &fixture{
		mock:     model.NewMockModel("test"),
		registry: reg,
		store:    checkpoint.NewStore(path, nil),
		path:     path,
	}
}

func (f *fixture) runner(taskID string, optFns ...func(o *Options)) *Runner {
	return New(taskID, f.mock, f.registry, f.store, optFns...)
}

func conversation(prompt string) []core.Content {
	return []core.Content{
		core.NewSystemContent("You are a test agent."),
		core.NewUserContent(prompt),
	}
}

func (f *fixture) checkpointExists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

func TestRunCompletes(t *testing.T) {
	f := newFixture(t)
	f.mock.Enqueue(textResponse("all done", "stop", &model.TokenUsage{PromptTokens: 100, CompletionTokens: 40}))

	res := f.runner("task-1").Run(t.Context(), conversation("do the thing"), task.Budget{}, nil)

	assert.Equal(t, task.StatusCompleted, res.Status)
	assert.Equal(t, "all done", res.Output)
	assert.Equal(t, int64(100), res.TokensIn)
	assert.Equal(t, int64(40), res.TokensOut)
	assert.Equal(t, 1, f.mock.Calls())
	assert.False(t, f.checkpointExists())
}

func TestRunEndTurnCompletes(t *testing.T) {
	f := newFixture(t)
	f.mock.Enqueue(textResponse("finished", "end_turn", nil))

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{}, nil)
	assert.Equal(t, task.StatusCompleted, res.Status)
}

func TestRunDispatchesToolCallsInOrder(t *testing.T) {
	first := &fixedTool{name: "first", outcome: tool.Ok(tool.ShellPayload{Stdout: "one"})}
	second := &fixedTool{name: "second", outcome: tool.Ok(tool.ShellPayload{Stdout: "two"})}
	f := newFixture(t, first, second)

	f.mock.Enqueue(toolCallResponse("working",
		core.FunctionCall{ID: "c1", Name: "first", Arguments: `{"n":1}`},
		core.FunctionCall{ID: "c2", Name: "second", Arguments: `{"n":2}`},
	))
	f.mock.Enqueue(textResponse("done", "stop", nil))

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{}, nil)

	assert.Equal(t, task.StatusCompleted, res.Status)
	assert.Equal(t, 2, f.mock.Calls())
	require.Len(t, first.calls, 1)
	require.Len(t, second.calls, 1)
	assert.Equal(t, float64(1), first.calls[0]["n"])
}

func TestRunToolCallWithMalformedArguments(t *testing.T) {
	echo := &fixedTool{name: "echo", outcome: tool.Ok(tool.ShellPayload{})}
	f := newFixture(t, echo)

	f.mock.Enqueue(toolCallResponse("",
		core.FunctionCall{ID: "c1", Name: "echo", Arguments: `{broken`},
	))
	f.mock.Enqueue(textResponse("recovered", "stop", nil))

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{}, nil)

	// The malformed call is turned into a failed outcome fed back to the
	// model; the handler itself is never invoked and the run continues.
	assert.Equal(t, task.StatusCompleted, res.Status)
	assert.Empty(t, echo.calls)
}

func TestRunBudgetExceededWritesCheckpoint(t *testing.T) {
	noop := &fixedTool{name: "noop", outcome: tool.Ok(tool.ShellPayload{})}
	f := newFixture(t, noop)

	f.mock.Enqueue(toolCallResponse("spending tokens",
		core.FunctionCall{ID: "c1", Name: "noop"},
	))

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{MaxTokens: 12}, nil)

	assert.Equal(t, task.StatusBudgetExceeded, res.Status)
	assert.Equal(t, 1, f.mock.Calls())

	cp := f.store.Load()
	require.NotNil(t, cp)
	assert.Equal(t, checkpoint.SchemaVersion, cp.Version)
	assert.Equal(t, "task-1", cp.TaskID)
	assert.Equal(t, checkpoint.PhaseWaiting, cp.Phase)
	assert.Contains(t, cp.AccumulatedContext, "spending tokens")
}

func TestRunIterationCeilingWritesCheckpoint(t *testing.T) {
	noop := &fixedTool{name: "noop", outcome: tool.Ok(tool.ShellPayload{})}
	f := newFixture(t, noop)

	for i := 0; i < 3; i++ {
		f.mock.Enqueue(toolCallResponse(fmt.Sprintf("step %d", i),
			core.FunctionCall{ID: fmt.Sprintf("c%d", i), Name: "noop"},
		))
	}

	r := f.runner("task-1", func(o *Options) { o.MaxIterations = 3 })
	res := r.Run(t.Context(), conversation("go"), task.Budget{}, nil)

	assert.Equal(t, task.StatusFailed, res.Status)
	assert.Contains(t, res.Output, "iteration limit")
	assert.Equal(t, 3, f.mock.Calls())
	require.NotNil(t, f.store.Load())
}

func TestRunCancellationWritesCheckpoint(t *testing.T) {
	f := newFixture(t)
	cancel := NewCancelToken()
	cancel.Cancel()

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{}, cancel)

	assert.Equal(t, task.StatusFailed, res.Status)
	assert.Contains(t, res.Output, "cancelled")
	assert.Equal(t, 0, f.mock.Calls())

	cp := f.store.Load()
	require.NotNil(t, cp)
	assert.Equal(t, checkpoint.PhaseWaiting, cp.Phase)
}

func TestRunTransportFailureSkipsCheckpoint(t *testing.T) {
	f := newFixture(t)
	f.mock.EnqueueError(errors.New("connection reset"))

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{}, nil)

	assert.Equal(t, task.StatusFailed, res.Status)
	assert.Contains(t, res.Output, "connection reset")
	assert.False(t, f.checkpointExists())
}

func TestRunUnknownStopReasonWithText(t *testing.T) {
	f := newFixture(t)
	f.mock.Enqueue(textResponse("partial but usable", "length", nil))

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{}, nil)

	assert.Equal(t, task.StatusCompleted, res.Status)
	assert.Equal(t, "partial but usable", res.Output)
}

func TestRunUnknownStopReasonWithoutText(t *testing.T) {
	f := newFixture(t)
	f.mock.Enqueue(textResponse("", "content_filter", nil))

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{}, nil)

	assert.Equal(t, task.StatusFailed, res.Status)
	assert.Contains(t, res.Output, "content_filter")
	assert.False(t, f.checkpointExists())
}

func TestRunSpawnBookkeeping(t *testing.T) {
	spawn := &fixedTool{
		name:    "spawn_task",
		outcome: tool.Ok(tool.SpawnPayload{TaskName: "child-async", Phase: "Pending", Async: true}),
	}
	f := newFixture(t, spawn)

	f.mock.Enqueue(toolCallResponse("delegating",
		core.FunctionCall{ID: "c1", Name: "spawn_task", Arguments: `{"prompt":"child work"}`},
	))

	r := f.runner("task-1", func(o *Options) { o.MaxIterations = 1 })
	res := r.Run(t.Context(), conversation("go"), task.Budget{}, nil)

	assert.Equal(t, []string{"child-async"}, res.PendingChildren)

	cp := f.store.Load()
	require.NotNil(t, cp)
	require.Len(t, cp.PendingChildren, 1)
	assert.Equal(t, checkpoint.ChildRef{Name: "child-async", Status: checkpoint.ChildRunning}, cp.PendingChildren[0])
	assert.Empty(t, cp.CompletedChildren)
}

func TestRunSyncSpawnCountsCompleted(t *testing.T) {
	spawn := &fixedTool{
		name:    "spawn_task",
		outcome: tool.Ok(tool.SpawnPayload{TaskName: "child-sync", Phase: "Completed", Output: "done", Async: false}),
	}
	f := newFixture(t, spawn)

	f.mock.Enqueue(toolCallResponse("delegating",
		core.FunctionCall{ID: "c1", Name: "spawn_task", Arguments: `{"prompt":"child work","wait":true}`},
	))

	r := f.runner("task-1", func(o *Options) { o.MaxIterations = 1 })
	res := r.Run(t.Context(), conversation("go"), task.Budget{}, nil)

	assert.Empty(t, res.PendingChildren)

	cp := f.store.Load()
	require.NotNil(t, cp)
	require.Len(t, cp.CompletedChildren, 1)
	assert.Equal(t, "child-sync", cp.CompletedChildren[0].Name)
}

func TestRunRespawnedChildStaysPending(t *testing.T) {
	spawn := &scriptedTool{
		name: "spawn_task",
		outcomes: []tool.Outcome{
			tool.Ok(tool.SpawnPayload{TaskName: "child-x", Phase: "Pending", Async: true}),
			tool.Ok(tool.SpawnPayload{TaskName: "child-x", Phase: "Completed", Output: "done", Async: false}),
		},
	}
	f := newFixture(t, spawn)

	f.mock.Enqueue(toolCallResponse("delegating",
		core.FunctionCall{ID: "c1", Name: "spawn_task", Arguments: `{"prompt":"child work"}`},
	))
	f.mock.Enqueue(toolCallResponse("retrying",
		core.FunctionCall{ID: "c2", Name: "spawn_task", Arguments: `{"prompt":"child work","wait":true}`},
	))

	r := f.runner("task-1", func(o *Options) { o.MaxIterations = 2 })
	res := r.Run(t.Context(), conversation("go"), task.Budget{}, nil)

	assert.Equal(t, 2, spawn.calls)
	assert.Equal(t, []string{"child-x"}, res.PendingChildren)

	// A name spawned both async and sync must appear in exactly one
	// checkpoint list, and the pending side wins.
	cp := f.store.Load()
	require.NotNil(t, cp)
	require.Len(t, cp.PendingChildren, 1)
	assert.Equal(t, checkpoint.ChildRef{Name: "child-x", Status: checkpoint.ChildRunning}, cp.PendingChildren[0])
	assert.Empty(t, cp.CompletedChildren)
}

func TestRunRecordsArtifacts(t *testing.T) {
	write := &fixedTool{
		name:    "write_file",
		outcome: tool.Ok(tool.WritePayload{Path: "/outbox/artifacts/report.md", BytesWritten: 42}),
	}
	f := newFixture(t, write)

	f.mock.Enqueue(toolCallResponse("writing",
		core.FunctionCall{ID: "c1", Name: "write_file", Arguments: `{"path":"/outbox/artifacts/report.md","content":"x"}`},
	))
	f.mock.Enqueue(textResponse("done", "stop", nil))

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{}, nil)

	assert.Equal(t, task.StatusCompleted, res.Status)
	assert.Equal(t, []string{"report.md"}, res.Artifacts)
}

func TestRunIgnoresNonArtifactWrites(t *testing.T) {
	write := &fixedTool{
		name:    "write_file",
		outcome: tool.Ok(tool.WritePayload{Path: "/workspace/scratch.txt", BytesWritten: 3}),
	}
	f := newFixture(t, write)

	f.mock.Enqueue(toolCallResponse("",
		core.FunctionCall{ID: "c1", Name: "write_file"},
	))
	f.mock.Enqueue(textResponse("done", "stop", nil))

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{}, nil)
	assert.Empty(t, res.Artifacts)
}

func TestRunWaitSentinelDoesNotSuspend(t *testing.T) {
	wait := &fixedTool{
		name:    "checkpoint_and_wait",
		outcome: tool.Ok(tool.WaitPayload{Summary: "pausing", Wait: true}),
	}
	f := newFixture(t, wait)

	f.mock.Enqueue(toolCallResponse("waiting",
		core.FunctionCall{ID: "c1", Name: "checkpoint_and_wait", Arguments: `{"summary":"pausing"}`},
	))
	f.mock.Enqueue(textResponse("resumed and finished", "stop", nil))

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{}, nil)

	// The sentinel is recorded in the conversation but the loop keeps
	// driving generations rather than suspending.
	assert.Equal(t, task.StatusCompleted, res.Status)
	assert.Equal(t, 2, f.mock.Calls())
}

func TestRunAccumulatedContextWindow(t *testing.T) {
	noop := &fixedTool{name: "noop", outcome: tool.Ok(tool.ShellPayload{})}
	f := newFixture(t, noop)

	long := strings.Repeat("a", 600)
	for _, text := range []string{"oldest", "second", "third", long} {
		f.mock.Enqueue(toolCallResponse(text,
			core.FunctionCall{ID: "c", Name: "noop"},
		))
	}

	r := f.runner("task-1", func(o *Options) { o.MaxIterations = 4 })
	res := r.Run(t.Context(), conversation("go"), task.Budget{}, nil)
	assert.Equal(t, task.StatusFailed, res.Status)

	cp := f.store.Load()
	require.NotNil(t, cp)

	snippets := strings.Split(cp.AccumulatedContext, "\n---\n")
	require.Len(t, snippets, 3)
	assert.Equal(t, "second", snippets[0])
	assert.Equal(t, "third", snippets[1])
	assert.Len(t, snippets[2], 500)
	assert.NotContains(t, cp.AccumulatedContext, "oldest")
}

func TestRunGeneratesToolCallIDs(t *testing.T) {
	noop := &fixedTool{name: "noop", outcome: tool.Ok(tool.ShellPayload{})}
	f := newFixture(t, noop)

	// No provider-assigned ID on the call.
	f.mock.Enqueue(toolCallResponse("",
		core.FunctionCall{Name: "noop"},
	))
	f.mock.Enqueue(textResponse("done", "stop", nil))

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{}, nil)
	assert.Equal(t, task.StatusCompleted, res.Status)
	require.Len(t, noop.calls, 1)
}

func TestRunUsageAccumulatesAcrossIterations(t *testing.T) {
	noop := &fixedTool{name: "noop", outcome: tool.Ok(tool.ShellPayload{})}
	f := newFixture(t, noop)

	f.mock.Enqueue(toolCallResponse("one", core.FunctionCall{ID: "c1", Name: "noop"}))
	f.mock.Enqueue(textResponse("two", "stop", &model.TokenUsage{PromptTokens: 30, CompletionTokens: 20}))

	res := f.runner("task-1").Run(t.Context(), conversation("go"), task.Budget{}, nil)

	assert.Equal(t, int64(40), res.TokensIn)  // 10 + 30
	assert.Equal(t, int64(25), res.TokensOut) // 5 + 20
}
