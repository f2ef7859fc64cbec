package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name string
	call func(ctx context.Context, args map[string]any) Outcome
}

func (s *stubTool) Name() string               { return s.name }
func (s *stubTool) Description() string        { return "stub" }
func (s *stubTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (s *stubTool) Call(ctx context.Context, args map[string]any) Outcome {
	return s.call(ctx, args)
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubTool{name: "echo", call: func(_ context.Context, args map[string]any) Outcome {
		return Ok(ShellPayload{Stdout: args["text"].(string)})
	}})

	out := r.Dispatch(t.Context(), "echo", map[string]any{"text": "hi"})
	require.True(t, out.Success)
	assert.Equal(t, "hi", out.Payload.(ShellPayload).Stdout)
}

func TestRegistryDispatchUnknownTool(t *testing.T) {
	r := NewRegistry(nil)

	out := r.Dispatch(t.Context(), "nonexistent", nil)
	require.False(t, out.Success)
	assert.Contains(t, out.Error, "unknown tool")
	assert.Contains(t, out.Error, "nonexistent")
}

func TestRegistryDispatchRecoversPanic(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubTool{name: "boom", call: func(context.Context, map[string]any) Outcome {
		panic("kaboom")
	}})

	out := r.Dispatch(t.Context(), "boom", nil)
	require.False(t, out.Success)
	assert.Contains(t, out.Error, "kaboom")
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		r.Register(&stubTool{name: name, call: func(context.Context, map[string]any) Outcome {
			return Ok(nil)
		}})
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}

func TestRegistryDefinitions(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubTool{name: "echo", call: func(context.Context, map[string]any) Outcome {
		return Ok(nil)
	}})

	defs := r.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "echo", defs[0].Function.Name)
	assert.NotEmpty(t, defs[0].Function.Description)
}
