package tool

import (
	"context"
	"sort"
	"time"

	"github.com/legionhq/legion/logging"
	"github.com/legionhq/legion/model"
)

// Registry maps tool names to handlers and dispatches calls. It holds no
// per-call state; handlers are safe for reuse across loop iterations.
type Registry struct {
	tools  map[string]Tool
	logger logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logging.OrNoOp(logger),
	}
}

// Register adds a tool to the registry, replacing any previous handler of
// the same name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions renders the registry as the tool catalog handed to the model.
func (r *Registry) Definitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(r.tools))
	for _, name := range r.Names() {
		t := r.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Dispatch resolves a tool name and executes it. Unknown tools, handler
// errors and handler panics are all converted into a failed Outcome; nothing
// escapes this boundary.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (out Outcome) {
	t, ok := r.tools[name]
	if !ok {
		return Errorf("unknown tool: %s", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", name, "recover", rec)
			out = Errorf("tool %s failed: %v", name, rec)
		}
	}()

	start := time.Now()
	out = t.Call(ctx, args)
	r.logger.Info("tool executed",
		"tool", name,
		"duration_ms", time.Since(start).Milliseconds(),
		"success", out.Success,
	)
	return out
}
