package tool

import "context"

// Tool is the single invoke contract every dispatchable capability
// implements. Implementations must convert all internal failures into a
// failed Outcome; nothing may panic or raise past Call.
type Tool interface {
	// Name returns the unique identifier used in function call routing
	// (snake_case, matching the catalog entry shown to the model).
	Name() string

	// Description is the natural language description exposed to the model.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with decoded arguments. The context carries
	// the caller's deadline and cancellation; long-running tools must
	// honor it.
	Call(ctx context.Context, args map[string]any) Outcome
}

// stringArg extracts a required string argument, returning ok=false when the
// argument is missing or not a string.
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// boolArg extracts an optional boolean argument, defaulting to false.
func boolArg(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// intArg extracts an optional integer argument. JSON numbers decode as
// float64; both forms are accepted.
func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}
