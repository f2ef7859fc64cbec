package tool

import (
	"encoding/json"
	"fmt"
)

// Payload is the closed set of per-tool-family outcome variants. Each tool
// family returns its own typed payload behind the common success/error
// envelope, so downstream handling is exhaustively checkable.
type Payload interface{ isPayload() }

// ShellPayload is the outcome of a shell execution.
type ShellPayload struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

func (ShellPayload) isPayload() {}

// ReadPayload is the outcome of a file read.
type ReadPayload struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (ReadPayload) isPayload() {}

// WritePayload is the outcome of a file write.
type WritePayload struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
}

func (WritePayload) isPayload() {}

// SpawnPayload is the outcome of spawning a child task. Async reports
// whether the child is still running (fire-and-forget spawn); the run loop
// uses it for pending-vs-completed bookkeeping.
type SpawnPayload struct {
	TaskName string `json:"task_name"`
	Phase    string `json:"phase"`
	Output   string `json:"output,omitempty"`
	Async    bool   `json:"async"`
}

func (SpawnPayload) isPayload() {}

// StatusPayload is the outcome of a child status check.
type StatusPayload struct {
	Name    string `json:"name"`
	Phase   string `json:"phase"`
	Message string `json:"message,omitempty"`
}

func (StatusPayload) isPayload() {}

// ResultPayload is the outcome of fetching a completed child's result.
type ResultPayload struct {
	Name   string `json:"name"`
	Phase  string `json:"phase,omitempty"`
	Output string `json:"output"`
}

func (ResultPayload) isPayload() {}

// CancelPayload is the outcome of cancelling a child task.
type CancelPayload struct {
	Message string `json:"message"`
}

func (CancelPayload) isPayload() {}

// Role describes one delegation role known to the controller.
type Role struct {
	Name         string `json:"name"`
	TierAffinity string `json:"tierAffinity,omitempty"`
	Description  string `json:"description,omitempty"`
}

// RolesPayload lists available delegation roles.
type RolesPayload struct {
	Roles []Role `json:"roles"`
}

func (RolesPayload) isPayload() {}

// RolePayload describes a single delegation role.
type RolePayload struct {
	Role Role `json:"role"`
}

func (RolePayload) isPayload() {}

// WaitPayload is the voluntary-suspension sentinel returned by
// checkpoint_and_wait. The loop currently appends it like any other result
// without acting on Wait; it is a hook for an explicit suspension
// transition.
type WaitPayload struct {
	Summary string `json:"summary,omitempty"`
	Wait    bool   `json:"checkpoint_and_wait"`
}

func (WaitPayload) isPayload() {}

// Outcome is the universal dispatch result: a success flag plus either a
// typed payload or an error string. It is what gets serialized into the
// conversation as the tool result.
type Outcome struct {
	Success bool
	Error   string
	Payload Payload
}

// Ok wraps a payload in a successful outcome.
func Ok(p Payload) Outcome {
	return Outcome{Success: true, Payload: p}
}

// Fail builds a failed outcome, optionally keeping a partial payload (e.g. a
// shell exit code alongside the error).
func Fail(p Payload, format string, args ...any) Outcome {
	return Outcome{Success: false, Error: fmt.Sprintf(format, args...), Payload: p}
}

// Errorf builds a failed outcome with no payload.
func Errorf(format string, args ...any) Outcome {
	return Outcome{Success: false, Error: fmt.Sprintf(format, args...)}
}

// MarshalJSON flattens the payload fields alongside the success flag and
// error string into a single JSON object, the shape fed back to the model.
func (o Outcome) MarshalJSON() ([]byte, error) {
	flat := map[string]any{"success": o.Success}
	if o.Error != "" {
		flat["error"] = o.Error
	}
	if o.Payload != nil {
		raw, err := json.Marshal(o.Payload)
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		for k, v := range fields {
			flat[k] = v
		}
	}
	return json.Marshal(flat)
}

// Encode renders the outcome as the structured text appended to the
// conversation. Encoding never fails visibly: the fallback is a minimal
// error object rather than a raw exception.
func (o Outcome) Encode() string {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"unencodable tool outcome: %s"}`, err)
	}
	return string(data)
}
