package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/legionhq/legion/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request captures the normalized model input produced by the run loop. The
// system message travels inside Contents; adapters extract it into whatever
// shape the provider expects.
type Request struct {
	Contents []core.Content   `json:"contents"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// Response is a chunk emitted by a model. The run loop consumes the final
// (non-partial) response of each generation.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "end_turn", "tool_calls", "tool_use", ...
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a scriptable in-memory Model for tests. Responses are played
// back in enqueue order; a scripted error takes the place of one generation.
// When the script is exhausted a plain completed text response is emitted.
type MockModel struct {
	mu     sync.Mutex
	info   Info
	script []scriptEntry
	calls  int
}

type scriptEntry struct {
	resp Response
	err  error
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{Name: name, Provider: "mock", SupportsTools: true},
	}
}

// Enqueue appends a canned response to the playback script.
func (m *MockModel) Enqueue(resp Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptEntry{resp: resp})
	return m
}

// EnqueueError appends a transport failure to the playback script.
func (m *MockModel) EnqueueError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptEntry{err: err})
	return m
}

// Calls reports how many generations have been requested.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements Model by replaying the script.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.calls++
	var entry scriptEntry
	if len(m.script) > 0 {
		entry = m.script[0]
		m.script = m.script[1:]
	} else {
		entry = scriptEntry{resp: Response{
			Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: fmt.Sprintf("mock response %d", m.calls)}}},
			FinishReason: "stop",
		}}
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if entry.err != nil {
			errCh <- entry.err
			return
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- entry.resp:
		}
	}()
	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
