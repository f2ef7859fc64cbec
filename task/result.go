package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Status is the terminal state reported for one process lifetime.
type Status string

const (
	// StatusCompleted means the model produced a final answer.
	StatusCompleted Status = "completed"
	// StatusFailed covers input errors, transport errors, cancellation and
	// the iteration ceiling.
	StatusFailed Status = "failed"
	// StatusBudgetExceeded means the token ceiling was reached.
	StatusBudgetExceeded Status = "budget_exceeded"
	// StatusWaiting is defined for callers that expect a voluntary
	// suspension state; the run loop itself never produces it.
	StatusWaiting Status = "waiting"
)

// TokensUsed reports cumulative token spend for the lifetime.
type TokensUsed struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Result is the persisted record the external controller reads after every
// process exit, success or failure.
type Result struct {
	TaskID     string     `json:"taskId"`
	Status     Status     `json:"status"`
	Summary    string     `json:"summary"`
	Artifacts  []string   `json:"artifacts"`
	Decisions  int        `json:"decisions"`
	TokensUsed TokensUsed `json:"tokensUsed"`
	Duration   int        `json:"duration"` // seconds
}

// Usage is the companion spend record.
type Usage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// WriteResult persists the result record, creating the containing directory
// as needed. Callers treat failures as non-fatal and log them; the result
// must never mask an already-computed outcome.
func WriteResult(path string, r *Result) error {
	if r.Artifacts == nil {
		r.Artifacts = []string{}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// WriteUsage persists the usage record next to the result.
func WriteUsage(path string, u *Usage) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal usage: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create usage dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write usage: %w", err)
	}
	return nil
}
