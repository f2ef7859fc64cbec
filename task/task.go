package task

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Tier is the rank in the delegation hierarchy. It determines whether
// spawning children is permitted and which prompt mode is used.
type Tier string

const (
	// TierTribune is the top-level orchestrator tier.
	TierTribune Tier = "tribune"
	// TierCenturion is the mid-level lead tier.
	TierCenturion Tier = "centurion"
	// TierLegionary is the leaf executor tier.
	TierLegionary Tier = "legionary"
)

// CanSpawn reports whether the tier is permitted to delegate work.
func (t Tier) CanSpawn() bool {
	return t == TierTribune || t == TierCenturion
}

// Capability is a granted permission token gating a tool family.
type Capability string

const (
	// CapabilitySpawn exposes the delegation tool family.
	CapabilitySpawn Capability = "spawn"
	// CapabilityShell exposes shell command execution.
	CapabilityShell Capability = "shell"
)

// Budget optionally caps the resources a single task may consume.
// MaxTokens accepts both JSON numbers and numeric strings on the wire.
type Budget struct {
	MaxTokens  int64  `json:"maxTokens,omitempty"`
	MaxCostUSD string `json:"maxCostUsd,omitempty"`
}

// UnmarshalJSON coerces string-typed maxTokens values; anything
// non-numeric degrades to unlimited rather than failing the descriptor.
func (b *Budget) UnmarshalJSON(data []byte) error {
	var raw struct {
		MaxTokens  json.RawMessage `json:"maxTokens"`
		MaxCostUSD string          `json:"maxCostUsd"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.MaxCostUSD = raw.MaxCostUSD
	b.MaxTokens = 0
	if len(raw.MaxTokens) == 0 {
		return nil
	}
	var n int64
	if err := json.Unmarshal(raw.MaxTokens, &n); err == nil {
		b.MaxTokens = n
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.MaxTokens, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			b.MaxTokens = n
		}
	}
	return nil
}

// ModelSpec optionally overrides how the model endpoint is reached.
type ModelSpec struct {
	Endpoint string `json:"endpoint,omitempty"`
}

// Descriptor is the immutable task input read once at startup. The core
// never mutates it.
type Descriptor struct {
	TaskID       string    `json:"taskId"`
	Prompt       string    `json:"prompt"`
	Role         string    `json:"role"`
	Tier         Tier      `json:"tier"`
	Capabilities []string  `json:"capabilities"`
	Budget       Budget    `json:"budget"`
	Model        ModelSpec `json:"model"`
}

// HasCapability reports whether the descriptor grants the capability.
// Unknown capability strings are carried but gate nothing.
func (d *Descriptor) HasCapability(c Capability) bool {
	for _, cap := range d.Capabilities {
		if cap == string(c) {
			return true
		}
	}
	return false
}

// LoadDescriptor reads and validates the task descriptor JSON. A missing
// file or empty prompt is an input error, terminal for the process.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task descriptor: %w", err)
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse task descriptor: %w", err)
	}

	if d.Prompt == "" {
		return nil, fmt.Errorf("task descriptor %s has an empty prompt", path)
	}
	if d.Role == "" {
		d.Role = "worker"
	}
	if d.Tier == "" {
		d.Tier = TierCenturion
	}
	if d.TaskID == "" {
		id := d.Prompt
		if len(id) > 40 {
			id = id[:40]
		}
		d.TaskID = id
	}
	return &d, nil
}
