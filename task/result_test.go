package task

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox", "result.json")

	err := WriteResult(path, &Result{
		TaskID:     "t1",
		Status:     StatusCompleted,
		Summary:    "it worked",
		Artifacts:  []string{"report.md"},
		TokensUsed: TokensUsed{Input: 100, Output: 50},
		Duration:   12,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "completed", raw["status"])
	assert.Equal(t, "it worked", raw["summary"])
}

func TestWriteResultNilArtifacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")

	require.NoError(t, WriteResult(path, &Result{TaskID: "t1", Status: StatusFailed}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Artifacts serializes as an empty list, never null.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	artifacts, ok := raw["artifacts"].([]any)
	require.True(t, ok)
	assert.Empty(t, artifacts)
}

func TestWriteUsage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")

	require.NoError(t, WriteUsage(path, &Usage{Input: 100, Output: 50, Total: 150}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var u Usage
	require.NoError(t, json.Unmarshal(data, &u))
	assert.Equal(t, 150, u.Total)
}
