package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadChildResults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "child-a.json"),
		[]byte(`{"status":"completed","summary":"built the parser"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "child-b.json"),
		[]byte(`{"status":"failed","output":"compile error"}`), 0o644))

	results := LoadChildResults(dir, nil)
	require.Len(t, results, 2)
	assert.Equal(t, "built the parser", results["child-a"].Text())
	assert.Equal(t, "compile error", results["child-b"].Text())
}

func TestLoadChildResultsSkipsBadEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"),
		[]byte(`{"status":"completed","summary":"ok"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"),
		[]byte(`{not json`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"),
		[]byte("not a result"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	results := LoadChildResults(dir, nil)
	require.Len(t, results, 1)
	assert.Contains(t, results, "good")
}

func TestLoadChildResultsMissingDir(t *testing.T) {
	results := LoadChildResults(filepath.Join(t.TempDir(), "absent"), nil)
	assert.Empty(t, results)
}

func TestChildResultText(t *testing.T) {
	assert.Equal(t, "summary wins", ChildResult{Summary: "summary wins", Output: "output"}.Text())
	assert.Equal(t, "output", ChildResult{Output: "output"}.Text())
	assert.Equal(t, "No output", ChildResult{}.Text())
}
