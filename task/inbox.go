package task

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/legionhq/legion/logging"
)

// ChildResult is one completed child's record from the inbox. The file name
// (minus extension) is the child identity.
type ChildResult struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
	Output  string `json:"output"`
}

// Text returns the best available result text.
func (c ChildResult) Text() string {
	if c.Summary != "" {
		return c.Summary
	}
	if c.Output != "" {
		return c.Output
	}
	return "No output"
}

// LoadChildResults reads every *.json file under dir into a map keyed by
// child name. A missing directory yields an empty map; unreadable entries
// are warned about and skipped, never failing the caller.
func LoadChildResults(dir string, logger logging.Logger) map[string]ChildResult {
	logger = logging.OrNoOp(logger)
	results := make(map[string]ChildResult)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return results
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("child result unreadable", "path", path, "error", err)
			continue
		}
		var cr ChildResult
		if err := json.Unmarshal(data, &cr); err != nil {
			logger.Warn("child result unparseable", "path", path, "error", err)
			continue
		}
		results[strings.TrimSuffix(entry.Name(), ".json")] = cr
	}
	return results
}
