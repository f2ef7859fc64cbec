package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/legionhq/legion/logging"
)

// Store reads and writes checkpoints at a fixed path.
type Store struct {
	path   string
	logger logging.Logger
}

// NewStore creates a store bound to path. A nil logger is replaced by NoOp.
func NewStore(path string, logger logging.Logger) *Store {
	return &Store{path: path, logger: logging.OrNoOp(logger)}
}

// Path returns the fixed checkpoint location.
func (s *Store) Path() string { return s.path }

// Load returns the persisted checkpoint, or nil when none is usable. A
// missing file is a silent fresh start; unparseable content or an unsupported
// version is warned about but still treated as a fresh run, never failing
// the caller.
func (s *Store) Load() *Checkpoint {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("checkpoint unreadable", "path", s.path, "error", err)
		}
		return nil
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.logger.Warn("checkpoint unparseable, starting fresh", "path", s.path, "error", err)
		return nil
	}
	if cp.Version != SchemaVersion {
		s.logger.Warn("unsupported checkpoint version, starting fresh",
			"path", s.path, "version", cp.Version, "supported", SchemaVersion)
		return nil
	}
	return &cp
}

// Save stamps the current schema version and overwrites the checkpoint file,
// creating the containing directory as needed. Failures are reported to the
// caller but are expected to be logged and swallowed there: the checkpoint
// is a resumption aid, not the system of record.
func (s *Store) Save(cp *Checkpoint) error {
	cp.Version = SchemaVersion

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	s.logger.Info("checkpoint saved", "path", s.path, "phase", cp.Phase)
	return nil
}
