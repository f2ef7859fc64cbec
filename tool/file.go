package tool

import (
	"context"
	"os"
	"path/filepath"

	"github.com/legionhq/legion/internal/util"
)

// fileReadLimit bounds read content fed back into the conversation
// (head+tail preserved).
const fileReadLimit = 50000

// ReadFileTool reads files under the read path-prefix allowlist.
type ReadFileTool struct {
	policy FilesystemPolicy
}

// NewReadFileTool constructs the read_file tool.
func NewReadFileTool(policy FilesystemPolicy) *ReadFileTool {
	return &ReadFileTool{policy: policy}
}

// Name implements Tool.
func (t *ReadFileTool) Name() string { return "read_file" }

// Description implements Tool.
func (t *ReadFileTool) Description() string {
	return "Read the contents of a file from the agent's filesystem."
}

type readFileArgs struct {
	Path string `json:"path" description:"Absolute path to the file to read."`
}

// Parameters implements Tool.
func (t *ReadFileTool) Parameters() map[string]any {
	return util.CreateSchema(readFileArgs{})
}

// Call checks the path against the read allowlist before any access. A
// missing file is a structured failure, not an exception.
func (t *ReadFileTool) Call(_ context.Context, args map[string]any) Outcome {
	path, ok := stringArg(args, "path")
	if !ok {
		return Errorf("path is required")
	}

	if err := t.policy.CheckRead(path); err != nil {
		return Errorf("%s", err)
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Errorf("file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Errorf("read failed: %s", err)
	}

	return Ok(ReadPayload{
		Path:    path,
		Content: util.TruncateHeadTail(string(data), fileReadLimit),
	})
}

// WriteFileTool writes files under the write path-prefix allowlist.
type WriteFileTool struct {
	policy FilesystemPolicy
}

// NewWriteFileTool constructs the write_file tool.
func NewWriteFileTool(policy FilesystemPolicy) *WriteFileTool {
	return &WriteFileTool{policy: policy}
}

// Name implements Tool.
func (t *WriteFileTool) Name() string { return "write_file" }

// Description implements Tool.
func (t *WriteFileTool) Description() string {
	return "Write content to a file. Use /outbox/artifacts/ for deliverables (code, reports, " +
		"patches) that should be returned to the caller. Use /workspace/ for temporary/scratch files."
}

type writeFileArgs struct {
	Path    string `json:"path" description:"Absolute path to write to (e.g. /outbox/artifacts/main.go or /workspace/scratch.txt)."`
	Content string `json:"content" description:"The file content to write."`
}

// Parameters implements Tool.
func (t *WriteFileTool) Parameters() map[string]any {
	return util.CreateSchema(writeFileArgs{})
}

// Call checks the path against the write allowlist before any access, then
// creates parent directories as needed and reports bytes written.
func (t *WriteFileTool) Call(_ context.Context, args map[string]any) Outcome {
	path, ok := stringArg(args, "path")
	if !ok {
		return Errorf("path is required")
	}
	content, _ := args["content"].(string)

	if err := t.policy.CheckWrite(path); err != nil {
		return Errorf("%s", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Errorf("write failed: %s", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return Errorf("write failed: %s", err)
	}

	return Ok(WritePayload{Path: path, BytesWritten: len(content)})
}
