package tool

import (
	"time"

	"github.com/legionhq/legion/logging"
	"github.com/legionhq/legion/task"
)

// CatalogOptions configures registry construction for one task.
type CatalogOptions struct {
	Controller   Controller
	Filesystem   FilesystemPolicy
	ShellWork    string
	ShellTimeout time.Duration
	Logger       logging.Logger
}

// BuildRegistry assembles the tool registry for a task descriptor. File
// read/write are always available; the spawn capability gates the delegation
// family (including role discovery and the voluntary-suspension hook); the
// shell capability gates command execution.
func BuildRegistry(d *task.Descriptor, optFns ...func(o *CatalogOptions)) *Registry {
	opts := CatalogOptions{
		Filesystem:   DefaultFilesystemPolicy(),
		ShellWork:    "/workspace",
		ShellTimeout: 120 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	reg := NewRegistry(opts.Logger)
	reg.Register(NewReadFileTool(opts.Filesystem))
	reg.Register(NewWriteFileTool(opts.Filesystem))

	if d.HasCapability(task.CapabilitySpawn) && opts.Controller != nil {
		reg.Register(NewSpawnTool(opts.Controller))
		reg.Register(NewCheckStatusTool(opts.Controller))
		reg.Register(NewGetResultTool(opts.Controller))
		reg.Register(NewCancelTaskTool(opts.Controller))
		reg.Register(NewListRolesTool(opts.Controller))
		reg.Register(NewDescribeRoleTool(opts.Controller))
		reg.Register(NewCheckpointAndWaitTool())
	}

	if d.HasCapability(task.CapabilityShell) {
		reg.Register(NewShellTool(func(o *ShellToolOptions) {
			o.WorkDir = opts.ShellWork
			o.DefaultTimeout = opts.ShellTimeout
			o.Logger = opts.Logger
		}))
	}

	return reg
}
