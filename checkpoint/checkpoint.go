package checkpoint

// SchemaVersion is the single supported checkpoint schema version. Files
// carrying any other version are discarded on load.
const SchemaVersion = 1

// PhaseWaiting is the only phase a suspension checkpoint carries.
const PhaseWaiting = "waiting"

// Child status values as persisted in checkpoints.
const (
	ChildRunning   = "Running"
	ChildCompleted = "Completed"
)

// ChildRef references a spawned child task. A child name appears in at most
// one of the completed/pending lists per checkpoint.
type ChildRef struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Plan optionally records phased planning state across reincarnations.
type Plan struct {
	Phases       []string `json:"phases"`
	CurrentPhase int      `json:"currentPhase"`
}

// Checkpoint is the versioned suspension snapshot.
type Checkpoint struct {
	Version            int        `json:"version"`
	TaskID             string     `json:"taskId"`
	Phase              string     `json:"phase"`
	CompletedChildren  []ChildRef `json:"completedChildren"`
	PendingChildren    []ChildRef `json:"pendingChildren"`
	Decisions          []string   `json:"decisions"`
	AccumulatedContext string     `json:"accumulatedContext"`
	Plan               *Plan      `json:"plan,omitempty"`
}
