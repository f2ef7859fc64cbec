package tool

import (
	"context"

	"github.com/legionhq/legion/internal/util"
)

// CheckpointAndWaitTool lets the agent signal a voluntary suspension while
// children run. It does no checkpointing itself: the outcome carries a
// sentinel flag intended for the run loop, which does not currently act on
// it (the suspension transition is a hook, not wired end-to-end).
type CheckpointAndWaitTool struct{}

// NewCheckpointAndWaitTool constructs the checkpoint_and_wait tool.
func NewCheckpointAndWaitTool() *CheckpointAndWaitTool { return &CheckpointAndWaitTool{} }

// Name implements Tool.
func (t *CheckpointAndWaitTool) Name() string { return "checkpoint_and_wait" }

// Description implements Tool.
func (t *CheckpointAndWaitTool) Description() string {
	return "Save progress and pause until spawned children complete. Use after launching " +
		"async children when there is nothing productive left to do before their results arrive."
}

type waitArgs struct {
	Summary *string `json:"summary" description:"Short summary of progress so far."`
}

// Parameters implements Tool.
func (t *CheckpointAndWaitTool) Parameters() map[string]any {
	return util.CreateSchema(waitArgs{})
}

// Call implements Tool.
func (t *CheckpointAndWaitTool) Call(_ context.Context, args map[string]any) Outcome {
	summary, _ := args["summary"].(string)
	return Ok(WaitPayload{Summary: summary, Wait: true})
}
