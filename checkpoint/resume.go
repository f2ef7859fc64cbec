package checkpoint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/legionhq/legion/task"
)

// BuildResumeContext reconstructs the first user turn for a reincarnated
// agent: saved plan, decision log and accumulated context from the
// checkpoint, then newly arrived child results, then previously completed
// children for continuity. A child appearing in both the checkpoint and the
// inbox is reported once, from the inbox. The system prompt is regenerated
// separately so prompt changes apply across reincarnations.
func BuildResumeContext(cp *Checkpoint, newResults map[string]task.ChildResult) string {
	var parts []string
	parts = append(parts, "You are resuming from a previous run. Here is your saved state:\n")

	if cp.Plan != nil {
		parts = append(parts, fmt.Sprintf("## Plan\nPhases: %s\nCurrent phase: %d\n",
			strings.Join(cp.Plan.Phases, ", "), cp.Plan.CurrentPhase))
	}

	if len(cp.Decisions) > 0 {
		var sb strings.Builder
		sb.WriteString("## Previous Decisions\n")
		for _, d := range cp.Decisions {
			sb.WriteString("- " + d + "\n")
		}
		parts = append(parts, strings.TrimRight(sb.String(), "\n"))
	}

	if cp.AccumulatedContext != "" {
		parts = append(parts, "\n## Accumulated Context\n"+cp.AccumulatedContext)
	}

	if len(newResults) > 0 {
		parts = append(parts, "\n## New Child Results (since your last run)")
		names := make([]string, 0, len(newResults))
		for name := range newResults {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			r := newResults[name]
			status := r.Status
			if status == "" {
				status = "unknown"
			}
			parts = append(parts, fmt.Sprintf("\n### %s (%s)\n%s", name, status, r.Text()))
		}
	}

	if previously := previouslyCompleted(cp, newResults); len(previously) > 0 {
		parts = append(parts, "\n## Previously Completed Children")
		for _, child := range previously {
			parts = append(parts, fmt.Sprintf("- %s: %s", child.Name, child.Status))
		}
	}

	parts = append(parts, "\n\nContinue your work. Review the new child results and decide what to do next.")
	return strings.Join(parts, "\n")
}

// previouslyCompleted filters checkpoint children already covered by the
// fresh inbox so no child is listed twice.
func previouslyCompleted(cp *Checkpoint, newResults map[string]task.ChildResult) []ChildRef {
	var out []ChildRef
	for _, child := range cp.CompletedChildren {
		if _, dup := newResults[child.Name]; dup {
			continue
		}
		out = append(out, child)
	}
	return out
}
