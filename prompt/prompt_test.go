package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/legionhq/legion/task"
)

func TestBuildTribunePrompt(t *testing.T) {
	text := Build(Params{
		Role:      "orchestrator",
		Tier:      task.TierTribune,
		ToolNames: []string{"read_file", "spawn_task", "write_file"},
		AvailableRoles: []RoleInfo{
			{Name: "backend-dev", TierAffinity: "legionary", Description: "builds services"},
		},
		BudgetUSD:    "5.00",
		BudgetTokens: 100000,
	})

	assert.Contains(t, text, "Tribune")
	assert.Contains(t, text, "$5.00 USD")
	assert.Contains(t, text, "100000 tokens")
	assert.Contains(t, text, "## Delegation")
	assert.Contains(t, text, "/workspace/plan.md")
	assert.Contains(t, text, "backend-dev")
	assert.Contains(t, text, "/inbox/")
	assert.Contains(t, text, "Plan before acting")
}

func TestBuildLegionaryPrompt(t *testing.T) {
	text := Build(Params{
		Role:      "backend-dev",
		Tier:      task.TierLegionary,
		ToolNames: []string{"read_file", "run_shell", "write_file"},
	})

	assert.Contains(t, text, "Legionary")
	assert.Contains(t, text, "run_shell")
	assert.NotContains(t, text, "## Delegation")
	assert.NotContains(t, text, "spawn_task")
	assert.Contains(t, text, "Stay focused")
}

func TestBuildCenturionPrompt(t *testing.T) {
	text := Build(Params{
		Role:      "team-lead",
		Tier:      task.TierCenturion,
		ToolNames: []string{"read_file", "spawn_task", "write_file"},
	})

	assert.Contains(t, text, "Centurion")
	assert.Contains(t, text, "## Delegation")
	// Centurions get the lighter delegation guidance, not the tribune
	// planning mandate.
	assert.NotContains(t, text, "spawning ANY children")
}

func TestBuildSpawnTierWithoutSpawnTool(t *testing.T) {
	// A centurion whose catalog lacks spawn_task reads as a focused
	// executor: no delegation section, no iteration framing.
	text := Build(Params{
		Role:      "solo",
		Tier:      task.TierCenturion,
		ToolNames: []string{"read_file", "write_file"},
	})

	assert.NotContains(t, text, "## Delegation")
	assert.NotContains(t, text, "## Iteration")
}

func TestBuildRoleContextLast(t *testing.T) {
	text := Build(Params{
		Role:            "qa-engineer",
		Tier:            task.TierLegionary,
		ToolNames:       []string{"read_file"},
		RoleDescription: "verifies deliverables",
		RoleRules:       []string{"always run the tests"},
	})

	assert.Contains(t, text, "## Your Role: qa-engineer")
	assert.Contains(t, text, "- always run the tests")
	assert.Less(t, strings.Index(text, "## Tools"), strings.Index(text, "## Your Role"))
}

func TestBuildExitCriteria(t *testing.T) {
	text := Build(Params{
		Role:         "worker",
		Tier:         task.TierLegionary,
		ExitCriteria: "all tests pass",
	})
	assert.Contains(t, text, "You are done when: all tests pass")
}

func TestBuildIterationFraming(t *testing.T) {
	base := Params{
		Role:          "orchestrator",
		Tier:          task.TierTribune,
		ToolNames:     []string{"spawn_task"},
		MaxIterations: 5,
	}

	first := base
	first.Iteration = 1
	assert.Contains(t, Build(first), "First iteration")

	last := base
	last.Iteration = 5
	assert.Contains(t, Build(last), "FINAL iteration")

	mid := base
	mid.Iteration = 3
	assert.Contains(t, Build(mid), "Continuing from previous iteration")
}
