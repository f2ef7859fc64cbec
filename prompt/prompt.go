// Package prompt builds the layered system prompt: identity and tier first,
// constraints front-loaded so the agent plans around them, then the
// filesystem contract, safety, tools and delegation guidance, with role
// context last where recency weighting is strongest. The prompt is
// regenerated fresh on every process start, including reincarnations, so
// prompt changes apply without touching checkpoints.
package prompt

import (
	"fmt"
	"strings"

	"github.com/legionhq/legion/task"
)

// RoleInfo describes a delegation role offered to spawn-capable agents.
type RoleInfo struct {
	Name         string
	TierAffinity string
	Description  string
}

// Params carries everything the builder needs for one task.
type Params struct {
	Role             string
	Tier             task.Tier
	ToolNames        []string
	RoleDescription  string
	RoleRules        []string
	RoleAntiPatterns []string
	AvailableRoles   []RoleInfo
	ExitCriteria     string
	Iteration        int
	MaxIterations    int
	BudgetTokens     int64
	BudgetUSD        string
	TimeoutSeconds   int
}

// Build assembles the system prompt from its sections, skipping empty ones.
func Build(p Params) string {
	isSpawner := p.Tier.CanSpawn() && containsStr(p.ToolNames, "spawn_task")
	isFocused := p.Tier == task.TierLegionary || !isSpawner

	sections := []string{
		identitySection(p.Role, p.Tier),
		constraintsSection(p),
		filesystemSection(isSpawner),
		safetySection(),
		toolSection(p.ToolNames),
	}
	if isSpawner {
		sections = append(sections, delegationSection(p.Tier, p.AvailableRoles))
	}
	if !isFocused {
		sections = append(sections, iterationSection(p.Iteration, p.MaxIterations))
	}
	sections = append(sections,
		exitCriteriaSection(p.ExitCriteria),
		// Role context goes last: rules and anti-patterns are the most
		// important behavioral constraints and recency weighting favors
		// the end of the prompt.
		roleContextSection(p.Role, p.RoleDescription, p.RoleRules, p.RoleAntiPatterns),
		rulesSection(isSpawner),
	)

	var kept []string
	for _, s := range sections {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n")
}

func identitySection(role string, tier task.Tier) string {
	var tierDesc string
	switch tier {
	case task.TierTribune:
		tierDesc = "You are a **Tribune** — a strategic orchestrator.\n" +
			"You analyse tasks, decide whether they need decomposition, and delegate to specialists when they do.\n" +
			"Your value is judgement: knowing WHEN to delegate (multi-concern tasks) vs WHEN to just do it (simple, focused work).\n" +
			"When you delegate, design the plan so workers can run in parallel — define shared contracts upfront."
	case task.TierCenturion:
		tierDesc = "You are a **Centurion** — a team lead.\n" +
			"You balance direct execution with delegation.\n" +
			"Do small tasks yourself. Delegate focused leaf tasks to Legionaries.\n" +
			"Consolidate results into a coherent output."
	case task.TierLegionary:
		tierDesc = "You are a **Legionary** — a focused executor.\n" +
			"You receive a specific task and execute it thoroughly.\n" +
			"Focus, execute, deliver. No delegation."
	default:
		tierDesc = "Execute the task assigned to you."
	}
	return fmt.Sprintf("You are **%s** (%s) in the Legion orchestration system.\n\n%s", role, tier, tierDesc)
}

func constraintsSection(p Params) string {
	lines := []string{"\n## Constraints"}
	if p.BudgetUSD != "" {
		lines = append(lines, fmt.Sprintf("- **Budget:** $%s USD. Each child task and tool call costs tokens. Be efficient.", p.BudgetUSD))
	}
	if p.BudgetTokens > 0 {
		lines = append(lines, fmt.Sprintf("- **Token limit:** %d tokens.", p.BudgetTokens))
	}
	if p.TimeoutSeconds > 0 {
		lines = append(lines, fmt.Sprintf("- **Timeout:** %dm. Plan accordingly.", p.TimeoutSeconds/60))
	}
	if p.MaxIterations > 1 {
		lines = append(lines, fmt.Sprintf("- **Iterations:** %d/%d.", p.Iteration, p.MaxIterations))
	}
	if len(lines) == 1 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func filesystemSection(isSpawner bool) string {
	lines := []string{
		"\n## Filesystem",
		"- `/workspace/` — your scratch space. Plans, intermediate files, builds.",
		"- `/outbox/artifacts/` — **deliverables go here.** Code, reports, anything returned to the caller.",
		"- `/outbox/result.json` — structured result summary (optional).",
	}
	if isSpawner {
		lines = append(lines, "- `/inbox/` — child task results appear here automatically when children complete.")
	}
	return strings.Join(lines, "\n")
}

func safetySection() string {
	return "\n## Safety\n" +
		"- Operate within your assigned tier and capabilities. Do not attempt to escalate.\n" +
		"- Report failures and blockers honestly — do not fabricate results.\n" +
		"- Do not exfiltrate data outside your task scope."
}

func toolSection(toolNames []string) string {
	descriptions := map[string]string{
		"spawn_task":          "Create a child agent task. Specify role, tier, and a focused prompt.",
		"check_status":        "Check if a child task is running, completed, or failed.",
		"get_result":          "Retrieve the output of a completed child task.",
		"cancel_task":         "Cancel a running child task.",
		"list_roles":          "List the delegation roles available for child tasks.",
		"describe_role":       "Inspect one role's rules and tier affinity before delegating to it.",
		"checkpoint_and_wait": "Save progress and pause until spawned children complete.",
		"run_shell":           "Execute a shell command in /workspace/.",
		"read_file":           "Read a file from the filesystem.",
		"write_file":          "Write a file to the filesystem.",
	}

	lines := []string{"\n## Tools"}
	for _, name := range toolNames {
		desc, ok := descriptions[name]
		if !ok {
			desc = "No description available."
		}
		lines = append(lines, fmt.Sprintf("- **%s**: %s", name, desc))
	}
	if len(toolNames) == 0 {
		lines = append(lines, "No tools available.")
	}
	return strings.Join(lines, "\n")
}

func delegationSection(tier task.Tier, roles []RoleInfo) string {
	lines := []string{"\n## Delegation"}

	if tier == task.TierTribune {
		lines = append(lines,
			"Before spawning ANY children, write a plan to `/workspace/plan.md`.",
			"The plan must define clear interfaces and contracts (API endpoints, data models, file paths)",
			"so that workers share a common spec and can work **in parallel**.",
			"",
			"**When to delegate vs do it yourself:**",
			"- If the task is a single focused deliverable (one file, < ~100 lines), just do it. Delegation has overhead (process spin-up, context transfer) that isn't worth it for trivial work.",
			"- If the task has multiple distinct concerns that require different expertise, delegate.",
			"",
			"**Delegation rules:**",
			"- Each child gets ONE clearly scoped piece of work. Never give a child the entire task.",
			"- Never spawn two children with overlapping scope.",
			"- Give each child a specific prompt including: what to build, interfaces/contracts to follow, file paths, and constraints.",
			"- **Spawn independent children in parallel.** Don't wait for one child to finish before spawning the next unless there's a real data dependency.",
			"- Wait for all children to complete, then review quality before consolidating.",
		)
	} else {
		lines = append(lines,
			"**When to delegate vs execute directly:**",
			"- Tasks you can finish in a few tool calls → do it yourself.",
			"- Tasks requiring focused, independent work → spawn a Legionary.",
			"- When delegating, give each child a precise scope and expected output path.",
		)
	}

	if len(roles) > 0 {
		lines = append(lines, "", "**Available roles:**")
		for _, r := range roles {
			lines = append(lines, fmt.Sprintf("- **%s** (%s): %s", r.Name, r.TierAffinity, r.Description))
		}
		lines = append(lines, "", "Choose the lowest-privilege role that fits. Don't over-delegate simple work.")
	}

	return strings.Join(lines, "\n")
}

func iterationSection(iteration, maxIterations int) string {
	if maxIterations <= 1 {
		return ""
	}

	lines := []string{fmt.Sprintf("\n## Iteration %d/%d", iteration, maxIterations)}
	switch {
	case iteration == 1:
		lines = append(lines,
			"First iteration. Write your plan to `/workspace/plan.md` before acting.",
			"Checkpoint progress to `/workspace/state.json` before finishing.")
	case iteration >= maxIterations:
		lines = append(lines,
			"**FINAL iteration.** Produce your best output now.",
			"Check `/inbox/` for child results. Consolidate into final deliverables.")
	default:
		lines = append(lines,
			"Continuing from previous iteration.",
			"Check `/inbox/` for child results. Review `/workspace/plan.md`.",
			"Adapt plan if needed. Checkpoint to `/workspace/state.json`.")
	}
	return strings.Join(lines, "\n")
}

func exitCriteriaSection(exitCriteria string) string {
	if exitCriteria == "" {
		return ""
	}
	return fmt.Sprintf("\n## Exit Criteria\nYou are done when: %s\n"+
		"Evaluate this after each major step. If met, produce your final output.", exitCriteria)
}

func roleContextSection(role, description string, rules, antiPatterns []string) string {
	if description == "" && len(rules) == 0 && len(antiPatterns) == 0 {
		return ""
	}

	parts := []string{fmt.Sprintf("\n## Your Role: %s", role)}
	if description != "" {
		parts = append(parts, description)
	}
	if len(rules) > 0 {
		parts = append(parts, "\n**Rules:**")
		for _, rule := range rules {
			parts = append(parts, "- "+rule)
		}
	}
	if len(antiPatterns) > 0 {
		parts = append(parts, "\n**Avoid:**")
		for _, ap := range antiPatterns {
			parts = append(parts, "- "+ap)
		}
	}
	return strings.Join(parts, "\n")
}

func rulesSection(isSpawner bool) string {
	lines := []string{
		"\n## Rules",
		"1. **Always deliver.** Write your final result to `/outbox/artifacts/`. No silent exits.",
		"2. **Be honest.** If you can't complete the task, say what you accomplished and what remains.",
	}
	if isSpawner {
		lines = append(lines,
			"3. **Plan before acting.** No spawn calls before you have a written plan.",
			"4. **One scope per child.** Overlapping delegation wastes budget and causes conflicts.",
			"5. **Review before consolidating.** Check child results for quality.")
	} else {
		lines = append(lines,
			"3. **Stay focused.** Execute your specific task. Don't expand scope.",
			"4. **Iterate on failures.** If something breaks, try a different approach before giving up.")
	}
	return strings.Join(lines, "\n")
}

func containsStr(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
