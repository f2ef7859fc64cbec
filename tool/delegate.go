package tool

import (
	"context"

	"github.com/legionhq/legion/internal/util"
)

// SpawnTool creates child tasks through the controller.
type SpawnTool struct {
	controller Controller
}

// NewSpawnTool constructs the spawn_task tool.
func NewSpawnTool(c Controller) *SpawnTool { return &SpawnTool{controller: c} }

// Name implements Tool.
func (t *SpawnTool) Name() string { return "spawn_task" }

// Description implements Tool.
func (t *SpawnTool) Description() string {
	return "Create a child agent task. The child runs as a separate agent process. " +
		"Set wait=true to block until the child completes and get its result, or leave it " +
		"false to fire-and-forget (check_status/get_result later). The child inherits your " +
		"namespace and cannot escalate beyond your capabilities."
}

type spawnArgs struct {
	Prompt       string  `json:"prompt" description:"The task instruction for the child agent."`
	Role         *string `json:"role" description:"Role name for the child (e.g. 'backend-dev', 'qa-engineer')."`
	Tier         *string `json:"tier" enum:"centurion,legionary" description:"Hierarchy tier. Centurions can spawn legionaries; legionaries are leaf tasks."`
	Capabilities *string `json:"capabilities" description:"Comma-separated capabilities (e.g. 'shell,spawn'). Must be a subset of your own."`
	Wait         *bool   `json:"wait" description:"If true, block until the child completes and return its result. Default: false."`
}

// Parameters implements Tool.
func (t *SpawnTool) Parameters() map[string]any {
	return util.CreateSchema(spawnArgs{})
}

// Call implements Tool. The Async flag on the payload records whether the
// spawn was fire-and-forget; the run loop uses it for child bookkeeping.
func (t *SpawnTool) Call(ctx context.Context, args map[string]any) Outcome {
	prompt, ok := stringArg(args, "prompt")
	if !ok {
		return Errorf("prompt is required")
	}

	req := SpawnRequest{Prompt: prompt, Wait: boolArg(args, "wait")}
	if role, ok := stringArg(args, "role"); ok {
		req.Role = role
	}
	if tier, ok := stringArg(args, "tier"); ok {
		req.Tier = tier
	}
	if caps, ok := stringArg(args, "capabilities"); ok {
		req.Capabilities = caps
	}

	reply, err := t.controller.Spawn(ctx, req)
	if err != nil {
		return Errorf("%s", err)
	}
	return Ok(SpawnPayload{
		TaskName: reply.TaskName,
		Phase:    reply.Phase,
		Output:   reply.Output,
		Async:    !req.Wait,
	})
}

// CheckStatusTool checks a child task's status.
type CheckStatusTool struct {
	controller Controller
}

// NewCheckStatusTool constructs the check_status tool.
func NewCheckStatusTool(c Controller) *CheckStatusTool { return &CheckStatusTool{controller: c} }

// Name implements Tool.
func (t *CheckStatusTool) Name() string { return "check_status" }

// Description implements Tool.
func (t *CheckStatusTool) Description() string {
	return "Check the current status of a child task (Pending, Running, Completed, Failed, etc.)."
}

type taskNameArgs struct {
	TaskName string `json:"task_name" description:"Name of the child task."`
}

// Parameters implements Tool.
func (t *CheckStatusTool) Parameters() map[string]any {
	return util.CreateSchema(taskNameArgs{})
}

// Call implements Tool.
func (t *CheckStatusTool) Call(ctx context.Context, args map[string]any) Outcome {
	name, ok := stringArg(args, "task_name")
	if !ok {
		return Errorf("task_name is required")
	}
	reply, err := t.controller.Status(ctx, name)
	if err != nil {
		return Errorf("%s", err)
	}
	return Ok(StatusPayload{Name: reply.Name, Phase: reply.Phase, Message: reply.Message})
}

// GetResultTool retrieves a completed child's output.
type GetResultTool struct {
	controller Controller
}

// NewGetResultTool constructs the get_result tool.
func NewGetResultTool(c Controller) *GetResultTool { return &GetResultTool{controller: c} }

// Name implements Tool.
func (t *GetResultTool) Name() string { return "get_result" }

// Description implements Tool.
func (t *GetResultTool) Description() string {
	return "Retrieve the output/result of a completed child task."
}

// Parameters implements Tool.
func (t *GetResultTool) Parameters() map[string]any {
	return util.CreateSchema(taskNameArgs{})
}

// Call implements Tool.
func (t *GetResultTool) Call(ctx context.Context, args map[string]any) Outcome {
	name, ok := stringArg(args, "task_name")
	if !ok {
		return Errorf("task_name is required")
	}
	reply, err := t.controller.Result(ctx, name)
	if err != nil {
		return Errorf("%s", err)
	}
	return Ok(ResultPayload{Name: reply.Name, Phase: reply.Phase, Output: reply.Output})
}

// CancelTaskTool cancels a running child task.
type CancelTaskTool struct {
	controller Controller
}

// NewCancelTaskTool constructs the cancel_task tool.
func NewCancelTaskTool(c Controller) *CancelTaskTool { return &CancelTaskTool{controller: c} }

// Name implements Tool.
func (t *CancelTaskTool) Name() string { return "cancel_task" }

// Description implements Tool.
func (t *CancelTaskTool) Description() string {
	return "Cancel a running child task."
}

// Parameters implements Tool.
func (t *CancelTaskTool) Parameters() map[string]any {
	return util.CreateSchema(taskNameArgs{})
}

// Call implements Tool.
func (t *CancelTaskTool) Call(ctx context.Context, args map[string]any) Outcome {
	name, ok := stringArg(args, "task_name")
	if !ok {
		return Errorf("task_name is required")
	}
	if err := t.controller.Cancel(ctx, name); err != nil {
		return Errorf("%s", err)
	}
	return Ok(CancelPayload{Message: "Task " + name + " cancelled"})
}

// ListRolesTool lists delegation roles known to the controller.
type ListRolesTool struct {
	controller Controller
}

// NewListRolesTool constructs the list_roles tool.
func NewListRolesTool(c Controller) *ListRolesTool { return &ListRolesTool{controller: c} }

// Name implements Tool.
func (t *ListRolesTool) Name() string { return "list_roles" }

// Description implements Tool.
func (t *ListRolesTool) Description() string {
	return "List the delegation roles available for child tasks."
}

// Parameters implements Tool.
func (t *ListRolesTool) Parameters() map[string]any {
	return util.CreateSchema(struct{}{})
}

// Call implements Tool.
func (t *ListRolesTool) Call(ctx context.Context, args map[string]any) Outcome {
	roles, err := t.controller.RolesList(ctx)
	if err != nil {
		return Errorf("%s", err)
	}
	return Ok(RolesPayload{Roles: roles})
}

// DescribeRoleTool describes one delegation role.
type DescribeRoleTool struct {
	controller Controller
}

// NewDescribeRoleTool constructs the describe_role tool.
func NewDescribeRoleTool(c Controller) *DescribeRoleTool { return &DescribeRoleTool{controller: c} }

// Name implements Tool.
func (t *DescribeRoleTool) Name() string { return "describe_role" }

// Description implements Tool.
func (t *DescribeRoleTool) Description() string {
	return "Describe a specific delegation role, including its rules and tier affinity."
}

type roleNameArgs struct {
	Name string `json:"name" description:"Name of the role to describe."`
}

// Parameters implements Tool.
func (t *DescribeRoleTool) Parameters() map[string]any {
	return util.CreateSchema(roleNameArgs{})
}

// Call implements Tool.
func (t *DescribeRoleTool) Call(ctx context.Context, args map[string]any) Outcome {
	name, ok := stringArg(args, "name")
	if !ok {
		return Errorf("name is required")
	}
	role, err := t.controller.RoleDescribe(ctx, name)
	if err != nil {
		return Errorf("%s", err)
	}
	return Ok(RolePayload{Role: role})
}
