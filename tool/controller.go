package tool

import "context"

// SpawnRequest describes a child task to create.
type SpawnRequest struct {
	Prompt       string
	Role         string
	Tier         string
	Capabilities string // comma-separated, must be a subset of the parent's
	Wait         bool   // block until the child completes
}

// SpawnReply is the controller's answer to a spawn.
type SpawnReply struct {
	TaskName string
	Phase    string
	Output   string
}

// StatusReply is the controller's answer to a status check.
type StatusReply struct {
	Name    string
	Phase   string
	Message string
}

// ResultReply is the controller's answer to a result fetch.
type ResultReply struct {
	Name   string
	Phase  string
	Output string
}

// ReportRequest carries the final result summary and token spend upstream.
type ReportRequest struct {
	Result    string
	TokensIn  int
	TokensOut int
}

// Controller is the narrow capability boundary to the external task
// controller that actually schedules, spawns and cancels child tasks. The
// concrete implementation may shell out to a CLI, call an RPC endpoint, or
// be a test fake.
type Controller interface {
	Spawn(ctx context.Context, req SpawnRequest) (SpawnReply, error)
	Status(ctx context.Context, name string) (StatusReply, error)
	Result(ctx context.Context, name string) (ResultReply, error)
	Cancel(ctx context.Context, name string) error
	RolesList(ctx context.Context) ([]Role, error)
	RoleDescribe(ctx context.Context, name string) (Role, error)
	Report(ctx context.Context, req ReportRequest) error
}
