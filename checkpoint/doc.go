// Package checkpoint persists and restores the agent's suspension state so a
// killed process can resume without repeating completed work. A checkpoint is
// a versioned JSON snapshot at a fixed path: read exactly once at startup,
// written at every suspension point, and treated as a best-effort resumption
// aid rather than the system of record for task completion.
package checkpoint
