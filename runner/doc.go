// Package runner drives the model-tool conversation loop for a single task.
// The runner owns the iteration budget, token accounting, cancellation, and
// the waiting checkpoint written whenever the loop suspends before the task
// is complete.
package runner
