// Package task defines the immutable task descriptor handed to the runtime,
// the tier and capability enumerations gating tool exposure, and the result
// and usage records every process exit writes back for the external
// controller. It also loads the child-result inbox populated between
// process lifetimes.
package task
