// Package tool implements the policy-gated tool dispatcher: the single point
// through which every side effect of the conversation flows. A Registry maps
// tool names to handlers implementing one invoke contract; dispatch always
// returns a structured Outcome and never lets an internal failure escape its
// boundary. Shell and filesystem tools are gated by policy (env-driven
// command allow/deny lists, fixed path-prefix allowlists); delegation tools
// translate to the external task controller's command protocol behind the
// narrow Controller interface.
package tool
