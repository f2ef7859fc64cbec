// Package core contains the shared conversation types used across the
// runtime: role-tagged Content values composed of a closed set of Part
// variants (text, function call, function response) plus convenience
// constructors. The run loop owns an ordered []Content for one process
// lifetime; model adapters translate it to provider wire formats.
package core
