package tool

import (
	"fmt"
	"os"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// Environment variables carrying the shell command policy. They are read
// fresh on every dispatch so the external policy controller can change them
// without a process restart.
const (
	EnvAllowedCommands = "LEGION_ALLOWED_COMMANDS"
	EnvDeniedCommands  = "LEGION_DENIED_COMMANDS"
)

// ShellPolicy is an optional allow-set and deny-set of command names. Empty
// sets impose no constraint of their kind; the two checks are independent.
type ShellPolicy struct {
	Allowed []string
	Denied  []string
}

// ShellPolicyFromEnv reads the policy from the environment.
func ShellPolicyFromEnv() ShellPolicy {
	return ShellPolicy{
		Allowed: splitList(os.Getenv(EnvAllowedCommands)),
		Denied:  splitList(os.Getenv(EnvDeniedCommands)),
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Check validates a command line against the policy before any process
// spawns. The command is split on pipe segments and the leading token of
// each segment is its base command: with an allow-list every base command
// must be listed; independently, a deny-list entry rejects when it matches
// any base command or is a string prefix of the full command.
func (p ShellPolicy) Check(command string) error {
	if len(p.Allowed) == 0 && len(p.Denied) == 0 {
		return nil
	}

	trimmed := strings.TrimSpace(command)
	for _, base := range baseCommands(command) {
		if len(p.Allowed) > 0 && !contains(p.Allowed, base) {
			return fmt.Errorf("command %q is not allowed by policy", base)
		}
		for _, denied := range p.Denied {
			if base == denied || strings.HasPrefix(trimmed, denied) {
				return fmt.Errorf("command %q is denied by policy", base)
			}
		}
	}
	return nil
}

// baseCommands extracts the leading token of every pipe segment. Segments
// that fail shell tokenization fall back to whitespace splitting so a
// malformed quote cannot smuggle a command past the policy.
func baseCommands(command string) []string {
	var bases []string
	for _, segment := range strings.Split(command, "|") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		tokens, err := shellwords.Parse(segment)
		if err != nil || len(tokens) == 0 {
			tokens = strings.Fields(segment)
		}
		if len(tokens) > 0 {
			bases = append(bases, tokens[0])
		}
	}
	return bases
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// FilesystemPolicy holds the fixed read/write path-prefix allowlists. The
// production policy is DefaultFilesystemPolicy; tests substitute prefixes
// under a temp dir.
type FilesystemPolicy struct {
	ReadPrefixes  []string
	WritePrefixes []string
}

// DefaultFilesystemPolicy returns the runtime's fixed prefix sets: five
// readable roots and three writable ones.
func DefaultFilesystemPolicy() FilesystemPolicy {
	return FilesystemPolicy{
		ReadPrefixes:  []string{"/inbox/", "/outbox/", "/workspace/", "/memory/", "/prior/"},
		WritePrefixes: []string{"/outbox/", "/workspace/", "/memory/"},
	}
}

// CheckRead validates a path against the read allowlist.
func (p FilesystemPolicy) CheckRead(path string) error {
	if hasAnyPrefix(path, p.ReadPrefixes) {
		return nil
	}
	return fmt.Errorf("read access denied: %s (allowed prefixes: %s)",
		path, strings.Join(p.ReadPrefixes, ", "))
}

// CheckWrite validates a path against the write allowlist.
func (p FilesystemPolicy) CheckWrite(path string) error {
	if hasAnyPrefix(path, p.WritePrefixes) {
		return nil
	}
	return fmt.Errorf("write access denied: %s (allowed prefixes: %s)",
		path, strings.Join(p.WritePrefixes, ", "))
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
