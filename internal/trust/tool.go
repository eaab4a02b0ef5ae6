// Package trust implements the command trust decision engine: given a
// tool invocation an agent wants to run, it decides whether the command
// may execute immediately or must first be confirmed by a human.
//
// The decision combines a fixed dangerous-syntax detector that cannot be
// overridden, a builtin registry of read-only commands, and user-created
// trust rules matched in stored order. Matching is lexical; commands are
// never parsed into a shell AST.
package trust

// Tool identifies the kind of capability an agent invocation targets.
// The set of known ids is closed: adding a tool means adding a constant
// here and making an explicit call on whether trust rules may ever
// auto-approve it. Unknown ids (custom integrations) are representable
// as plain strings and are never confirmable with trust.
type Tool string

const (
	// ToolExecuteBash runs shell commands on POSIX systems.
	ToolExecuteBash Tool = "execute_bash"
	// ToolExecuteCmd runs shell commands through the Windows shell.
	ToolExecuteCmd Tool = "execute_cmd"
	// ToolFsWrite writes or edits files.
	ToolFsWrite Tool = "fs_write"
	// ToolUseAPI calls out to a cloud API on the user's credentials.
	ToolUseAPI Tool = "use_api"
)

// ConfirmableWithTrust reports whether trust rules may auto-approve
// invocations of this tool. Only the shell-executing tools qualify;
// every other tool id, known or custom, always requires confirmation
// and never consults the trust store.
func (t Tool) ConfirmableWithTrust() bool {
	switch t {
	case ToolExecuteBash, ToolExecuteCmd:
		return true
	}
	return false
}

// Known reports whether t is one of the declared tool ids.
func (t Tool) Known() bool {
	switch t {
	case ToolExecuteBash, ToolExecuteCmd, ToolFsWrite, ToolUseAPI:
		return true
	}
	return false
}

func (t Tool) String() string { return string(t) }

// KnownTools lists the declared tool ids in display order.
func KnownTools() []Tool {
	return []Tool{ToolExecuteBash, ToolExecuteCmd, ToolFsWrite, ToolUseAPI}
}
