package trust

import (
	"sort"
	"strings"
)

// readonlyCommands is the fixed registry of always-safe command names.
// Everything here only reads; none mutate state when invoked bare. The
// set is not user-configurable and cannot be disabled.
var readonlyCommands = map[string]struct{}{
	"ls":    {},
	"cat":   {},
	"echo":  {},
	"pwd":   {},
	"which": {},
	"head":  {},
	"tail":  {},
	"find":  {},
	"grep":  {},
	"dir":   {},
	"type":  {},
}

// IsBuiltinSafe reports whether the command's first whitespace-delimited
// token is exactly a registry entry. Argument text is not inspected
// here; dangerous-marker screening already covers unsafe argument
// syntax and runs before this check.
func IsBuiltinSafe(command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	_, ok := readonlyCommands[fields[0]]
	return ok
}

// BuiltinSafeCommands lists the registry entries sorted for display.
func BuiltinSafeCommands() []string {
	out := make([]string, 0, len(readonlyCommands))
	for name := range readonlyCommands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
