package rulelist

import (
	"fmt"

	"github.com/agentwarden/warden/internal/trust"
	"github.com/agentwarden/warden/internal/tui"
)

// Entry is one trust rule tagged with the tool it applies to and the
// scope it came from ("global" or a profile name).
type Entry struct {
	Tool  trust.Tool
	Scope string
	Rule  trust.Rule
}

// groupByTool splits entries per tool, preserving rule order within
// each tool. Tools come back in the fixed registry order so output is
// stable across runs.
func groupByTool(entries []Entry) ([]trust.Tool, map[trust.Tool][]Entry) {
	byTool := make(map[trust.Tool][]Entry)
	for _, e := range entries {
		byTool[e.Tool] = append(byTool[e.Tool], e)
	}

	var tools []trust.Tool
	for _, t := range trust.KnownTools() {
		if len(byTool[t]) > 0 {
			tools = append(tools, t)
		}
	}
	// Hand-edited files can carry unknown tool ids; show them last.
	seen := make(map[trust.Tool]bool, len(tools))
	for _, t := range tools {
		seen[t] = true
	}
	for _, e := range entries {
		if !seen[e.Tool] {
			seen[e.Tool] = true
			tools = append(tools, e.Tool)
		}
	}
	return tools, byTool
}

// RenderPlain displays trust rules as plain text (no interactivity).
func RenderPlain(entries []Entry, title string) error {
	fmt.Printf("%s (%d rules)\n\n", title, len(entries))

	if len(entries) == 0 {
		fmt.Println("  (none)")
		fmt.Println("  Add rules with: warden allow -tool <tool> -command <pattern>")
		fmt.Println()
		return nil
	}

	tools, byTool := groupByTool(entries)
	for _, t := range tools {
		fmt.Printf("--- %s ---\n", t)
		rows := make([][2]string, 0, len(byTool[t]))
		for _, e := range byTool[t] {
			rows = append(rows, [2]string{tui.IconPattern + " " + e.Rule.Pattern, describeEntry(e)})
		}
		fmt.Print(tui.PatternColumns(rows, "  "))
		fmt.Println()
	}
	return nil
}

// describeEntry builds the right-hand column: description plus a tag
// for rules inherited from the global scope.
func describeEntry(e Entry) string {
	desc := e.Rule.Describe()
	if e.Scope == "global" {
		if desc != "" {
			desc += "  "
		}
		desc += "[global]"
	}
	return desc
}
