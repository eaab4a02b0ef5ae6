package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PatternColumns renders rule patterns with their descriptions in a
// second column, aligned two cells past the widest pattern. indent is
// prepended to every line. Patterns get StylePattern, descriptions
// StyleMuted.
func PatternColumns(rows [][2]string, indent string) string {
	if len(rows) == 0 {
		return ""
	}

	// Widest pattern in visual cells, not bytes.
	widest := 0
	for _, row := range rows {
		if w := lipgloss.Width(row[0]); w > widest {
			widest = w
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		// Pad outside the style so the gap is never underlined or
		// colored.
		pad := widest - lipgloss.Width(row[0]) + 2
		sb.WriteString(indent)
		sb.WriteString(StylePattern.Render(row[0]))
		sb.WriteString(strings.Repeat(" ", pad))
		sb.WriteString(StyleMuted.Render(row[1]))
		sb.WriteByte('\n')
	}
	return sb.String()
}
