package tui

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/agentwarden/warden/internal/tui/terminal"
)

// plainMode disables all TUI styling: no colors, no icons, no boxes.
// When enabled, output is clean plain text suitable for CI/CD, piped
// output, or --no-color.
var (
	plainMode bool
	plainOnce sync.Once
	plainMu   sync.RWMutex
)

// initPlainMode auto-detects plain mode from environment on first call.
// Precedence: NO_COLOR > TTY detection > terminal capability detection.
func initPlainMode() {
	plainOnce.Do(func() {
		// NO_COLOR wins — https://no-color.org
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			plainMode = true
			return
		}
		// Not a terminal (piped, redirected, serve mode) → plain mode
		if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // Fd() fits in int on all supported platforms
			plainMode = true
			return
		}
		// Unknown terminal with no detected capabilities → plain mode.
		if terminal.Detect().Caps == terminal.CapNone {
			plainMode = true
		}
	})
}

// SetPlainMode explicitly enables or disables plain mode.
// Call this early (e.g. when parsing --no-color flag) before any TUI output.
func SetPlainMode(plain bool) {
	plainMu.Lock()
	defer plainMu.Unlock()
	plainMode = plain
	// Mark as initialized so auto-detect doesn't override
	plainOnce.Do(func() {})
}

// IsPlainMode returns true if TUI styling is disabled.
func IsPlainMode() bool {
	initPlainMode()
	plainMu.RLock()
	defer plainMu.RUnlock()
	return plainMode
}

// Interactive reports whether stdin and stdout are both terminals, i.e.
// a confirmation prompt can actually reach a human.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec // Fd() fits in int
}

// Color palette — cool ink-and-paper tones. Adapts to OS theme.
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#4A6FA5", Dark: "#7E9CD8"} // slate blue
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#45707A", Dark: "#7AA89F"} // teal
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#4F6B3A", Dark: "#76946A"} // moss
	ColorError   = lipgloss.AdaptiveColor{Light: "#A23A3E", Dark: "#C34043"} // red
	ColorWarning = lipgloss.AdaptiveColor{Light: "#9A7B2F", Dark: "#E6C384"} // amber
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#4A6FA5", Dark: "#A3B5D6"} // pale slate
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9E9B93"} // gray
)

// Reusable styles.
var (
	StyleTitle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	StyleSubtitle = lipgloss.NewStyle().Foreground(ColorAccent)
	StyleSuccess  = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError    = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning  = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleInfo     = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted    = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleBold     = lipgloss.NewStyle().Bold(true)
	StyleAccent   = lipgloss.NewStyle().Foreground(ColorAccent)

	// StyleCommand renders a shell command under consideration.
	StyleCommand = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	// StylePattern renders a trust rule pattern.
	StylePattern = lipgloss.NewStyle().Foreground(ColorAccent)

	// Branded prefix: [warden] (unexported — use Prefix() instead)
	stylePrefix = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	// Box style for the confirmation prompt
	StyleBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(1, 2)
)

// Prefix returns the branded [warden] prefix string.
func Prefix() string {
	if IsPlainMode() {
		return "[warden]"
	}
	return stylePrefix.Render("[warden]")
}

// OutcomeStyle returns the style for a decision outcome string.
func OutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "auto_approve":
		return StyleSuccess
	case "require_confirmation":
		return StyleWarning
	default:
		return StyleMuted
	}
}

// OutcomeBadge returns a styled outcome badge like "✔ auto_approve".
func OutcomeBadge(outcome string) string {
	if IsPlainMode() {
		return "[" + outcome + "]"
	}
	icon := IconCircle
	switch outcome {
	case "auto_approve":
		icon = IconCheck
	case "require_confirmation":
		icon = IconWarning
	}
	return OutcomeStyle(outcome).Render(icon + " " + outcome)
}

// ReasonBadge returns a styled reason tag like "(builtin_safe)".
func ReasonBadge(reason string) string {
	if IsPlainMode() {
		return "(" + reason + ")"
	}
	style := StyleMuted
	if reason == "dangerous_pattern" {
		style = StyleError
	}
	return style.Render("(" + reason + ")")
}

// hasCapability reports whether the current terminal supports the given capability.
// Always returns false in plain mode (no styled output).
func hasCapability(c terminal.Capability) bool {
	if IsPlainMode() {
		return false
	}
	return terminal.Detect().Caps.Has(c)
}

// Separator returns a gradient-colored section separator bar.
// The trailing bar fades from accent → background.
func Separator(title string) string {
	if IsPlainMode() {
		if title == "" {
			return "---"
		}
		return "--- " + title + " ---"
	}
	bar := "▸▸"
	trail := gradientTrail("━", 24, "#7E9CD8", "#2A2A37")
	if title == "" {
		return StyleMuted.Render(bar) + trail
	}
	return StyleAccent.Render(bar+" ") + StyleBold.Render(title) + StyleAccent.Render(" "+bar) + trail
}

// gradientTrail renders a repeated character with a smooth color gradient fade.
func gradientTrail(char string, length int, from, to string) string {
	colors := gradient(from, to, length)
	var b strings.Builder
	for _, c := range colors {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Render(char))
	}
	return b.String()
}

// GradientText renders text with a smooth color gradient from one hex color to another.
// In plain mode, returns the text unstyled.
func GradientText(text, from, to string) string {
	if IsPlainMode() {
		return text
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	colors := gradient(from, to, len(runes))
	var b strings.Builder
	for i, r := range runes {
		if r == ' ' {
			b.WriteRune(r)
			continue
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(colors[i])).Render(string(r)))
	}
	return b.String()
}

// Hyperlink wraps text in an OSC 8 clickable link if the terminal supports it.
// Falls back to plain text when unsupported or in plain mode.
func Hyperlink(url, text string) string {
	if url == "" || !hasCapability(terminal.CapHyperlinks) {
		return text
	}
	return termenv.Hyperlink(url, text)
}

// WindowTitle sets the terminal window title via OSC 2.
// No-op if the terminal doesn't support it or in plain mode.
// Not goroutine-safe — call only from the main goroutine.
func WindowTitle(title string) {
	if !hasCapability(terminal.CapWindowTitle) {
		return
	}
	termenv.DefaultOutput().SetWindowTitle(title)
}

// Capability-aware styles (unexported — use the helper functions below).
var (
	styleFaint  = lipgloss.NewStyle().Faint(true)
	styleItalic = lipgloss.NewStyle().Italic(true)
)

// Faint returns text with faint/dim formatting if supported.
func Faint(text string) string {
	if !hasCapability(terminal.CapFaint) {
		return text
	}
	return styleFaint.Render(text)
}

// Italic returns text with italic formatting if supported.
func Italic(text string) string {
	if !hasCapability(terminal.CapItalic) {
		return text
	}
	return styleItalic.Render(text)
}
