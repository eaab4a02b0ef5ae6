// Package terminal detects which output features the user's terminal
// supports, so styled output can degrade instead of printing garbage.
package terminal

import (
	"os"
	"strings"
	"sync"
)

// Capability is a bitfield of the terminal features warden's output
// layer uses.
type Capability uint8

const (
	CapTruecolor   Capability = 1 << iota // 24-bit color
	CapHyperlinks                         // OSC 8 clickable links
	CapItalic                             // ANSI italic attribute
	CapFaint                              // ANSI faint/dim attribute
	CapWindowTitle                        // OSC 0/2 title setting
)

// Composite capability sets.
const (
	CapNone Capability = 0
	CapAll  Capability = CapTruecolor | CapHyperlinks | CapItalic |
		CapFaint | CapWindowTitle
)

// Has reports whether the capability set includes all bits in v.
func (c Capability) Has(v Capability) bool {
	return c&v == v
}

// With returns the set with v added.
func (c Capability) With(v Capability) Capability {
	return c | v
}

// Without returns the set with v removed.
func (c Capability) Without(v Capability) Capability {
	return c &^ v
}

// Info holds detected terminal capabilities.
type Info struct {
	Caps        Capability // detected feature set
	Multiplexed bool       // true if running inside tmux/screen
}

// EnvFunc is the signature for environment variable lookup (matches os.Getenv).
type EnvFunc func(string) string

var (
	cachedInfo Info
	detectOnce sync.Once
)

// Detect identifies terminal capabilities from os.Getenv.
// The result is computed once and cached for the process lifetime.
func Detect() Info {
	detectOnce.Do(func() {
		cachedInfo = DetectWith(os.Getenv)
	})
	return cachedInfo
}

// envCaps maps a terminal's identifying environment variable to its
// feature profile. Checked in order; first match wins, which keeps the
// most specific variables ahead of generic fallbacks.
var envCaps = []struct {
	name string
	caps Capability
}{
	{"WT_SESSION", CapAll},
	{"KITTY_WINDOW_ID", CapAll},
	{"ALACRITTY_LOG", CapAll},
	{"WEZTERM_EXECUTABLE", CapAll},
	{"TILIX_ID", CapAll},
	{"KONSOLE_VERSION", CapAll.Without(CapHyperlinks)}, // OSC 8 off by default
	{"GNOME_TERMINAL_SCREEN", CapAll},
}

// termProgramCaps maps TERM_PROGRAM values to feature profiles.
var termProgramCaps = map[string]Capability{
	"vscode":         CapAll,
	"iTerm.app":      CapAll,
	"Apple_Terminal": CapItalic | CapFaint | CapWindowTitle, // 256-color only
}

// DetectWith identifies terminal capabilities using a custom env lookup.
// Not cached — used for testing.
func DetectWith(getenv EnvFunc) Info {
	info := Info{
		Multiplexed: getenv("TMUX") != "" || getenv("STY") != "",
	}

	for _, e := range envCaps {
		if getenv(e.name) != "" {
			info.Caps = e.caps
			return info
		}
	}
	if caps, ok := termProgramCaps[getenv("TERM_PROGRAM")]; ok {
		info.Caps = caps
		return info
	}
	if term := getenv("TERM"); term == "foot" || strings.HasPrefix(term, "foot-") {
		info.Caps = CapAll
		return info
	}
	// VTE-based terminals that set no identifying variable of their own
	if getenv("VTE_VERSION") != "" {
		info.Caps = CapAll
		return info
	}

	// Unrecognized terminal: COLORTERM still signals truecolor
	if ct := getenv("COLORTERM"); ct == "truecolor" || ct == "24bit" {
		info.Caps = CapTruecolor
	}
	return info
}
