// Package completion provides CLI tab-completion for warden.
//
// The binary itself handles completions: when invoked with COMP_LINE set
// (by the shell), it outputs matching completions and exits.
// Works across bash, zsh, and fish with a one-time install.
//
// This package has no TUI dependency — it compiles in both normal and notui
// builds. User-facing output (styled messages, prompts) is handled by the
// caller in main.go, which can use TUI when available.
package completion

import (
	"os"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/install"
	"github.com/posener/complete/v2/predict"
)

// predictTool completes the known tool identifiers.
var predictTool = predict.Set{"execute_bash", "execute_cmd", "fs_write", "use_api"}

// command defines the full warden CLI completion tree.
var command = &complete.Command{
	Sub: map[string]*complete.Command{
		"check": {
			Flags: map[string]complete.Predictor{
				"tool":    predictTool,
				"profile": predict.Something,
				"json":    predict.Nothing,
			},
			Args: predict.Something,
		},
		"confirm": {
			Flags: map[string]complete.Predictor{
				"tool":    predictTool,
				"profile": predict.Something,
				"global":  predict.Nothing,
			},
			Args: predict.Something,
		},
		"list": {
			Flags: map[string]complete.Predictor{
				"profile":     predict.Something,
				"global":      predict.Nothing,
				"json":        predict.Nothing,
				"interactive": predict.Nothing,
			},
		},
		"allow": {
			Flags: map[string]complete.Predictor{
				"tool":        predictTool,
				"command":     predict.Something,
				"description": predict.Something,
				"profile":     predict.Something,
				"global":      predict.Nothing,
			},
		},
		"remove": {
			Flags: map[string]complete.Predictor{
				"tool":    predictTool,
				"command": predict.Something,
				"all":     predict.Nothing,
				"profile": predict.Something,
				"global":  predict.Nothing,
			},
		},
		"serve": {
			Flags: map[string]complete.Predictor{
				"config":    predict.Files("*.yaml"),
				"socket":    predict.Files("*.sock"),
				"port":      predict.Nothing,
				"log-level": predict.Set{"trace", "debug", "info", "warn", "error"},
				"no-color":  predict.Nothing,
			},
		},
		"stop":   {},
		"status": {Flags: map[string]complete.Predictor{"json": predict.Nothing}},
		"logs":   {Flags: map[string]complete.Predictor{"f": predict.Nothing, "n": predict.Nothing}},
		"audit": {
			Flags: map[string]complete.Predictor{
				"limit":   predict.Nothing,
				"minutes": predict.Nothing,
				"filter":  predict.Something,
				"stats":   predict.Nothing,
				"export":  predict.Files("*.jsonl.zst"),
			},
		},
		"version":    {Flags: map[string]complete.Predictor{"json": predict.Nothing}},
		"help":       {},
		"completion": {Flags: map[string]complete.Predictor{"install": predict.Nothing, "uninstall": predict.Nothing}},
	},
}

// Run checks if the binary was invoked for shell completion.
// If COMP_LINE is set, it outputs completions and exits (never returns).
// Otherwise it returns false and the program continues normally.
func Run() bool {
	if os.Getenv("COMP_LINE") != "" || os.Getenv("COMP_INSTALL") != "" || os.Getenv("COMP_UNINSTALL") != "" {
		command.Complete("warden")
		return true
	}
	return false
}

// Install sets up shell completion for the detected shells.
// Returns nil on success. The caller handles user-facing output.
func Install() error {
	return install.Install("warden")
}

// Uninstall removes shell completion for the detected shells.
// Returns nil on success. The caller handles user-facing output.
func Uninstall() error {
	return install.Uninstall("warden")
}

// IsInstalled reports whether shell completion is already set up.
func IsInstalled() bool {
	return install.IsInstalled("warden")
}
