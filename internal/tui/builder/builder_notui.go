//go:build notui

package builder

import (
	"os"

	"github.com/agentwarden/warden/internal/confirm"
)

// Run drives the rule-creation menu (plain text, no TUI).
func Run(f *confirm.Flow) error {
	return runBuilderReader(f, os.Stdin)
}
