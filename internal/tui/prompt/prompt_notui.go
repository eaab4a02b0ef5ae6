//go:build notui

package prompt

import "os"

// Run shows the confirmation prompt (plain text, no TUI).
func Run(req Request) (Choice, error) {
	printHeader(req)
	return runPromptReader(req, os.Stdin)
}
