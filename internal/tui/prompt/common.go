// Package prompt implements the interactive confirmation prompt shown
// when a command requires human approval before execution.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/agentwarden/warden/internal/trust"
	"github.com/agentwarden/warden/internal/tui"
)

// Choice is the operator's answer to a confirmation prompt.
type Choice int

// The zero value is ChoiceReject so that no error path or closed input
// stream can ever approve execution.
const (
	ChoiceReject Choice = iota
	ChoiceApprove
	ChoiceCreateRule
)

// String returns the choice name for logging.
func (c Choice) String() string {
	switch c {
	case ChoiceApprove:
		return "approve"
	case ChoiceCreateRule:
		return "create_rule"
	default:
		return "reject"
	}
}

// Request describes the command awaiting confirmation.
type Request struct {
	Tool     trust.Tool
	Command  string
	Decision trust.Decision

	// AllowRuleCreation offers the "create a trust rule" option.
	// Disabled for dangerous commands: those must never become rules.
	AllowRuleCreation bool
}

// printHeader prints the command under review and why it was held.
func printHeader(req Request) {
	fmt.Println()
	fmt.Println(tui.Separator("Confirmation Required"))
	fmt.Println()
	fmt.Printf("  Tool:    %s\n", req.Tool)
	fmt.Printf("  Command: %s\n", tui.StyleCommand.Render(req.Command))
	fmt.Println()

	switch req.Decision.Reason {
	case trust.ReasonDangerousPattern:
		tui.PrintWarning(fmt.Sprintf("Dangerous syntax detected: %q (%s)", req.Decision.Marker, req.Decision.Tier))
	default:
		tui.PrintInfo("No trust rule matches this command")
	}
	fmt.Println()
}

// runPromptReader reads a plain-text answer from r. Used as fallback when
// plain mode is active (piped, NO_COLOR, etc.) and as the sole
// implementation in notui builds. A read error or EOF rejects.
func runPromptReader(req Request, r io.Reader) (Choice, error) {
	reader := bufio.NewReader(r)

	hint := "y/N"
	if req.AllowRuleCreation {
		hint = "y/N/c=create rule"
	}
	fmt.Printf("  > Approve this command? [%s]: ", hint)

	line, err := reader.ReadString('\n')
	answer := strings.TrimSpace(strings.ToLower(line))
	if err != nil && answer == "" {
		return ChoiceReject, nil
	}

	switch answer {
	case "y", "yes":
		return ChoiceApprove, nil
	case "c", "create":
		if req.AllowRuleCreation {
			return ChoiceCreateRule, nil
		}
		return ChoiceReject, nil
	default:
		return ChoiceReject, nil
	}
}
