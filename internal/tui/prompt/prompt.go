//go:build !notui

package prompt

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/agentwarden/warden/internal/tui"
)

// Run shows the confirmation prompt and returns the operator's choice.
// Uses a single-key bubbletea prompt when a TTY is available, plain
// text otherwise. Abort (ctrl+c, esc) and EOF reject.
func Run(req Request) (Choice, error) {
	printHeader(req)

	if tui.IsPlainMode() || !tui.Interactive() {
		return runPromptReader(req, os.Stdin)
	}

	m := promptModel{allowRule: req.AllowRuleCreation}
	out, err := tea.NewProgram(m).Run()
	if err != nil {
		return ChoiceReject, fmt.Errorf("confirmation prompt error: %w", err)
	}
	final, ok := out.(promptModel)
	if !ok {
		return ChoiceReject, nil
	}
	return final.choice, nil
}

// promptModel reads a single keypress: y approves, c opens rule
// creation when offered, anything else rejects.
type promptModel struct {
	allowRule bool
	choice    Choice
	done      bool
}

func (m promptModel) Init() tea.Cmd { return nil }

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "y", "Y":
		m.choice = ChoiceApprove
	case "c", "C":
		if !m.allowRule {
			return m, nil
		}
		m.choice = ChoiceCreateRule
	case "n", "N", "q", "esc", "enter", "ctrl+c", "ctrl+d":
		m.choice = ChoiceReject
	default:
		return m, nil
	}
	m.done = true
	return m, tea.Quit
}

func (m promptModel) View() string {
	if m.done {
		badge := tui.StyleError.Render(tui.IconCross + " rejected")
		switch m.choice {
		case ChoiceApprove:
			badge = tui.StyleSuccess.Render(tui.IconCheck + " approved")
		case ChoiceCreateRule:
			badge = tui.StyleAccent.Render(tui.IconPattern + " create rule")
		}
		return "  " + badge + "\n"
	}

	keys := fmt.Sprintf("%s approve once, %s reject",
		tui.StyleSuccess.Render("[y]"), tui.StyleError.Render("[n]"))
	if m.allowRule {
		keys += fmt.Sprintf(", %s create a trust rule", tui.StyleAccent.Render("[c]"))
	}
	return "  " + keys + "\n"
}
