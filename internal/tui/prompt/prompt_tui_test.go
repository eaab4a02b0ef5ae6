//go:build !notui

package prompt

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{}
}

func TestPromptModelKeys(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		allowRule bool
		want      Choice
		wantDone  bool
	}{
		{"y approves", "y", true, ChoiceApprove, true},
		{"n rejects", "n", true, ChoiceReject, true},
		{"esc rejects", "esc", true, ChoiceReject, true},
		{"ctrl+c rejects", "ctrl+c", true, ChoiceReject, true},
		{"enter rejects", "enter", true, ChoiceReject, true},
		{"c creates rule", "c", true, ChoiceCreateRule, true},
		{"c ignored when rule creation disabled", "c", false, ChoiceReject, false},
		{"unrelated key ignored", "x", true, ChoiceReject, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := promptModel{allowRule: tt.allowRule}
			out, _ := m.Update(keyMsg(tt.key))
			got := out.(promptModel)
			if got.done != tt.wantDone {
				t.Fatalf("done = %v, want %v", got.done, tt.wantDone)
			}
			if got.done && got.choice != tt.want {
				t.Errorf("choice = %v, want %v", got.choice, tt.want)
			}
		})
	}
}
