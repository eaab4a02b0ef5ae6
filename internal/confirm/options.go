package confirm

import (
	"fmt"

	"github.com/agentwarden/warden/internal/trust"
)

// OptionKind classifies a rule-creation menu entry.
type OptionKind int

const (
	OptionCandidate OptionKind = iota
	OptionRunOnce
	OptionCancel
)

// Option is one numbered entry in the rule-creation menu: the
// candidates in derivation order, then run once, then cancel. With all
// three candidates present the numbers run 1 through 5.
type Option struct {
	Number    int
	Kind      OptionKind
	Label     string
	Candidate trust.Candidate
}

// Options returns the menu for the current rule-creation state, or nil
// outside of it.
func (f *Flow) Options() []Option {
	if f.state != StateRuleCreation {
		return nil
	}
	out := make([]Option, 0, len(f.candidates)+2)
	for i, c := range f.candidates {
		out = append(out, Option{
			Number:    i + 1,
			Kind:      OptionCandidate,
			Label:     fmt.Sprintf("trust %q (%s)", c.Pattern, c.Label),
			Candidate: c,
		})
	}
	out = append(out,
		Option{Number: len(f.candidates) + 1, Kind: OptionRunOnce, Label: "run once without trusting"},
		Option{Number: len(f.candidates) + 2, Kind: OptionCancel, Label: "cancel and do not run"},
	)
	return out
}

// Choose applies the numbered menu option.
func (f *Flow) Choose(number int) error {
	if f.state != StateRuleCreation {
		return f.transitionError("choose")
	}
	n := len(f.candidates)
	switch {
	case number >= 1 && number <= n:
		return f.ChooseCandidate(number-1, "")
	case number == n+1:
		return f.RunOnce()
	case number == n+2:
		return f.Cancel()
	}
	return fmt.Errorf("no option %d", number)
}
