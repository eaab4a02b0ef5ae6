//go:build !notui

package builder

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/agentwarden/warden/internal/confirm"
	"github.com/agentwarden/warden/internal/trust"
	"github.com/agentwarden/warden/internal/tui"
)

// Run drives the rule-creation menu for a flow in the rule-creation
// state. Uses huh forms when a TTY is available, plain text otherwise.
// User abort (ctrl+c, esc) cancels the flow.
func Run(f *confirm.Flow) error {
	if tui.IsPlainMode() || !tui.Interactive() {
		return runBuilderReader(f, os.Stdin)
	}
	return runBuilderForm(f)
}

func runBuilderForm(f *confirm.Flow) error {
	for f.State() == confirm.StateRuleCreation {
		opts := f.Options()

		var number int
		var desc string

		huhOpts := make([]huh.Option[int], 0, len(opts))
		for _, o := range opts {
			huhOpts = append(huhOpts, huh.NewOption(o.Label, o.Number))
		}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[int]().
					Title("Create Trust Rule").
					Description(fmt.Sprintf("Command: %s", f.Request().Command)).
					Options(huhOpts...).
					Value(&number),
			),
			huh.NewGroup(
				huh.NewInput().
					Title("Description").
					Description("Optional note stored with the rule").
					Value(&desc).
					Validate(validateDescription),
			).WithHideFunc(func() bool {
				return number < 1 || number > len(opts) || opts[number-1].Kind != confirm.OptionCandidate
			}),
		).WithTheme(tui.FormTheme())

		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return f.Cancel()
			}
			return fmt.Errorf("rule builder error: %w", err)
		}

		opt := opts[number-1]
		if opt.Kind != confirm.OptionCandidate {
			if err := f.Choose(number); err != nil {
				return err
			}
			continue
		}

		if err := f.ChooseCandidate(number-1, desc); err != nil {
			var ve *trust.ValidationError
			if errors.As(err, &ve) {
				tui.PrintError("pattern rejected: " + ve.Reason)
				continue
			}
			return err
		}
	}
	return nil
}
