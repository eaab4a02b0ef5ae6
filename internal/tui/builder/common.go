// Package builder implements the interactive rule-creation menu: the
// derived candidate patterns plus run-once and cancel, applied to a
// confirmation flow.
package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/agentwarden/warden/internal/confirm"
	"github.com/agentwarden/warden/internal/trust"
	"github.com/agentwarden/warden/internal/tui"
)

var validate = validator.New()

// validateDescription bounds the free-text rule description: optional,
// single line, at most 200 characters.
func validateDescription(s string) error {
	if err := validate.Var(s, "omitempty,max=200,excludesall=0x0A0x0D"); err != nil {
		return errors.New("description must be a single line of at most 200 characters")
	}
	return nil
}

// printMenu prints the numbered rule-creation options.
func printMenu(opts []confirm.Option) {
	fmt.Println()
	fmt.Println(tui.Separator("Create Trust Rule"))
	fmt.Println()
	for _, o := range opts {
		label := o.Label
		if o.Kind == confirm.OptionCandidate {
			label = fmt.Sprintf("trust %s (%s)", tui.StylePattern.Render(o.Candidate.Pattern), o.Candidate.Label)
		}
		fmt.Printf("  %d. %s\n", o.Number, label)
	}
	fmt.Println()
}

// runBuilderReader drives the menu over plain stdin lines. Used as
// fallback when plain mode is active and as the sole implementation in
// notui builds. A read error or EOF cancels.
func runBuilderReader(f *confirm.Flow, r io.Reader) error {
	reader := bufio.NewReader(r)

	for f.State() == confirm.StateRuleCreation {
		opts := f.Options()
		printMenu(opts)

		fmt.Printf("  > Choice [1-%d]: ", len(opts))
		line, rerr := reader.ReadString('\n')
		answer := strings.TrimSpace(line)

		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(opts) {
			if rerr != nil {
				return f.Cancel()
			}
			tui.PrintError(fmt.Sprintf("enter a number between 1 and %d", len(opts)))
			continue
		}

		opt := opts[n-1]
		if opt.Kind != confirm.OptionCandidate {
			return f.Choose(n)
		}

		fmt.Print("  > Description (optional): ")
		descLine, derr := reader.ReadString('\n')
		desc := strings.TrimSpace(descLine)
		if verr := validateDescription(desc); verr != nil {
			tui.PrintError(verr.Error())
			if derr != nil {
				return f.Cancel()
			}
			continue
		}

		if cerr := f.ChooseCandidate(n-1, desc); cerr != nil {
			var ve *trust.ValidationError
			if errors.As(cerr, &ve) {
				tui.PrintError("pattern rejected: " + ve.Reason)
				continue
			}
			return cerr
		}
	}
	return nil
}
