package trust

import "strings"

// Candidate is one proposed trust pattern derived from a pending
// command, from most to least specific.
type Candidate struct {
	Pattern string
	Label   string
}

// DeriveCandidates proposes up to three patterns for a command awaiting
// confirmation, tokenizing by whitespace:
//
//   - the literal command, matched exactly;
//   - the first two tokens plus a wildcard, omitted when the command
//     has fewer than two tokens;
//   - the first token plus a wildcard.
//
// A blank command yields no candidates.
func DeriveCandidates(command string) []Candidate {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}

	out := []Candidate{{Pattern: command, Label: "this exact command"}}
	if len(fields) >= 2 {
		out = append(out, Candidate{
			Pattern: fields[0] + " " + fields[1] + " *",
			Label:   "up to the first argument",
		})
	}
	out = append(out, Candidate{
		Pattern: fields[0] + " *",
		Label:   "any " + fields[0] + " command",
	})
	return out
}
