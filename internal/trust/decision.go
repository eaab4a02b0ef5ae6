package trust

import "fmt"

// Outcome is the verdict for one invocation. The zero value requires
// confirmation, so a forgotten assignment can never auto-approve.
type Outcome int

const (
	// RequireConfirmation means a human must approve before execution.
	RequireConfirmation Outcome = iota
	// AutoApprove means the command may run without asking.
	AutoApprove
)

func (o Outcome) String() string {
	switch o {
	case AutoApprove:
		return "auto_approve"
	case RequireConfirmation:
		return "require_confirmation"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText renders the outcome as its string form, so decisions
// serialize as "auto_approve" rather than a bare integer.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "auto_approve":
		*o = AutoApprove
	case "require_confirmation":
		*o = RequireConfirmation
	default:
		return fmt.Errorf("unknown outcome %q", b)
	}
	return nil
}

// Reason explains why an outcome was reached.
type Reason string

const (
	// ReasonDefault: no rule or registry entry applied, or the tool is
	// not confirmable with trust.
	ReasonDefault Reason = "default"
	// ReasonDangerousPattern: the command contains unsafe shell syntax.
	ReasonDangerousPattern Reason = "dangerous_pattern"
	// ReasonBuiltinSafe: the command's first token is a builtin
	// read-only command.
	ReasonBuiltinSafe Reason = "builtin_safe"
	// ReasonUserRule: a stored trust rule matched the command.
	ReasonUserRule Reason = "user_rule"
)

// Decision is the engine's answer for one (tool, command) pair.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Reason  Reason  `json:"reason"`

	// Rule is the matching pattern when Reason is ReasonUserRule.
	Rule string `json:"rule,omitempty"`
	// Marker and Tier describe the matched syntax when Reason is
	// ReasonDangerousPattern.
	Marker string `json:"marker,omitempty"`
	Tier   Tier   `json:"tier,omitempty"`
}

// Approved reports whether the command may run without confirmation.
func (d Decision) Approved() bool { return d.Outcome == AutoApprove }

// String renders the decision for log lines, e.g.
// "auto_approve (user_rule: npm *)".
func (d Decision) String() string {
	switch d.Reason {
	case ReasonUserRule:
		return fmt.Sprintf("%s (user_rule: %s)", d.Outcome, d.Rule)
	case ReasonDangerousPattern:
		return fmt.Sprintf("%s (dangerous_pattern: %q)", d.Outcome, d.Marker)
	default:
		return fmt.Sprintf("%s (%s)", d.Outcome, d.Reason)
	}
}
