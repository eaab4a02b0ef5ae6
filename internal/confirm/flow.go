// Package confirm drives one pending tool invocation from evaluation to
// execution or cancellation.
//
// The flow is an explicit state machine fed by discrete events (accept,
// reject, choose option) instead of a blocking read-a-key loop, so it is
// testable without a terminal and works the same under the TUI prompt,
// the plain prompt, and the HTTP API.
package confirm

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentwarden/warden/internal/logger"
	"github.com/agentwarden/warden/internal/store"
	"github.com/agentwarden/warden/internal/trust"
)

var log = logger.New("confirm")

// ErrInvalidTransition reports an event that is not legal in the flow's
// current state.
var ErrInvalidTransition = errors.New("invalid transition")

// State of one confirmation flow.
type State int

const (
	StateEvaluating State = iota
	StateAutoApproved
	StatePendingConfirmation
	StateRuleCreation
	StateExecuted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateEvaluating:
		return "evaluating"
	case StateAutoApproved:
		return "auto_approved"
	case StatePendingConfirmation:
		return "pending_confirmation"
	case StateRuleCreation:
		return "rule_creation"
	case StateExecuted:
		return "executed"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further events apply.
func (s State) Terminal() bool {
	return s == StateExecuted || s == StateCancelled
}

// RuleAdder persists a trust rule created during the flow. *store.Store
// implements it.
type RuleAdder interface {
	AddRule(scope store.Scope, tool trust.Tool, rule trust.Rule) error
}

// Request describes one pending tool invocation.
type Request struct {
	Profile string
	Tool    trust.Tool
	Command string

	// Interactive enables the rule-creation branch. Without it the
	// prompt offers only accept and reject.
	Interactive bool

	// RuleScope is where a created rule is stored. The zero value
	// means the profile's own scope.
	RuleScope store.Scope
}

// Flow is the state machine for one pending invocation. It is owned by
// a single goroutine; it is not safe for concurrent use.
type Flow struct {
	engine *trust.Engine
	rules  RuleAdder
	req    Request
	scope  store.Scope

	state      State
	decision   trust.Decision
	candidates []trust.Candidate
	created    *trust.Rule
}

// NewFlow creates a flow in StateEvaluating.
func NewFlow(engine *trust.Engine, rules RuleAdder, req Request) *Flow {
	scope := req.RuleScope
	if scope == (store.Scope{}) {
		scope = store.ProfileScope(req.Profile)
	}
	return &Flow{
		engine: engine,
		rules:  rules,
		req:    req,
		scope:  scope,
	}
}

// State returns the current state.
func (f *Flow) State() State { return f.state }

// Decision returns the engine's decision; the zero Decision before
// Evaluate has run.
func (f *Flow) Decision() trust.Decision { return f.decision }

// Request returns the pending invocation.
func (f *Flow) Request() Request { return f.req }

// CreatedRule returns the rule created during the flow, or nil.
func (f *Flow) CreatedRule() *trust.Rule { return f.created }

// Approved reports whether the invocation may run.
func (f *Flow) Approved() bool { return f.state == StateExecuted }

// Evaluate runs the engine and moves to AutoApproved or
// PendingConfirmation. Calling it again returns the stored decision
// without re-evaluating.
func (f *Flow) Evaluate(ctx context.Context) trust.Decision {
	if f.state != StateEvaluating {
		return f.decision
	}
	f.decision = f.engine.Evaluate(ctx, f.req.Profile, f.req.Tool, f.req.Command)
	if f.decision.Approved() {
		f.state = StateAutoApproved
	} else {
		f.state = StatePendingConfirmation
	}
	return f.decision
}

// Proceed marks an auto-approved invocation as executed.
func (f *Flow) Proceed() error {
	if f.state != StateAutoApproved {
		return f.transitionError("proceed")
	}
	f.state = StateExecuted
	return nil
}

// Accept approves the pending invocation without creating a rule.
func (f *Flow) Accept() error {
	if f.state != StatePendingConfirmation {
		return f.transitionError("accept")
	}
	f.state = StateExecuted
	return nil
}

// Reject cancels the pending invocation.
func (f *Flow) Reject() error {
	if f.state != StatePendingConfirmation {
		return f.transitionError("reject")
	}
	f.state = StateCancelled
	return nil
}

// Cancel aborts the flow from any non-terminal state. End-of-input and
// prompt aborts map here: a closed input stream can never approve
// execution.
func (f *Flow) Cancel() error {
	if f.state.Terminal() {
		return f.transitionError("cancel")
	}
	f.state = StateCancelled
	return nil
}

// BeginRuleCreation moves from PendingConfirmation to RuleCreation and
// derives the candidate patterns. Only a confirmable tool in an
// interactive context may enter rule creation.
func (f *Flow) BeginRuleCreation() error {
	if f.state != StatePendingConfirmation {
		return f.transitionError("create rule")
	}
	if !f.req.Tool.ConfirmableWithTrust() {
		return fmt.Errorf("%w: tool %q cannot be trusted with commands", ErrInvalidTransition, f.req.Tool)
	}
	if !f.req.Interactive {
		return fmt.Errorf("%w: rule creation needs an interactive context", ErrInvalidTransition)
	}
	f.candidates = trust.DeriveCandidates(f.req.Command)
	f.state = StateRuleCreation
	return nil
}

// Candidates returns the derived patterns, in order of decreasing
// specificity. Valid after BeginRuleCreation.
func (f *Flow) Candidates() []trust.Candidate { return f.candidates }

// ChooseCandidate stores candidate i (zero-based) as a trust rule and
// approves the pending invocation; re-evaluation would match the new
// rule by construction, so none is performed. A validation failure
// leaves the flow in RuleCreation for another choice. A persistence
// failure logs a warning but still approves: the user just said yes,
// and the rule is live in memory for the rest of the session.
func (f *Flow) ChooseCandidate(i int, description string) error {
	if f.state != StateRuleCreation {
		return f.transitionError("choose candidate")
	}
	if i < 0 || i >= len(f.candidates) {
		return fmt.Errorf("no candidate %d", i+1)
	}

	c := f.candidates[i]
	rule := trust.NewRule(c.Pattern, description)
	if err := f.rules.AddRule(f.scope, f.req.Tool, rule); err != nil {
		var verr *trust.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		log.Warn("trust rule %q not persisted: %v", c.Pattern, err)
	}
	f.created = &rule
	f.state = StateExecuted
	return nil
}

// RunOnce approves the pending invocation without creating a rule.
func (f *Flow) RunOnce() error {
	if f.state != StateRuleCreation {
		return f.transitionError("run once")
	}
	f.state = StateExecuted
	return nil
}

func (f *Flow) transitionError(event string) error {
	return fmt.Errorf("%w: cannot %s in state %s", ErrInvalidTransition, event, f.state)
}
