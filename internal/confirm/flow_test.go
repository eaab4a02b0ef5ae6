package confirm

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/agentwarden/warden/internal/store"
	"github.com/agentwarden/warden/internal/trust"
)

// recordingAdder captures AddRule calls and can inject a failure.
type recordingAdder struct {
	scope store.Scope
	tool  trust.Tool
	rules []trust.Rule
	err   error
}

func (a *recordingAdder) AddRule(scope store.Scope, tool trust.Tool, rule trust.Rule) error {
	if a.err != nil {
		return a.err
	}
	a.scope = scope
	a.tool = tool
	a.rules = append(a.rules, rule)
	return nil
}

func newTestFlow(t *testing.T, adder RuleAdder, req Request) *Flow {
	t.Helper()
	if adder == nil {
		adder = &recordingAdder{}
	}
	return NewFlow(trust.NewEngine(nil), adder, req)
}

// === Evaluation ===

func TestFlowAutoApproved(t *testing.T) {
	f := newTestFlow(t, nil, Request{
		Profile: "default", Tool: trust.ToolExecuteBash, Command: "ls -la", Interactive: true,
	})

	d := f.Evaluate(context.Background())
	if !d.Approved() || d.Reason != trust.ReasonBuiltinSafe {
		t.Fatalf("Evaluate(ls -la) = %v, want builtin_safe approval", d)
	}
	if f.State() != StateAutoApproved {
		t.Fatalf("state = %v, want %v", f.State(), StateAutoApproved)
	}

	if err := f.Accept(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Accept in %v = %v, want ErrInvalidTransition", f.State(), err)
	}
	if err := f.Proceed(); err != nil {
		t.Fatalf("Proceed: %v", err)
	}
	if f.State() != StateExecuted || !f.Approved() {
		t.Errorf("state after Proceed = %v, Approved = %v", f.State(), f.Approved())
	}
}

func TestFlowEvaluateOnce(t *testing.T) {
	eng := trust.NewEngine(nil)
	f := NewFlow(eng, &recordingAdder{}, Request{
		Profile: "default", Tool: trust.ToolExecuteBash, Command: "make test",
	})

	first := f.Evaluate(context.Background())
	second := f.Evaluate(context.Background())
	if first != second {
		t.Errorf("repeated Evaluate changed the decision: %v then %v", first, second)
	}
	if got := eng.Stats().Evaluations; got != 1 {
		t.Errorf("engine evaluations = %d, want 1", got)
	}
}

// === Accept, reject, cancel ===

func TestFlowPendingEvents(t *testing.T) {
	tests := []struct {
		name  string
		event func(*Flow) error
		want  State
	}{
		{"accept", (*Flow).Accept, StateExecuted},
		{"reject", (*Flow).Reject, StateCancelled},
		{"cancel on closed input", (*Flow).Cancel, StateCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFlow(t, nil, Request{
				Profile: "default", Tool: trust.ToolExecuteBash, Command: "make test", Interactive: true,
			})
			if d := f.Evaluate(context.Background()); d.Approved() {
				t.Fatalf("Evaluate(make test) = %v, want confirmation", d)
			}
			if err := tt.event(f); err != nil {
				t.Fatalf("event: %v", err)
			}
			if f.State() != tt.want {
				t.Errorf("state = %v, want %v", f.State(), tt.want)
			}
		})
	}
}

func TestFlowTerminalRejectsEvents(t *testing.T) {
	f := newTestFlow(t, nil, Request{
		Profile: "default", Tool: trust.ToolExecuteBash, Command: "make test",
	})
	f.Evaluate(context.Background())
	if err := f.Reject(); err != nil {
		t.Fatal(err)
	}

	for name, event := range map[string]func(*Flow) error{
		"accept":              (*Flow).Accept,
		"cancel":              (*Flow).Cancel,
		"begin rule creation": (*Flow).BeginRuleCreation,
		"run once":            (*Flow).RunOnce,
	} {
		if err := event(f); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s after cancellation = %v, want ErrInvalidTransition", name, err)
		}
	}
}

// === Rule creation ===

func beginRuleCreation(t *testing.T, f *Flow) {
	t.Helper()
	if d := f.Evaluate(context.Background()); d.Approved() {
		t.Fatalf("Evaluate = %v, want confirmation", d)
	}
	if err := f.BeginRuleCreation(); err != nil {
		t.Fatalf("BeginRuleCreation: %v", err)
	}
}

func TestFlowRuleCreation(t *testing.T) {
	adder := &recordingAdder{}
	f := newTestFlow(t, adder, Request{
		Profile: "work", Tool: trust.ToolExecuteBash,
		Command: "git restore --staged Makefile frontend/", Interactive: true,
	})
	beginRuleCreation(t, f)

	var got []string
	for _, c := range f.Candidates() {
		got = append(got, c.Pattern)
	}
	want := []string{"git restore --staged Makefile frontend/", "git restore *", "git *"}
	if len(got) != len(want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %q, want %q", i, got[i], want[i])
		}
	}

	opts := f.Options()
	if len(opts) != 5 {
		t.Fatalf("options = %d entries, want 5", len(opts))
	}
	if opts[3].Kind != OptionRunOnce || opts[3].Number != 4 {
		t.Errorf("option 4 = %+v, want run once", opts[3])
	}
	if opts[4].Kind != OptionCancel || opts[4].Number != 5 {
		t.Errorf("option 5 = %+v, want cancel", opts[4])
	}

	if err := f.ChooseCandidate(1, "restore files"); err != nil {
		t.Fatalf("ChooseCandidate: %v", err)
	}
	if f.State() != StateExecuted {
		t.Fatalf("state = %v, want %v", f.State(), StateExecuted)
	}
	if adder.scope != store.ProfileScope("work") || adder.tool != trust.ToolExecuteBash {
		t.Errorf("rule stored in (%v, %v), want (profile work, execute_bash)", adder.scope, adder.tool)
	}
	if len(adder.rules) != 1 || adder.rules[0].Pattern != "git restore *" {
		t.Fatalf("stored rules = %+v, want [git restore *]", adder.rules)
	}
	if adder.rules[0].Description == nil || *adder.rules[0].Description != "restore files" {
		t.Errorf("stored description = %v, want restore files", adder.rules[0].Description)
	}
	if f.CreatedRule() == nil || f.CreatedRule().Pattern != "git restore *" {
		t.Errorf("CreatedRule = %+v", f.CreatedRule())
	}
}

func TestFlowChooseByNumber(t *testing.T) {
	tests := []struct {
		name      string
		number    int
		wantState State
		wantRule  string
		wantErr   bool
	}{
		{"first candidate", 1, StateExecuted, "npm run build", false},
		{"last candidate", 3, StateExecuted, "npm *", false},
		{"run once", 4, StateExecuted, "", false},
		{"cancel", 5, StateCancelled, "", false},
		{"zero", 0, StateRuleCreation, "", true},
		{"out of range", 6, StateRuleCreation, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adder := &recordingAdder{}
			f := newTestFlow(t, adder, Request{
				Profile: "default", Tool: trust.ToolExecuteBash,
				Command: "npm run build", Interactive: true,
			})
			beginRuleCreation(t, f)

			err := f.Choose(tt.number)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Choose(%d) = %v, wantErr %v", tt.number, err, tt.wantErr)
			}
			if f.State() != tt.wantState {
				t.Errorf("state = %v, want %v", f.State(), tt.wantState)
			}
			if tt.wantRule == "" && len(adder.rules) != 0 {
				t.Errorf("stored rules = %+v, want none", adder.rules)
			}
			if tt.wantRule != "" && (len(adder.rules) != 1 || adder.rules[0].Pattern != tt.wantRule) {
				t.Errorf("stored rules = %+v, want [%s]", adder.rules, tt.wantRule)
			}
		})
	}
}

func TestFlowRuleCreationGates(t *testing.T) {
	t.Run("needs interactive context", func(t *testing.T) {
		f := newTestFlow(t, nil, Request{
			Profile: "default", Tool: trust.ToolExecuteBash, Command: "make test",
		})
		f.Evaluate(context.Background())
		if err := f.BeginRuleCreation(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("BeginRuleCreation without interactive = %v, want ErrInvalidTransition", err)
		}
		if f.State() != StatePendingConfirmation {
			t.Errorf("state = %v, want pending", f.State())
		}
	})

	t.Run("needs confirmable tool", func(t *testing.T) {
		f := newTestFlow(t, nil, Request{
			Profile: "default", Tool: trust.ToolFsWrite, Command: "whatever", Interactive: true,
		})
		f.Evaluate(context.Background())
		if err := f.BeginRuleCreation(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("BeginRuleCreation for fs_write = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("needs pending state", func(t *testing.T) {
		f := newTestFlow(t, nil, Request{
			Profile: "default", Tool: trust.ToolExecuteBash, Command: "make test", Interactive: true,
		})
		if err := f.BeginRuleCreation(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("BeginRuleCreation before Evaluate = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestFlowRuleScope(t *testing.T) {
	adder := &recordingAdder{}
	f := newTestFlow(t, adder, Request{
		Profile: "work", Tool: trust.ToolExecuteBash, Command: "npm test",
		Interactive: true, RuleScope: store.GlobalScope(),
	})
	beginRuleCreation(t, f)
	if err := f.Choose(3); err != nil {
		t.Fatal(err)
	}
	if !adder.scope.IsGlobal() {
		t.Errorf("rule stored in %v, want global scope", adder.scope)
	}
}

func TestFlowBlankCommandMenu(t *testing.T) {
	f := newTestFlow(t, nil, Request{
		Profile: "default", Tool: trust.ToolExecuteBash, Command: "   ", Interactive: true,
	})
	beginRuleCreation(t, f)

	if got := f.Candidates(); len(got) != 0 {
		t.Fatalf("candidates for blank command = %v, want none", got)
	}
	opts := f.Options()
	if len(opts) != 2 || opts[0].Kind != OptionRunOnce || opts[1].Kind != OptionCancel {
		t.Fatalf("options = %+v, want run once and cancel only", opts)
	}
	if err := f.Choose(1); err != nil {
		t.Fatal(err)
	}
	if f.State() != StateExecuted {
		t.Errorf("state = %v, want executed", f.State())
	}
}

// === Failure handling ===

func TestFlowDangerousCandidateRejected(t *testing.T) {
	dir := t.TempDir()
	st := store.New(filepath.Join(dir, "profiles"), filepath.Join(dir, "global_context.json"))
	f := NewFlow(trust.NewEngine(st), st, Request{
		Profile: "default", Tool: trust.ToolExecuteBash, Command: "ls > out.txt", Interactive: true,
	})

	d := f.Evaluate(context.Background())
	if d.Reason != trust.ReasonDangerousPattern || d.Marker != ">" {
		t.Fatalf("Evaluate(ls > out.txt) = %v, want dangerous_pattern on >", d)
	}
	if err := f.BeginRuleCreation(); err != nil {
		t.Fatal(err)
	}

	// The exact command contains the marker, so it cannot become a rule.
	err := f.ChooseCandidate(0, "")
	var verr *trust.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ChooseCandidate(exact) = %v, want *trust.ValidationError", err)
	}
	if f.State() != StateRuleCreation {
		t.Fatalf("state after rejected candidate = %v, want rule_creation", f.State())
	}

	// Running once is still available.
	if err := f.RunOnce(); err != nil {
		t.Fatal(err)
	}
	if !f.Approved() || f.CreatedRule() != nil {
		t.Errorf("Approved = %v, CreatedRule = %v; want approved with no rule", f.Approved(), f.CreatedRule())
	}
}

func TestFlowPersistFailureStillApproves(t *testing.T) {
	adder := &recordingAdder{err: &store.StoreError{Op: "save", Path: "context.json", Err: errors.New("disk full")}}
	f := newTestFlow(t, adder, Request{
		Profile: "default", Tool: trust.ToolExecuteBash, Command: "npm install", Interactive: true,
	})
	beginRuleCreation(t, f)

	if err := f.ChooseCandidate(2, ""); err != nil {
		t.Fatalf("ChooseCandidate with failing store = %v, want approval anyway", err)
	}
	if !f.Approved() {
		t.Error("invocation not approved after persistence failure")
	}
	if f.CreatedRule() == nil || f.CreatedRule().Pattern != "npm *" {
		t.Errorf("CreatedRule = %+v, want npm *", f.CreatedRule())
	}
}

// === States ===

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateEvaluating, "evaluating"},
		{StateAutoApproved, "auto_approved"},
		{StatePendingConfirmation, "pending_confirmation"},
		{StateRuleCreation, "rule_creation"},
		{StateExecuted, "executed"},
		{StateCancelled, "cancelled"},
		{State(99), "state(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}

	if !StateExecuted.Terminal() || !StateCancelled.Terminal() || StateRuleCreation.Terminal() {
		t.Error("Terminal() wrong for executed/cancelled/rule_creation")
	}
}
