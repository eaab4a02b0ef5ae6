package trust

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
)

// stubSource feeds the engine a fixed rule table, bypassing store
// validation so override properties can be probed with rules that could
// never be created through the normal path.
type stubSource map[string]map[Tool][]Rule

func (s stubSource) Rules(_ context.Context, profile string, tool Tool) []Rule {
	return s[profile][tool]
}

func rules(patterns ...string) []Rule {
	out := make([]Rule, len(patterns))
	for i, p := range patterns {
		out[i] = Rule{Pattern: p}
	}
	return out
}

func TestEvaluateNonConfirmableTool(t *testing.T) {
	// Even a rule that matches exactly must not apply to tools that are
	// not confirmable with trust.
	src := stubSource{
		"default": {
			ToolFsWrite: rules("write config.yaml"),
			ToolUseAPI:  rules("s3 ls *"),
		},
	}
	eng := NewEngine(src)
	ctx := context.Background()

	tests := []struct {
		tool    Tool
		command string
	}{
		{ToolFsWrite, "write config.yaml"},
		{ToolUseAPI, "s3 ls my-bucket"},
		{Tool("custom_mcp_tool"), "anything at all"},
	}
	for _, tt := range tests {
		d := eng.Evaluate(ctx, "default", tt.tool, tt.command)
		if d.Outcome != RequireConfirmation || d.Reason != ReasonDefault {
			t.Errorf("Evaluate(%s, %q) = %s, want require_confirmation (default)", tt.tool, tt.command, d)
		}
	}
}

func TestEvaluateDangerousOverridesEverything(t *testing.T) {
	// Rules matching the dangerous command exist, and the first token is
	// in the builtin registry; the dangerous check still wins.
	src := stubSource{
		"default": {
			ToolExecuteBash: rules("ls > out.txt", "ls *", "npm *"),
		},
	}
	eng := NewEngine(src)
	ctx := context.Background()

	tests := []struct {
		command string
		marker  string
	}{
		{"ls > out.txt", ">"},
		{"npm install && npm test", "&&"},
		{"ls $(cat targets)", "$("},
	}
	for _, tt := range tests {
		d := eng.Evaluate(ctx, "default", ToolExecuteBash, tt.command)
		if d.Outcome != RequireConfirmation || d.Reason != ReasonDangerousPattern {
			t.Fatalf("Evaluate(%q) = %s, want require_confirmation (dangerous_pattern)", tt.command, d)
		}
		if d.Marker != tt.marker {
			t.Errorf("Evaluate(%q) marker = %q, want %q", tt.command, d.Marker, tt.marker)
		}
	}
}

func TestEvaluateBuiltinSafe(t *testing.T) {
	eng := NewEngine(nil)
	ctx := context.Background()

	for _, command := range []string{"ls", "ls -la", "cat README.md", "pwd"} {
		d := eng.Evaluate(ctx, "default", ToolExecuteBash, command)
		if d.Outcome != AutoApprove || d.Reason != ReasonBuiltinSafe {
			t.Errorf("Evaluate(%q) = %s, want auto_approve (builtin_safe)", command, d)
		}
	}

	// Builtin status does not survive a dangerous marker.
	d := eng.Evaluate(ctx, "default", ToolExecuteBash, "ls > out.txt")
	if d.Outcome != RequireConfirmation || d.Reason != ReasonDangerousPattern {
		t.Errorf("Evaluate(ls > out.txt) = %s, want require_confirmation (dangerous_pattern)", d)
	}
}

func TestEvaluateBuiltinBeforeUserRule(t *testing.T) {
	src := stubSource{
		"default": {ToolExecuteBash: rules("ls *")},
	}
	eng := NewEngine(src)

	d := eng.Evaluate(context.Background(), "default", ToolExecuteBash, "ls -la")
	if d.Reason != ReasonBuiltinSafe {
		t.Errorf("Evaluate(ls -la) reason = %s, want builtin_safe", d.Reason)
	}
}

func TestEvaluateUserRule(t *testing.T) {
	src := stubSource{
		"default": {
			ToolExecuteBash: rules("git status", "npm *"),
		},
		"work": {
			ToolExecuteBash: rules("terraform plan"),
		},
	}
	eng := NewEngine(src)
	ctx := context.Background()

	tests := []struct {
		name     string
		profile  string
		command  string
		approved bool
		rule     string
	}{
		{"exact rule", "default", "git status", true, "git status"},
		{"exact rule no prefix match", "default", "git status --short", false, ""},
		{"wildcard rule", "default", "npm install", true, "npm *"},
		{"wildcard rule run", "default", "npm run build", true, "npm *"},
		{"wildcard separator required", "default", "npmx", false, ""},
		{"other profile rule does not leak", "default", "terraform plan", false, ""},
		{"profile scoped rule", "work", "terraform plan", true, "terraform plan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := eng.Evaluate(ctx, tt.profile, ToolExecuteBash, tt.command)
			if d.Approved() != tt.approved {
				t.Fatalf("Evaluate(%q) = %s, want approved=%v", tt.command, d, tt.approved)
			}
			if tt.approved {
				if d.Reason != ReasonUserRule {
					t.Errorf("reason = %s, want user_rule", d.Reason)
				}
				if d.Rule != tt.rule {
					t.Errorf("rule = %q, want %q", d.Rule, tt.rule)
				}
			} else if d.Reason != ReasonDefault {
				t.Errorf("reason = %s, want default", d.Reason)
			}
		})
	}
}

func TestEvaluateFirstMatchingRuleWins(t *testing.T) {
	src := stubSource{
		"default": {
			ToolExecuteBash: rules("git *", "git status"),
		},
	}
	eng := NewEngine(src)

	d := eng.Evaluate(context.Background(), "default", ToolExecuteBash, "git status")
	if d.Rule != "git *" {
		t.Errorf("rule = %q, want the earlier rule %q", d.Rule, "git *")
	}
}

func TestEvaluateNilSource(t *testing.T) {
	eng := NewEngine(nil)
	d := eng.Evaluate(context.Background(), "default", ToolExecuteBash, "git push origin main")
	if d.Outcome != RequireConfirmation || d.Reason != ReasonDefault {
		t.Errorf("Evaluate with nil source = %s, want require_confirmation (default)", d)
	}
}

func TestStats(t *testing.T) {
	src := stubSource{
		"default": {ToolExecuteBash: rules("npm *")},
	}
	eng := NewEngine(src)
	ctx := context.Background()

	// One builtin, two user rules, one dangerous, two defaults.
	eng.Evaluate(ctx, "default", ToolExecuteBash, "ls")
	eng.Evaluate(ctx, "default", ToolExecuteBash, "npm install")
	eng.Evaluate(ctx, "default", ToolExecuteBash, "rm -rf /")
	eng.Evaluate(ctx, "default", ToolExecuteBash, "git push")
	eng.Evaluate(ctx, "default", ToolFsWrite, "write notes.md")
	eng.Evaluate(ctx, "default", ToolExecuteBash, "npm run lint")

	s := eng.Stats()
	if s.Evaluations != 6 {
		t.Errorf("Evaluations = %d, want 6", s.Evaluations)
	}
	want := map[Reason]int64{
		ReasonBuiltinSafe:      1,
		ReasonUserRule:         2,
		ReasonDangerousPattern: 1,
		ReasonDefault:          2,
	}
	for reason, n := range want {
		if s.ByReason[reason] != n {
			t.Errorf("ByReason[%s] = %d, want %d", reason, s.ByReason[reason], n)
		}
	}
}

func TestDecisionString(t *testing.T) {
	d := Decision{Outcome: AutoApprove, Reason: ReasonUserRule, Rule: "npm *"}
	if got := d.String(); got != "auto_approve (user_rule: npm *)" {
		t.Errorf("String() = %q", got)
	}
	d = Decision{Outcome: RequireConfirmation, Reason: ReasonDangerousPattern, Marker: "&&", Tier: TierShellControl}
	if got := d.String(); got != `require_confirmation (dangerous_pattern: "&&")` {
		t.Errorf("String() = %q", got)
	}
}

func TestDecisionJSON(t *testing.T) {
	data, err := json.Marshal(Decision{Outcome: AutoApprove, Reason: ReasonBuiltinSafe})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"outcome":"auto_approve","reason":"builtin_safe"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var d Decision
	if err := json.Unmarshal([]byte(`{"outcome":"require_confirmation","reason":"default"}`), &d); err != nil {
		t.Fatal(err)
	}
	if d.Outcome != RequireConfirmation || d.Reason != ReasonDefault {
		t.Errorf("Unmarshal = %+v", d)
	}
	if err := json.Unmarshal([]byte(`{"outcome":"maybe"}`), &d); err == nil {
		t.Error("Unmarshal accepted unknown outcome")
	}
}

func BenchmarkEvaluate(b *testing.B) {
	table := map[Tool][]Rule{ToolExecuteBash: nil}
	for i := range 50 {
		table[ToolExecuteBash] = append(table[ToolExecuteBash], Rule{Pattern: fmt.Sprintf("tool%d *", i)})
	}
	table[ToolExecuteBash] = append(table[ToolExecuteBash], Rule{Pattern: "cargo build *"})
	eng := NewEngine(stubSource{"default": table})
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eng.Evaluate(ctx, "default", ToolExecuteBash, "cargo build --release")
	}
}
