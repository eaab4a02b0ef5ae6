package trust

import "testing"

func TestDeriveCandidates(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		patterns []string
	}{
		{
			name:    "multi-argument command",
			command: "git restore --staged Makefile frontend/",
			patterns: []string{
				"git restore --staged Makefile frontend/",
				"git restore *",
				"git *",
			},
		},
		{
			name:     "two tokens",
			command:  "npm install",
			patterns: []string{"npm install", "npm install *", "npm *"},
		},
		{
			name:     "subcommand with flag",
			command:  "npm run build",
			patterns: []string{"npm run build", "npm run *", "npm *"},
		},
		{
			name:     "single word",
			command:  "pwd",
			patterns: []string{"pwd", "pwd *"},
		},
		{
			name:     "flags count as tokens",
			command:  "ls -la",
			patterns: []string{"ls -la", "ls -la *", "ls *"},
		},
		{
			name:     "empty",
			command:  "",
			patterns: nil,
		},
		{
			name:     "whitespace only",
			command:  "   ",
			patterns: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveCandidates(tt.command)
			if len(got) != len(tt.patterns) {
				t.Fatalf("DeriveCandidates(%q) returned %d candidates, want %d", tt.command, len(got), len(tt.patterns))
			}
			for i, want := range tt.patterns {
				if got[i].Pattern != want {
					t.Errorf("candidate[%d] = %q, want %q", i, got[i].Pattern, want)
				}
				if got[i].Label == "" {
					t.Errorf("candidate[%d] has no label", i)
				}
			}
		})
	}
}

// For a multi-token command, every derived candidate validates and
// matches the command it came from.
func TestDeriveCandidatesMatchSource(t *testing.T) {
	commands := []string{
		"git restore --staged Makefile frontend/",
		"npm run build",
		"cargo test --workspace",
	}
	for _, cmd := range commands {
		for _, c := range DeriveCandidates(cmd) {
			if err := ValidatePattern(c.Pattern); err != nil {
				t.Errorf("candidate %q for %q fails validation: %v", c.Pattern, cmd, err)
			}
			if !Matches(c.Pattern, cmd) {
				t.Errorf("candidate %q does not match source command %q", c.Pattern, cmd)
			}
		}
	}
}

// A bare word re-matches only through its exact candidate: the wildcard
// form requires the separator, so it covers future invocations with
// arguments but not the argumentless command itself.
func TestDeriveCandidatesSingleToken(t *testing.T) {
	cands := DeriveCandidates("pwd")
	if len(cands) != 2 {
		t.Fatalf("DeriveCandidates(pwd) returned %d candidates, want 2", len(cands))
	}
	if !Matches(cands[0].Pattern, "pwd") {
		t.Errorf("exact candidate %q does not match its own command", cands[0].Pattern)
	}
	if Matches(cands[1].Pattern, "pwd") {
		t.Errorf("wildcard candidate %q unexpectedly matches the bare word", cands[1].Pattern)
	}
	if !Matches(cands[1].Pattern, "pwd -P") {
		t.Errorf("wildcard candidate %q does not match an argument form", cands[1].Pattern)
	}
}
