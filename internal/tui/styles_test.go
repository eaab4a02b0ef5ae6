package tui

import (
	"testing"

	"github.com/agentwarden/warden/internal/tui/terminal"
)

// These tests modify global state (plainMode) and must not run in parallel.

func enablePlainMode(t *testing.T) {
	t.Helper()
	SetPlainMode(true)
	t.Cleanup(func() { SetPlainMode(false) })
}

func TestHasCapability_PlainMode(t *testing.T) {
	enablePlainMode(t)

	caps := []terminal.Capability{
		terminal.CapTruecolor,
		terminal.CapHyperlinks,
		terminal.CapItalic,
		terminal.CapFaint,
		terminal.CapWindowTitle,
	}
	for _, c := range caps {
		if hasCapability(c) {
			t.Errorf("hasCapability(%d) should return false in plain mode", c)
		}
	}
}

func TestCapabilityHelpers_PlainMode(t *testing.T) {
	enablePlainMode(t)

	tests := []struct {
		name string
		fn   func(string) string
	}{
		{"Faint", Faint},
		{"Italic", Italic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn("hello")
			if got != "hello" {
				t.Errorf("%s in plain mode = %q, want %q", tt.name, got, "hello")
			}
		})
	}
}

func TestHyperlink_PlainMode(t *testing.T) {
	enablePlainMode(t)

	got := Hyperlink("https://example.com", "click")
	if got != "click" {
		t.Errorf("Hyperlink in plain mode = %q, want %q", got, "click")
	}
}

func TestHyperlink_EmptyURL(t *testing.T) {
	SetPlainMode(false)
	defer SetPlainMode(false)

	got := Hyperlink("", "click")
	if got != "click" {
		t.Errorf("Hyperlink with empty URL = %q, want %q", got, "click")
	}
}

func TestPrefix_PlainMode(t *testing.T) {
	enablePlainMode(t)

	got := Prefix()
	if got != "[warden]" {
		t.Errorf("Prefix() in plain mode = %q, want %q", got, "[warden]")
	}
}

func TestOutcomeBadge_PlainMode(t *testing.T) {
	enablePlainMode(t)

	tests := []struct {
		outcome string
		want    string
	}{
		{"auto_approve", "[auto_approve]"},
		{"require_confirmation", "[require_confirmation]"},
		{"unknown", "[unknown]"},
	}
	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			got := OutcomeBadge(tt.outcome)
			if got != tt.want {
				t.Errorf("OutcomeBadge(%q) = %q, want %q", tt.outcome, got, tt.want)
			}
		})
	}
}

func TestReasonBadge_PlainMode(t *testing.T) {
	enablePlainMode(t)

	got := ReasonBadge("dangerous_pattern")
	if got != "(dangerous_pattern)" {
		t.Errorf("ReasonBadge = %q, want %q", got, "(dangerous_pattern)")
	}
}

func TestOutcomeStyle_MapsCorrectly(t *testing.T) {
	tests := []struct {
		outcome string
		want    string
	}{
		{"auto_approve", StyleSuccess.Render("x")},
		{"require_confirmation", StyleWarning.Render("x")},
		{"unknown", StyleMuted.Render("x")},
	}
	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			if got := OutcomeStyle(tt.outcome).Render("x"); got != tt.want {
				t.Errorf("OutcomeStyle(%q) returned wrong style", tt.outcome)
			}
		})
	}
}

func TestSeparator_PlainMode(t *testing.T) {
	enablePlainMode(t)

	got := Separator("")
	if got != "---" {
		t.Errorf("Separator(\"\") in plain mode = %q, want %q", got, "---")
	}

	got = Separator("Title")
	if got != "--- Title ---" {
		t.Errorf("Separator(\"Title\") in plain mode = %q, want %q", got, "--- Title ---")
	}
}

func TestSetPlainMode_Overrides(t *testing.T) {
	SetPlainMode(true)
	if !IsPlainMode() {
		t.Error("IsPlainMode() should be true after SetPlainMode(true)")
	}

	SetPlainMode(false)
	if IsPlainMode() {
		t.Error("IsPlainMode() should be false after SetPlainMode(false)")
	}

	SetPlainMode(false)
}
