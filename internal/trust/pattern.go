package trust

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ValidationError reports a malformed pattern or a rule targeting a
// tool that can never be trusted. It is surfaced synchronously to the
// caller attempting the mutation; the rule is not added.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// AsValidationError unwraps err as a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// Matches reports whether command matches pattern.
//
// A pattern without a trailing wildcard token matches by byte-for-byte
// equality. A pattern ending in "*" preceded by whitespace ("npm *")
// matches any command starting with the literal prefix up to and
// including that whitespace: "npm install" matches, "npmx" does not,
// and neither does bare "npm". Matching is case- and
// whitespace-sensitive; nothing is normalized.
func Matches(pattern, command string) bool {
	if prefix, ok := wildcardPrefix(pattern); ok {
		return strings.HasPrefix(command, prefix)
	}
	return pattern == command
}

// wildcardPrefix returns the literal prefix (whitespace included) for a
// pattern ending in a whitespace-preceded "*". Any other pattern,
// including a bare "*", is not a wildcard pattern.
func wildcardPrefix(pattern string) (string, bool) {
	if !strings.HasSuffix(pattern, "*") {
		return "", false
	}
	prefix := pattern[:len(pattern)-1]
	if prefix == "" {
		return "", false
	}
	last, _ := utf8.DecodeLastRuneInString(prefix)
	if !unicode.IsSpace(last) {
		return "", false
	}
	return prefix, true
}

// ValidatePattern rejects patterns that could never form a usable
// trust rule: empty text, a lone wildcard, a wildcard anywhere but the
// trailing token, or dangerous syntax inside the pattern itself.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return &ValidationError{Reason: "pattern is empty"}
	}
	if pattern == "*" {
		return &ValidationError{Reason: `pattern "*" would trust every command`}
	}
	if n := strings.Count(pattern, "*"); n > 0 {
		if n > 1 {
			return validationErrorf("pattern %q: only a single trailing wildcard is supported", pattern)
		}
		prefix, ok := wildcardPrefix(pattern)
		if !ok {
			return validationErrorf("pattern %q: wildcard must be a trailing token preceded by whitespace", pattern)
		}
		if strings.TrimSpace(prefix) == "" {
			return validationErrorf("pattern %q would trust every command", pattern)
		}
	}
	if m, found := Scan(pattern); found {
		return validationErrorf("pattern %q contains dangerous syntax %q and cannot be trusted", pattern, m.Marker)
	}
	return nil
}
