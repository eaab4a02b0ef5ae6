package trust

import "strings"

// Tier classifies a dangerous marker by why it forces confirmation.
type Tier string

const (
	// TierDestructive marks command text that should never run silently,
	// whatever rules exist.
	TierDestructive Tier = "destructive"
	// TierShellControl marks syntax with effects beyond the literal
	// command: redirection, chaining, substitution, backgrounding.
	TierShellControl Tier = "shell_control"
	// TierIORedirection marks I/O redirection forms. Its markers are
	// shadowed by the shell-control set in practice and kept for
	// diagnostics completeness.
	TierIORedirection Tier = "io_redirection"
)

// PatternMatch describes the dangerous marker found in a command.
type PatternMatch struct {
	Marker string
	Tier   Tier
}

// destructivePatterns are command fragments that should never be trusted.
// Substring match, checked before the marker sets below.
var destructivePatterns = []string{
	"rm -rf",        // recursive force remove
	"sudo rm",       // privileged remove
	"format",        // format disk
	"mkfs",          // make filesystem
	"dd if=",        // disk dump
	":(){ :|:& };:", // fork bomb
	"> /dev/",       // write to device files
	"chmod 777",     // world-writable permissions
	"chown root",    // change ownership to root
	"su -",          // switch user
	"sudo su",       // privileged user switch
	"del /",         // Windows recursive delete
	"rmdir /s",      // Windows recursive rmdir
}

// shellControlMarkers is the fixed, non-configurable set of lexical
// markers that force confirmation: redirection, chaining, command and
// process substitution, and backgrounding. A bare pipe is not a marker.
// Longer markers come first so the reported marker is the most specific
// one.
var shellControlMarkers = []string{
	"<(", // process substitution
	">(", // process substitution
	"$(", // command substitution
	">>", // append redirection
	"&&", // chaining (and)
	"||", // chaining (or)
	"`",  // command substitution (backticks)
	">",  // output redirection
	"<",  // input redirection
	"&",  // background execution
	";",  // command separator
}

// ioRedirectionPatterns are redirection idioms tracked as their own tier.
// Each contains a shell-control marker, so the tier above reports first.
var ioRedirectionPatterns = []string{
	"> /dev/null",
	"2>&1",
	"&>",
}

// Scan reports the first dangerous marker in command, checking
// destructive fragments, then shell-control markers, then I/O
// redirection idioms. The command is Unicode-normalized first so
// visually disguised syntax (fullwidth ＆＆, a zero-width joiner inside
// a marker, homoglyph letters in "sudo") is still caught. Normalization
// can only add confirmations: the raw byte forms above are all
// normalization-stable.
func Scan(command string) (PatternMatch, bool) {
	c := normalizeCommand(command)
	for _, p := range destructivePatterns {
		if strings.Contains(c, p) {
			return PatternMatch{Marker: p, Tier: TierDestructive}, true
		}
	}
	for _, m := range shellControlMarkers {
		if strings.Contains(c, m) {
			return PatternMatch{Marker: m, Tier: TierShellControl}, true
		}
	}
	for _, p := range ioRedirectionPatterns {
		if strings.Contains(c, p) {
			return PatternMatch{Marker: p, Tier: TierIORedirection}, true
		}
	}
	return PatternMatch{}, false
}

// IsDangerous reports whether command contains any dangerous marker.
// Pure lexical check; absence of every marker yields false.
func IsDangerous(command string) bool {
	_, found := Scan(command)
	return found
}
