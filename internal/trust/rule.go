package trust

import "sort"

// Rule is one trusted-command pattern with an optional description.
// The JSON field names mirror the persisted schema, where a rule is
// {"command": "<pattern>", "description": <text or null>}.
type Rule struct {
	Pattern     string  `json:"command"`
	Description *string `json:"description"`
}

// NewRule builds a rule; an empty description is stored as null.
func NewRule(pattern, description string) Rule {
	r := Rule{Pattern: pattern}
	if description != "" {
		r.Description = strPtr(description)
	}
	return r
}

// Describe returns the description or "" when unset.
func (r Rule) Describe() string { return derefStr(r.Description) }

// Config holds the ordered trust rules for one scope (a profile or the
// global scope), keyed by tool id. Insertion order is preserved and is
// the order rules are shown and matched in. Rules are not deduplicated.
//
// Add enforces that only confirmable tools gain entries. A hand-edited
// file can still carry entries for other tool ids; those are kept as
// written but are inert, because evaluation never consults rules for a
// non-confirmable tool.
type Config struct {
	TrustedCommands map[Tool][]Rule `json:"trusted_commands"`
}

// NewConfig returns an empty config ready for use.
func NewConfig() *Config {
	return &Config{TrustedCommands: map[Tool][]Rule{}}
}

// Rules returns the stored rules for tool in insertion order. The
// returned slice is the backing store; callers must not modify it.
func (c *Config) Rules(tool Tool) []Rule {
	if c == nil || c.TrustedCommands == nil {
		return nil
	}
	return c.TrustedCommands[tool]
}

// Add validates and appends a rule for tool.
func (c *Config) Add(tool Tool, rule Rule) error {
	if !tool.ConfirmableWithTrust() {
		return validationErrorf("tool %q cannot be trusted with commands", tool)
	}
	if err := ValidatePattern(rule.Pattern); err != nil {
		return err
	}
	if c.TrustedCommands == nil {
		c.TrustedCommands = map[Tool][]Rule{}
	}
	c.TrustedCommands[tool] = append(c.TrustedCommands[tool], rule)
	return nil
}

// Remove deletes the first rule whose pattern equals pattern exactly
// and reports whether anything was removed.
func (c *Config) Remove(tool Tool, pattern string) bool {
	if c == nil || c.TrustedCommands == nil {
		return false
	}
	rules := c.TrustedCommands[tool]
	for i, r := range rules {
		if r.Pattern == pattern {
			c.TrustedCommands[tool] = append(rules[:i:i], rules[i+1:]...)
			if len(c.TrustedCommands[tool]) == 0 {
				delete(c.TrustedCommands, tool)
			}
			return true
		}
	}
	return false
}

// RemoveAll clears every rule for tool.
func (c *Config) RemoveAll(tool Tool) {
	if c == nil || c.TrustedCommands == nil {
		return
	}
	delete(c.TrustedCommands, tool)
}

// Empty reports whether no tool holds any rule.
func (c *Config) Empty() bool {
	if c == nil {
		return true
	}
	for _, rules := range c.TrustedCommands {
		if len(rules) > 0 {
			return false
		}
	}
	return true
}

// Tools lists the tool ids holding rules, sorted for display.
func (c *Config) Tools() []Tool {
	if c == nil {
		return nil
	}
	out := make([]Tool, 0, len(c.TrustedCommands))
	for t := range c.TrustedCommands {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a deep copy safe to mutate independently.
func (c *Config) Clone() *Config {
	out := NewConfig()
	if c == nil {
		return out
	}
	for tool, rules := range c.TrustedCommands {
		cp := make([]Rule, len(rules))
		copy(cp, rules)
		out.TrustedCommands[tool] = cp
	}
	return out
}

func strPtr(s string) *string { return &s }

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
