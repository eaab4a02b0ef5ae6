package trust

import (
	"context"
	"sync/atomic"

	"github.com/agentwarden/warden/internal/logger"
)

var log = logger.New("trust")

// RuleSource supplies the ordered trust rules for a profile and tool.
// Order is part of the contract: the first matching rule wins, so the
// source decides precedence (the store yields global-scope rules before
// profile-scope ones).
type RuleSource interface {
	Rules(ctx context.Context, profile string, tool Tool) []Rule
}

// RuleSourceFunc adapts a function to RuleSource.
type RuleSourceFunc func(ctx context.Context, profile string, tool Tool) []Rule

func (f RuleSourceFunc) Rules(ctx context.Context, profile string, tool Tool) []Rule {
	return f(ctx, profile, tool)
}

// Engine evaluates tool invocations into decisions. It holds no
// per-profile state of its own; rules are read through the source on
// every evaluation, so distinct profiles and sessions evaluate
// concurrently without cross-contamination.
type Engine struct {
	source RuleSource

	evaluations atomic.Int64
	hits        map[Reason]*atomic.Int64
}

// NewEngine returns an engine reading rules from source. A nil source
// evaluates as if no rules exist.
func NewEngine(source RuleSource) *Engine {
	return &Engine{
		source: source,
		hits: map[Reason]*atomic.Int64{
			ReasonDefault:          {},
			ReasonDangerousPattern: {},
			ReasonBuiltinSafe:      {},
			ReasonUserRule:         {},
		},
	}
}

// Evaluate decides whether command may run for tool under profile.
// The order of checks is fixed and is the safety contract:
//
//  1. A tool that is not confirmable with trust requires confirmation
//     unconditionally; no rule can apply to it.
//  2. Dangerous syntax requires confirmation; no later step reverses
//     this, a matching trust rule included.
//  3. A builtin read-only command auto-approves.
//  4. The first matching user rule in stored order auto-approves.
//  5. Anything else requires confirmation.
func (e *Engine) Evaluate(ctx context.Context, profile string, tool Tool, command string) Decision {
	d := e.decide(ctx, profile, tool, command)

	e.evaluations.Add(1)
	if counter, ok := e.hits[d.Reason]; ok {
		counter.Add(1)
	}

	log.Debug("%s profile=%q: %s", tool, profile, d)
	log.Trace("command: %q", command)
	return d
}

func (e *Engine) decide(ctx context.Context, profile string, tool Tool, command string) Decision {
	if !tool.ConfirmableWithTrust() {
		return Decision{Outcome: RequireConfirmation, Reason: ReasonDefault}
	}
	if m, found := Scan(command); found {
		return Decision{
			Outcome: RequireConfirmation,
			Reason:  ReasonDangerousPattern,
			Marker:  m.Marker,
			Tier:    m.Tier,
		}
	}
	if IsBuiltinSafe(command) {
		return Decision{Outcome: AutoApprove, Reason: ReasonBuiltinSafe}
	}
	if e.source != nil {
		for _, r := range e.source.Rules(ctx, profile, tool) {
			if Matches(r.Pattern, command) {
				return Decision{Outcome: AutoApprove, Reason: ReasonUserRule, Rule: r.Pattern}
			}
		}
	}
	return Decision{Outcome: RequireConfirmation, Reason: ReasonDefault}
}

// Stats is a snapshot of cumulative decision counts.
type Stats struct {
	Evaluations int64            `json:"evaluations"`
	ByReason    map[Reason]int64 `json:"by_reason"`
}

// Stats returns cumulative counts since the engine was created.
func (e *Engine) Stats() Stats {
	s := Stats{
		Evaluations: e.evaluations.Load(),
		ByReason:    make(map[Reason]int64, len(e.hits)),
	}
	for reason, counter := range e.hits {
		s.ByReason[reason] = counter.Load()
	}
	return s
}
