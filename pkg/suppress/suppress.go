// Package suppress implements Hardstop's suppression engine: evaluating a
// normalized Event against the global and per-source suppression registries
// and stamping a SuppressionStamp when a rule matches (spec §4.D).
package suppress

import (
	"fmt"

	"github.com/WhatsYourWhy/hardstop/internal/hserrors"
	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

// Result is the outcome of evaluating one Event.
type Result struct {
	Matched       bool
	PrimaryRuleID string
	ReasonCode    string
	RuleIDs       []string
}

// Engine evaluates Events against a fixed, load-time-validated set of
// suppression rules: the global registry plus each configured source's
// own rules.
type Engine struct {
	clock      clock.Clock
	global     []compiledRule
	perSource  map[string][]compiledRule
	noSuppress bool
}

// New compiles the global and per-source rule lists. It fails fast with
// hserrors.ErrInvalidSuppressionRule if any regex fails to compile or if
// any rule id, across the union of global and per-source rules, is not
// unique (spec §4.D "fails... if rule ids are not unique").
func New(clk clock.Clock, global []hstypes.SuppressionRuleConfig, sources []hstypes.SourceConfig, noSuppress bool) (*Engine, error) {
	seen := map[string]bool{}
	compileAll := func(cfgs []hstypes.SuppressionRuleConfig) ([]compiledRule, error) {
		out := make([]compiledRule, 0, len(cfgs))
		for _, cfg := range cfgs {
			if seen[cfg.ID] {
				return nil, fmt.Errorf("%w: duplicate rule id %q", hserrors.ErrInvalidSuppressionRule, cfg.ID)
			}
			seen[cfg.ID] = true
			rule, err := compile(cfg)
			if err != nil {
				return nil, err
			}
			out = append(out, rule)
		}
		return out, nil
	}

	global2, err := compileAll(global)
	if err != nil {
		return nil, err
	}
	perSource := make(map[string][]compiledRule, len(sources))
	for _, src := range sources {
		rules, err := compileAll(src.SuppressRules)
		if err != nil {
			return nil, err
		}
		perSource[src.ID] = rules
	}

	return &Engine{clock: clk, global: global2, perSource: perSource, noSuppress: noSuppress}, nil
}

// Evaluate tests event against the global rules in declared order, then the
// source's own rules in declared order (spec §4.D step 1). It never
// returns an error: evaluation is total over every valid configuration.
func (e *Engine) Evaluate(event hstypes.Event) Result {
	var result Result

	consider := func(rule compiledRule) {
		if !rule.matchesEvent(event) {
			return
		}
		result.Matched = true
		result.RuleIDs = append(result.RuleIDs, rule.cfg.ID)
		if result.PrimaryRuleID == "" {
			result.PrimaryRuleID = rule.cfg.ID
			result.ReasonCode = rule.cfg.ReasonCode
		}
	}

	for _, rule := range e.global {
		consider(rule)
	}
	for _, rule := range e.perSource[event.SourceID] {
		consider(rule)
	}
	return result
}

// Apply evaluates event and, if matched, returns a suppressed copy of the
// event plus the evaluation Result. Under --no-suppress (spec §4.D step 5),
// evaluation still runs for diagnostics but no stamp is applied; Apply
// returns the event unchanged, and the Result still reports the match.
func (e *Engine) Apply(event hstypes.Event) (hstypes.Event, Result) {
	result := e.Evaluate(event)
	if !result.Matched || e.noSuppress {
		return event, result
	}
	event.Suppression = hstypes.SuppressionStamp{
		PrimaryRuleID: result.PrimaryRuleID,
		RuleIDs:       result.RuleIDs,
		ReasonCode:    result.ReasonCode,
		SuppressedAt:  e.clock.Now(),
		Stage:         "canonicalization",
	}
	return event, result
}

// matchesEvent tests rule against the field its config names. `any`
// expands to title, summary, raw_text in that order (spec §4.D step 2).
func (r compiledRule) matchesEvent(event hstypes.Event) bool {
	switch r.cfg.Field {
	case hstypes.FieldAny:
		return r.matches(event.Title) || r.matches(event.Summary) || r.matches(event.RawText)
	case hstypes.FieldTitle:
		return r.matches(event.Title)
	case hstypes.FieldSummary:
		return r.matches(event.Summary)
	case hstypes.FieldRawText:
		return r.matches(event.RawText)
	case hstypes.FieldURL:
		return r.matches(event.URL)
	case hstypes.FieldEventType:
		return r.matches(string(event.EventType))
	case hstypes.FieldSourceID:
		return r.matches(event.SourceID)
	case hstypes.FieldTier:
		return r.matches(event.Tier)
	default:
		return false
	}
}
