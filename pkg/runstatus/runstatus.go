// Package runstatus implements Hardstop's run-status evaluator: folding
// fetch/ingest outcomes, config/schema findings, and per-source budget
// states into a single exit code plus ordered diagnostic messages (spec
// §4.J).
package runstatus

import (
	"fmt"
	"sort"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

// FetchOutcome is one enabled source's fetch result.
type FetchOutcome struct {
	SourceID       string
	Failed         bool
	ZeroItemsClean bool // fetch succeeded but legitimately returned no items
}

// IngestOutcome is one source's ingest result.
type IngestOutcome struct {
	SourceID string
	Failed   bool
}

// Input bundles every signal the evaluator folds into an exit code (spec
// §4.J "Inputs").
type Input struct {
	ConfigParseError                bool
	SchemaDriftOnRequiredColumn     bool
	EnabledSourceCount              int
	FetchResults                    []FetchOutcome
	IngestResults                   []IngestOutcome
	IngestRaisedBeforeAnySource     bool
	StaleSources                    []string // beyond configured threshold
	SourceBudgetStates              map[string]hstypes.BudgetState
	SuppressionConfigHasDuplicateIDs bool
	Strict                          bool
}

// condition is one named, ordered rule. tier is the exit code it
// contributes when true.
type condition struct {
	tier    hstypes.ExitCode
	message string
}

// Evaluate computes the exit code and ordered messages for in (spec
// §4.J). Rules are evaluated top to bottom as listed in the spec; every
// true condition contributes a message, and the final exit code is the
// highest tier among them (Healthy if none matched). Under strict, any
// Warning-tier condition is promoted to Broken.
func Evaluate(in Input) (hstypes.ExitCode, []string) {
	var conditions []condition

	if in.ConfigParseError {
		conditions = append(conditions, condition{hstypes.ExitBroken, "config parse error"})
	}
	if in.SchemaDriftOnRequiredColumn {
		conditions = append(conditions, condition{hstypes.ExitBroken, "schema drift on required column"})
	}
	if in.EnabledSourceCount == 0 {
		conditions = append(conditions, condition{hstypes.ExitBroken, "zero enabled sources"})
	}
	if allEnabledSourcesFailedUncleanly(in) {
		conditions = append(conditions, condition{hstypes.ExitBroken, fmt.Sprintf("%d source(s) failed to fetch", in.EnabledSourceCount)})
	}
	if in.IngestRaisedBeforeAnySource {
		conditions = append(conditions, condition{hstypes.ExitBroken, "ingest raised before processing any source"})
	}
	for _, sourceID := range sortedBudgetKeys(in.SourceBudgetStates) {
		if in.SourceBudgetStates[sourceID] == hstypes.BudgetBlocked {
			conditions = append(conditions, condition{hstypes.ExitBroken, fmt.Sprintf("source %s is BLOCKED", sourceID)})
		}
	}

	for _, f := range sortedFetchResults(in.FetchResults) {
		if f.Failed {
			conditions = append(conditions, condition{hstypes.ExitWarning, fmt.Sprintf("source %s failed fetch", f.SourceID)})
		}
	}
	for _, sourceID := range sortedStrings(in.StaleSources) {
		conditions = append(conditions, condition{hstypes.ExitWarning, fmt.Sprintf("source %s is stale beyond threshold", sourceID)})
	}
	for _, sourceID := range sortedBudgetKeys(in.SourceBudgetStates) {
		if in.SourceBudgetStates[sourceID] == hstypes.BudgetWatch {
			conditions = append(conditions, condition{hstypes.ExitWarning, fmt.Sprintf("source %s is in WATCH state", sourceID)})
		}
	}
	if in.SuppressionConfigHasDuplicateIDs {
		conditions = append(conditions, condition{hstypes.ExitWarning, "suppression config has duplicate rule ids"})
	}
	for _, r := range sortedIngestResults(in.IngestResults) {
		if r.Failed {
			conditions = append(conditions, condition{hstypes.ExitWarning, fmt.Sprintf("ingest failed for source %s", r.SourceID)})
		}
	}

	exitCode := hstypes.ExitHealthy
	messages := make([]string, 0, len(conditions))
	for _, c := range conditions {
		messages = append(messages, c.message)
		if c.tier > exitCode {
			exitCode = c.tier
		}
	}

	if in.Strict && exitCode == hstypes.ExitWarning {
		exitCode = hstypes.ExitBroken
	}

	return exitCode, messages
}

// allEnabledSourcesFailedUncleanly reports whether every enabled source's
// fetch failed AND none of the failures were a clean "zero items" result
// (spec §4.J "every enabled source failed fetch AND none returned zero
// items cleanly").
func allEnabledSourcesFailedUncleanly(in Input) bool {
	if in.EnabledSourceCount == 0 || len(in.FetchResults) != in.EnabledSourceCount {
		return false
	}
	for _, f := range in.FetchResults {
		if !f.Failed {
			return false
		}
		if f.ZeroItemsClean {
			return false
		}
	}
	return true
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func sortedBudgetKeys(states map[string]hstypes.BudgetState) []string {
	keys := make([]string, 0, len(states))
	for k := range states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFetchResults(in []FetchOutcome) []FetchOutcome {
	out := append([]FetchOutcome(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}

func sortedIngestResults(in []IngestOutcome) []IngestOutcome {
	out := append([]IngestOutcome(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}
