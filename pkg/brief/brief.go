// Package brief implements Hardstop's brief read-model builder: a pure
// query/assembly function over already-queried alerts and suppressed
// events into a deterministic, versioned envelope (spec §4.K). Rendering
// to Markdown/JSON is an external concern; this package returns the
// envelope shape only.
package brief

import (
	"sort"
	"time"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

// ReadModelVersion is the minimum version every envelope declares (spec
// §4.K "read_model_version = brief.v1 minimum").
const ReadModelVersion = "brief.v1"

// knownTiers is the set of source geographic tiers the envelope buckets
// by name; anything else (including empty) falls into "unknown" (spec §9
// glossary "Tier: geographic/scope classification... global, regional,
// local").
var knownTiers = map[string]bool{"global": true, "regional": true, "local": true}

// Input bundles the already-queried rows the builder assembles into an
// envelope. Alerts and SuppressedEvents are the full candidate sets;
// window filtering happens inside Build so callers don't have to
// duplicate the cutoff/OR logic spec §4.K specifies.
type Input struct {
	Alerts                    []hstypes.Alert
	SuppressedEvents          []hstypes.Event
	Window                    time.Duration
	Now                       time.Time
	Limit                     int
	ExcludeClassificationZero bool
}

// Counts summarizes the matched alert set by outcome and classification.
type Counts struct {
	New         int `json:"new"`
	Updated     int `json:"updated"`
	Impactful   int `json:"impactful"`
	Relevant    int `json:"relevant"`
	Interesting int `json:"interesting"`
}

// TierCounts summarizes the matched alert set by source geographic tier.
type TierCounts struct {
	Global   int `json:"global"`
	Regional int `json:"regional"`
	Local    int `json:"local"`
	Unknown  int `json:"unknown"`
}

// RuleCount is one {rule_id, count} pair in the suppressed-by-rule top-5
// list (spec §8 scenario 4 `by_rule[0] = {rule_id:..., count:...}`).
type RuleCount struct {
	RuleID string `json:"rule_id"`
	Count  int    `json:"count"`
}

// SourceCount is one {source_id, count} pair in the suppressed-by-source
// top-5 list.
type SourceCount struct {
	SourceID string `json:"source_id"`
	Count    int    `json:"count"`
}

// SuppressedSummary reports suppression activity within the window.
type SuppressedSummary struct {
	Count    int           `json:"count"`
	ByRule   []RuleCount   `json:"by_rule"`
	BySource []SourceCount `json:"by_source"`
}

// Envelope is the versioned read model spec §4.K defines.
type Envelope struct {
	ReadModelVersion string             `json:"read_model_version"`
	WindowHours      int                `json:"window_hours"`
	Updated          []hstypes.Alert    `json:"updated"`
	Created          []hstypes.Alert    `json:"created"`
	Top              []hstypes.Alert    `json:"top"`
	Counts           Counts             `json:"counts"`
	TierCounts       TierCounts         `json:"tier_counts"`
	Suppressed       SuppressedSummary  `json:"suppressed"`
}

// Build assembles the envelope for in (spec §4.K). It never re-sorts for
// presentation purposes — the ordering below is the contract.
func Build(in Input) Envelope {
	cutoff := in.Now.Add(-in.Window)

	var matched []hstypes.Alert
	for _, a := range in.Alerts {
		if in.ExcludeClassificationZero && a.Classification == hstypes.ClassificationInteresting {
			continue
		}
		if !a.LastSeenUTC.Before(cutoff) || !a.FirstSeenUTC.Before(cutoff) {
			matched = append(matched, a)
		}
	}

	sortAlerts(matched)

	var updated, created []hstypes.Alert
	counts := Counts{}
	tierCounts := TierCounts{}
	for _, a := range matched {
		switch a.CorrelationAction {
		case hstypes.CorrelationUpdated:
			counts.Updated++
			updated = append(updated, a)
		case hstypes.CorrelationCreated:
			counts.New++
			created = append(created, a)
		}
		switch a.Classification {
		case hstypes.ClassificationImpactful:
			counts.Impactful++
		case hstypes.ClassificationRelevant:
			counts.Relevant++
		case hstypes.ClassificationInteresting:
			counts.Interesting++
		}
		bucketTier(&tierCounts, a.Tier)
	}

	updated = capAlerts(updated, in.Limit)
	created = capAlerts(created, in.Limit)

	var top []hstypes.Alert
	for _, a := range matched {
		if a.Classification == hstypes.ClassificationImpactful {
			top = append(top, a)
		}
		if len(top) == 2 {
			break
		}
	}

	suppressed := buildSuppressedSummary(in.SuppressedEvents, cutoff)

	return Envelope{
		ReadModelVersion: ReadModelVersion,
		WindowHours:      int(in.Window.Hours()),
		Updated:          updated,
		Created:          created,
		Top:              top,
		Counts:           counts,
		TierCounts:       tierCounts,
		Suppressed:       suppressed,
	}
}

// sortAlerts orders by (classification desc, impact_score desc,
// update_count desc, last_seen_utc desc, alert_id asc) (spec §4.K).
func sortAlerts(alerts []hstypes.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Classification != b.Classification {
			return a.Classification > b.Classification
		}
		if a.ImpactScore != b.ImpactScore {
			return a.ImpactScore > b.ImpactScore
		}
		if a.UpdateCount != b.UpdateCount {
			return a.UpdateCount > b.UpdateCount
		}
		if !a.LastSeenUTC.Equal(b.LastSeenUTC) {
			return a.LastSeenUTC.After(b.LastSeenUTC)
		}
		return a.AlertID < b.AlertID
	})
}

func capAlerts(alerts []hstypes.Alert, limit int) []hstypes.Alert {
	if limit <= 0 || len(alerts) <= limit {
		return alerts
	}
	return alerts[:limit]
}

func bucketTier(counts *TierCounts, tier string) {
	if !knownTiers[tier] {
		counts.Unknown++
		return
	}
	switch tier {
	case "global":
		counts.Global++
	case "regional":
		counts.Regional++
	case "local":
		counts.Local++
	}
}

func buildSuppressedSummary(events []hstypes.Event, cutoff time.Time) SuppressedSummary {
	var summary SuppressedSummary
	byRule := map[string]int{}
	bySource := map[string]int{}

	for _, e := range events {
		if !e.Suppression.Suppressed() {
			continue
		}
		if e.Suppression.SuppressedAt.Before(cutoff) {
			continue
		}
		summary.Count++
		byRule[e.Suppression.PrimaryRuleID]++
		bySource[e.SourceID]++
	}

	summary.ByRule = topFiveRules(byRule)
	summary.BySource = topFiveSources(bySource)
	return summary
}

// topFiveRules returns the 5 highest-count rule ids, ties broken by
// ascending id, for a deterministic top-N list.
func topFiveRules(counts map[string]int) []RuleCount {
	out := make([]RuleCount, 0, len(counts))
	for id, count := range counts {
		out = append(out, RuleCount{RuleID: id, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].RuleID < out[j].RuleID
	})
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// topFiveSources returns the 5 highest-count source ids, ties broken by
// ascending id, for a deterministic top-N list.
func topFiveSources(counts map[string]int) []SourceCount {
	out := make([]SourceCount, 0, len(counts))
	for id, count := range counts {
		out = append(out, SourceCount{SourceID: id, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].SourceID < out[j].SourceID
	})
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}
