package hstypes

import "time"

// ScalarOrList is a single JSON-scalar-or-string-list value. Event.source_metadata
// is an opaque map<string, scalar-or-list> per spec §9's "dynamic payload
// dicts -> tagged variants" design note: arbitrary source-shaped metadata is
// carried as loosely-typed `any` and never reaches the hasher without
// passing through the canonical serializer, which sorts and normalizes it.
type ScalarOrList = any

// Event is the canonical representation of a signal (spec §3). It is
// immutable after creation; canonicalization produces exactly one Event per
// RawItem.
type Event struct {
	EventID               string            `json:"event_id"`
	SourceType            string            `json:"source_type"`
	SourceID              string            `json:"source_id"`
	Title                 string            `json:"title"`
	Summary               string            `json:"summary,omitempty"`
	RawText               string            `json:"raw_text,omitempty"`
	EventType             EventType         `json:"event_type"`
	SeverityGuess         int               `json:"severity_guess"`
	City                  string            `json:"city,omitempty"`
	State                 string            `json:"state,omitempty"`
	Country               string            `json:"country,omitempty"`
	Facilities            []string          `json:"facilities,omitempty"`
	Lanes                 []string          `json:"lanes,omitempty"`
	Shipments             []string          `json:"shipments,omitempty"`
	Suppression           SuppressionStamp  `json:"suppression,omitempty"`
	TrustTier             int               `json:"trust_tier"`
	Tier                  string            `json:"tier"`
	PublishedAtUTC        time.Time         `json:"published_at_utc"`
	FetchedAtUTC          time.Time         `json:"fetched_at_utc"`
	URL                   string            `json:"url,omitempty"`
	SourceMetadata        map[string]ScalarOrList `json:"source_metadata,omitempty"`
	CanonicalizationWarnings []string       `json:"canonicalization_warnings,omitempty"`
	RawItemID             string            `json:"raw_item_id"`
}

// ObservedAt returns the timestamp the correlator treats as this event's
// observation instant: the published time when known, otherwise the fetch
// time (spec §4.G step 2, "event.observed_or_fetched_at").
func (e Event) ObservedAt() time.Time {
	if !e.PublishedAtUTC.IsZero() {
		return e.PublishedAtUTC
	}
	return e.FetchedAtUTC
}

// CanonicalPayload returns the sorted-key map used for hashing.
func (e Event) CanonicalPayload() map[string]any {
	m := map[string]any{
		"event_id":        e.EventID,
		"event_type":      string(e.EventType),
		"facilities":      sortedCopy(e.Facilities),
		"fetched_at_utc":  e.FetchedAtUTC,
		"lanes":           sortedCopy(e.Lanes),
		"published_at_utc": e.PublishedAtUTC,
		"raw_item_id":     e.RawItemID,
		"raw_text":        e.RawText,
		"severity_guess":  e.SeverityGuess,
		"shipments":       sortedCopy(e.Shipments),
		"source_id":       e.SourceID,
		"source_type":     e.SourceType,
		"summary":         e.Summary,
		"tier":            e.Tier,
		"title":           e.Title,
		"trust_tier":      e.TrustTier,
		"url":             e.URL,
	}
	if e.City != "" {
		m["city"] = e.City
	}
	if e.State != "" {
		m["state"] = e.State
	}
	if e.Country != "" {
		m["country"] = e.Country
	}
	if len(e.SourceMetadata) > 0 {
		m["source_metadata"] = e.SourceMetadata
	}
	if e.Suppression.Suppressed() {
		m["suppression"] = map[string]any{
			"primary_rule_id": e.Suppression.PrimaryRuleID,
			"reason_code":     e.Suppression.ReasonCode,
			"rule_ids":        e.Suppression.RuleIDs,
			"stage":           e.Suppression.Stage,
			"suppressed_at":   e.Suppression.SuppressedAt,
		}
	}
	return m
}

func sortedCopy(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	sortStrings(out)
	return out
}
