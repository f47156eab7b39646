package hstypes

import "time"

// SuppressionStamp is the metadata the suppression engine attaches to a
// RawItem or Event when at least one rule matches (spec §4.D).
type SuppressionStamp struct {
	PrimaryRuleID string    `json:"primary_rule_id,omitempty"`
	RuleIDs       []string  `json:"rule_ids,omitempty"`
	ReasonCode    string    `json:"reason_code,omitempty"`
	SuppressedAt  time.Time `json:"suppressed_at,omitempty"`
	Stage         string    `json:"stage,omitempty"`
}

// Suppressed reports whether at least one rule matched.
func (s SuppressionStamp) Suppressed() bool {
	return s.PrimaryRuleID != ""
}

// RawItem is the ingested payload before normalization (spec §3). It is
// created once by fetch and mutated exactly once, by canonicalization: a
// status transition plus, if suppression matched, a SuppressionStamp. It is
// never deleted.
type RawItem struct {
	RawItemID      string `json:"raw_item_id"`
	SourceID       string `json:"source_id"`
	CanonicalID    string `json:"canonical_id"`
	ContentHash    string `json:"content_hash"`
	Title          string `json:"title"`
	Summary        string `json:"summary,omitempty"`
	RawText        string `json:"raw_text,omitempty"`
	URL            string `json:"url,omitempty"`
	PublishedAtUTC time.Time `json:"published_at_utc"`
	FetchedAtUTC   time.Time `json:"fetched_at_utc"`
	Status         RawItemStatus `json:"status"`
	Suppression    SuppressionStamp `json:"suppression,omitempty"`
	TrustTier      int    `json:"trust_tier"`
	Tier           string `json:"tier"`
	IngestAttempt  int    `json:"ingest_attempt"`
}

// CanonicalPayload returns the map<string,any> view used for canonical
// serialization and hashing (spec §4.A.1): keys are sorted on output by the
// serializer, so insertion order here is irrelevant but kept alphabetical
// for readability.
func (r RawItem) CanonicalPayload() map[string]any {
	m := map[string]any{
		"canonical_id":     r.CanonicalID,
		"content_hash":     r.ContentHash,
		"fetched_at_utc":   r.FetchedAtUTC,
		"ingest_attempt":   r.IngestAttempt,
		"published_at_utc": r.PublishedAtUTC,
		"raw_item_id":      r.RawItemID,
		"source_id":        r.SourceID,
		"status":           string(r.Status),
		"summary":          r.Summary,
		"tier":             r.Tier,
		"title":            r.Title,
		"trust_tier":       r.TrustTier,
		"url":              r.URL,
	}
	if r.Suppression.Suppressed() {
		m["suppression"] = map[string]any{
			"primary_rule_id": r.Suppression.PrimaryRuleID,
			"reason_code":     r.Suppression.ReasonCode,
			"rule_ids":        r.Suppression.RuleIDs,
			"stage":           r.Suppression.Stage,
			"suppressed_at":   r.Suppression.SuppressedAt,
		}
	}
	return m
}
