// Package canon implements Hardstop's canonicalization operator: for each
// unprocessed RawItem it produces exactly one Event with stable field
// ordering and deterministic entity extraction (spec §4.C).
package canon

import (
	"fmt"
	"strings"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
	"github.com/WhatsYourWhy/hardstop/pkg/provenance"
)

// Normalize builds the Event for item. It never fails: unparseable fields
// are left zero-valued and a warning is appended to
// Event.CanonicalizationWarnings (spec §4.C, §7 "CanonicalizationWarning —
// unparseable date, unknown event type... item proceeds with degraded
// fields").
func Normalize(item hstypes.RawItem) hstypes.Event {
	var warnings []string

	eventType := inferEventType(item.Title + " " + item.RawText)

	city, state, ok := extractLocation(item.Title + " " + item.RawText)
	if !ok {
		warnings = append(warnings, "canonicalization: no CITY, STATE location found")
	}

	published, warn := normalizeTimestamp(item.PublishedAtUTC)
	if warn != "" {
		warnings = append(warnings, warn)
	}

	id, err := eventID(item)
	if err != nil {
		// ComputeID only fails on serialization errors, which cannot
		// happen for the plain-scalar seed built below; surfaced as a
		// warning rather than a panic to honor "never fatal".
		warnings = append(warnings, fmt.Sprintf("canonicalization: event id generation: %v", err))
	}

	return hstypes.Event{
		EventID:        id,
		SourceType:     "feed",
		SourceID:       item.SourceID,
		Title:          item.Title,
		Summary:        item.Summary,
		RawText:        item.RawText,
		EventType:      eventType,
		City:           city,
		State:          state,
		TrustTier:      item.TrustTier,
		Tier:           item.Tier,
		PublishedAtUTC: published,
		FetchedAtUTC:   item.FetchedAtUTC,
		URL:            item.URL,
		SourceMetadata: map[string]hstypes.ScalarOrList{
			"source_id":        item.SourceID,
			"tier":             item.Tier,
			"url":              item.URL,
			"published_at_utc": item.PublishedAtUTC,
		},
		CanonicalizationWarnings: warnings,
		RawItemID:                item.RawItemID,
	}
}

// eventID computes `EVT-<short hash>`, preferring the source-supplied
// canonical_id and falling back to content_hash when absent (spec §4.C
// "event_id = EVT- + short(canonical_id_or_content_hash)").
func eventID(item hstypes.RawItem) (string, error) {
	seedValue := item.CanonicalID
	if seedValue == "" {
		seedValue = item.ContentHash
	}
	id, err := provenance.ComputeID("", map[string]any{"seed": seedValue}, 16)
	if err != nil {
		return "", err
	}
	return "EVT-" + id, nil
}

// inferEventType walks eventTypeRules top to bottom; the first keyword
// match wins.
func inferEventType(text string) hstypes.EventType {
	lower := strings.ToLower(text)
	for _, rule := range eventTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.eventType
			}
		}
	}
	return hstypes.EventOther
}

// extractLocation returns the leftmost `CITY, STATE` match, title-casing
// the city and resolving the state token against the pinned abbreviation
// table.
func extractLocation(text string) (city, state string, ok bool) {
	m := locationPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	city = titleCase(m[1])
	stateToken := strings.ToUpper(strings.TrimSpace(m[2]))
	if len(stateToken) == 2 {
		for _, abbr := range usStateAbbreviations {
			if abbr == stateToken {
				return city, stateToken, true
			}
		}
		return city, "", false
	}
	if abbr, known := usStateAbbreviations[stateToken]; known {
		return city, abbr, true
	}
	return city, "", false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
