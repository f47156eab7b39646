// Package score implements Hardstop's impact scorer: a pure function from
// a linked Event and network snapshot to a bounded [0,10] integer score, a
// classification, and a hashable rationale payload (spec §4.F). It never
// mutates its inputs and never fails; subscore failures degrade to 0 with
// a warning.
package score

import (
	"sort"
	"strings"
	"time"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
	"github.com/WhatsYourWhy/hardstop/pkg/linker"
)

// priorityETAWindow is how close a priority shipment's ETA must be to now
// to count toward the priority-shipment and ETA-proximity components
// (spec §4.F "within 48 hours").
const priorityETAWindow = 48 * time.Hour

// keywordBonusTerms is the pinned keyword set tested against title+raw_text
// for the event-type keyword bonus (spec §4.F). Distinct from pkg/canon's
// event_type inference table: this list exists only to gate the +1 bonus.
var keywordBonusTerms = []string{"spill", "explosion", "closure", "recall", "evacuation"}

// Input bundles everything Score needs beyond the network snapshot. TrustTier
// and WeightingBias come from the resolved config for the event's source;
// ClassificationFloor is that source's configured floor.
type Input struct {
	Event               hstypes.Event
	Snapshot            hstypes.NetworkSnapshot
	Linked              linker.Result
	TrustTier           int
	WeightingBias       int
	ClassificationFloor int
	Now                 time.Time
}

// Result is the scorer's output.
type Result struct {
	Score                      int
	Classification             hstypes.Classification
	ClassificationFloorApplied bool
	Rationale                  map[string]any
	Warnings                   []string
}

// Score computes in.Event's impact score against in.Snapshot per spec §4.F:
// base components summed and clamped, then trust-tier and weighting-bias
// modifiers applied and re-clamped, then classification derived and raised
// to the source's floor.
func Score(in Input) Result {
	var warnings []string

	facilities := facilitiesByID(in.Snapshot.Facilities, in.Linked.FacilityIDs)
	lanes := lanesByID(in.Snapshot.Lanes, in.Linked.LaneIDs)
	shipments := shipmentsByID(in.Snapshot.Shipments, in.Linked.ShipmentIDs)

	facilityDelta, maxCriticality := facilityCriticalityComponent(facilities)
	laneDelta, maxVolume := laneVolumeComponent(lanes)
	priorityDelta, priorityIDs := priorityShipmentComponent(shipments, in.Now)
	keywordDelta, matchedKeywords := keywordBonusComponent(in.Event)
	etaDelta, nearestETA, hasNearest := etaProximityComponent(shipments, in.Now)

	base := facilityDelta + laneDelta + priorityDelta + keywordDelta + etaDelta
	base = clamp(base)

	trustDelta := trustTierDelta(in.TrustTier)
	biasDelta := clampBias(in.WeightingBias)
	final := clamp(base + trustDelta + biasDelta)

	classification := classify(final)
	floorApplied := false
	if int(classification) < in.ClassificationFloor {
		classification = hstypes.Classification(in.ClassificationFloor)
		floorApplied = true
	}

	sort.Strings(priorityIDs)
	sort.Strings(matchedKeywords)

	networkCriticality := map[string]any{
		"facility_component":  facilityDelta,
		"lane_component":      laneDelta,
		"priority_component":  priorityDelta,
		"priority_shipment_ids": priorityIDs,
		"max_facility_criticality": maxCriticality,
		"max_lane_volume":          maxVolume,
	}
	modifiers := map[string]any{
		"trust_tier_delta": trustDelta,
		"weighting_bias":   biasDelta,
		"asserted_trust_tier": in.TrustTier,
	}
	scoreTrace := map[string]any{
		"base_score":       base,
		"final_score":      final,
		"matched_keywords": matchedKeywords,
		"keyword_component": keywordDelta,
		"eta_component":     etaDelta,
	}
	if hasNearest {
		scoreTrace["nearest_shipment_eta_utc"] = nearestETA
	}
	rationale := map[string]any{
		"network_criticality": networkCriticality,
		"modifiers":           modifiers,
		"suppression_context": suppressionContext(in.Event),
		"score_trace":         scoreTrace,
	}
	if floorApplied {
		rationale["classification_floor_reason"] = "Classification floor"
	}

	return Result{
		Score:                      final,
		Classification:             classification,
		ClassificationFloorApplied: floorApplied,
		Rationale:                  rationale,
		Warnings:                   warnings,
	}
}

func facilityCriticalityComponent(facilities []hstypes.Facility) (delta, maxScore int) {
	for _, f := range facilities {
		if f.CriticalityScore > maxScore {
			maxScore = f.CriticalityScore
		}
	}
	switch {
	case maxScore >= 8:
		return 2, maxScore
	case maxScore >= 5:
		return 1, maxScore
	default:
		return 0, maxScore
	}
}

func laneVolumeComponent(lanes []hstypes.Lane) (delta, maxScore int) {
	for _, l := range lanes {
		if l.VolumeScore > maxScore {
			maxScore = l.VolumeScore
		}
	}
	if maxScore >= 7 {
		return 1, maxScore
	}
	return 0, maxScore
}

// priorityShipmentComponent awards +1 per priority shipment due within 48
// hours of now, capped at +2 (spec §4.F).
func priorityShipmentComponent(shipments []hstypes.Shipment, now time.Time) (delta int, ids []string) {
	for _, s := range shipments {
		if !s.PriorityFlag {
			continue
		}
		if withinWindow(s.ETADate, now, priorityETAWindow) {
			ids = append(ids, s.ShipmentID)
		}
	}
	delta = len(ids)
	if delta > 2 {
		delta = 2
	}
	return delta, ids
}

func keywordBonusComponent(event hstypes.Event) (delta int, matched []string) {
	text := strings.ToLower(event.Title + " " + event.RawText)
	for _, term := range keywordBonusTerms {
		if strings.Contains(text, term) {
			matched = append(matched, term)
		}
	}
	if len(matched) > 0 {
		return 1, matched
	}
	return 0, matched
}

// etaProximityComponent awards +1 if the nearest linked shipment's ETA
// (of any priority) is within 48 hours of now (spec §4.F).
func etaProximityComponent(shipments []hstypes.Shipment, now time.Time) (delta int, nearest time.Time, ok bool) {
	for _, s := range shipments {
		if !ok || s.ETADate.Before(nearest) {
			nearest = s.ETADate
			ok = true
		}
	}
	if ok && withinWindow(nearest, now, priorityETAWindow) {
		return 1, nearest, true
	}
	return 0, nearest, ok
}

func withinWindow(eta, now time.Time, window time.Duration) bool {
	if eta.Before(now) {
		return now.Sub(eta) <= window
	}
	return eta.Sub(now) <= window
}

// trustTierDelta maps trust tier to a modifier (spec §4.F): tier 3 -> +1,
// tier 2 -> 0, tier 1 -> -1. Unrecognized tiers contribute 0.
func trustTierDelta(tier int) int {
	switch tier {
	case 3:
		return 1
	case 1:
		return -1
	default:
		return 0
	}
}

func clampBias(bias int) int {
	if bias < -2 {
		return -2
	}
	if bias > 2 {
		return 2
	}
	return bias
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// classify derives the unfloored classification band from a final score
// (spec §4.F).
func classify(score int) hstypes.Classification {
	switch {
	case score >= 7:
		return hstypes.ClassificationImpactful
	case score >= 4:
		return hstypes.ClassificationRelevant
	default:
		return hstypes.ClassificationInteresting
	}
}

func suppressionContext(event hstypes.Event) map[string]any {
	if !event.Suppression.Suppressed() {
		return map[string]any{"suppressed": false}
	}
	return map[string]any{
		"suppressed":      true,
		"primary_rule_id": event.Suppression.PrimaryRuleID,
		"reason_code":     event.Suppression.ReasonCode,
	}
}

func facilitiesByID(all []hstypes.Facility, ids []string) []hstypes.Facility {
	want := toSet(ids)
	var out []hstypes.Facility
	for _, f := range all {
		if want[f.FacilityID] {
			out = append(out, f)
		}
	}
	return out
}

func lanesByID(all []hstypes.Lane, ids []string) []hstypes.Lane {
	want := toSet(ids)
	var out []hstypes.Lane
	for _, l := range all {
		if want[l.LaneID] {
			out = append(out, l)
		}
	}
	return out
}

func shipmentsByID(all []hstypes.Shipment, ids []string) []hstypes.Shipment {
	want := toSet(ids)
	var out []hstypes.Shipment
	for _, s := range all {
		if want[s.ShipmentID] {
			out = append(out, s)
		}
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
