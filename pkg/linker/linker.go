// Package linker implements Hardstop's network linker: resolving a
// canonical Event to the facilities, lanes, and shipments in a user-owned
// network snapshot it plausibly concerns (spec §4.E). It never fails;
// missing or partial network data degrades to empty linkage plus a
// warning.
package linker

import (
	"sort"
	"strings"
	"time"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

// shipmentWindow is the forward-looking ETA window the linker considers
// linkable (spec §4.E "[now, now + 14d]").
const shipmentWindow = 14 * 24 * time.Hour

// linkableShipmentStatus is the set of shipment statuses the linker
// considers live (spec §4.E).
var linkableShipmentStatus = map[hstypes.ShipmentStatus]bool{
	hstypes.ShipmentPending:   true,
	hstypes.ShipmentInTransit: true,
	hstypes.ShipmentScheduled: true,
}

// Result is the linkage computed for one Event.
type Result struct {
	FacilityIDs          []string
	LaneIDs              []string
	ShipmentIDs          []string
	ShipmentsTotalLinked int
	ShipmentsTruncated   bool
	Warnings             []string
}

// Link resolves event against snapshot as of now, capping the shipment
// list at maxShipments (spec §4.E "default 6").
func Link(event hstypes.Event, snapshot hstypes.NetworkSnapshot, now time.Time, maxShipments int) Result {
	var result Result

	if len(snapshot.Facilities) == 0 {
		result.Warnings = append(result.Warnings, "linker: no facilities in network snapshot")
	} else {
		result.FacilityIDs = matchFacilities(event, snapshot.Facilities)
		if len(result.FacilityIDs) == 0 {
			result.Warnings = append(result.Warnings, "linker: no facility matched event location")
		}
	}

	if len(snapshot.Lanes) == 0 {
		result.Warnings = append(result.Warnings, "linker: no lanes in network snapshot")
	} else if len(result.FacilityIDs) > 0 {
		result.LaneIDs = matchLanes(result.FacilityIDs, snapshot.Lanes)
	}

	if len(snapshot.Shipments) == 0 {
		result.Warnings = append(result.Warnings, "linker: no shipments in network snapshot")
	} else if len(result.LaneIDs) > 0 {
		result.ShipmentIDs, result.ShipmentsTotalLinked, result.ShipmentsTruncated =
			matchShipments(result.LaneIDs, snapshot.Shipments, now, maxShipments)
	}

	return result
}

// matchFacilities implements the three-tier match order (spec §4.E): an
// explicit facility id carried in source metadata, then an exact
// (city, state) match, then a same-country city match. The first tier to
// produce any match wins; ties within a tier are broken by ascending
// facility_id.
func matchFacilities(event hstypes.Event, facilities []hstypes.Facility) []string {
	if explicitID, ok := explicitFacilityID(event); ok {
		for _, f := range facilities {
			if f.FacilityID == explicitID {
				return []string{f.FacilityID}
			}
		}
	}

	if event.City != "" && event.State != "" {
		var matched []string
		for _, f := range facilities {
			if strings.EqualFold(f.City, event.City) && strings.EqualFold(f.State, event.State) {
				matched = append(matched, f.FacilityID)
			}
		}
		if len(matched) > 0 {
			sort.Strings(matched)
			return matched
		}
	}

	if event.City != "" && event.Country != "" {
		var matched []string
		for _, f := range facilities {
			if strings.EqualFold(f.City, event.City) && strings.EqualFold(f.Country, event.Country) {
				matched = append(matched, f.FacilityID)
			}
		}
		if len(matched) > 0 {
			sort.Strings(matched)
			return matched
		}
	}

	return nil
}

// explicitFacilityID reads a source-supplied facility hint out of the
// event's opaque source_metadata blob, if the source feed carried one.
func explicitFacilityID(event hstypes.Event) (string, bool) {
	v, ok := event.SourceMetadata["facility_id"]
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// matchLanes returns every lane whose origin_facility_id is in the matched
// facility set, sorted by lane_id.
func matchLanes(facilityIDs []string, lanes []hstypes.Lane) []string {
	in := make(map[string]bool, len(facilityIDs))
	for _, id := range facilityIDs {
		in[id] = true
	}
	var matched []string
	for _, l := range lanes {
		if in[l.OriginFacilityID] {
			matched = append(matched, l.LaneID)
		}
	}
	sort.Strings(matched)
	return matched
}

// matchShipments returns shipments on the matched lanes within the forward
// ETA window, ordered by (priority_flag desc, eta_date asc, shipment_id
// asc), truncated to maxShipments (spec §4.E).
func matchShipments(laneIDs []string, shipments []hstypes.Shipment, now time.Time, maxShipments int) (ids []string, total int, truncated bool) {
	if maxShipments <= 0 {
		maxShipments = 6
	}
	onLane := make(map[string]bool, len(laneIDs))
	for _, id := range laneIDs {
		onLane[id] = true
	}

	windowEnd := now.Add(shipmentWindow)
	var linked []hstypes.Shipment
	for _, s := range shipments {
		if !onLane[s.LaneID] {
			continue
		}
		if !linkableShipmentStatus[s.Status] {
			continue
		}
		if s.ETADate.Before(now) || s.ETADate.After(windowEnd) {
			continue
		}
		linked = append(linked, s)
	}

	sort.Slice(linked, func(i, j int) bool {
		a, b := linked[i], linked[j]
		if a.PriorityFlag != b.PriorityFlag {
			return a.PriorityFlag
		}
		if !a.ETADate.Equal(b.ETADate) {
			return a.ETADate.Before(b.ETADate)
		}
		return a.ShipmentID < b.ShipmentID
	})

	total = len(linked)
	if total > maxShipments {
		linked = linked[:maxShipments]
		truncated = true
	}
	ids = make([]string, len(linked))
	for i, s := range linked {
		ids[i] = s.ShipmentID
	}
	return ids, total, truncated
}
