package hstypes

import "time"

// Facility is a node in the user-owned network graph (spec §4.E/§4.F).
type Facility struct {
	FacilityID       string `json:"facility_id"`
	City             string `json:"city"`
	State            string `json:"state"`
	Country          string `json:"country"`
	CriticalityScore int    `json:"criticality_score"`
}

// Lane connects an origin facility to a destination; the linker matches on
// OriginFacilityID only (spec §4.E).
type Lane struct {
	LaneID           string `json:"lane_id"`
	OriginFacilityID string `json:"origin_facility_id"`
	DestFacilityID   string `json:"dest_facility_id"`
	VolumeScore      int    `json:"volume_score"`
}

// Shipment is scheduled on a lane; only PENDING/IN_TRANSIT/SCHEDULED
// shipments with an ETA in the forward 14-day window are linkable (spec
// §4.E).
type Shipment struct {
	ShipmentID   string         `json:"shipment_id"`
	LaneID       string         `json:"lane_id"`
	ETADate      time.Time      `json:"eta_date"`
	Status       ShipmentStatus `json:"status"`
	PriorityFlag bool           `json:"priority_flag"`
}

// NetworkSnapshot is the read-only view of facilities/lanes/shipments the
// linker and scorer operate against. Partial/missing data is tolerated
// (spec §4.E "Partial data is tolerated").
type NetworkSnapshot struct {
	Facilities []Facility
	Lanes      []Lane
	Shipments  []Shipment
}
