package hstypes

import "time"

// RunCounters are the per-(phase,source,run_group) counters spec §3 names.
type RunCounters struct {
	ItemsFetched        int `json:"items_fetched"`
	ItemsNew            int `json:"items_new"`
	ItemsProcessed      int `json:"items_processed"`
	ItemsSuppressed     int `json:"items_suppressed"`
	ItemsEventsCreated  int `json:"items_events_created"`
	ItemsAlertsTouched  int `json:"items_alerts_touched"`
	BytesDownloaded     int64 `json:"bytes_downloaded"`
}

// SourceRun is the telemetry row for one (phase, source, run_group) tuple
// (spec §3). Exactly one record exists per tuple; rows are append-only.
type SourceRun struct {
	RunGroupID      string          `json:"run_group_id"`
	Phase           Phase           `json:"phase"`
	SourceID        string          `json:"source_id"`
	Status          RunStatus       `json:"status"`
	StatusCode      int             `json:"status_code,omitempty"`
	Error           string          `json:"error,omitempty"`
	DurationSeconds float64         `json:"duration_seconds"`
	Counters        RunCounters     `json:"counters"`
	Diagnostics     map[string]any  `json:"diagnostics,omitempty"`
	RunAtUTC        time.Time       `json:"run_at_utc"`
}

// Key identifies the (phase, source, run_group) tuple a SourceRun describes.
func (s SourceRun) Key() SourceRunKey {
	return SourceRunKey{RunGroupID: s.RunGroupID, Phase: s.Phase, SourceID: s.SourceID}
}

// SourceRunKey is the natural key of a SourceRun row.
type SourceRunKey struct {
	RunGroupID string
	Phase      Phase
	SourceID   string
}

// TruncatedError trims err to at most 1000 characters, per spec §3's
// "error (<=1000 chars)" field rule.
func TruncatedError(err string) string {
	const maxLen = 1000
	if len(err) <= maxLen {
		return err
	}
	return err[:maxLen]
}
