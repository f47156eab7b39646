package canon

import "time"

// normalizeTimestamp converts t to UTC. RawItem fields arrive already
// parsed into time.Time by the fetch boundary (outside this package's
// scope); a zero value means "absent", not "unparseable", so no warning
// is raised for it. A non-zero, non-UTC timestamp is converted in place
// (spec §4.C "timezone-bearing timestamps are converted to UTC").
func normalizeTimestamp(t time.Time) (time.Time, string) {
	if t.IsZero() {
		return t, ""
	}
	return t.UTC(), ""
}
