package canon

import (
	"regexp"
	"sort"
	"strings"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

// eventTypeRule is one entry of the pinned, ordered keyword table
// event_type inference walks (spec §4.C "pinned ordered rule table, first
// match wins").
type eventTypeRule struct {
	eventType hstypes.EventType
	keywords  []string
}

// eventTypeRules is evaluated top to bottom; the first rule whose keyword
// appears (case-insensitively) in title+raw_text wins. Order is part of
// the contract — reordering this table changes inference results.
var eventTypeRules = []eventTypeRule{
	{hstypes.EventRecall, []string{"recall", "recalled", "contamination", "adulterated"}},
	{hstypes.EventSafetyAndOperations, []string{"injury", "fatality", "explosion", "fire", "evacuation", "hazmat", "spill"}},
	{hstypes.EventSecurity, []string{"theft", "cargo theft", "hijack", "breach", "ransomware", "cyberattack"}},
	{hstypes.EventLabor, []string{"strike", "walkout", "union", "picket", "work stoppage"}},
	{hstypes.EventWeather, []string{"hurricane", "flood", "blizzard", "tornado", "storm", "wildfire"}},
	{hstypes.EventInfrastructure, []string{"outage", "power failure", "bridge closure", "road closure", "port congestion", "rail disruption"}},
}

// usStateAbbreviations is the pinned abbreviation table location
// extraction resolves the STATE half of a `CITY, STATE` match against
// (spec §4.C).
var usStateAbbreviations = map[string]string{
	"ALABAMA": "AL", "ALASKA": "AK", "ARIZONA": "AZ", "ARKANSAS": "AR",
	"CALIFORNIA": "CA", "COLORADO": "CO", "CONNECTICUT": "CT", "DELAWARE": "DE",
	"FLORIDA": "FL", "GEORGIA": "GA", "HAWAII": "HI", "IDAHO": "ID",
	"ILLINOIS": "IL", "INDIANA": "IN", "IOWA": "IA", "KANSAS": "KS",
	"KENTUCKY": "KY", "LOUISIANA": "LA", "MAINE": "ME", "MARYLAND": "MD",
	"MASSACHUSETTS": "MA", "MICHIGAN": "MI", "MINNESOTA": "MN", "MISSISSIPPI": "MS",
	"MISSOURI": "MO", "MONTANA": "MT", "NEBRASKA": "NE", "NEVADA": "NV",
	"NEW HAMPSHIRE": "NH", "NEW JERSEY": "NJ", "NEW MEXICO": "NM", "NEW YORK": "NY",
	"NORTH CAROLINA": "NC", "NORTH DAKOTA": "ND", "OHIO": "OH", "OKLAHOMA": "OK",
	"OREGON": "OR", "PENNSYLVANIA": "PA", "RHODE ISLAND": "RI", "SOUTH CAROLINA": "SC",
	"SOUTH DAKOTA": "SD", "TENNESSEE": "TN", "TEXAS": "TX", "UTAH": "UT",
	"VERMONT": "VT", "VIRGINIA": "VA", "WASHINGTON": "WA", "WEST VIRGINIA": "WV",
	"WISCONSIN": "WI", "WYOMING": "WY",
}

// locationPattern matches a `CITY, STATE` fragment, where STATE must be
// one of the pinned table's full names or two-letter abbreviations — an
// explicit alternation rather than a generic word-repeat pattern, so a
// trailing phrase like "Texas and also Denver" can never be captured as
// part of the state token (spec §4.C).
var locationPattern = buildLocationPattern()

func buildLocationPattern() *regexp.Regexp {
	alts := make([]string, 0, len(usStateAbbreviations)*2)
	seen := map[string]bool{}
	for name, abbr := range usStateAbbreviations {
		if !seen[name] {
			alts = append(alts, name)
			seen[name] = true
		}
		if !seen[abbr] {
			alts = append(alts, abbr)
			seen[abbr] = true
		}
	}
	sort.Strings(alts)
	statePattern := strings.Join(alts, "|")
	return regexp.MustCompile(`\b([A-Z][a-zA-Z]*(?:\s[A-Z][a-zA-Z]*)*),\s*((?i:` + statePattern + `))\b`)
}
