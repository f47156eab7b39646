package hsconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

const sourcesYAML = `
tier_defaults:
  global:
    trust_tier: 3
    classification_floor: 1
    weighting_bias: 0
  local:
    trust_tier: 1
    classification_floor: 0
    weighting_bias: 0
tiers:
  global:
    - id: nws_active_us
      type: rss
      url: https://api.weather.gov/alerts/active
      enabled: true
      tags: [weather, safety]
    - id: usgs_quakes
      type: rss
      url: https://earthquake.usgs.gov/feed.atom
      enabled: true
      trust_tier: 2
  local:
    - id: plant_sensor_01
      type: webhook
      url: https://sensors.example/plant01
      enabled: false
`

const suppressionYAML = `
enabled: true
rules:
  - id: global_test_alerts
    kind: keyword
    field: any
    pattern: test
  - id: global_drill
    kind: keyword
    field: title
    pattern: drill
    reason_code: scheduled_drill
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadSourcesFoldsTierDefaultsAndPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sources.yaml", sourcesYAML)

	tierDefaults, sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, tierDefaults, 2)
	require.Len(t, sources, 3)

	// Fixed tier order: global entries first, then local.
	require.Equal(t, "nws_active_us", sources[0].ID)
	require.Equal(t, "usgs_quakes", sources[1].ID)
	require.Equal(t, "plant_sensor_01", sources[2].ID)

	// nws_active_us didn't override trust_tier/classification_floor, so it
	// inherits the global tier defaults.
	require.Equal(t, 3, sources[0].TrustTier)
	require.Equal(t, 1, sources[0].ClassificationFloor)
	require.Equal(t, "global", sources[0].Tier)

	// usgs_quakes set its own trust_tier, which wins over the default.
	require.Equal(t, 2, sources[1].TrustTier)
	require.Equal(t, 1, sources[1].ClassificationFloor)

	require.Equal(t, "local", sources[2].Tier)
	require.Equal(t, 1, sources[2].TrustTier)
}

func TestLoadSourcesRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sources.yaml", "tiers:\n  global:\n    - type: rss\n      url: x\n")

	_, _, err := LoadSources(path)
	require.Error(t, err)
}

func TestLoadSuppressionParsesOrderedRules(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "suppression.yaml", suppressionYAML)

	registry, err := LoadSuppression(path)
	require.NoError(t, err)
	require.True(t, registry.Enabled)
	require.Len(t, registry.Rules, 2)
	require.Equal(t, "global_test_alerts", registry.Rules[0].ID)
	require.Equal(t, "global_drill", registry.Rules[1].ID)
	require.Equal(t, "scheduled_drill", registry.Rules[1].ReasonCode)
}

func TestLoadRuntimeDefaultsWhenUnset(t *testing.T) {
	rt := LoadRuntime()
	require.False(t, rt.Strict)
	require.Equal(t, 6, rt.MaxShipments)
	require.Equal(t, 7, rt.CorrelationWindowDays)
	require.Equal(t, 48, rt.StaleHoursThreshold)
}

func TestLoadRuntimeHonorsEnvOverrides(t *testing.T) {
	t.Setenv("HARDSTOP_STRICT", "true")
	t.Setenv("HARDSTOP_MAX_SHIPMENTS", "12")
	t.Setenv("HARDSTOP_NO_SUPPRESS", "1")

	rt := LoadRuntime()
	require.True(t, rt.Strict)
	require.Equal(t, 12, rt.MaxShipments)
	require.True(t, rt.NoSuppress)
}

func TestResolveOmitsSuppressionRulesWhenRegistryDisabled(t *testing.T) {
	runtime := hstypes.RuntimeConfig{MaxShipments: 6}
	sources := []hstypes.SourceConfig{{ID: "s1", Enabled: true}}
	disabled := hstypes.SuppressionRegistry{Enabled: false, Rules: []hstypes.SuppressionRuleConfig{{ID: "r1"}}}

	resolved := Resolve(nil, sources, disabled, runtime)
	require.Empty(t, resolved.GlobalSuppression)
	require.Equal(t, sources, resolved.Sources)

	enabled := hstypes.SuppressionRegistry{Enabled: true, Rules: []hstypes.SuppressionRuleConfig{{ID: "r1"}}}
	resolved = Resolve(nil, sources, enabled, runtime)
	require.Len(t, resolved.GlobalSuppression, 1)
}

func TestLoadNetworkSnapshotParsesFacilitiesLanesShipments(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "network.json", `{
		"Facilities": [{"facility_id": "PLANT-01", "city": "Avon", "state": "IN", "criticality_score": 9}],
		"Lanes": [{"lane_id": "LANE-001", "origin_facility_id": "PLANT-01", "volume_score": 8}],
		"Shipments": [{"shipment_id": "SHIP-1", "lane_id": "LANE-001", "eta_date": "2026-01-01T00:00:00Z", "status": "PENDING", "priority_flag": true}]
	}`)

	snapshot, err := LoadNetworkSnapshot(path)
	require.NoError(t, err)
	require.Len(t, snapshot.Facilities, 1)
	require.Equal(t, "PLANT-01", snapshot.Facilities[0].FacilityID)
	require.Len(t, snapshot.Lanes, 1)
	require.Len(t, snapshot.Shipments, 1)
	require.True(t, snapshot.Shipments[0].PriorityFlag)
}

func TestLoadPathsDefaultsAndOverrides(t *testing.T) {
	paths := LoadPaths()
	require.Equal(t, "config/sources.yaml", paths.SourcesRegistry)

	t.Setenv("HARDSTOP_SOURCES_REGISTRY", "/etc/hardstop/sources.yaml")
	paths = LoadPaths()
	require.Equal(t, "/etc/hardstop/sources.yaml", paths.SourcesRegistry)
}
