// Package hsconfig implements Hardstop's two ambient configuration
// adapters named in SPEC_FULL.md §3.3: the YAML source/suppression
// registry loader, and the environment-variable runtime override reader.
// Both are thin — they produce already-parsed Go structs, which Resolve
// (in this package) folds into the hstypes.ResolvedConfig snapshot that
// pkg/provenance fingerprints.
package hsconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/WhatsYourWhy/hardstop/internal/hserrors"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

// tierOrder is the fixed concatenation order sources registry tiers are
// flattened in, regardless of YAML map key order (spec §6 "tiers:
// {global|regional|local}").
var tierOrder = []string{"global", "regional", "local"}

// sourcesFile is the on-disk shape of the sources registry (spec §6
// "Sources registry: ordered lists under tiers: {...} with ... tier_defaults").
type sourcesFile struct {
	TierDefaults map[string]hstypes.TierDefaults   `yaml:"tier_defaults"`
	Tiers        map[string][]hstypes.SourceConfig `yaml:"tiers"`
}

// LoadSources parses the sources registry at path, folds each source's
// tier_defaults into any zero-valued trust_tier/classification_floor/
// weighting_bias field it didn't override, and returns the flattened
// source list in fixed tier order (global, then regional, then local),
// preserving each tier's declared list order.
func LoadSources(path string) (map[string]hstypes.TierDefaults, []hstypes.SourceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("hsconfig: read sources registry: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, nil, fmt.Errorf("%w: sources registry: %v", hserrors.ErrConfigParse, err)
	}

	var sources []hstypes.SourceConfig
	for _, tier := range tierOrder {
		defaults := file.TierDefaults[tier]
		for _, s := range file.Tiers[tier] {
			if s.ID == "" {
				return nil, nil, fmt.Errorf("%w: sources registry: source missing id in tier %s", hserrors.ErrSchemaDrift, tier)
			}
			s.Tier = tier
			fold(&s, defaults)
			sources = append(sources, s)
		}
	}
	return file.TierDefaults, sources, nil
}

// fold applies defaults to any of s's overridable fields left at their
// zero value (spec §6 "defaults and tier_defaults sections folding...
// unless overridden"). A source that genuinely wants trust_tier 0 cannot
// be expressed this way; this is the same zero-value-means-unset
// convention most scalar-field YAML configs in the ecosystem use.
func fold(s *hstypes.SourceConfig, defaults hstypes.TierDefaults) {
	if s.TrustTier == 0 {
		s.TrustTier = defaults.TrustTier
	}
	if s.ClassificationFloor == 0 {
		s.ClassificationFloor = defaults.ClassificationFloor
	}
	if s.WeightingBias == 0 {
		s.WeightingBias = defaults.WeightingBias
	}
}

// LoadSuppression parses the suppression registry at path (spec §6
// "Suppression registry: enabled, rules").
func LoadSuppression(path string) (hstypes.SuppressionRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return hstypes.SuppressionRegistry{}, fmt.Errorf("hsconfig: read suppression registry: %w", err)
	}
	var registry hstypes.SuppressionRegistry
	if err := yaml.Unmarshal(raw, &registry); err != nil {
		return hstypes.SuppressionRegistry{}, fmt.Errorf("%w: suppression registry: %v", hserrors.ErrConfigParse, err)
	}
	return registry, nil
}

// Paths bundles the registry file locations, each overridable by
// environment variable so a deployment can relocate them without a code
// change.
type Paths struct {
	SourcesRegistry     string
	SuppressionRegistry string
	NetworkSnapshot     string
}

// LoadPaths resolves the registry file paths, defaulting to config/ in the
// working directory.
func LoadPaths() Paths {
	return Paths{
		SourcesRegistry:     getEnv("HARDSTOP_SOURCES_REGISTRY", "config/sources.yaml"),
		SuppressionRegistry: getEnv("HARDSTOP_SUPPRESSION_REGISTRY", "config/suppression.yaml"),
		NetworkSnapshot:     getEnv("HARDSTOP_NETWORK_SNAPSHOT", "config/network.json"),
	}
}

// LoadNetworkSnapshot parses the user-owned network graph (facilities,
// lanes, shipments) the linker and scorer operate against (spec §4.E).
// Unlike the registries this is JSON, not YAML — it is a data export a
// deployment regenerates from its own systems, not an authored config
// file, so it uses hstypes' existing `json` struct tags directly.
func LoadNetworkSnapshot(path string) (hstypes.NetworkSnapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return hstypes.NetworkSnapshot{}, fmt.Errorf("hsconfig: read network snapshot: %w", err)
	}
	var snapshot hstypes.NetworkSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return hstypes.NetworkSnapshot{}, fmt.Errorf("%w: network snapshot: %v", hserrors.ErrConfigParse, err)
	}
	return snapshot, nil
}

// LoadRuntime reads the environment-layered runtime overrides (spec
// §4.A.3 "environment-layered overrides"), loading a .env file first if
// one is present in the working directory. Unset variables fall back to
// Hardstop's defaults.
func LoadRuntime() hstypes.RuntimeConfig {
	_ = godotenv.Load()

	return hstypes.RuntimeConfig{
		Strict:                getEnvBool("HARDSTOP_STRICT", false),
		NoSuppress:            getEnvBool("HARDSTOP_NO_SUPPRESS", false),
		MaxShipments:          getEnvInt("HARDSTOP_MAX_SHIPMENTS", 6),
		CorrelationWindowDays: getEnvInt("HARDSTOP_CORRELATION_WINDOW_DAYS", 7),
		HealthWindowRuns:      getEnvInt("HARDSTOP_HEALTH_WINDOW_RUNS", 10),
		StaleHoursThreshold:   getEnvInt("HARDSTOP_STALE_HOURS_THRESHOLD", 48),
		BriefTopCap:           getEnvInt("HARDSTOP_BRIEF_TOP_CAP", 10),
		EmitPriorityMirror:    getEnvBool("HARDSTOP_EMIT_PRIORITY_MIRROR", false),
	}
}

// Resolve folds the parsed registries and runtime overrides into the
// single snapshot pkg/provenance fingerprints (spec §4.A.3). Suppression
// rules are included only when the registry is enabled; a disabled
// registry resolves to an empty global rule list rather than being
// special-cased downstream.
func Resolve(tierDefaults map[string]hstypes.TierDefaults, sources []hstypes.SourceConfig, suppression hstypes.SuppressionRegistry, runtime hstypes.RuntimeConfig) hstypes.ResolvedConfig {
	var globalRules []hstypes.SuppressionRuleConfig
	if suppression.Enabled {
		globalRules = suppression.Rules
	}
	return hstypes.ResolvedConfig{
		Runtime:           runtime,
		Sources:           sources,
		TierDefaults:      tierDefaults,
		GlobalSuppression: globalRules,
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
