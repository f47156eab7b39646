package hstypes

// SuppressionField is the field a suppression rule matches against (spec
// §4.D).
type SuppressionField string

const (
	FieldTitle     SuppressionField = "title"
	FieldSummary   SuppressionField = "summary"
	FieldRawText   SuppressionField = "raw_text"
	FieldURL       SuppressionField = "url"
	FieldEventType SuppressionField = "event_type"
	FieldSourceID  SuppressionField = "source_id"
	FieldTier      SuppressionField = "tier"
	FieldAny       SuppressionField = "any"
)

// SuppressionRuleKind is the matching strategy a rule uses.
type SuppressionRuleKind string

const (
	RuleKeyword SuppressionRuleKind = "keyword"
	RuleRegex   SuppressionRuleKind = "regex"
	RuleExact   SuppressionRuleKind = "exact"
)

// SuppressionRuleConfig is one rule as authored in the suppression registry
// (spec §4.D, §6 "Suppression registry").
type SuppressionRuleConfig struct {
	ID            string              `yaml:"id" json:"id"`
	Kind          SuppressionRuleKind `yaml:"kind" json:"kind"`
	Field         SuppressionField    `yaml:"field" json:"field"`
	Pattern       string              `yaml:"pattern" json:"pattern"`
	CaseSensitive bool                `yaml:"case_sensitive" json:"case_sensitive"`
	ReasonCode    string              `yaml:"reason_code" json:"reason_code"`
}

// SuppressionRegistry is the resolved suppression config (spec §6).
type SuppressionRegistry struct {
	Enabled bool                    `yaml:"enabled" json:"enabled"`
	Rules   []SuppressionRuleConfig `yaml:"rules" json:"rules"`
}

// TierDefaults folds the per-tier defaults a source inherits unless
// overridden (spec §6 "tier_defaults").
type TierDefaults struct {
	TrustTier           int `yaml:"trust_tier" json:"trust_tier"`
	ClassificationFloor int `yaml:"classification_floor" json:"classification_floor"`
	WeightingBias       int `yaml:"weighting_bias" json:"weighting_bias"`
}

// SourceConfig is one configured signal source (spec §6).
type SourceConfig struct {
	ID                  string                  `yaml:"id" json:"id"`
	Type                string                  `yaml:"type" json:"type"`
	URL                 string                  `yaml:"url" json:"url"`
	Enabled             bool                    `yaml:"enabled" json:"enabled"`
	Tier                string                  `yaml:"tier" json:"tier"`
	Tags                []string                `yaml:"tags" json:"tags"`
	TrustTier           int                     `yaml:"trust_tier" json:"trust_tier"`
	ClassificationFloor int                     `yaml:"classification_floor" json:"classification_floor"`
	WeightingBias       int                     `yaml:"weighting_bias" json:"weighting_bias"`
	SuppressRules       []SuppressionRuleConfig `yaml:"suppress" json:"suppress"`
}

// RuntimeConfig is the set of environment-layered operational overrides
// (spec §4.A.3 "environment-layered overrides").
type RuntimeConfig struct {
	Strict                bool `json:"strict"`
	NoSuppress            bool `json:"no_suppress"`
	MaxShipments          int  `json:"max_shipments"`
	CorrelationWindowDays int  `json:"correlation_window_days"`
	HealthWindowRuns      int  `json:"health_window_runs"`
	StaleHoursThreshold   int  `json:"stale_hours_threshold"`
	BriefTopCap           int  `json:"brief_top_cap"`
	EmitPriorityMirror    bool `json:"emit_priority_mirror"`
}

// ResolvedConfig is the single merged snapshot that gets fingerprinted (spec
// §4.A.3): runtime overrides, per-source configs (already folded with tier
// defaults, per-source overrides winning), and the global suppression rule
// list.
type ResolvedConfig struct {
	Runtime            RuntimeConfig           `json:"runtime"`
	Sources            []SourceConfig          `json:"sources"`
	TierDefaults        map[string]TierDefaults `json:"tier_defaults"`
	GlobalSuppression  []SuppressionRuleConfig `json:"global_suppression"`
}

// CanonicalPayload returns the sorted-key map used to compute config_hash.
func (c ResolvedConfig) CanonicalPayload() map[string]any {
	sources := make([]map[string]any, len(c.Sources))
	for i, s := range c.Sources {
		sources[i] = sourceConfigPayload(s)
	}
	globalRules := make([]map[string]any, len(c.GlobalSuppression))
	for i, r := range c.GlobalSuppression {
		globalRules[i] = ruleConfigPayload(r)
	}
	tierDefaults := map[string]any{}
	for tier, d := range c.TierDefaults {
		tierDefaults[tier] = map[string]any{
			"classification_floor": d.ClassificationFloor,
			"trust_tier":           d.TrustTier,
			"weighting_bias":       d.WeightingBias,
		}
	}
	return map[string]any{
		"global_suppression": globalRules,
		"runtime": map[string]any{
			"brief_top_cap":            c.Runtime.BriefTopCap,
			"correlation_window_days":  c.Runtime.CorrelationWindowDays,
			"emit_priority_mirror":     c.Runtime.EmitPriorityMirror,
			"health_window_runs":       c.Runtime.HealthWindowRuns,
			"max_shipments":            c.Runtime.MaxShipments,
			"no_suppress":              c.Runtime.NoSuppress,
			"stale_hours_threshold":    c.Runtime.StaleHoursThreshold,
			"strict":                  c.Runtime.Strict,
		},
		"sources":       sources,
		"tier_defaults": tierDefaults,
	}
}

func sourceConfigPayload(s SourceConfig) map[string]any {
	rules := make([]map[string]any, len(s.SuppressRules))
	for i, r := range s.SuppressRules {
		rules[i] = ruleConfigPayload(r)
	}
	tags := append([]string(nil), s.Tags...)
	sortStrings(tags)
	return map[string]any{
		"classification_floor": s.ClassificationFloor,
		"enabled":              s.Enabled,
		"id":                   s.ID,
		"suppress":             rules,
		"tags":                 tags,
		"tier":                 s.Tier,
		"trust_tier":           s.TrustTier,
		"type":                 s.Type,
		"url":                  s.URL,
		"weighting_bias":       s.WeightingBias,
	}
}

func ruleConfigPayload(r SuppressionRuleConfig) map[string]any {
	return map[string]any{
		"case_sensitive": r.CaseSensitive,
		"field":          string(r.Field),
		"id":             r.ID,
		"kind":           string(r.Kind),
		"pattern":        r.Pattern,
		"reason_code":    r.ReasonCode,
	}
}
