package suppress

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/WhatsYourWhy/hardstop/internal/hserrors"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

// compiledRule is a SuppressionRuleConfig with its regex, if any, compiled
// once at load time rather than on every Evaluate call.
type compiledRule struct {
	cfg     hstypes.SuppressionRuleConfig
	pattern *regexp.Regexp
}

// compile validates and compiles one rule config (spec §4.D "fails with
// InvalidSuppressionRule at load time if a regex does not compile").
func compile(cfg hstypes.SuppressionRuleConfig) (compiledRule, error) {
	rule := compiledRule{cfg: cfg}
	if cfg.Kind != hstypes.RuleRegex {
		return rule, nil
	}
	pattern := cfg.Pattern
	if !cfg.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return compiledRule{}, fmt.Errorf("%w: rule %q: %v", hserrors.ErrInvalidSuppressionRule, cfg.ID, err)
	}
	rule.pattern = re
	return rule, nil
}

// matches reports whether the rule matches the given field value.
func (r compiledRule) matches(value string) bool {
	switch r.cfg.Kind {
	case hstypes.RuleExact:
		if r.cfg.CaseSensitive {
			return value == r.cfg.Pattern
		}
		return strings.EqualFold(value, r.cfg.Pattern)
	case hstypes.RuleKeyword:
		if r.cfg.CaseSensitive {
			return strings.Contains(value, r.cfg.Pattern)
		}
		return strings.Contains(strings.ToLower(value), strings.ToLower(r.cfg.Pattern))
	case hstypes.RuleRegex:
		return r.pattern != nil && r.pattern.MatchString(value)
	default:
		return false
	}
}
