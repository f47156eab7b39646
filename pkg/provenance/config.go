package provenance

import (
	"fmt"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

// Fingerprint computes config_hash for a resolved config snapshot. Every
// RunRecord stamps this value so two runs can be compared for "did config
// change between these runs" without diffing the full registry (spec
// §4.A.3).
func Fingerprint(cfg hstypes.ResolvedConfig) (string, error) {
	h, err := HashPayload(cfg)
	if err != nil {
		return "", fmt.Errorf("provenance: fingerprint config: %w", err)
	}
	return h, nil
}
