package provenance

import "github.com/WhatsYourWhy/hardstop/pkg/hstypes"

// Pin builds the DeterminismContext a pinned-mode artifact carries (spec
// §9/§11 "pinned mode"). Callers pass the seed and run identifiers fixed at
// the top of a replay so every artifact produced downstream embeds the same
// pin.
func Pin(seed, pinnedTimestamp, pinnedRunID string) *hstypes.DeterminismContext {
	return &hstypes.DeterminismContext{
		Seed:            seed,
		PinnedTimestamp: pinnedTimestamp,
		PinnedRunID:     pinnedRunID,
	}
}
