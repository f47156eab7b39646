// Package health implements Hardstop's source health scorer: a pure
// aggregation over a source's recent SourceRun rows into a [0,100] score
// and a budget state (spec §4.I). Deterministic given identical SourceRun
// inputs.
package health

import (
	"sort"
	"time"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

// noHistoryScore is the score a source with zero SourceRun rows receives,
// along with the BLOCKED state (spec §4.I "Sources with no history receive score 30 and
// state BLOCKED").
const noHistoryScore = 30

// Result is the health assessment for one source.
type Result struct {
	SuccessRate              float64
	StaleHours               float64
	ConsecutiveFailureStreak int
	SuppressionRatio         float64
	Score                    int
	BudgetState              hstypes.BudgetState
}

// Evaluate aggregates runs — the caller's already-windowed last-10-FETCH
// plus last-10-INGEST rows for one source (spec §4.I "rolling window") —
// as of now, using staleHoursThreshold to gate the staleness penalty.
func Evaluate(runs []hstypes.SourceRun, now time.Time, staleHoursThreshold float64) Result {
	if len(runs) == 0 {
		return Result{Score: noHistoryScore, BudgetState: hstypes.BudgetBlocked}
	}

	sorted := append([]hstypes.SourceRun(nil), runs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RunAtUTC.After(sorted[j].RunAtUTC) })

	var successes, failures int
	var itemsProcessed, itemsSuppressed int
	var lastSuccessAt time.Time
	haveSuccess := false

	for _, r := range sorted {
		if r.Status == hstypes.RunSuccess {
			successes++
			if !haveSuccess || r.RunAtUTC.After(lastSuccessAt) {
				lastSuccessAt = r.RunAtUTC
				haveSuccess = true
			}
		} else {
			failures++
		}
		itemsProcessed += r.Counters.ItemsProcessed
		itemsSuppressed += r.Counters.ItemsSuppressed
	}

	streak := 0
	for _, r := range sorted {
		if r.Status != hstypes.RunSuccess {
			streak++
			continue
		}
		break
	}

	total := successes + failures
	successRate := float64(successes) / float64(total)

	var staleHours float64
	if haveSuccess {
		staleHours = now.Sub(lastSuccessAt).Hours()
	} else {
		staleHours = staleHoursThreshold*2 + 1 // no success on record: always past threshold
	}

	processedForRatio := itemsProcessed
	if processedForRatio < 1 {
		processedForRatio = 1
	}
	suppressionRatio := float64(itemsSuppressed) / float64(processedForRatio)

	score := 100
	score -= minInt(failures*15, 45)
	if staleHours > staleHoursThreshold {
		score -= 20
	}
	score -= int(suppressionRatio/0.25) * 10
	score -= (streak / 3) * 25
	score = clampScore(score)

	return Result{
		SuccessRate:              successRate,
		StaleHours:               staleHours,
		ConsecutiveFailureStreak: streak,
		SuppressionRatio:         suppressionRatio,
		Score:                    score,
		BudgetState:              budgetState(score),
	}
}

func budgetState(score int) hstypes.BudgetState {
	switch {
	case score >= 80:
		return hstypes.BudgetHealthy
	case score >= 50:
		return hstypes.BudgetWatch
	default:
		return hstypes.BudgetBlocked
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
