package session

import "github.com/01Taka/study-tracker/internal/scoring"

// Filter narrows which units get pre-selected when starting a session.
type Filter string

const (
	// FilterAll selects everything.
	FilterAll Filter = "all"
	// FilterMiss selects units whose latest attempt was wrong.
	FilterMiss Filter = "miss"
	// FilterRecommended selects units worth reviewing: never attempted,
	// latest attempt not a confident-correct, or confident-correct but
	// stale.
	FilterRecommended Filter = "recommended"
)

// ReviewPolicy tunes the recommended filter. The staleness threshold is a
// heuristic, not an invariant, so it stays configurable.
type ReviewPolicy struct {
	StaleDays float64
}

// DefaultReviewPolicy mirrors the shipped behavior: a confident-correct
// answer goes stale after 7 days.
func DefaultReviewPolicy() ReviewPolicy { return ReviewPolicy{StaleDays: 7} }

const dayMillis = 24 * 60 * 60 * 1000

// SelectUnits computes the selected state per unit id given its latest
// attempt (nil when never attempted), the filter and the policy. nowMillis
// anchors the staleness check.
func SelectUnits(unitIDs []string, filter Filter, latest map[string]*UnitAttempt, nowMillis int64, pol ReviewPolicy) map[string]bool {
	out := make(map[string]bool, len(unitIDs))
	for _, id := range unitIDs {
		out[id] = selected(filter, latest[id], nowMillis, pol)
	}
	return out
}

func selected(filter Filter, latest *UnitAttempt, nowMillis int64, pol ReviewPolicy) bool {
	if filter == FilterAll {
		return true
	}
	if latest == nil {
		return filter != FilterMiss
	}
	if filter == FilterMiss {
		return latest.ResultKey.IsWrong()
	}
	if latest.ResultKey != scoring.NewResultKey(scoring.SelfEvalConfident, true) {
		return true
	}
	ageDays := float64(nowMillis-latest.AttemptAt) / dayMillis
	return ageDays > pol.StaleDays
}
