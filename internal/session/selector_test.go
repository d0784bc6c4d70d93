package session

import (
	"testing"

	"github.com/01Taka/study-tracker/internal/scoring"
)

func TestSelectUnits(t *testing.T) {
	now := int64(20 * dayMillis)
	at := func(key scoring.ResultKey, daysAgo float64) *UnitAttempt {
		return &UnitAttempt{
			UnitResult: scoring.UnitResult{ResultKey: key},
			AttemptAt:  now - int64(daysAgo*dayMillis),
		}
	}
	latest := map[string]*UnitAttempt{
		"never":        nil,
		"missed":       at("UNSURE_WRONG", 1),
		"fresh-solid":  at("CONFIDENT_CORRECT", 2),
		"stale-solid":  at("CONFIDENT_CORRECT", 8),
		"shaky-right":  at("UNSURE_CORRECT", 1),
		"guess-right":  at("NONE_CORRECT", 1),
		"unrated-miss": at("UNRATED_WRONG", 3),
	}
	ids := []string{"never", "missed", "fresh-solid", "stale-solid", "shaky-right", "guess-right", "unrated-miss"}

	cases := []struct {
		filter Filter
		want   map[string]bool
	}{
		{FilterAll, map[string]bool{
			"never": true, "missed": true, "fresh-solid": true, "stale-solid": true,
			"shaky-right": true, "guess-right": true, "unrated-miss": true,
		}},
		{FilterMiss, map[string]bool{
			"never": false, "missed": true, "fresh-solid": false, "stale-solid": false,
			"shaky-right": false, "guess-right": false, "unrated-miss": true,
		}},
		{FilterRecommended, map[string]bool{
			"never": true, "missed": true, "fresh-solid": false, "stale-solid": true,
			"shaky-right": true, "guess-right": true, "unrated-miss": true,
		}},
	}
	for _, tc := range cases {
		got := SelectUnits(ids, tc.filter, latest, now, DefaultReviewPolicy())
		for _, id := range ids {
			if got[id] != tc.want[id] {
				t.Errorf("%s filter, unit %s: selected=%v, want %v", tc.filter, id, got[id], tc.want[id])
			}
		}
	}
}

func TestSelectUnitsCustomStaleness(t *testing.T) {
	now := int64(20 * dayMillis)
	latest := map[string]*UnitAttempt{
		"solid": {
			UnitResult: scoring.UnitResult{ResultKey: "CONFIDENT_CORRECT"},
			AttemptAt:  now - 3*dayMillis,
		},
	}
	if got := SelectUnits([]string{"solid"}, FilterRecommended, latest, now, ReviewPolicy{StaleDays: 7}); got["solid"] {
		t.Fatal("3-day-old confident correct must not be recommended at 7-day threshold")
	}
	if got := SelectUnits([]string{"solid"}, FilterRecommended, latest, now, ReviewPolicy{StaleDays: 2}); !got["solid"] {
		t.Fatal("3-day-old confident correct must be recommended at 2-day threshold")
	}
}
