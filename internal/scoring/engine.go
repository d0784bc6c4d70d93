package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/01Taka/study-tracker/internal/content"
)

// IntegrityError reports a sub-answer count mismatch between a submission
// and the unit definition. It is fatal for the whole session: a skewed
// record would corrupt numbering-dependent history lookups, so no partial
// result may be written.
type IntegrityError struct {
	UnitID   string
	Expected int
	Actual   int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("scoring: unit %s: submitted %d answers, unit defines %d",
		e.UnitID, e.Actual, e.Expected)
}

// outcome is a strategy's verdict over one unit.
type outcome struct {
	correct bool
	judges  []Judge
	matched int
}

// Strategy evaluates normalized submitted answers against the normalized
// answer key for one matching semantics.
type Strategy interface {
	Evaluate(key, submitted []string) outcome
}

// Engine routes by problemType to the matching Strategy and assembles the
// immutable per-unit result.
type Engine struct {
	strategies map[content.ProblemType]Strategy
}

func NewEngine() *Engine {
	return &Engine{
		strategies: map[content.ProblemType]Strategy{
			content.ProblemTypeSingle:       orderedStrategy{},
			content.ProblemTypeOrderedSet:   orderedStrategy{},
			content.ProblemTypeUnorderedSet: unorderedSetStrategy{},
			content.ProblemTypeUnordered:    unorderedStrategy{},
		},
	}
}

// EvaluateUnit validates and scores one unit's submission. The raw
// submitted strings and the unit's answers are preserved verbatim in the
// result; comparison happens on normalized copies only.
func (e *Engine) EvaluateUnit(unit content.ProblemUnit, ua UserAnswers) (UnitResult, error) {
	if len(ua.Answers) != len(unit.Problems) {
		return UnitResult{}, &IntegrityError{
			UnitID:   unit.UnitID,
			Expected: len(unit.Problems),
			Actual:   len(ua.Answers),
		}
	}
	strat, ok := e.strategies[unit.ProblemType]
	if !ok {
		return UnitResult{}, fmt.Errorf("scoring: unknown problem type %q", unit.ProblemType)
	}

	key := unit.Answers()
	out := strat.Evaluate(normalizeAll(key), normalizeAll(ua.Answers))

	ev := ua.SelfEval
	if ev == "" {
		ev = SelfEvalUnrated
	}

	results := make([]ProblemResult, len(unit.Problems))
	for i, p := range unit.Problems {
		results[i] = ProblemResult{
			ProblemNumber: p.ProblemNumber,
			Answer:        ua.Answers[i],
			CorrectAnswer: p.Answer,
			Judge:         out.judges[i],
		}
	}
	return UnitResult{
		HierarchyID: unit.HierarchyID,
		Results:     results,
		ResultKey:   NewResultKey(ev, out.correct),
		SelfEval:    ev,
		ProblemType: unit.ProblemType,
		Scoring:     unit.Scoring,
	}, nil
}

// EvaluateSession scores every submitted unit of a session. Any integrity
// violation aborts the whole session with no results. Units without a
// submission are skipped.
func (e *Engine) EvaluateSession(units []content.ProblemUnit, answers map[string]UserAnswers) (map[string]UnitResult, error) {
	out := make(map[string]UnitResult, len(answers))
	for _, u := range units {
		ua, ok := answers[u.UnitID]
		if !ok {
			continue
		}
		res, err := e.EvaluateUnit(u, ua)
		if err != nil {
			return nil, err
		}
		out[u.UnitID] = res
	}
	return out, nil
}

// Score computes points earned by a stored result. UNORDERED grants
// partial credit per matched answer, rounded; every other type is
// all-or-nothing on the whole-unit verdict. Works entirely from the
// snapshot so later unit edits cannot change historical scores.
func Score(res UnitResult) int {
	total := len(res.Results)
	if total == 0 {
		return 0
	}
	if res.ProblemType == content.ProblemTypeUnordered {
		matched := 0
		for _, r := range res.Results {
			if r.Judge == JudgeCorrect {
				matched++
			}
		}
		return int(math.Round(float64(res.Scoring) * float64(matched) / float64(total)))
	}
	if res.ResultKey.IsWrong() {
		return 0
	}
	return res.Scoring
}

/* ---------------- Strategies ---------------- */

// orderedStrategy: positional exact match; the unit is correct only when
// every position matches. Covers SINGLE as the one-element case.
type orderedStrategy struct{}

func (orderedStrategy) Evaluate(key, submitted []string) outcome {
	out := outcome{correct: true, judges: make([]Judge, len(key))}
	for i := range key {
		if submitted[i] == key[i] {
			out.judges[i] = JudgeCorrect
			out.matched++
			continue
		}
		out.judges[i] = JudgeWrong
		out.correct = false
	}
	return out
}

// unorderedSetStrategy: both sides sorted, then compared element-wise;
// all-or-nothing. Per-sub-answer judges come from pool matching so the
// display can mark which submissions found a counterpart.
type unorderedSetStrategy struct{}

func (unorderedSetStrategy) Evaluate(key, submitted []string) outcome {
	sortedKey := append([]string(nil), key...)
	sortedSub := append([]string(nil), submitted...)
	sort.Strings(sortedKey)
	sort.Strings(sortedSub)
	correct := true
	for i := range sortedKey {
		if sortedKey[i] != sortedSub[i] {
			correct = false
			break
		}
	}
	judges, matched := poolJudges(key, submitted)
	return outcome{correct: correct, judges: judges, matched: matched}
}

// unorderedStrategy: greedy pool matching with partial credit; the unit
// counts as correct only when every submission matched.
type unorderedStrategy struct{}

func (unorderedStrategy) Evaluate(key, submitted []string) outcome {
	judges, matched := poolJudges(key, submitted)
	return outcome{correct: matched == len(key), judges: judges, matched: matched}
}

// poolJudges greedily matches each submitted answer against the remaining
// pool of key answers; each key answer is consumable at most once. Empty
// submissions never match.
func poolJudges(key, submitted []string) ([]Judge, int) {
	pool := append([]string(nil), key...)
	judges := make([]Judge, len(submitted))
	matched := 0
	for i, ans := range submitted {
		judges[i] = JudgeWrong
		if ans == "" {
			continue
		}
		for pi, k := range pool {
			if k == ans {
				judges[i] = JudgeCorrect
				matched++
				pool = append(pool[:pi], pool[pi+1:]...)
				break
			}
		}
	}
	return judges, matched
}
