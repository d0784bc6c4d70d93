package scoring

import (
	"github.com/01Taka/study-tracker/internal/content"
)

// SelfEval is the user's stated confidence, independent of correctness.
type SelfEval string

const (
	SelfEvalConfident SelfEval = "CONFIDENT"
	SelfEvalUnsure    SelfEval = "UNSURE"
	SelfEvalNone      SelfEval = "NONE"
	SelfEvalUnrated   SelfEval = "UNRATED"
)

// Judge is the objective verdict for one sub-answer.
type Judge string

const (
	JudgeCorrect Judge = "CORRECT"
	JudgeWrong   Judge = "WRONG"
)

// ResultKey combines self-eval and the whole-unit verdict, e.g.
// "CONFIDENT_CORRECT". It drives review-prioritization filtering.
type ResultKey string

func NewResultKey(ev SelfEval, correct bool) ResultKey {
	if ev == "" {
		ev = SelfEvalUnrated
	}
	if correct {
		return ResultKey(string(ev) + "_CORRECT")
	}
	return ResultKey(string(ev) + "_WRONG")
}

// IsWrong reports whether the key records a missed unit.
func (k ResultKey) IsWrong() bool {
	return len(k) >= 6 && k[len(k)-6:] == "_WRONG"
}

// UserAnswers is one unit's raw submission: answers in problem order plus
// the self evaluation.
type UserAnswers struct {
	Answers  []string `json:"answers"`
	SelfEval SelfEval `json:"selfEval"`
}

// ProblemResult freezes one sub-answer comparison as it was at attempt
// time. Answer is the raw submitted string; CorrectAnswer is snapshotted
// from the unit so later edits cannot rewrite history.
type ProblemResult struct {
	ProblemNumber int    `json:"problemNumber"`
	Answer        string `json:"answer"`
	CorrectAnswer string `json:"correctAnswer"`
	Judge         Judge  `json:"judge"`
}

// UnitResult is the immutable per-unit attempt record stored inside an
// attempt history.
type UnitResult struct {
	HierarchyID string              `json:"hierarchyId"`
	Results     []ProblemResult     `json:"results"`
	ResultKey   ResultKey           `json:"resultKey"`
	SelfEval    SelfEval            `json:"selfEval"`
	ProblemType content.ProblemType `json:"problemType"`
	Scoring     int                 `json:"scoring"`
}
