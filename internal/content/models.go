package content

// AnswerType describes how answers are entered (mark sheet vs free text).
type AnswerType string

const (
	AnswerTypeMark AnswerType = "MARK"
	AnswerTypeText AnswerType = "TEXT"
)

// ProblemType selects the matching semantics applied when an attempt is
// scored against the unit's answer key.
type ProblemType string

const (
	// ProblemTypeSingle is exactly one sub-answer, exact match.
	ProblemTypeSingle ProblemType = "SINGLE"
	// ProblemTypeOrderedSet requires every sub-answer to match in the
	// submitted order.
	ProblemTypeOrderedSet ProblemType = "ORDERED_SET"
	// ProblemTypeUnordered compares sub-answers order-insensitively with
	// partial credit per matched answer.
	ProblemTypeUnordered ProblemType = "UNORDERED"
	// ProblemTypeUnorderedSet compares sub-answers order-insensitively,
	// all-or-nothing.
	ProblemTypeUnorderedSet ProblemType = "UNORDERED_SET"
)

// Workbook is the top-level user collection. Problem lists are embedded;
// hierarchies and units are stored separately and referenced by id.
type Workbook struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CreatedAt    int64         `json:"createdAt"` // unix millis
	ProblemLists []ProblemList `json:"problemLists"`
}

// ProblemList owns an ordered set of hierarchy references.
type ProblemList struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	CreatedAt    int64    `json:"createdAt"`
	HierarchyIDs []string `json:"hierarchyIds"`
}

// Hierarchy is a named ordered grouping of unit versions (a chapter, a
// big-question block). The order of UnitVersionIDs is the source of truth
// for problem numbering.
type Hierarchy struct {
	HierarchyID    string   `json:"hierarchyId"`
	ProblemListID  string   `json:"problemListId"`
	WorkbookID     string   `json:"workbookId"`
	Name           string   `json:"name"`
	UnitVersionIDs []string `json:"unitVersionIds"`
}

// Problem is one sub-answer slot inside a unit.
type Problem struct {
	ProblemNumber int    `json:"problemNumber"`
	Answer        string `json:"answer"`
}

// ProblemUnit is a version-immutable question (or question group). Any
// change to its answers, question, scoring or type is persisted under a
// fresh UnitID; the superseded record stays in the store so historical
// attempts keep resolving. LastAttemptedAt is the one field maintained in
// place, since it carries no structural meaning.
type ProblemUnit struct {
	UnitID          string      `json:"unitId"`
	HierarchyID     string      `json:"hierarchyId"`
	ProblemListID   string      `json:"problemListId"`
	WorkbookID      string      `json:"workbookId"`
	Question        string      `json:"question,omitempty"`
	Problems        []Problem   `json:"problems"`
	Scoring         int         `json:"scoring"`
	ProblemType     ProblemType `json:"problemType"`
	AnswerType      AnswerType  `json:"answerType"`
	LastAttemptedAt int64       `json:"lastAttemptedAt"`
	// AnswerStructureID identifies answer-shape continuity: it changes only
	// when the answer set itself changes, not on cosmetic edits, so score
	// trends can group the same underlying question across versions.
	AnswerStructureID string `json:"answerStructureId"`
}

// UnitSettings are the editable non-answer fields of a unit.
type UnitSettings struct {
	Question    string      `json:"question,omitempty"`
	Scoring     int         `json:"scoring"`
	ProblemType ProblemType `json:"problemType"`
	AnswerType  AnswerType  `json:"answerType"`
}

// UnitData is the edit-form shape: settings plus the ordered answers.
type UnitData struct {
	UnitSettings
	Answers []string `json:"answers"`
}

// ProblemRange describes the numbering a unit occupies within its
// hierarchy after reindexing.
type ProblemRange struct {
	Start          int   `json:"start"`
	End            int   `json:"end"`
	ProblemNumbers []int `json:"problemNumbers"`
	Count          int   `json:"count"`
	IsSingle       bool  `json:"isSingle"`
}

// Range computes the ProblemRange of a unit from its stored numbering.
func (u ProblemUnit) Range() ProblemRange {
	if len(u.Problems) == 0 {
		return ProblemRange{}
	}
	nums := make([]int, len(u.Problems))
	start, end := u.Problems[0].ProblemNumber, u.Problems[0].ProblemNumber
	for i, p := range u.Problems {
		nums[i] = p.ProblemNumber
		if p.ProblemNumber < start {
			start = p.ProblemNumber
		}
		if p.ProblemNumber > end {
			end = p.ProblemNumber
		}
	}
	return ProblemRange{
		Start:          start,
		End:            end,
		ProblemNumbers: nums,
		Count:          len(nums),
		IsSingle:       len(nums) == 1,
	}
}

// Answers returns the unit's correct answers in problem order.
func (u ProblemUnit) Answers() []string {
	out := make([]string, len(u.Problems))
	for i, p := range u.Problems {
		out[i] = p.Answer
	}
	return out
}
