package session

import "github.com/01Taka/study-tracker/internal/scoring"

// Session is the single live attempt session. At most one exists at a
// time; it is consumed by End or discarded by Cancel.
type Session struct {
	ID                   string   `json:"id"`
	WorkbookID           string   `json:"workbookId"`
	ProblemListID        string   `json:"problemListId"`
	StartTime            int64    `json:"startTime"` // unix millis
	ProblemListVersionID string   `json:"problemListVersionId"`
	AttemptingUnitIDs    []string `json:"attemptingUnitIds"`
}

// History is one completed attempt. Append-only and immutable: unit
// results are deep snapshots, decoupled from later unit edits.
type History struct {
	ID                   string                        `json:"id"`
	WorkbookID           string                        `json:"workbookId"`
	ProblemListID        string                        `json:"problemListId"`
	StartTime            int64                         `json:"startTime"`
	EndTime              int64                         `json:"endTime"`
	ProblemListVersionID string                        `json:"problemListVersionId"`
	UnitAttempts         map[string]scoring.UnitResult `json:"unitAttempts"`
}

// UnitAttempt is a unit result annotated with when its history started,
// for latest-attempt views.
type UnitAttempt struct {
	scoring.UnitResult
	AttemptAt int64 `json:"attemptAt"`
}

// Order controls history sort direction in read views.
type Order string

const (
	OrderDesc Order = "desc" // newest first (default)
	OrderAsc  Order = "asc"
)
