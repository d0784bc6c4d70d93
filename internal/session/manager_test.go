package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/01Taka/study-tracker/internal/content"
	"github.com/01Taka/study-tracker/internal/scoring"
	syncx "github.com/01Taka/study-tracker/internal/sync"
)

func testManager(t *testing.T, units ...content.ProblemUnit) (*Manager, content.Store, *int64) {
	t.Helper()
	cstore := content.NewInMemoryStore()
	if err := cstore.PutUnits(context.Background(), units); err != nil {
		t.Fatalf("seed units: %v", err)
	}
	n := 0
	gen := func() string {
		n++
		return fmt.Sprintf("sess-%03d", n)
	}
	m := NewManager(NewInMemoryStore(), cstore, scoring.NewEngine(), gen, syncx.NopRecorder{})
	clock := new(int64)
	*clock = 1_000
	m.now = func() int64 { return *clock }
	return m, cstore, clock
}

func seedUnit(id string, pt content.ProblemType, points int, answers ...string) content.ProblemUnit {
	problems := make([]content.Problem, len(answers))
	for i, a := range answers {
		problems[i] = content.Problem{ProblemNumber: i + 1, Answer: a}
	}
	return content.ProblemUnit{
		UnitID:            id,
		HierarchyID:       "h1",
		ProblemListID:     "pl1",
		WorkbookID:        "wb1",
		Problems:          problems,
		Scoring:           points,
		ProblemType:       pt,
		AnswerType:        content.AnswerTypeText,
		AnswerStructureID: "as-" + id,
	}
}

func TestStartIsExclusive(t *testing.T) {
	m, _, _ := testManager(t)
	ctx := context.Background()

	first, err := m.Start(ctx, StartArgs{WorkbookID: "wb1", ProblemListID: "pl1", AttemptingUnitIDs: []string{"u1"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := m.Start(ctx, StartArgs{WorkbookID: "wb2", ProblemListID: "pl2"})
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if second.ID != first.ID || second.WorkbookID != "wb1" {
		t.Fatalf("second start replaced the active session: %+v", second)
	}

	if err := m.Cancel(ctx); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	third, err := m.Start(ctx, StartArgs{WorkbookID: "wb2"})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if third.ID == first.ID {
		t.Fatal("restart after cancel must mint a fresh session")
	}
}

func TestEndWritesHistoryAndBumpsLastAttempted(t *testing.T) {
	m, cstore, clock := testManager(t,
		seedUnit("u1", content.ProblemTypeSingle, 5, "tokyo"),
		seedUnit("u2", content.ProblemTypeSingle, 5, "osaka"),
	)
	ctx := context.Background()

	if _, err := m.Start(ctx, StartArgs{
		WorkbookID: "wb1", ProblemListID: "pl1", AttemptingUnitIDs: []string{"u1", "u2"},
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	*clock = 5_000
	h, err := m.End(ctx, map[string]scoring.UserAnswers{
		"u1": {Answers: []string{"Tokyo"}, SelfEval: scoring.SelfEvalConfident},
	})
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if h.EndTime != 5_000 || h.StartTime != 1_000 {
		t.Fatalf("history times = %d..%d", h.StartTime, h.EndTime)
	}
	if len(h.UnitAttempts) != 1 {
		t.Fatalf("attempts = %d, want 1 (unanswered units are skipped)", len(h.UnitAttempts))
	}
	if got := h.UnitAttempts["u1"].ResultKey; got != scoring.NewResultKey(scoring.SelfEvalConfident, true) {
		t.Fatalf("result key = %s", got)
	}

	if _, ok, _ := m.Active(ctx); ok {
		t.Fatal("session must be cleared after end")
	}
	u1, err := cstore.Unit(ctx, "u1")
	if err != nil {
		t.Fatalf("unit: %v", err)
	}
	if u1.LastAttemptedAt != 5_000 {
		t.Fatalf("u1 lastAttemptedAt = %d, want 5000", u1.LastAttemptedAt)
	}
	u2, _ := cstore.Unit(ctx, "u2")
	if u2.LastAttemptedAt != 0 {
		t.Fatal("unanswered unit must not be bumped")
	}
}

func TestEndIntegrityMismatchKeepsSessionActive(t *testing.T) {
	m, cstore, _ := testManager(t, seedUnit("u1", content.ProblemTypeOrderedSet, 4, "a", "b"))
	ctx := context.Background()

	if _, err := m.Start(ctx, StartArgs{ProblemListID: "pl1", AttemptingUnitIDs: []string{"u1"}}); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := m.End(ctx, map[string]scoring.UserAnswers{
		"u1": {Answers: []string{"a"}},
	})
	var ie *scoring.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want IntegrityError", err)
	}
	if ie.UnitID != "u1" || ie.Expected != 2 || ie.Actual != 1 {
		t.Fatalf("integrity detail = %+v", ie)
	}

	if _, ok, _ := m.Active(ctx); !ok {
		t.Fatal("session must stay active after integrity failure")
	}
	histories, _ := m.store.Histories(ctx)
	if len(histories) != 0 {
		t.Fatal("no history may be written on integrity failure")
	}
	u1, _ := cstore.Unit(ctx, "u1")
	if u1.LastAttemptedAt != 0 {
		t.Fatal("lastAttemptedAt must not move on integrity failure")
	}
}

func TestEndWithoutActiveSession(t *testing.T) {
	m, _, _ := testManager(t)
	if _, err := m.End(context.Background(), nil); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("err = %v, want ErrNoActiveSession", err)
	}
}

func TestHistorySnapshotsSurviveUnitEdits(t *testing.T) {
	m, cstore, _ := testManager(t, seedUnit("u1", content.ProblemTypeSingle, 5, "old"))
	ctx := context.Background()

	if _, err := m.Start(ctx, StartArgs{ProblemListID: "pl1", AttemptingUnitIDs: []string{"u1"}}); err != nil {
		t.Fatalf("start: %v", err)
	}
	h, err := m.End(ctx, map[string]scoring.UserAnswers{
		"u1": {Answers: []string{"old"}, SelfEval: scoring.SelfEvalConfident},
	})
	if err != nil {
		t.Fatalf("end: %v", err)
	}

	// the answer key changes after the attempt
	edited := seedUnit("u1", content.ProblemTypeSingle, 5, "new")
	if err := cstore.PutUnits(ctx, []content.ProblemUnit{edited}); err != nil {
		t.Fatalf("edit unit: %v", err)
	}

	got, err := m.History(ctx, h.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	res := got.UnitAttempts["u1"].Results[0]
	if res.CorrectAnswer != "old" || res.Judge != scoring.JudgeCorrect {
		t.Fatalf("snapshot rewritten: %+v", res)
	}
	earned, max, err := m.ScoreSummary(ctx, h.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if earned != 5 || max != 5 {
		t.Fatalf("summary = %d/%d, want 5/5", earned, max)
	}
}

func TestLatestAttemptsNewestWins(t *testing.T) {
	m, _, _ := testManager(t)
	ctx := context.Background()

	attempt := func(key scoring.ResultKey) scoring.UnitResult {
		return scoring.UnitResult{ResultKey: key, ProblemType: content.ProblemTypeSingle, Scoring: 1}
	}
	for _, h := range []History{
		{ID: "h1", ProblemListID: "pl1", StartTime: 100, UnitAttempts: map[string]scoring.UnitResult{
			"u1": attempt("NONE_WRONG"),
			"u2": attempt("NONE_WRONG"),
		}},
		{ID: "h2", ProblemListID: "pl1", StartTime: 200, UnitAttempts: map[string]scoring.UnitResult{
			"u1": attempt("UNSURE_CORRECT"),
		}},
		{ID: "h3", ProblemListID: "other", StartTime: 300, UnitAttempts: map[string]scoring.UnitResult{
			"u2": attempt("CONFIDENT_CORRECT"),
		}},
	} {
		if err := m.store.AppendHistory(ctx, h); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	latest, err := m.LatestAttempts(ctx, "pl1", []string{"u1", "u2", "u3"})
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest["u1"] == nil || latest["u1"].ResultKey != "UNSURE_CORRECT" || latest["u1"].AttemptAt != 200 {
		t.Fatalf("u1 = %+v", latest["u1"])
	}
	// u2's newest attempt lives in another problem list and must not leak in
	if latest["u2"] == nil || latest["u2"].ResultKey != "NONE_WRONG" || latest["u2"].AttemptAt != 100 {
		t.Fatalf("u2 = %+v", latest["u2"])
	}
	if latest["u3"] != nil {
		t.Fatalf("never-attempted unit must map to nil, got %+v", latest["u3"])
	}
}

func TestHistoriesByWorkbookOrder(t *testing.T) {
	m, _, _ := testManager(t)
	ctx := context.Background()

	for _, h := range []History{
		{ID: "h1", WorkbookID: "wb1", StartTime: 100},
		{ID: "h2", WorkbookID: "wb2", StartTime: 150},
		{ID: "h3", WorkbookID: "wb1", StartTime: 200},
	} {
		if err := m.store.AppendHistory(ctx, h); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	desc, err := m.HistoriesByWorkbook(ctx, "wb1", OrderDesc)
	if err != nil {
		t.Fatalf("desc: %v", err)
	}
	if len(desc) != 2 || desc[0].ID != "h3" || desc[1].ID != "h1" {
		t.Fatalf("desc = %+v", desc)
	}
	asc, err := m.HistoriesByWorkbook(ctx, "wb1", OrderAsc)
	if err != nil {
		t.Fatalf("asc: %v", err)
	}
	if asc[0].ID != "h1" || asc[1].ID != "h3" {
		t.Fatalf("asc = %+v", asc)
	}
}

func TestClearAllHistories(t *testing.T) {
	m, _, _ := testManager(t)
	ctx := context.Background()

	if err := m.store.AppendHistory(ctx, History{ID: "h1"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := m.ClearAllHistories(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := m.History(ctx, "h1"); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
