package content_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/01Taka/study-tracker/internal/content"
	syncx "github.com/01Taka/study-tracker/internal/sync"
)

func seqGen(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

type fixture struct {
	svc         *content.Service
	store       content.Store
	workbookID  string
	listID      string
	hierarchyID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := content.NewInMemoryStore()
	svc := content.NewService(store, seqGen("id"), syncx.NopRecorder{})

	wb, err := svc.CreateWorkbook(ctx, "math")
	if err != nil {
		t.Fatalf("create workbook: %v", err)
	}
	pl, err := svc.CreateProblemList(ctx, wb.ID, "chapter tests")
	if err != nil {
		t.Fatalf("create problem list: %v", err)
	}
	hid, err := svc.CreateHierarchy(ctx, wb.ID, pl.ID, "chapter 1")
	if err != nil {
		t.Fatalf("create hierarchy: %v", err)
	}
	if hid == "" {
		t.Fatal("hierarchy id empty")
	}
	return &fixture{svc: svc, store: store, workbookID: wb.ID, listID: pl.ID, hierarchyID: hid}
}

func textUnit(answers ...string) content.UnitData {
	return content.UnitData{
		UnitSettings: content.UnitSettings{
			Scoring:     len(answers),
			ProblemType: content.ProblemTypeOrderedSet,
			AnswerType:  content.AnswerTypeText,
		},
		Answers: answers,
	}
}

// checkContiguous reads the hierarchy's units in order and verifies the
// problem numbers run 1..N without gaps or repeats.
func checkContiguous(t *testing.T, f *fixture) []content.ProblemUnit {
	t.Helper()
	ctx := context.Background()
	h, err := f.svc.Hierarchy(ctx, f.hierarchyID)
	if err != nil {
		t.Fatalf("hierarchy: %v", err)
	}
	units, err := f.svc.Units(ctx, h.UnitVersionIDs, nil)
	if err != nil {
		t.Fatalf("units: %v", err)
	}
	if len(units) != len(h.UnitVersionIDs) {
		t.Fatalf("hierarchy references %d units, resolved %d", len(h.UnitVersionIDs), len(units))
	}
	want := 1
	for _, u := range units {
		for _, p := range u.Problems {
			if p.ProblemNumber != want {
				t.Fatalf("problem number %d, want %d (unit %s)", p.ProblemNumber, want, u.UnitID)
			}
			want++
		}
	}
	return units
}

func TestInsertUnitsNumbersContiguously(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newIDs, err := f.svc.InsertUnits(ctx, f.hierarchyID, []content.UnitData{
		textUnit("4"),
		textUnit("a", "b", "c"),
		textUnit("x"),
	}, -1)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(newIDs) != 3 {
		t.Fatalf("newIDs = %d, want 3", len(newIDs))
	}
	units := checkContiguous(t, f)
	if got := units[1].Problems[2].ProblemNumber; got != 4 {
		t.Fatalf("multi-answer unit tail number = %d, want 4", got)
	}
	if units[2].Problems[0].ProblemNumber != 5 {
		t.Fatalf("last unit number = %d, want 5", units[2].Problems[0].ProblemNumber)
	}
}

func TestInsertAtIndexShiftsOnlyTail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.InsertUnits(ctx, f.hierarchyID, []content.UnitData{
		textUnit("a"), textUnit("b"),
	}, -1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := checkContiguous(t, f)

	if _, err := f.svc.InsertUnits(ctx, f.hierarchyID, []content.UnitData{textUnit("mid")}, 1); err != nil {
		t.Fatalf("insert at index: %v", err)
	}
	after := checkContiguous(t, f)

	if len(after) != 3 {
		t.Fatalf("len = %d, want 3", len(after))
	}
	// head position untouched: same version id survives
	if after[0].UnitID != before[0].UnitID {
		t.Fatalf("head unit re-versioned: %s -> %s", before[0].UnitID, after[0].UnitID)
	}
	// tail shifted: must carry a fresh version id, old one orphaned but readable
	if after[2].UnitID == before[1].UnitID {
		t.Fatal("shifted unit kept its version id")
	}
	if _, err := f.svc.Unit(ctx, before[1].UnitID); err != nil {
		t.Fatalf("orphaned version must stay addressable: %v", err)
	}
}

func TestUpdateUnitCosmeticKeepsStructure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.InsertUnits(ctx, f.hierarchyID, []content.UnitData{
		textUnit("a"), textUnit("b"), textUnit("c"),
	}, -1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := checkContiguous(t, f)
	target := before[1]

	data := textUnit("b")
	data.Question = "what comes second?"
	newIDs, err := f.svc.UpdateUnit(ctx, target.UnitID, data)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(newIDs) != 1 {
		t.Fatalf("expected exactly the edited unit re-versioned, got %v", newIDs)
	}
	after := checkContiguous(t, f)

	if after[1].AnswerStructureID != target.AnswerStructureID {
		t.Fatal("cosmetic edit must keep answerStructureId")
	}
	if after[1].UnitID == target.UnitID {
		t.Fatal("edit must produce a new version id")
	}
	if after[0].UnitID != before[0].UnitID || after[2].UnitID != before[2].UnitID {
		t.Fatal("units at unaffected positions must keep their ids")
	}
}

func TestUpdateUnitAnswerChangeRotatesStructure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.InsertUnits(ctx, f.hierarchyID, []content.UnitData{textUnit("a", "b")}, -1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := checkContiguous(t, f)

	if _, err := f.svc.UpdateUnit(ctx, before[0].UnitID, textUnit("a", "b", "c")); err != nil {
		t.Fatalf("update: %v", err)
	}
	after := checkContiguous(t, f)
	if after[0].AnswerStructureID == before[0].AnswerStructureID {
		t.Fatal("answer change must rotate answerStructureId")
	}
	if after[0].LastAttemptedAt != 0 {
		t.Fatal("edited unit must reset lastAttemptedAt")
	}
}

func TestUpdateUnitNoChangeIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.InsertUnits(ctx, f.hierarchyID, []content.UnitData{textUnit("a")}, -1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := checkContiguous(t, f)

	newIDs, err := f.svc.UpdateUnit(ctx, before[0].UnitID, textUnit("a"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(newIDs) != 0 {
		t.Fatalf("no-op update generated ids: %v", newIDs)
	}
	after := checkContiguous(t, f)
	if after[0].UnitID != before[0].UnitID {
		t.Fatal("no-op update must not re-version")
	}
}

func TestRemoveUnitRenumbersAndOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.InsertUnits(ctx, f.hierarchyID, []content.UnitData{
		textUnit("a"), textUnit("b", "c"), textUnit("d"),
	}, -1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := checkContiguous(t, f)
	removed := before[0]

	if err := f.svc.RemoveUnit(ctx, f.hierarchyID, removed.UnitID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	after := checkContiguous(t, f)
	if len(after) != 2 {
		t.Fatalf("len = %d, want 2", len(after))
	}
	if after[0].Problems[0].ProblemNumber != 1 {
		t.Fatal("numbering must restart at 1 after removal")
	}
	// removed content stays addressable for history
	if _, err := f.svc.Unit(ctx, removed.UnitID); err != nil {
		t.Fatalf("removed unit must stay in archive: %v", err)
	}
}

func TestMergeUnitsConcatenatesAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.InsertUnits(ctx, f.hierarchyID, []content.UnitData{
		textUnit("a"), textUnit("b"), textUnit("c"),
	}, -1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := checkContiguous(t, f)

	newIDs, err := f.svc.MergeUnits(ctx, f.hierarchyID, []string{before[0].UnitID, before[1].UnitID})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(newIDs) == 0 {
		t.Fatal("merge must create a new version")
	}
	after := checkContiguous(t, f)
	if len(after) != 2 {
		t.Fatalf("len = %d, want 2", len(after))
	}
	if len(after[0].Problems) != 2 {
		t.Fatalf("merged unit has %d problems, want 2", len(after[0].Problems))
	}
	if after[0].Problems[0].Answer != "a" || after[0].Problems[1].Answer != "b" {
		t.Fatalf("merged answers = %+v", after[0].Problems)
	}
}

func TestMutatorsNoOpOnMissingReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if ids, err := f.svc.InsertUnits(ctx, "nope", []content.UnitData{textUnit("a")}, -1); err != nil || ids != nil {
		t.Fatalf("insert into missing hierarchy: ids=%v err=%v", ids, err)
	}
	if ids, err := f.svc.UpdateUnit(ctx, "nope", textUnit("a")); err != nil || ids != nil {
		t.Fatalf("update of missing unit: ids=%v err=%v", ids, err)
	}
	if err := f.svc.RemoveUnit(ctx, "nope", "also-nope"); err != nil {
		t.Fatalf("remove from missing hierarchy: %v", err)
	}
	if err := f.svc.DeleteHierarchy(ctx, "nope"); err != nil {
		t.Fatalf("delete of missing hierarchy: %v", err)
	}
	if pl, err := f.svc.CreateProblemList(ctx, "nope", "x"); err != nil || pl.ID != "" {
		t.Fatalf("create list under missing workbook: pl=%+v err=%v", pl, err)
	}
}

func TestDeleteHierarchyDetachesButKeepsUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids, err := f.svc.InsertUnits(ctx, f.hierarchyID, []content.UnitData{textUnit("a")}, -1)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.svc.DeleteHierarchy(ctx, f.hierarchyID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Hierarchy(ctx, f.hierarchyID); err == nil {
		t.Fatal("hierarchy record must be gone")
	}
	wb, err := f.svc.Workbook(ctx, f.workbookID)
	if err != nil {
		t.Fatalf("workbook: %v", err)
	}
	if len(wb.ProblemLists[0].HierarchyIDs) != 0 {
		t.Fatal("hierarchy reference must be removed from problem list")
	}
	if _, err := f.svc.Unit(ctx, ids[0]); err != nil {
		t.Fatalf("unit content must survive hierarchy deletion: %v", err)
	}
}

func TestProblemRanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids, err := f.svc.InsertUnits(ctx, f.hierarchyID, []content.UnitData{
		textUnit("a"), textUnit("b", "c", "d"),
	}, -1)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	ranges, err := f.svc.ProblemRanges(ctx, f.hierarchyID)
	if err != nil {
		t.Fatalf("ranges: %v", err)
	}
	first, second := ranges[ids[0]], ranges[ids[1]]
	if !first.IsSingle || first.Start != 1 || first.End != 1 {
		t.Fatalf("first range = %+v", first)
	}
	if second.Start != 2 || second.End != 4 || second.Count != 3 || second.IsSingle {
		t.Fatalf("second range = %+v", second)
	}
}
