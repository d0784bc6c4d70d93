package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/01Taka/study-tracker/internal/ident"
	syncx "github.com/01Taka/study-tracker/internal/sync"
)

// Service applies structural mutations to the Workbook → ProblemList →
// Hierarchy containment tree and delegates numbering to the Reindexer.
//
// Failure semantics: operations referencing a nonexistent workbook,
// problem list, hierarchy or unit are silent no-ops (empty result, nil
// error). Callers obtain ids from prior reads; a dangling id is a
// precondition violation, not a user-facing error. Substrate failures are
// returned as errors.
type Service struct {
	store   Store
	reindex *Reindexer
	newID   ident.Generator
	events  syncx.Recorder
}

func NewService(store Store, newID ident.Generator, events syncx.Recorder) *Service {
	if newID == nil {
		newID = ident.New
	}
	return &Service{
		store:   store,
		reindex: NewReindexer(store, newID),
		newID:   newID,
		events:  events,
	}
}

// Store exposes the underlying store for read-only collaborators.
func (s *Service) Store() Store { return s.store }

/* ---------------- Workbook / ProblemList ---------------- */

func (s *Service) Workbooks(ctx context.Context) ([]Workbook, error) {
	return s.store.Workbooks(ctx)
}

func (s *Service) Workbook(ctx context.Context, id string) (Workbook, error) {
	wbs, err := s.store.Workbooks(ctx)
	if err != nil {
		return Workbook{}, err
	}
	for _, wb := range wbs {
		if wb.ID == id {
			return wb, nil
		}
	}
	return Workbook{}, ErrNotFound
}

func (s *Service) CreateWorkbook(ctx context.Context, name string) (Workbook, error) {
	wbs, err := s.store.Workbooks(ctx)
	if err != nil {
		return Workbook{}, err
	}
	wb := Workbook{
		ID:           s.newID(),
		Name:         name,
		CreatedAt:    time.Now().UnixMilli(),
		ProblemLists: []ProblemList{},
	}
	if err := s.store.SaveWorkbooks(ctx, append(wbs, wb)); err != nil {
		return Workbook{}, err
	}
	return wb, nil
}

// DeleteWorkbook removes the workbook and its problem lists from the
// collection. Hierarchy and unit records referenced by it are orphaned,
// not erased, consistent with the versioning policy.
func (s *Service) DeleteWorkbook(ctx context.Context, id string) error {
	wbs, err := s.store.Workbooks(ctx)
	if err != nil {
		return err
	}
	next := wbs[:0]
	for _, wb := range wbs {
		if wb.ID != id {
			next = append(next, wb)
		}
	}
	if len(next) == len(wbs) {
		return nil
	}
	return s.store.SaveWorkbooks(ctx, next)
}

func (s *Service) CreateProblemList(ctx context.Context, workbookID, name string) (ProblemList, error) {
	wbs, err := s.store.Workbooks(ctx)
	if err != nil {
		return ProblemList{}, err
	}
	pl := ProblemList{
		ID:           s.newID(),
		Name:         name,
		CreatedAt:    time.Now().UnixMilli(),
		HierarchyIDs: []string{},
	}
	found := false
	for wi := range wbs {
		if wbs[wi].ID != workbookID {
			continue
		}
		wbs[wi].ProblemLists = append(wbs[wi].ProblemLists, pl)
		found = true
		break
	}
	if !found {
		return ProblemList{}, nil
	}
	if err := s.store.SaveWorkbooks(ctx, wbs); err != nil {
		return ProblemList{}, err
	}
	return pl, nil
}

/* ---------------- Hierarchy ---------------- */

func (s *Service) Hierarchy(ctx context.Context, id string) (Hierarchy, error) {
	return s.store.Hierarchy(ctx, id)
}

// CreateHierarchy allocates an empty hierarchy and appends its id to the
// problem list's reference list.
func (s *Service) CreateHierarchy(ctx context.Context, workbookID, problemListID, name string) (string, error) {
	wbs, err := s.store.Workbooks(ctx)
	if err != nil {
		return "", err
	}
	h := Hierarchy{
		HierarchyID:    s.newID(),
		ProblemListID:  problemListID,
		WorkbookID:     workbookID,
		Name:           name,
		UnitVersionIDs: []string{},
	}
	attached := false
	for wi := range wbs {
		if wbs[wi].ID != workbookID {
			continue
		}
		for pi := range wbs[wi].ProblemLists {
			if wbs[wi].ProblemLists[pi].ID != problemListID {
				continue
			}
			wbs[wi].ProblemLists[pi].HierarchyIDs =
				append(wbs[wi].ProblemLists[pi].HierarchyIDs, h.HierarchyID)
			attached = true
			break
		}
		break
	}
	if !attached {
		return "", nil
	}
	if err := s.store.PutHierarchy(ctx, h); err != nil {
		return "", err
	}
	if err := s.store.SaveWorkbooks(ctx, wbs); err != nil {
		return "", err
	}
	return h.HierarchyID, nil
}

// DeleteHierarchy removes the hierarchy record and its reference from the
// owning problem list. Referenced units stay in the archive so historical
// attempts keep resolving.
func (s *Service) DeleteHierarchy(ctx context.Context, hierarchyID string) error {
	h, err := s.store.Hierarchy(ctx, hierarchyID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	wbs, err := s.store.Workbooks(ctx)
	if err != nil {
		return err
	}
	for wi := range wbs {
		if wbs[wi].ID != h.WorkbookID {
			continue
		}
		for pi := range wbs[wi].ProblemLists {
			if wbs[wi].ProblemLists[pi].ID != h.ProblemListID {
				continue
			}
			refs := wbs[wi].ProblemLists[pi].HierarchyIDs
			next := refs[:0]
			for _, id := range refs {
				if id != hierarchyID {
					next = append(next, id)
				}
			}
			wbs[wi].ProblemLists[pi].HierarchyIDs = next
		}
	}
	if err := s.store.DeleteHierarchy(ctx, hierarchyID); err != nil {
		return err
	}
	if err := s.store.SaveWorkbooks(ctx, wbs); err != nil {
		return err
	}
	syncx.Record(ctx, s.events, syncx.TypeHierarchyDeleted, hierarchyID, h)
	return nil
}

/* ---------------- Units ---------------- */

func (s *Service) Unit(ctx context.Context, id string) (ProblemUnit, error) {
	return s.store.Unit(ctx, id)
}

// Units resolves ids in order, optionally narrowed to filterIDs.
func (s *Service) Units(ctx context.Context, ids, filterIDs []string) ([]ProblemUnit, error) {
	units, err := s.store.Units(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(filterIDs) == 0 {
		return units, nil
	}
	keep := make(map[string]struct{}, len(filterIDs))
	for _, id := range filterIDs {
		keep[id] = struct{}{}
	}
	out := units[:0]
	for _, u := range units {
		if _, ok := keep[u.UnitID]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// InsertUnits builds new-unit intents from dataList, splices them into the
// hierarchy's ordered unit list at atIndex (negative or out-of-range:
// append) and reindexes. Returns the ids assigned to the inserted units.
func (s *Service) InsertUnits(ctx context.Context, hierarchyID string, dataList []UnitData, atIndex int) ([]string, error) {
	if len(dataList) == 0 {
		return nil, nil
	}
	for _, d := range dataList {
		if len(d.Answers) == 0 {
			return nil, fmt.Errorf("insert units: unit data with no answers")
		}
	}
	h, err := s.store.Hierarchy(ctx, hierarchyID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	current, err := s.store.Units(ctx, h.UnitVersionIDs)
	if err != nil {
		return nil, err
	}

	inserts := make([]ProblemUnit, len(dataList))
	for i, d := range dataList {
		inserts[i] = s.newUnitIntent(h, d)
	}

	if atIndex < 0 || atIndex > len(current) {
		atIndex = len(current)
	}
	virtual := make([]ProblemUnit, 0, len(current)+len(inserts))
	virtual = append(virtual, current[:atIndex]...)
	virtual = append(virtual, inserts...)
	virtual = append(virtual, current[atIndex:]...)

	return s.applyReindex(ctx, h, virtual)
}

// UpdateUnit replaces one unit's content in place within its hierarchy's
// ordering. A no-op when nothing differs. Answer changes force a fresh
// answerStructureId; cosmetic changes (question, scoring, type) keep it.
func (s *Service) UpdateUnit(ctx context.Context, unitID string, data UnitData) ([]string, error) {
	current, err := s.store.Unit(ctx, unitID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data.Answers) == 0 {
		return nil, fmt.Errorf("update unit %s: unit data with no answers", unitID)
	}
	h, err := s.store.Hierarchy(ctx, current.HierarchyID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	answersUnchanged := answersEqual(current, data.Answers)
	settingsUnchanged := current.Question == data.Question &&
		current.Scoring == data.Scoring &&
		current.ProblemType == data.ProblemType &&
		current.AnswerType == data.AnswerType
	if answersUnchanged && settingsUnchanged {
		return nil, nil
	}

	structureID := current.AnswerStructureID
	if !answersUnchanged {
		structureID = s.newID()
	}

	units, err := s.store.Units(ctx, h.UnitVersionIDs)
	if err != nil {
		return nil, err
	}
	virtual := make([]ProblemUnit, 0, len(units))
	for _, u := range units {
		if u.UnitID == unitID {
			replacement := s.newUnitIntent(h, data)
			replacement.UnitID = "" // force a new version
			replacement.AnswerStructureID = structureID
			virtual = append(virtual, replacement)
			continue
		}
		virtual = append(virtual, u)
	}
	return s.applyReindex(ctx, h, virtual)
}

// RemoveUnit drops the unit from the hierarchy's reference list (the
// record stays addressable for history) and renumbers the remainder so
// problem numbers stay gapless.
func (s *Service) RemoveUnit(ctx context.Context, hierarchyID, unitID string) error {
	h, err := s.store.Hierarchy(ctx, hierarchyID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	refs := make([]string, 0, len(h.UnitVersionIDs))
	for _, id := range h.UnitVersionIDs {
		if id != unitID {
			refs = append(refs, id)
		}
	}
	if len(refs) == len(h.UnitVersionIDs) {
		return nil
	}
	remaining, err := s.store.Units(ctx, refs)
	if err != nil {
		return err
	}
	if _, err := s.applyReindex(ctx, h, remaining); err != nil {
		return err
	}
	syncx.Record(ctx, s.events, syncx.TypeUnitRemoved, hierarchyID, map[string]string{"unitId": unitID})
	return nil
}

// MergeUnits collapses the given units (in their current hierarchy order)
// into one unit at the position of the first: answers concatenate, the
// first unit's settings win, and the merged unit gets a fresh answer
// structure. Returns the ids created by the resulting reindex.
func (s *Service) MergeUnits(ctx context.Context, hierarchyID string, unitIDs []string) ([]string, error) {
	if len(unitIDs) < 2 {
		return nil, nil
	}
	h, err := s.store.Hierarchy(ctx, hierarchyID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	merge := make(map[string]struct{}, len(unitIDs))
	for _, id := range unitIDs {
		merge[id] = struct{}{}
	}
	units, err := s.store.Units(ctx, h.UnitVersionIDs)
	if err != nil {
		return nil, err
	}

	mergedAt := -1
	virtual := make([]ProblemUnit, 0, len(units))
	for _, u := range units {
		if _, ok := merge[u.UnitID]; !ok {
			virtual = append(virtual, u)
			continue
		}
		if mergedAt < 0 {
			head := u
			head.UnitID = ""
			head.AnswerStructureID = s.newID()
			head.LastAttemptedAt = 0
			head.Problems = append([]Problem(nil), u.Problems...)
			virtual = append(virtual, head)
			mergedAt = len(virtual) - 1
			continue
		}
		virtual[mergedAt].Problems = append(virtual[mergedAt].Problems, u.Problems...)
	}
	if mergedAt < 0 {
		return nil, nil
	}
	return s.applyReindex(ctx, h, virtual)
}

// ProblemRanges maps each referenced unit id to the numbering range it
// occupies, in hierarchy order.
func (s *Service) ProblemRanges(ctx context.Context, hierarchyID string) (map[string]ProblemRange, error) {
	h, err := s.store.Hierarchy(ctx, hierarchyID)
	if errors.Is(err, ErrNotFound) {
		return map[string]ProblemRange{}, nil
	}
	if err != nil {
		return nil, err
	}
	units, err := s.store.Units(ctx, h.UnitVersionIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ProblemRange, len(units))
	for _, u := range units {
		out[u.UnitID] = u.Range()
	}
	return out, nil
}

/* ---------------- internals ---------------- */

func (s *Service) newUnitIntent(h Hierarchy, d UnitData) ProblemUnit {
	problems := make([]Problem, len(d.Answers))
	for i, ans := range d.Answers {
		problems[i] = Problem{Answer: ans} // number assigned by reindex
	}
	return ProblemUnit{
		HierarchyID:       h.HierarchyID,
		ProblemListID:     h.ProblemListID,
		WorkbookID:        h.WorkbookID,
		Question:          d.Question,
		Problems:          problems,
		Scoring:           d.Scoring,
		ProblemType:       d.ProblemType,
		AnswerType:        d.AnswerType,
		LastAttemptedAt:   0,
		AnswerStructureID: s.newID(),
	}
}

func (s *Service) applyReindex(ctx context.Context, h Hierarchy, virtual []ProblemUnit) ([]string, error) {
	res, err := s.reindex.Reindex(ctx, virtual, 1)
	if err != nil {
		return nil, err
	}
	h.UnitVersionIDs = res.Sequence
	if err := s.store.PutHierarchy(ctx, h); err != nil {
		return nil, err
	}
	syncx.Record(ctx, s.events, syncx.TypeUnitsReindexed, h.HierarchyID, map[string]any{
		"sequence": res.Sequence,
		"newIds":   res.NewIDs,
	})
	return res.NewIDs, nil
}

func answersEqual(u ProblemUnit, answers []string) bool {
	if len(u.Problems) != len(answers) {
		return false
	}
	for i, p := range u.Problems {
		if p.Answer != answers[i] {
			return false
		}
	}
	return true
}
