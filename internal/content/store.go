package content

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by stores when a referenced record does not
// exist. Mutators treat it as a precondition violation and no-op.
var ErrNotFound = errors.New("not found")

// Store owns the canonical workbook collection, the hierarchy archive and
// the unit archive. Unit and hierarchy records are addressed by id; the
// unit archive is append-only (superseded versions are kept for history
// resolution, never erased).
type Store interface {
	Workbooks(ctx context.Context) ([]Workbook, error)
	SaveWorkbooks(ctx context.Context, wbs []Workbook) error

	Hierarchy(ctx context.Context, id string) (Hierarchy, error)
	PutHierarchy(ctx context.Context, h Hierarchy) error
	DeleteHierarchy(ctx context.Context, id string) error

	Unit(ctx context.Context, id string) (ProblemUnit, error)
	// Units resolves ids in order, silently skipping missing records.
	Units(ctx context.Context, ids []string) ([]ProblemUnit, error)
	// PutUnits persists a record set in one atomic operation.
	PutUnits(ctx context.Context, units []ProblemUnit) error
}

type memoryStore struct {
	mu          sync.RWMutex
	workbooks   []Workbook
	hierarchies map[string]Hierarchy
	units       map[string]ProblemUnit
}

// NewInMemoryStore returns a Store backed by process memory. Used in tests
// and as a reference implementation of the store contract.
func NewInMemoryStore() Store {
	return &memoryStore{
		hierarchies: map[string]Hierarchy{},
		units:       map[string]ProblemUnit{},
	}
}

func (m *memoryStore) Workbooks(context.Context) ([]Workbook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Workbook, len(m.workbooks))
	for i, wb := range m.workbooks {
		out[i] = cloneWorkbook(wb)
	}
	return out, nil
}

func (m *memoryStore) SaveWorkbooks(_ context.Context, wbs []Workbook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make([]Workbook, len(wbs))
	for i, wb := range wbs {
		next[i] = cloneWorkbook(wb)
	}
	m.workbooks = next
	return nil
}

func (m *memoryStore) Hierarchy(_ context.Context, id string) (Hierarchy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hierarchies[id]
	if !ok {
		return Hierarchy{}, ErrNotFound
	}
	h.UnitVersionIDs = append([]string(nil), h.UnitVersionIDs...)
	return h, nil
}

func (m *memoryStore) PutHierarchy(_ context.Context, h Hierarchy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.UnitVersionIDs = append([]string(nil), h.UnitVersionIDs...)
	m.hierarchies[h.HierarchyID] = h
	return nil
}

func (m *memoryStore) DeleteHierarchy(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hierarchies, id)
	return nil
}

func (m *memoryStore) Unit(_ context.Context, id string) (ProblemUnit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[id]
	if !ok {
		return ProblemUnit{}, ErrNotFound
	}
	return cloneUnit(u), nil
}

func (m *memoryStore) Units(_ context.Context, ids []string) ([]ProblemUnit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ProblemUnit, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.units[id]; ok {
			out = append(out, cloneUnit(u))
		}
	}
	return out, nil
}

func (m *memoryStore) PutUnits(_ context.Context, units []ProblemUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range units {
		m.units[u.UnitID] = cloneUnit(u)
	}
	return nil
}

func cloneUnit(u ProblemUnit) ProblemUnit {
	u.Problems = append([]Problem(nil), u.Problems...)
	return u
}

func cloneWorkbook(wb Workbook) Workbook {
	lists := make([]ProblemList, len(wb.ProblemLists))
	for i, pl := range wb.ProblemLists {
		pl.HierarchyIDs = append([]string(nil), pl.HierarchyIDs...)
		lists[i] = pl
	}
	wb.ProblemLists = lists
	return wb
}
