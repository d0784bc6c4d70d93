package session

import (
	"context"
	"sync"
)

// Store owns the append-only attempt history list and the at-most-one
// active session record.
type Store interface {
	// ActiveSession returns the live session, if any.
	ActiveSession(ctx context.Context) (Session, bool, error)
	SaveActiveSession(ctx context.Context, s Session) error
	ClearActiveSession(ctx context.Context) error

	// Histories returns all histories newest-first (by start time).
	Histories(ctx context.Context) ([]History, error)
	AppendHistory(ctx context.Context, h History) error
	ClearHistories(ctx context.Context) error
}

type memoryStore struct {
	mu        sync.RWMutex
	active    *Session
	histories []History // newest first
}

// NewInMemoryStore returns a Store backed by process memory.
func NewInMemoryStore() Store {
	return &memoryStore{}
}

func (m *memoryStore) ActiveSession(context.Context) (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return Session{}, false, nil
	}
	s := *m.active
	s.AttemptingUnitIDs = append([]string(nil), s.AttemptingUnitIDs...)
	return s, true, nil
}

func (m *memoryStore) SaveActiveSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.AttemptingUnitIDs = append([]string(nil), s.AttemptingUnitIDs...)
	m.active = &s
	return nil
}

func (m *memoryStore) ClearActiveSession(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = nil
	return nil
}

func (m *memoryStore) Histories(context.Context) ([]History, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]History, len(m.histories))
	copy(out, m.histories)
	return out, nil
}

func (m *memoryStore) AppendHistory(_ context.Context, h History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories = append([]History{h}, m.histories...)
	return nil
}

func (m *memoryStore) ClearHistories(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories = nil
	return nil
}
