package session

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/01Taka/study-tracker/internal/content"
	"github.com/01Taka/study-tracker/internal/ident"
	"github.com/01Taka/study-tracker/internal/scoring"
	syncx "github.com/01Taka/study-tracker/internal/sync"
)

// ErrNoActiveSession is returned by End when no session is live.
var ErrNoActiveSession = errors.New("no active session")

// UnitSource is the slice of the content store the manager needs: live
// unit definitions for scoring and the in-place lastAttemptedAt bump.
type UnitSource interface {
	Units(ctx context.Context, ids []string) ([]content.ProblemUnit, error)
	PutUnits(ctx context.Context, units []content.ProblemUnit) error
}

// StartArgs identify what a session covers.
type StartArgs struct {
	WorkbookID           string   `json:"workbookId"`
	ProblemListID        string   `json:"problemListId"`
	ProblemListVersionID string   `json:"problemListVersionId"`
	AttemptingUnitIDs    []string `json:"attemptingUnitIds"`
}

// Manager tracks the single active session and the append-only attempt
// history, and turns completed sessions into immutable history records.
type Manager struct {
	store  Store
	units  UnitSource
	engine *scoring.Engine
	newID  ident.Generator
	events syncx.Recorder
	now    func() int64
}

func NewManager(store Store, units UnitSource, engine *scoring.Engine, newID ident.Generator, events syncx.Recorder) *Manager {
	if engine == nil {
		engine = scoring.NewEngine()
	}
	if newID == nil {
		newID = ident.New
	}
	return &Manager{
		store:  store,
		units:  units,
		engine: engine,
		newID:  newID,
		events: events,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// Active returns the live session, if any.
func (m *Manager) Active(ctx context.Context) (Session, bool, error) {
	return m.store.ActiveSession(ctx)
}

// Start opens a session. A silent no-op while one is already active: the
// existing session is returned untouched and the caller must Cancel
// first.
func (m *Manager) Start(ctx context.Context, args StartArgs) (Session, error) {
	if active, ok, err := m.store.ActiveSession(ctx); err != nil {
		return Session{}, err
	} else if ok {
		return active, nil
	}
	sess := Session{
		ID:                   m.newID(),
		WorkbookID:           args.WorkbookID,
		ProblemListID:        args.ProblemListID,
		StartTime:            m.now(),
		ProblemListVersionID: args.ProblemListVersionID,
		AttemptingUnitIDs:    args.AttemptingUnitIDs,
	}
	if err := m.store.SaveActiveSession(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// End scores the submitted answers against the live unit definitions and
// converts the active session into a history record. Any integrity
// violation aborts: no history is written and the session stays active.
func (m *Manager) End(ctx context.Context, answers map[string]scoring.UserAnswers) (History, error) {
	active, ok, err := m.store.ActiveSession(ctx)
	if err != nil {
		return History{}, err
	}
	if !ok {
		return History{}, ErrNoActiveSession
	}

	units, err := m.units.Units(ctx, active.AttemptingUnitIDs)
	if err != nil {
		return History{}, err
	}
	attempts, err := m.engine.EvaluateSession(units, answers)
	if err != nil {
		return History{}, err
	}

	end := m.now()
	h := History{
		ID:                   active.ID,
		WorkbookID:           active.WorkbookID,
		ProblemListID:        active.ProblemListID,
		StartTime:            active.StartTime,
		EndTime:              end,
		ProblemListVersionID: active.ProblemListVersionID,
		UnitAttempts:         attempts,
	}
	if err := m.store.AppendHistory(ctx, h); err != nil {
		return History{}, err
	}
	if err := m.store.ClearActiveSession(ctx); err != nil {
		return History{}, err
	}

	// lastAttemptedAt carries no structural meaning, so attempted units
	// are bumped in place rather than re-versioned.
	var attempted []content.ProblemUnit
	for _, u := range units {
		if _, ok := attempts[u.UnitID]; ok {
			u.LastAttemptedAt = end
			attempted = append(attempted, u)
		}
	}
	if len(attempted) > 0 {
		if err := m.units.PutUnits(ctx, attempted); err != nil {
			return History{}, err
		}
	}

	syncx.Record(ctx, m.events, syncx.TypeAttemptCompleted, h.ID, map[string]any{
		"problemListId": h.ProblemListID,
		"units":         len(attempts),
	})
	return h, nil
}

// Cancel discards the active session without producing history.
func (m *Manager) Cancel(ctx context.Context) error {
	return m.store.ClearActiveSession(ctx)
}

// History returns one history record by id.
func (m *Manager) History(ctx context.Context, id string) (History, error) {
	all, err := m.store.Histories(ctx)
	if err != nil {
		return History{}, err
	}
	for _, h := range all {
		if h.ID == id {
			return h, nil
		}
	}
	return History{}, content.ErrNotFound
}

// HistoriesByWorkbook filters and sorts histories for one workbook.
func (m *Manager) HistoriesByWorkbook(ctx context.Context, workbookID string, order Order) ([]History, error) {
	all, err := m.store.Histories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]History, 0, len(all))
	for _, h := range all {
		if h.WorkbookID == workbookID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order == OrderAsc {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].StartTime > out[j].StartTime
	})
	return out, nil
}

// ClearAllHistories wipes the attempt history.
func (m *Manager) ClearAllHistories(ctx context.Context) error {
	return m.store.ClearHistories(ctx)
}

// LatestAttempts derives the most recent attempt per unit id for one
// problem list. Histories are scanned newest-first; the first hit per
// unit wins, and the scan stops early once every id is resolved. Units
// never attempted map to nil.
func (m *Manager) LatestAttempts(ctx context.Context, problemListID string, unitIDs []string) (map[string]*UnitAttempt, error) {
	all, err := m.store.Histories(ctx)
	if err != nil {
		return nil, err
	}
	histories := make([]History, 0, len(all))
	for _, h := range all {
		if h.ProblemListID == problemListID {
			histories = append(histories, h)
		}
	}
	sort.SliceStable(histories, func(i, j int) bool {
		return histories[i].StartTime > histories[j].StartTime
	})

	latest := make(map[string]*UnitAttempt, len(unitIDs))
	for _, id := range unitIDs {
		latest[id] = nil
	}
	remaining := len(unitIDs)
	for _, h := range histories {
		if remaining == 0 {
			break
		}
		for _, id := range unitIDs {
			if latest[id] != nil {
				continue
			}
			if res, ok := h.UnitAttempts[id]; ok {
				latest[id] = &UnitAttempt{UnitResult: res, AttemptAt: h.StartTime}
				remaining--
			}
		}
	}
	return latest, nil
}

// ScoreSummary aggregates earned and possible points for one history,
// entirely from its snapshots.
func (m *Manager) ScoreSummary(ctx context.Context, historyID string) (earned, max int, err error) {
	h, err := m.History(ctx, historyID)
	if err != nil {
		return 0, 0, err
	}
	for _, res := range h.UnitAttempts {
		earned += scoring.Score(res)
		max += res.Scoring
	}
	return earned, max, nil
}
