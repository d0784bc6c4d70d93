// Package syncx keeps an append-only log of content and attempt
// mutations. The log is an audit/debug surface; nothing in the core reads
// it back.
package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Event types appended by the services.
const (
	TypeUnitsReindexed   = "UnitsReindexed"
	TypeHierarchyDeleted = "HierarchyDeleted"
	TypeUnitRemoved      = "UnitRemoved"
	TypeAttemptCompleted = "AttemptCompleted"
	TypeBundleImported   = "BundleImported"
)

type Event struct {
	Offset    int64
	Type      string
	Key       string // natural key: hierarchyId, historyId, ...
	DataJSON  string
	CreatedAt int64
}

// Recorder is the write side of the log. The log is best-effort and never
// blocks a mutation; append failures are dropped by Record.
type Recorder interface {
	Append(ctx context.Context, e Event) error
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		e.Type, e.Key, e.DataJSON, time.Now().UnixMilli())
	return err
}

// Record marshals payload and appends; a convenience for services.
func Record(ctx context.Context, rec Recorder, typ, key string, payload any) {
	if rec == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = rec.Append(ctx, Event{Type: typ, Key: key, DataJSON: string(data)})
}

// NopRecorder discards events. Used in tests and memory-only setups.
type NopRecorder struct{}

func (NopRecorder) Append(context.Context, Event) error { return nil }
