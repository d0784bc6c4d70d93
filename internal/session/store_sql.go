package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// SQLStore persists histories and the active session. The active session
// lives in a single-row table; histories order is derived from start_time.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) ActiveSession(ctx context.Context) (Session, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data_json FROM active_session WHERE singleton=0`)
	var blob string
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(blob), &sess); err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

func (s *SQLStore) SaveActiveSession(ctx context.Context, sess Session) error {
	blob, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO active_session (singleton, data_json) VALUES (0,$1)
		 ON CONFLICT (singleton) DO UPDATE SET data_json=EXCLUDED.data_json`,
		string(blob))
	return err
}

func (s *SQLStore) ClearActiveSession(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM active_session WHERE singleton=0`)
	return err
}

func (s *SQLStore) Histories(ctx context.Context) ([]History, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data_json FROM histories ORDER BY start_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []History
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var h History
		if err := json.Unmarshal([]byte(blob), &h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *SQLStore) AppendHistory(ctx context.Context, h History) error {
	blob, err := json.Marshal(h)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO histories (id, workbook_id, problem_list_id, start_time, end_time, data_json)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		h.ID, h.WorkbookID, h.ProblemListID, h.StartTime, h.EndTime, string(blob))
	return err
}

func (s *SQLStore) ClearHistories(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM histories`)
	return err
}
