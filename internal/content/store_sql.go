package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// SQLStore persists content to database/sql ("sqlite" or "postgres"
// driver). Records are stored as JSON blobs keyed by id, reproducing the
// logical key/value layout of the saved-data format.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Workbooks(ctx context.Context) ([]Workbook, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data_json FROM workbooks ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Workbook
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var wb Workbook
		if err := json.Unmarshal([]byte(blob), &wb); err != nil {
			return nil, err
		}
		out = append(out, wb)
	}
	return out, rows.Err()
}

// SaveWorkbooks replaces the whole ordered collection. The collection is
// the single write aggregate for workbook/problem-list structure, so a
// full rewrite keeps ordering and membership consistent in one statement
// batch.
func (s *SQLStore) SaveWorkbooks(ctx context.Context, wbs []Workbook) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM workbooks`); err != nil {
		return err
	}
	for i, wb := range wbs {
		blob, err := json.Marshal(wb)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workbooks (id, position, data_json) VALUES ($1,$2,$3)`,
			wb.ID, i, string(blob)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Hierarchy(ctx context.Context, id string) (Hierarchy, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data_json FROM hierarchies WHERE id=$1`, id)
	var blob string
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Hierarchy{}, ErrNotFound
		}
		return Hierarchy{}, err
	}
	var h Hierarchy
	if err := json.Unmarshal([]byte(blob), &h); err != nil {
		return Hierarchy{}, err
	}
	return h, nil
}

func (s *SQLStore) PutHierarchy(ctx context.Context, h Hierarchy) error {
	blob, err := json.Marshal(h)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO hierarchies (id, data_json) VALUES ($1,$2)
		 ON CONFLICT (id) DO UPDATE SET data_json=EXCLUDED.data_json`,
		h.HierarchyID, string(blob))
	return err
}

func (s *SQLStore) DeleteHierarchy(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM hierarchies WHERE id=$1`, id)
	return err
}

func (s *SQLStore) Unit(ctx context.Context, id string) (ProblemUnit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data_json FROM units WHERE id=$1`, id)
	var blob string
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProblemUnit{}, ErrNotFound
		}
		return ProblemUnit{}, err
	}
	var u ProblemUnit
	if err := json.Unmarshal([]byte(blob), &u); err != nil {
		return ProblemUnit{}, err
	}
	return u, nil
}

func (s *SQLStore) Units(ctx context.Context, ids []string) ([]ProblemUnit, error) {
	out := make([]ProblemUnit, 0, len(ids))
	for _, id := range ids {
		u, err := s.Unit(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *SQLStore) PutUnits(ctx context.Context, units []ProblemUnit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, u := range units {
		blob, err := json.Marshal(u)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO units (id, data_json) VALUES ($1,$2)
			 ON CONFLICT (id) DO UPDATE SET data_json=EXCLUDED.data_json`,
			u.UnitID, string(blob)); err != nil {
			return err
		}
	}
	return tx.Commit()
}
