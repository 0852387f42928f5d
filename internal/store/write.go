package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/factdb/internal/fact"
	"github.com/roach88/factdb/internal/metrics"
)

// Save persists every fact of g that is not already stored, in one
// transaction, and returns the new facts in graph order.
//
// Uses ON CONFLICT DO NOTHING for idempotency - saving a graph twice
// returns no facts the second time. Every predecessor must be stored
// already or appear earlier in g.
func (s *Store) Save(ctx context.Context, g *fact.Graph) ([]fact.Fact, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("save: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	w := &writer{tx: tx, types: make(map[string]int64)}
	var saved []fact.Fact
	for _, f := range g.Facts() {
		inserted, err := w.insertFact(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("save %s: %w", f.Reference, err)
		}
		if inserted {
			saved = append(saved, f)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("save: commit: %w", err)
	}
	metrics.FactsSaved.Add(float64(len(saved)))
	return saved, nil
}

// writer caches ids within one Save transaction.
type writer struct {
	tx    *sql.Tx
	types map[string]int64
}

func (w *writer) insertFact(ctx context.Context, f fact.Fact) (bool, error) {
	typeID, err := w.typeID(ctx, f.Type())
	if err != nil {
		return false, err
	}

	res, err := w.tx.ExecContext(ctx, `
		INSERT INTO fact (fact_type_id, hash, data)
		VALUES (?, ?, ?)
		ON CONFLICT (fact_type_id, hash) DO NOTHING
	`, typeID, f.Reference.Hash, f.Canonical())
	if err != nil {
		return false, fmt.Errorf("insert fact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert fact: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	factID, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("insert fact: %w", err)
	}

	for _, p := range f.Predecessors {
		roleID, err := w.roleID(ctx, typeID, p.RoleName())
		if err != nil {
			return false, err
		}
		for pos, target := range p.Targets() {
			predID, err := lookupFactID(ctx, w.tx, target)
			if err != nil {
				return false, err
			}
			if predID == 0 {
				return false, fmt.Errorf("predecessor %s is not stored", target)
			}
			if err := w.insertEdge(ctx, roleID, factID, predID, pos); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

func (w *writer) insertEdge(ctx context.Context, roleID, successorID, predecessorID int64, pos int) error {
	if _, err := w.tx.ExecContext(ctx, `
		INSERT INTO edge (role_id, successor_fact_id, predecessor_fact_id, position)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, roleID, successorID, predecessorID, pos); err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}

	// The predecessor and all of its ancestors become ancestors of the successor.
	if _, err := w.tx.ExecContext(ctx, `
		INSERT INTO ancestor (fact_id, ancestor_fact_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, successorID, predecessorID); err != nil {
		return fmt.Errorf("insert ancestor: %w", err)
	}
	if _, err := w.tx.ExecContext(ctx, `
		INSERT INTO ancestor (fact_id, ancestor_fact_id)
		SELECT ?, ancestor_fact_id FROM ancestor WHERE fact_id = ?
		ON CONFLICT DO NOTHING
	`, successorID, predecessorID); err != nil {
		return fmt.Errorf("insert ancestors: %w", err)
	}
	return nil
}

func (w *writer) typeID(ctx context.Context, name string) (int64, error) {
	if id, ok := w.types[name]; ok {
		return id, nil
	}
	if _, err := w.tx.ExecContext(ctx, `
		INSERT INTO fact_type (name) VALUES (?)
		ON CONFLICT (name) DO NOTHING
	`, name); err != nil {
		return 0, fmt.Errorf("insert fact type: %w", err)
	}
	var id int64
	if err := w.tx.QueryRowContext(ctx, `SELECT fact_type_id FROM fact_type WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("read fact type: %w", err)
	}
	w.types[name] = id
	return id, nil
}

func (w *writer) roleID(ctx context.Context, typeID int64, name string) (int64, error) {
	if _, err := w.tx.ExecContext(ctx, `
		INSERT INTO role (defining_fact_type_id, name) VALUES (?, ?)
		ON CONFLICT (defining_fact_type_id, name) DO NOTHING
	`, typeID, name); err != nil {
		return 0, fmt.Errorf("insert role: %w", err)
	}
	var id int64
	if err := w.tx.QueryRowContext(ctx, `
		SELECT role_id FROM role WHERE defining_fact_type_id = ? AND name = ?
	`, typeID, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("read role: %w", err)
	}
	return id, nil
}

// SaveBookmark records the sync position of a feed, replacing any
// earlier bookmark.
func (s *Store) SaveBookmark(ctx context.Context, feed, bookmark string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmark (feed, bookmark) VALUES (?, ?)
		ON CONFLICT (feed) DO UPDATE SET bookmark = excluded.bookmark
	`, feed, bookmark)
	if err != nil {
		return fmt.Errorf("save bookmark: %w", err)
	}
	return nil
}
