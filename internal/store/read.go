package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/factdb/internal/fact"
	"github.com/roach88/factdb/internal/planner"
	"github.com/roach88/factdb/internal/querysql"
	"github.com/roach88/factdb/internal/spec"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// lookupFactID returns the fact_id of ref, or 0 if it is not stored.
func lookupFactID(ctx context.Context, q queryer, ref fact.Reference) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		SELECT f.fact_id
		FROM fact f
		JOIN fact_type t ON t.fact_type_id = f.fact_type_id
		WHERE t.name = ? AND f.hash = ?
	`, ref.Type, ref.Hash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup fact %s: %w", ref, err)
	}
	return id, nil
}

// Load returns the requested facts together with all of their ancestors,
// in causal order. References that are not stored are skipped.
func (s *Store) Load(ctx context.Context, refs []fact.Reference) (*fact.Graph, error) {
	var ids []any
	for _, ref := range refs {
		id, err := lookupFactID(ctx, s.db, ref)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		if id != 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return fact.NewGraph(), nil
	}

	in := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := append(append([]any{}, ids...), ids...)
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, f.data
		FROM fact f
		JOIN fact_type t ON t.fact_type_id = f.fact_type_id
		WHERE f.fact_id IN (`+in+`)
		   OR f.fact_id IN (SELECT ancestor_fact_id FROM ancestor WHERE fact_id IN (`+in+`))
		ORDER BY f.fact_id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("load: query facts: %w", err)
	}
	defer rows.Close()

	b := fact.NewBuilder()
	for rows.Next() {
		var typ, data string
		if err := rows.Scan(&typ, &data); err != nil {
			return nil, fmt.Errorf("load: scan fact: %w", err)
		}
		f, err := fact.Decode(typ, data)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		b.Add(f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load: iterate facts: %w", err)
	}
	return b.Build(), nil
}

// ListKnown returns the references that are stored, in request order.
func (s *Store) ListKnown(ctx context.Context, refs []fact.Reference) ([]fact.Reference, error) {
	known := []fact.Reference{}
	for _, ref := range refs {
		id, err := lookupFactID(ctx, s.db, ref)
		if err != nil {
			return nil, fmt.Errorf("list known: %w", err)
		}
		if id != 0 {
			known = append(known, ref)
		}
	}
	return known, nil
}

// LoadBookmark returns the bookmark saved for a feed, or "" if none.
func (s *Store) LoadBookmark(ctx context.Context, feed string) (string, error) {
	var bookmark string
	err := s.db.QueryRowContext(ctx, `SELECT bookmark FROM bookmark WHERE feed = ?`, feed).Scan(&bookmark)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load bookmark: %w", err)
	}
	return bookmark, nil
}

// Query executes a specification from the given start facts.
func (s *Store) Query(ctx context.Context, starts []fact.Reference, sp *spec.Specification) ([]spec.Product, error) {
	return planner.Run(ctx, s, sp, starts)
}

// ResolveTypes returns ids for the fact types that have been stored.
func (s *Store) ResolveTypes(ctx context.Context, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	if len(names) == 0 {
		return out, nil
	}
	query, args, err := s.compiler.CompileTypeLookup(names)
	if err != nil {
		return nil, fmt.Errorf("resolve types: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("resolve types: scan: %w", err)
		}
		out[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve types: %w", err)
	}
	return out, nil
}

// ResolveRoles returns ids for the roles that have been stored.
func (s *Store) ResolveRoles(ctx context.Context, keys []planner.RoleKey) (map[planner.RoleKey]int64, error) {
	out := make(map[planner.RoleKey]int64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	query, args, err := s.compiler.CompileRoleLookup(keys)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k planner.RoleKey
		var id int64
		if err := rows.Scan(&k.DefiningType, &k.Role, &id); err != nil {
			return nil, fmt.Errorf("resolve roles: scan: %w", err)
		}
		out[k] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	return out, nil
}

// Follow walks hops from each start, one statement per batch of
// querysql.MaxStarts starts. Results per start are in insertion order.
func (s *Store) Follow(ctx context.Context, starts []fact.Reference, hops []planner.Hop) ([][]fact.Reference, error) {
	out := make([][]fact.Reference, len(starts))
	if len(starts) == 0 || len(hops) == 0 {
		return out, nil
	}
	toType := hops[len(hops)-1].ToType

	for offset := 0; offset < len(starts); offset += querysql.MaxStarts {
		end := min(offset+querysql.MaxStarts, len(starts))
		if err := s.follow(ctx, starts[offset:end], hops, toType, out[offset:end]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) follow(ctx context.Context, starts []fact.Reference, hops []planner.Hop, toType string, out [][]fact.Reference) error {
	query, args, err := s.compiler.CompileWalk(starts, hops)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idx int
		var factID int64
		var hash string
		if err := rows.Scan(&idx, &factID, &hash); err != nil {
			return fmt.Errorf("follow: scan: %w", err)
		}
		out[idx] = append(out[idx], fact.Reference{Type: toType, Hash: hash})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}
