// Package querysql compiles planner walks into parameterized SQLite
// statements over the fact store schema.
//
// Every statement orders its rows explicitly, and every value is bound
// as a parameter, never interpolated.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/factdb/internal/fact"
	"github.com/roach88/factdb/internal/planner"
)

// MaxStarts bounds the start facts of one walk statement, keeping the
// parameter count below SQLite's limit.
const MaxStarts = 250

// Compiler builds walk and lookup statements.
type Compiler struct{}

// NewCompiler creates a new Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// CompileWalk converts a walk into one statement returning
// (start_index, fact_id, hash) rows. Rows are distinct per start and
// ordered by start index, then by the reached fact's insertion order.
//
// The start facts are matched by type name and hash; each hop joins the
// edge table in the hop's direction and checks the reached fact's type.
func (c *Compiler) CompileWalk(starts []fact.Reference, hops []planner.Hop) (string, []any, error) {
	if len(starts) == 0 {
		return "", nil, fmt.Errorf("walk has no start facts")
	}
	if len(starts) > MaxStarts {
		return "", nil, fmt.Errorf("walk has %d start facts, limit is %d", len(starts), MaxStarts)
	}
	if len(hops) == 0 {
		return "", nil, fmt.Errorf("walk has no hops")
	}

	var b strings.Builder
	params := make([]any, 0, len(starts)*3+len(hops)*2)

	b.WriteString("WITH start(idx, hash, type) AS (VALUES ")
	for i, s := range starts {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		params = append(params, i, s.Hash, s.Type)
	}
	b.WriteString(")\n")

	last := len(hops)
	fmt.Fprintf(&b, "SELECT DISTINCT s.idx, f%d.fact_id, f%d.hash\n", last, last)
	b.WriteString("FROM start s\n")
	b.WriteString("JOIN fact_type t0 ON t0.name = s.type\n")
	b.WriteString("JOIN fact f0 ON f0.fact_type_id = t0.fact_type_id AND f0.hash = s.hash\n")

	for i, h := range hops {
		n := i + 1
		switch h.Direction {
		case planner.Predecessor:
			fmt.Fprintf(&b, "JOIN edge e%d ON e%d.successor_fact_id = f%d.fact_id AND e%d.role_id = ?\n", n, n, i, n)
			fmt.Fprintf(&b, "JOIN fact f%d ON f%d.fact_id = e%d.predecessor_fact_id AND f%d.fact_type_id = ?\n", n, n, n, n)
		case planner.Successor:
			fmt.Fprintf(&b, "JOIN edge e%d ON e%d.predecessor_fact_id = f%d.fact_id AND e%d.role_id = ?\n", n, n, i, n)
			fmt.Fprintf(&b, "JOIN fact f%d ON f%d.fact_id = e%d.successor_fact_id AND f%d.fact_type_id = ?\n", n, n, n, n)
		default:
			return "", nil, fmt.Errorf("hop %d: unsupported direction %v", i, h.Direction)
		}
		params = append(params, h.RoleID, h.ToTypeID)
	}

	fmt.Fprintf(&b, "ORDER BY s.idx ASC, f%d.fact_id ASC", last)
	return b.String(), params, nil
}

// CompileTypeLookup returns a statement selecting (name, fact_type_id)
// for the named types, ordered by name.
func (c *Compiler) CompileTypeLookup(names []string) (string, []any, error) {
	if len(names) == 0 {
		return "", nil, fmt.Errorf("type lookup has no names")
	}
	params := make([]any, len(names))
	for i, n := range names {
		params[i] = n
	}
	sql := "SELECT name, fact_type_id FROM fact_type WHERE name IN (" +
		placeholders(len(names)) + ") ORDER BY name COLLATE BINARY ASC"
	return sql, params, nil
}

// CompileRoleLookup returns a statement selecting (type name, role name,
// role_id) for the given roles, ordered by role_id.
func (c *Compiler) CompileRoleLookup(keys []planner.RoleKey) (string, []any, error) {
	if len(keys) == 0 {
		return "", nil, fmt.Errorf("role lookup has no roles")
	}
	var b strings.Builder
	params := make([]any, 0, len(keys)*2)
	b.WriteString("SELECT t.name, r.name, r.role_id FROM role r\n")
	b.WriteString("JOIN fact_type t ON t.fact_type_id = r.defining_fact_type_id\n")
	b.WriteString("WHERE ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteString("(t.name = ? AND r.name = ?)")
		params = append(params, k.DefiningType, k.Role)
	}
	b.WriteString("\nORDER BY r.role_id ASC")
	return b.String(), params, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
