package planner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/factdb/internal/spec"
)

// assembler zips a tree's result rows back into complete bindings.
type assembler struct {
	tree     *Tree
	results  [][]row
	byParent []map[int][]int // node -> parent row -> own rows, in order
}

func newAssembler(t *Tree, results [][]row) *assembler {
	a := &assembler{tree: t, results: results, byParent: make([]map[int][]int, len(t.Nodes))}
	for n, rows := range results {
		idx := make(map[int][]int)
		for i, r := range rows {
			idx[r.Parent] = append(idx[r.Parent], i)
		}
		a.byParent[n] = idx
	}
	return a
}

// assemble returns the complete bindings for input row i: the cross
// product of the tree's root branches, each expanded downward.
func (a *assembler) assemble(in bindings, i int) []bindings {
	combos := []bindings{in}
	for _, r := range a.tree.Roots {
		branch := a.branch(r, i)
		if len(branch) == 0 {
			return nil
		}
		combos = cross(combos, branch)
	}
	return combos
}

// branch expands every row of node n whose parent row is p.
func (a *assembler) branch(n, p int) []bindings {
	var out []bindings
	for _, r := range a.byParent[n][p] {
		out = append(out, a.expand(n, r)...)
	}
	return out
}

// expand joins row r of node n with each of its child branches. A row
// with any empty child branch drops out.
func (a *assembler) expand(n, r int) []bindings {
	combos := []bindings{a.results[n][r].Bindings}
	for _, c := range a.tree.Nodes[n].Children {
		branch := a.branch(c, r)
		if len(branch) == 0 {
			return nil
		}
		combos = cross(combos, branch)
	}
	return combos
}

func cross(left, right []bindings) []bindings {
	out := make([]bindings, 0, len(left)*len(right))
	for _, l := range left {
		for _, r := range right {
			out = append(out, merge(l, r))
		}
	}
	return out
}

// products turns assembled rows into Products and fills in each
// collection member, evaluating sibling collections concurrently.
func (e *executor) products(ctx context.Context, rows []bindings, colls []*Collection) ([]spec.Product, error) {
	products := make([]spec.Product, len(rows))
	for i, b := range rows {
		products[i] = spec.NewProduct(b)
	}
	if len(colls) == 0 || len(rows) == 0 {
		return products, nil
	}

	members := make([][][]spec.Product, len(colls))
	g, gctx := errgroup.WithContext(ctx)
	for ci, c := range colls {
		ci, c := ci, c
		g.Go(func() error {
			res, err := e.runTree(gctx, c.Tree, rows)
			if err != nil {
				return err
			}
			var flat []bindings
			for _, children := range res {
				flat = append(flat, children...)
			}
			children, err := e.products(gctx, flat, c.Collections)
			if err != nil {
				return err
			}
			split := make([][]spec.Product, len(rows))
			offset := 0
			for i, r := range res {
				split[i] = children[offset : offset+len(r) : offset+len(r)]
				offset += len(r)
			}
			members[ci] = split
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for ci, c := range colls {
		for i := range products {
			products[i] = products[i].With(c.Path, spec.CollectionElement{Products: members[ci][i]})
		}
	}
	return products, nil
}
