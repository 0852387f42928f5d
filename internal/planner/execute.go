package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/factdb/internal/fact"
	"github.com/roach88/factdb/internal/metrics"
	"github.com/roach88/factdb/internal/spec"
)

// bindings maps label names to the facts bound to them.
type bindings map[string]fact.Reference

func (b bindings) with(name string, ref fact.Reference) bindings {
	out := make(bindings, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	out[name] = ref
	return out
}

func merge(a, b bindings) bindings {
	out := make(bindings, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// row is one result of a node. Parent indexes the parent node's rows,
// or the tree's input rows for a root.
type row struct {
	Parent   int
	Ref      fact.Reference
	Bindings bindings
}

// Run plans and executes s for the given start facts.
func Run(ctx context.Context, b Backend, s *spec.Specification, starts []fact.Reference) ([]spec.Product, error) {
	if len(starts) != len(s.Given) {
		return nil, fmt.Errorf("%w: %d givens, %d starts", ErrGivenMismatch, len(s.Given), len(starts))
	}
	p, err := Build(ctx, b, s)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	return p.Execute(ctx, b, starts)
}

// Execute runs the plan against src.
func (p *Plan) Execute(ctx context.Context, src Source, starts []fact.Reference) ([]spec.Product, error) {
	if len(starts) != len(p.Given) {
		return nil, fmt.Errorf("%w: %d givens, %d starts", ErrGivenMismatch, len(p.Given), len(starts))
	}
	start := time.Now()
	defer func() { metrics.QueryDuration.Observe(time.Since(start).Seconds()) }()

	input := make(bindings, len(starts))
	for i, g := range p.Given {
		if starts[i].Type != g.Type || !p.givenResolved[i] {
			slog.Debug("given cannot match",
				"label", g.Name,
				"type", g.Type,
				"start", starts[i].String())
			metrics.ShortCircuits.Inc()
			return nil, nil
		}
		input[g.Name] = starts[i]
	}

	e := &executor{src: src}
	rows, err := e.runTree(ctx, p.Root, []bindings{input})
	if err != nil {
		return nil, err
	}
	return e.products(ctx, rows[0], p.Collections)
}

type executor struct {
	src Source
}

// runTree executes t once for each input row and returns the assembled
// bindings per input.
func (e *executor) runTree(ctx context.Context, t *Tree, inputs []bindings) ([][]bindings, error) {
	out := make([][]bindings, len(inputs))
	if len(inputs) == 0 {
		return out, nil
	}
	if t.Unsatisfiable {
		metrics.ShortCircuits.Inc()
		return out, nil
	}

	parents := make([]row, len(inputs))
	for i, in := range inputs {
		parents[i] = row{Bindings: in}
	}

	results := make([][]row, len(t.Nodes))
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range t.Roots {
		r := r
		g.Go(func() error {
			return e.runNode(gctx, t, r, parents, results)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a := newAssembler(t, results)
	for i, in := range inputs {
		out[i] = a.assemble(in, i)
	}
	return out, nil
}

// runNode computes the rows of node n for all parent rows, then runs its
// children concurrently. Each call writes only results[n].
func (e *executor) runNode(ctx context.Context, t *Tree, n int, parents []row, results [][]row) error {
	node := &t.Nodes[n]

	candidates, err := e.candidates(ctx, node, parents)
	if err != nil {
		return err
	}
	for _, f := range node.Filters {
		if candidates, err = e.filter(ctx, node, f, candidates); err != nil {
			return err
		}
	}
	for _, ex := range node.Existentials {
		if candidates, err = e.exists(ctx, ex, candidates); err != nil {
			return err
		}
	}
	results[n] = candidates

	if len(node.Children) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range node.Children {
		c := c
		g.Go(func() error {
			return e.runNode(gctx, t, c, candidates, results)
		})
	}
	return g.Wait()
}

func (e *executor) candidates(ctx context.Context, node *Node, parents []row) ([]row, error) {
	starts := make([]fact.Reference, len(parents))
	for i, p := range parents {
		starts[i] = p.Bindings[node.Anchor.From]
	}
	reached, err := e.follow(ctx, starts, node.Anchor.Hops)
	if err != nil {
		return nil, err
	}
	var out []row
	for i, refs := range reached {
		for _, ref := range refs {
			out = append(out, row{
				Parent:   i,
				Ref:      ref,
				Bindings: parents[i].Bindings.with(node.Label.Name, ref),
			})
		}
	}
	return out, nil
}

func (e *executor) filter(ctx context.Context, node *Node, w Walk, candidates []row) ([]row, error) {
	starts := make([]fact.Reference, len(candidates))
	for i, c := range candidates {
		starts[i] = c.Bindings[w.From]
	}
	reached, err := e.follow(ctx, starts, w.Hops)
	if err != nil {
		return nil, err
	}
	var out []row
	for i, c := range candidates {
		for _, ref := range reached[i] {
			if ref == c.Ref {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (e *executor) exists(ctx context.Context, ex Existential, candidates []row) ([]row, error) {
	inputs := make([]bindings, len(candidates))
	for i, c := range candidates {
		inputs[i] = c.Bindings
	}
	res, err := e.runTree(ctx, ex.Tree, inputs)
	if err != nil {
		return nil, err
	}
	var out []row
	for i, c := range candidates {
		if (len(res[i]) > 0) == ex.Exists {
			out = append(out, c)
		}
	}
	return out, nil
}

// follow walks hops from each start, checking for cancellation before
// the store call.
func (e *executor) follow(ctx context.Context, starts []fact.Reference, hops []Hop) ([][]fact.Reference, error) {
	if len(starts) == 0 {
		return nil, nil
	}
	if len(hops) == 0 {
		out := make([][]fact.Reference, len(starts))
		for i, s := range starts {
			out[i] = []fact.Reference{s}
		}
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metrics.FollowCalls.Inc()
	reached, err := e.src.Follow(ctx, starts, hops)
	if err != nil {
		return nil, fmt.Errorf("follow: %w", err)
	}
	if len(reached) != len(starts) {
		return nil, fmt.Errorf("follow: %d results for %d starts", len(reached), len(starts))
	}
	return reached, nil
}
