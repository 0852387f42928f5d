// Package memstore is an in-memory fact store. It serves tests, the
// scenario harness and short-lived processes that need no persistence.
//
// Store is safe for concurrent use. Writers are serialized by a mutex;
// queries take the read lock for each walk.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/factdb/internal/fact"
	"github.com/roach88/factdb/internal/metrics"
	"github.com/roach88/factdb/internal/planner"
	"github.com/roach88/factdb/internal/spec"
)

type edgeKey struct {
	predecessor fact.Reference
	role        int64
}

// Store keeps facts, edges and bookmarks in maps.
type Store struct {
	mu         sync.RWMutex
	facts      map[fact.Reference]fact.Fact
	order      []fact.Reference // insertion order, which is causal
	successors map[edgeKey][]fact.Reference
	types      map[string]int64
	roles      map[planner.RoleKey]int64
	bookmarks  map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		facts:      make(map[fact.Reference]fact.Fact),
		successors: make(map[edgeKey][]fact.Reference),
		types:      make(map[string]int64),
		roles:      make(map[planner.RoleKey]int64),
		bookmarks:  make(map[string]string),
	}
}

// Save stores every fact of g not already present and returns those, in
// graph order. Saving the same graph twice is a no-op.
func (s *Store) Save(ctx context.Context, g *fact.Graph) ([]fact.Fact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var saved []fact.Fact
	for _, f := range g.Facts() {
		if _, ok := s.facts[f.Reference]; ok {
			continue
		}
		s.typeID(f.Type())
		for _, p := range f.Predecessors {
			role := s.roleID(planner.RoleKey{DefiningType: f.Type(), Role: p.RoleName()})
			for _, target := range p.Targets() {
				k := edgeKey{predecessor: target, role: role}
				s.successors[k] = append(s.successors[k], f.Reference)
			}
		}
		s.facts[f.Reference] = f
		s.order = append(s.order, f.Reference)
		saved = append(saved, f)
	}
	metrics.FactsSaved.Add(float64(len(saved)))
	return saved, nil
}

func (s *Store) typeID(name string) int64 {
	id, ok := s.types[name]
	if !ok {
		id = int64(len(s.types) + 1)
		s.types[name] = id
	}
	return id
}

func (s *Store) roleID(k planner.RoleKey) int64 {
	id, ok := s.roles[k]
	if !ok {
		id = int64(len(s.roles) + 1)
		s.roles[k] = id
	}
	return id
}

// Load returns the requested facts and all of their ancestors in causal
// order. Unknown references are skipped.
func (s *Store) Load(ctx context.Context, refs []fact.Reference) (*fact.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	needed := make(map[fact.Reference]bool)
	stack := slices.Clone(refs)
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		f, ok := s.facts[ref]
		if !ok || needed[ref] {
			continue
		}
		needed[ref] = true
		stack = append(stack, f.PredecessorReferences()...)
	}

	b := fact.NewBuilder()
	for _, ref := range s.order {
		if needed[ref] {
			b.Add(s.facts[ref])
		}
	}
	return b.Build(), nil
}

// ListKnown returns the references that are stored, in request order.
func (s *Store) ListKnown(ctx context.Context, refs []fact.Reference) ([]fact.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var known []fact.Reference
	for _, ref := range refs {
		if _, ok := s.facts[ref]; ok {
			known = append(known, ref)
		}
	}
	return known, nil
}

// Query executes a specification from the given start facts.
func (s *Store) Query(ctx context.Context, starts []fact.Reference, sp *spec.Specification) ([]spec.Product, error) {
	return planner.Run(ctx, s, sp, starts)
}

// LoadBookmark returns the bookmark saved for a feed, or "".
func (s *Store) LoadBookmark(ctx context.Context, feed string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookmarks[feed], nil
}

// SaveBookmark records the bookmark for a feed.
func (s *Store) SaveBookmark(ctx context.Context, feed, bookmark string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks[feed] = bookmark
	return nil
}

// ResolveTypes returns ids for the fact types that have been stored.
func (s *Store) ResolveTypes(ctx context.Context, names []string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int64, len(names))
	for _, n := range names {
		if id, ok := s.types[n]; ok {
			out[n] = id
		}
	}
	return out, nil
}

// ResolveRoles returns ids for the roles that have been stored.
func (s *Store) ResolveRoles(ctx context.Context, keys []planner.RoleKey) (map[planner.RoleKey]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[planner.RoleKey]int64, len(keys))
	for _, k := range keys {
		if id, ok := s.roles[k]; ok {
			out[k] = id
		}
	}
	return out, nil
}

// Follow walks hops from each start. Successors come back in insertion
// order and predecessors in role order.
func (s *Store) Follow(ctx context.Context, starts []fact.Reference, hops []planner.Hop) ([][]fact.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][]fact.Reference, len(starts))
	for i, start := range starts {
		if _, ok := s.facts[start]; !ok {
			continue
		}
		frontier := []fact.Reference{start}
		for _, h := range hops {
			frontier = s.hop(frontier, h)
		}
		out[i] = frontier
	}
	return out, nil
}

func (s *Store) hop(frontier []fact.Reference, h planner.Hop) []fact.Reference {
	seen := make(map[fact.Reference]bool)
	var next []fact.Reference
	add := func(ref fact.Reference) {
		if ref.Type == h.ToType && !seen[ref] {
			if _, ok := s.facts[ref]; ok {
				seen[ref] = true
				next = append(next, ref)
			}
		}
	}
	for _, ref := range frontier {
		switch h.Direction {
		case planner.Predecessor:
			p, ok := s.facts[ref].Predecessor(h.Role)
			if !ok {
				continue
			}
			for _, target := range p.Targets() {
				add(target)
			}
		case planner.Successor:
			for _, succ := range s.successors[edgeKey{predecessor: ref, role: h.RoleID}] {
				add(succ)
			}
		}
	}
	return next
}
