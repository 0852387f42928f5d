package fact

import (
	"fmt"
	"slices"
)

// Graph is an immutable, causally ordered set of facts.
// Every fact's predecessors appear before it in References.
type Graph struct {
	facts map[Reference]Fact
	refs  []Reference
}

// Get returns the fact with the given reference.
// Returns an error wrapping ErrNotFound if it is absent.
func (g *Graph) Get(ref Reference) (Fact, error) {
	f, ok := g.facts[ref]
	if !ok {
		return Fact{}, fmt.Errorf("graph: %s: %w", ref, ErrNotFound)
	}
	return f, nil
}

// Contains reports whether ref is in the graph.
func (g *Graph) Contains(ref Reference) bool {
	_, ok := g.facts[ref]
	return ok
}

// References returns the references in insertion order.
func (g *Graph) References() []Reference {
	return slices.Clone(g.refs)
}

// Facts returns the facts in insertion order.
func (g *Graph) Facts() []Fact {
	out := make([]Fact, len(g.refs))
	for i, ref := range g.refs {
		out[i] = g.facts[ref]
	}
	return out
}

// Len returns the number of facts.
func (g *Graph) Len() int {
	return len(g.refs)
}

// Builder assembles a Graph in causal order.
// The zero value is ready to use. A Builder is not safe for concurrent use.
type Builder struct {
	facts map[Reference]Fact
	refs  []Reference
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{facts: make(map[Reference]Fact)}
}

// Add appends f if it is not yet present and all of its predecessors are.
// A fact with a missing predecessor is dropped, not queued.
// Returns true when f was added.
func (b *Builder) Add(f Fact) bool {
	if b.facts == nil {
		b.facts = make(map[Reference]Fact)
	}
	if _, ok := b.facts[f.Reference]; ok {
		return false
	}
	for _, pred := range f.PredecessorReferences() {
		if _, ok := b.facts[pred]; !ok {
			return false
		}
	}
	b.facts[f.Reference] = f
	b.refs = append(b.refs, f.Reference)
	return true
}

// AddGraph adds every fact of g in its order.
func (b *Builder) AddGraph(g *Graph) {
	for _, f := range g.Facts() {
		b.Add(f)
	}
}

// Build returns a snapshot. Later calls to Add do not affect it.
func (b *Builder) Build() *Graph {
	facts := make(map[Reference]Fact, len(b.facts))
	for ref, f := range b.facts {
		facts[ref] = f
	}
	return &Graph{facts: facts, refs: slices.Clone(b.refs)}
}

// NewGraph builds a graph from facts that are already in causal order.
func NewGraph(facts ...Fact) *Graph {
	b := NewBuilder()
	for _, f := range facts {
		b.Add(f)
	}
	return b.Build()
}

// Sort orders a batch so that every fact follows those of its predecessors
// that are also in the batch. Duplicates are removed; facts keep their
// relative order otherwise.
func Sort(facts []Fact) []Fact {
	byRef := make(map[Reference]Fact, len(facts))
	for _, f := range facts {
		byRef[f.Reference] = f
	}

	visited := make(map[Reference]bool, len(facts))
	out := make([]Fact, 0, len(byRef))
	var visit func(f Fact)
	visit = func(f Fact) {
		if visited[f.Reference] {
			return
		}
		visited[f.Reference] = true
		for _, pred := range f.PredecessorReferences() {
			if p, ok := byRef[pred]; ok {
				visit(p)
			}
		}
		out = append(out, f)
	}
	for _, f := range facts {
		visit(f)
	}
	return out
}
