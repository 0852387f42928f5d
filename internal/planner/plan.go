package planner

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/factdb/internal/spec"
)

// Plan is an executable query tree for one specification.
type Plan struct {
	Given       []spec.Label
	Root        *Tree
	Collections []*Collection

	givenResolved []bool
}

// Tree is the plan of one list of matches: the top-level query, an
// existential condition, or a collection. Nodes live in an arena and
// refer to each other by index.
type Tree struct {
	Nodes []Node
	Roots []int // nodes fed directly by the tree's input rows

	// Unsatisfiable is set when some node can never match. Since every
	// node takes part in the inner join, the whole tree is then empty.
	Unsatisfiable bool
}

// Node binds one label.
type Node struct {
	Label    spec.Label
	Parent   int // -1 for roots
	Children []int

	// Anchor produces candidates; Filters keep those also reached by
	// the remaining path conditions.
	Anchor       Walk
	Filters      []Walk
	Existentials []Existential

	Unsatisfiable bool
}

// Walk is a path condition resolved into hops, starting at a bound label.
type Walk struct {
	From string
	Hops []Hop
}

// Existential is a sub-plan that must (or must not) yield a row for each
// candidate of its node.
type Existential struct {
	Exists bool
	Tree   *Tree
}

// Collection is a sub-plan evaluated once per row of the enclosing query.
type Collection struct {
	Path        string
	Tree        *Tree
	Collections []*Collection
}

// Build plans s, resolving its types and roles through r.
func Build(ctx context.Context, r Resolver, s *spec.Specification) (*Plan, error) {
	b := &builder{}
	scope := make(map[string]spec.Label)
	for _, g := range s.Given {
		scope[g.Name] = g
		b.addType(g.Type)
	}

	root, err := b.tree(s.Matches, scope)
	if err != nil {
		return nil, err
	}
	for _, m := range s.Matches {
		scope[m.Unknown.Name] = m.Unknown
	}
	colls, err := b.collections(s.Projection, scope)
	if err != nil {
		return nil, err
	}

	sess := newSession(r)
	if err := sess.resolve(ctx, b.types, b.roles); err != nil {
		return nil, err
	}

	p := &Plan{Given: s.Given, Root: root, Collections: colls}
	for _, g := range s.Given {
		_, ok := sess.typeID(g.Type)
		p.givenResolved = append(p.givenResolved, ok)
	}
	resolveTree(sess, root)
	for _, c := range colls {
		resolveCollection(sess, c)
	}
	return p, nil
}

// builder lays out trees and records every name to resolve.
type builder struct {
	types []string
	roles []RoleKey
}

func (b *builder) addType(name string) {
	if !slices.Contains(b.types, name) {
		b.types = append(b.types, name)
	}
}

func (b *builder) addRole(k RoleKey) {
	if !slices.Contains(b.roles, k) {
		b.roles = append(b.roles, k)
	}
}

func (b *builder) tree(matches []spec.Match, outer map[string]spec.Label) (*Tree, error) {
	t := &Tree{}
	scope := maps.Clone(outer)
	bound := make(map[string]int)

	for _, m := range matches {
		if len(m.PathConditions) == 0 {
			return nil, fmt.Errorf("match %q has no path condition", m.Unknown.Name)
		}
		b.addType(m.Unknown.Type)
		n := Node{Label: m.Unknown, Parent: -1}

		var refs []int
		for i, pc := range m.PathConditions {
			right, ok := scope[pc.LabelRight]
			if !ok {
				return nil, fmt.Errorf("match %q joins to unbound label %q", m.Unknown.Name, pc.LabelRight)
			}
			w := b.walk(right, m.Unknown, pc)
			if i == 0 {
				n.Anchor = w
			} else {
				n.Filters = append(n.Filters, w)
			}
			if idx, ok := bound[pc.LabelRight]; ok {
				refs = append(refs, idx)
			}
		}

		inner := maps.Clone(scope)
		inner[m.Unknown.Name] = m.Unknown
		for _, ec := range m.ExistentialConditions {
			sub, err := b.tree(ec.Matches, inner)
			if err != nil {
				return nil, err
			}
			n.Existentials = append(n.Existentials, Existential{Exists: ec.Exists, Tree: sub})
			for _, name := range outerReferences(ec.Matches) {
				if idx, ok := bound[name]; ok {
					refs = append(refs, idx)
				}
			}
		}

		idx := len(t.Nodes)
		t.Nodes = append(t.Nodes, n)
		t.attach(idx, refs)
		bound[m.Unknown.Name] = idx
		scope[m.Unknown.Name] = m.Unknown
	}
	return t, nil
}

func (b *builder) collections(p spec.Projection, scope map[string]spec.Label) ([]*Collection, error) {
	var out []*Collection
	for _, nc := range spec.Collections(p) {
		t, err := b.tree(nc.Collection.Matches, scope)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", nc.Path, err)
		}
		inner := maps.Clone(scope)
		for _, m := range nc.Collection.Matches {
			inner[m.Unknown.Name] = m.Unknown
		}
		nested, err := b.collections(nc.Collection.Projection, inner)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", nc.Path, err)
		}
		out = append(out, &Collection{Path: nc.Path, Tree: t, Collections: nested})
	}
	return out, nil
}

// walk converts a path condition into hops from the right label to the
// unknown.
func (b *builder) walk(right, unknown spec.Label, pc spec.PathCondition) Walk {
	b.addType(right.Type)
	steps := pc.Steps(unknown)
	hops := make([]Hop, 0, len(steps))
	from := right.Type
	for _, st := range steps {
		h := Hop{Role: st.RoleName(), FromType: from, ToType: st.Target()}
		switch st.(type) {
		case spec.PredecessorStep:
			h.Direction = Predecessor
			h.DefiningType = from
		case spec.SuccessorStep:
			h.Direction = Successor
			h.DefiningType = st.Target()
		}
		b.addType(h.ToType)
		b.addRole(RoleKey{DefiningType: h.DefiningType, Role: h.Role})
		hops = append(hops, h)
		from = h.ToType
	}
	return Walk{From: pc.LabelRight, Hops: hops}
}

// attach places node n beneath the deepest of the nodes it references.
// References on sibling branches are brought onto one path by moving the
// other branch beneath the current parent; its walks still start from
// labels on its new root path, so its rows are unchanged.
func (t *Tree) attach(n int, refs []int) {
	slices.Sort(refs)
	refs = slices.Compact(refs)

	parent := -1
	for _, q := range refs {
		switch {
		case parent == -1:
			parent = q
		case t.isAncestor(q, parent):
		case t.isAncestor(parent, q):
			parent = q
		default:
			t.move(t.branchTop(q, parent), parent)
			parent = q
		}
	}

	t.Nodes[n].Parent = parent
	if parent == -1 {
		t.Roots = append(t.Roots, n)
	} else {
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, n)
	}
}

// isAncestor reports whether a is b or one of its ancestors.
func (t *Tree) isAncestor(a, b int) bool {
	for n := b; n != -1; n = t.Nodes[n].Parent {
		if n == a {
			return true
		}
	}
	return false
}

// branchTop returns the highest ancestor of q that is not on p's path.
func (t *Tree) branchTop(q, p int) int {
	a := q
	for t.Nodes[a].Parent != -1 && !t.isAncestor(t.Nodes[a].Parent, p) {
		a = t.Nodes[a].Parent
	}
	return a
}

func (t *Tree) move(a, p int) {
	if old := t.Nodes[a].Parent; old == -1 {
		t.Roots = slices.DeleteFunc(t.Roots, func(r int) bool { return r == a })
	} else {
		t.Nodes[old].Children = slices.DeleteFunc(t.Nodes[old].Children, func(c int) bool { return c == a })
	}
	t.Nodes[a].Parent = p
	t.Nodes[p].Children = append(t.Nodes[p].Children, a)
}

// outerReferences lists labels the matches join to without binding them.
func outerReferences(matches []spec.Match) []string {
	bound := make(map[string]bool)
	var refs []string
	var walk func(ms []spec.Match)
	walk = func(ms []spec.Match) {
		for _, m := range ms {
			for _, pc := range m.PathConditions {
				if !bound[pc.LabelRight] {
					refs = append(refs, pc.LabelRight)
				}
			}
			bound[m.Unknown.Name] = true
			for _, ec := range m.ExistentialConditions {
				walk(ec.Matches)
			}
		}
	}
	walk(matches)
	return refs
}

func resolveTree(s *session, t *Tree) {
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if _, ok := s.typeID(n.Label.Type); !ok {
			n.Unsatisfiable = true
		}
		if !resolveWalk(s, &n.Anchor) {
			n.Unsatisfiable = true
		}
		for j := range n.Filters {
			if !resolveWalk(s, &n.Filters[j]) {
				n.Unsatisfiable = true
			}
		}
		for _, ex := range n.Existentials {
			resolveTree(s, ex.Tree)
		}
		if n.Unsatisfiable {
			t.Unsatisfiable = true
		}
	}
}

func resolveCollection(s *session, c *Collection) {
	resolveTree(s, c.Tree)
	for _, nested := range c.Collections {
		resolveCollection(s, nested)
	}
}

func resolveWalk(s *session, w *Walk) bool {
	ok := true
	for i := range w.Hops {
		h := &w.Hops[i]
		roleID, found := s.roleID(RoleKey{DefiningType: h.DefiningType, Role: h.Role})
		if !found {
			ok = false
		}
		typeID, found := s.typeID(h.ToType)
		if !found {
			ok = false
		}
		h.RoleID, h.ToTypeID = roleID, typeID
	}
	return ok
}
