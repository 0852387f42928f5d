package spec

import (
	"slices"
)

// Label is a named query variable bound to facts of one type.
type Label struct {
	Name string
	Type string
}

// Role is one predecessor hop in a role chain: the role name and the type
// of the predecessor it reaches.
type Role struct {
	Name       string
	TargetType string
}

// Step is a sealed interface over join hops.
// Only PredecessorStep and SuccessorStep implement it.
type Step interface {
	step() // Sealed

	// RoleName returns the role traversed by the hop.
	RoleName() string

	// Target returns the fact type reached by the hop.
	Target() string
}

// PredecessorStep walks from a fact to its predecessor in Role.
type PredecessorStep struct {
	Role       string
	TargetType string
}

func (PredecessorStep) step()              {}
func (s PredecessorStep) RoleName() string { return s.Role }
func (s PredecessorStep) Target() string   { return s.TargetType }

// SuccessorStep walks from a fact to the successors that name it in Role.
type SuccessorStep struct {
	Role       string
	TargetType string
}

func (SuccessorStep) step()              {}
func (s SuccessorStep) RoleName() string { return s.Role }
func (s SuccessorStep) Target() string   { return s.TargetType }

// PathCondition is a join: the role chain RolesLeft, rooted at the match's
// unknown label, reaches the same fact as the chain RolesRight rooted at
// the already bound label LabelRight.
//
// Example: flight->airlineDay: Skylane.Airline.Day->airline: Skylane.Airline = airline
//
//	PathCondition{
//	  RolesLeft:  []Role{{"airlineDay", "Skylane.Airline.Day"}, {"airline", "Skylane.Airline"}},
//	  LabelRight: "airline",
//	}
type PathCondition struct {
	RolesLeft  []Role
	LabelRight string
	RolesRight []Role
}

// Steps returns the walk from LabelRight to the unknown: predecessor hops
// up the right chain, then the left chain reflected into successor hops.
func (c PathCondition) Steps(unknown Label) []Step {
	steps := make([]Step, 0, len(c.RolesRight)+len(c.RolesLeft))
	for _, r := range c.RolesRight {
		steps = append(steps, PredecessorStep{Role: r.Name, TargetType: r.TargetType})
	}
	for i := len(c.RolesLeft) - 1; i >= 0; i-- {
		target := unknown.Type
		if i > 0 {
			target = c.RolesLeft[i-1].TargetType
		}
		steps = append(steps, SuccessorStep{Role: c.RolesLeft[i].Name, TargetType: target})
	}
	return steps
}

// ExistentialCondition requires that at least one (Exists) or no (!Exists)
// set of facts satisfies the nested matches. The nested matches may join to
// any label in scope, including the unknown of the enclosing match.
type ExistentialCondition struct {
	Exists  bool
	Matches []Match
}

// Match binds a new label. Conditions are kept in source order.
type Match struct {
	Unknown               Label
	PathConditions        []PathCondition
	ExistentialConditions []ExistentialCondition
}

// Specification is a complete query: givens, matches, and the shape of
// each result row.
type Specification struct {
	Given      []Label
	Matches    []Match
	Projection Projection
}

// Labels returns every label bound at the top level, givens first.
func (s *Specification) Labels() []Label {
	labels := slices.Clone(s.Given)
	for _, m := range s.Matches {
		labels = append(labels, m.Unknown)
	}
	return labels
}

// Types returns the distinct fact types the specification can touch,
// including nested conditions and collections, in first-seen order.
func (s *Specification) Types() []string {
	seen := make(map[string]bool)
	var types []string
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	for _, g := range s.Given {
		add(g.Type)
	}
	var walkMatches func(ms []Match)
	var walkProjection func(p Projection)
	walkMatches = func(ms []Match) {
		for _, m := range ms {
			add(m.Unknown.Type)
			for _, pc := range m.PathConditions {
				for _, r := range pc.RolesLeft {
					add(r.TargetType)
				}
				for _, r := range pc.RolesRight {
					add(r.TargetType)
				}
			}
			for _, ec := range m.ExistentialConditions {
				walkMatches(ec.Matches)
			}
		}
	}
	walkProjection = func(p Projection) {
		switch proj := p.(type) {
		case CompositeProjection:
			for _, mem := range proj.Members {
				walkProjection(mem.Projection)
			}
		case CollectionProjection:
			walkMatches(proj.Matches)
			walkProjection(proj.Projection)
		}
	}
	walkMatches(s.Matches)
	walkProjection(s.Projection)
	return types
}
