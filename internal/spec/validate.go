package spec

import (
	"errors"
	"fmt"
	"slices"
)

// Validate checks the structural invariants of a specification:
//
//  1. Label names are unique within their scope
//  2. Every match has at least one path condition
//  3. Every path condition joins to a label bound before the match
//  4. Role chains on both sides of a path condition reach the same type
//  5. Fact projections name a bound label
//
// All problems are reported together. Validate is a pure function.
func Validate(s *Specification) error {
	if s == nil {
		return errors.New("specification is nil")
	}
	v := &validator{}
	scope := make(map[string]Label)
	for _, g := range s.Given {
		v.bind(scope, g)
	}
	scope = v.validateMatches(s.Matches, scope)
	v.validateProjection(s.Projection, scope)
	return errors.Join(v.problems...)
}

// validator accumulates problems during traversal.
type validator struct {
	problems []error
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf(format, args...))
}

func (v *validator) bind(scope map[string]Label, l Label) {
	if _, exists := scope[l.Name]; exists {
		v.addProblem("label %q is bound more than once", l.Name)
	}
	if l.Type == "" {
		v.addProblem("label %q has no type", l.Name)
	}
	scope[l.Name] = l
}

// validateMatches validates matches in order and returns the extended scope.
// The caller's scope is not modified.
func (v *validator) validateMatches(matches []Match, outer map[string]Label) map[string]Label {
	scope := make(map[string]Label, len(outer)+len(matches))
	for k, l := range outer {
		scope[k] = l
	}
	for _, m := range matches {
		if len(m.PathConditions) == 0 {
			v.addProblem("match %q has no path condition joining it to a bound label", m.Unknown.Name)
		}
		for _, pc := range m.PathConditions {
			right, ok := scope[pc.LabelRight]
			if !ok {
				v.addProblem("match %q joins to unbound label %q", m.Unknown.Name, pc.LabelRight)
				continue
			}
			leftEnd := endType(m.Unknown.Type, pc.RolesLeft)
			rightEnd := endType(right.Type, pc.RolesRight)
			if leftEnd != rightEnd {
				v.addProblem("match %q compares %s with %s", m.Unknown.Name, leftEnd, rightEnd)
			}
		}
		v.bind(scope, m.Unknown)
		for _, ec := range m.ExistentialConditions {
			if len(ec.Matches) == 0 {
				v.addProblem("match %q has an empty existential condition", m.Unknown.Name)
			}
			v.validateMatches(ec.Matches, scope)
		}
	}
	return scope
}

func (v *validator) validateProjection(p Projection, scope map[string]Label) {
	switch proj := p.(type) {
	case nil:
		v.addProblem("projection is nil")
	case FactProjection:
		if _, ok := scope[proj.Label]; !ok {
			v.addProblem("projection selects unbound label %q", proj.Label)
		}
	case CompositeProjection:
		names := make([]string, 0, len(proj.Members))
		for _, m := range proj.Members {
			if slices.Contains(names, m.Name) {
				v.addProblem("projection member %q appears more than once", m.Name)
			}
			names = append(names, m.Name)
			v.validateProjection(m.Projection, scope)
		}
	case CollectionProjection:
		inner := v.validateMatches(proj.Matches, scope)
		v.validateProjection(proj.Projection, inner)
	default:
		v.addProblem("unknown projection %T", p)
	}
}

func endType(start string, roles []Role) string {
	if len(roles) == 0 {
		return start
	}
	return roles[len(roles)-1].TargetType
}
