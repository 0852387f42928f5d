package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Role is a predecessor role declared by a fact type.
type Role struct {
	Name   string
	Target string // alias or full name of the predecessor type
	Many   bool   // true for a list of predecessors
}

// FactType is one type of the model.
type FactType struct {
	Alias      string // short name used in expressions, e.g. "AirlineDay"
	Name       string // fact type name, e.g. "Skylane.Airline.Day"
	Roles      []Role // declaration order
	Conditions map[string]string
}

// Role returns the named role.
func (t *FactType) Role(name string) (Role, bool) {
	for _, r := range t.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}

// Condition returns the expression of a named condition.
func (t *FactType) Condition(name string) (string, bool) {
	expr, ok := t.Conditions[name]
	return expr, ok
}

// ConditionNames returns the condition names in sorted order.
func (t *FactType) ConditionNames() []string {
	names := make([]string, 0, len(t.Conditions))
	for n := range t.Conditions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TypeOption configures a FactType declared with Model.Type.
type TypeOption func(*FactType)

// Predecessor declares a single-valued role.
func Predecessor(role, target string) TypeOption {
	return func(t *FactType) {
		t.Roles = append(t.Roles, Role{Name: role, Target: target})
	}
}

// Predecessors declares a many-valued role.
func Predecessors(role, target string) TypeOption {
	return func(t *FactType) {
		t.Roles = append(t.Roles, Role{Name: role, Target: target, Many: true})
	}
}

// Condition declares a named condition. The expression is a query over
// `facts` that refers to the owning fact as `this`, for example:
//
//	facts.OfType<FlightCancellation>(c => c.flight == this)
func Condition(name, expr string) TypeOption {
	return func(t *FactType) {
		if t.Conditions == nil {
			t.Conditions = make(map[string]string)
		}
		t.Conditions[name] = expr
	}
}

// Model is a set of fact types addressable by alias or full name.
type Model struct {
	types   []*FactType
	byAlias map[string]*FactType
	byName  map[string]*FactType
	errs    []error
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		byAlias: make(map[string]*FactType),
		byName:  make(map[string]*FactType),
	}
}

// Type declares a fact type and returns the model for chaining.
// An empty name defaults to the alias. Declaration errors are reported
// by Validate.
func (m *Model) Type(alias, name string, opts ...TypeOption) *Model {
	if name == "" {
		name = alias
	}
	t := &FactType{Alias: alias, Name: name}
	for _, opt := range opts {
		opt(t)
	}
	m.add(t)
	return m
}

func (m *Model) add(t *FactType) {
	if _, dup := m.byAlias[t.Alias]; dup {
		m.errs = append(m.errs, &ModelError{Field: t.Alias, Message: "type declared more than once"})
		return
	}
	if other, dup := m.byName[t.Name]; dup {
		m.errs = append(m.errs, &ModelError{
			Field:   t.Alias,
			Message: fmt.Sprintf("fact type %s is already declared as %s", t.Name, other.Alias),
		})
		return
	}
	m.types = append(m.types, t)
	m.byAlias[t.Alias] = t
	m.byName[t.Name] = t
}

// Lookup finds a type by alias or full name.
func (m *Model) Lookup(name string) (*FactType, bool) {
	if t, ok := m.byAlias[name]; ok {
		return t, true
	}
	t, ok := m.byName[name]
	return t, ok
}

// Types returns the types in declaration order.
func (m *Model) Types() []*FactType {
	return append([]*FactType(nil), m.types...)
}

// Target resolves the type a role points at.
func (m *Model) Target(r Role) (*FactType, bool) {
	return m.Lookup(r.Target)
}

// Validate reports declaration errors and roles whose target is not declared.
func (m *Model) Validate() error {
	errs := append([]error(nil), m.errs...)
	for _, t := range m.types {
		seen := make(map[string]bool)
		for _, r := range t.Roles {
			if seen[r.Name] {
				errs = append(errs, &ModelError{
					Field:   t.Alias + "." + r.Name,
					Message: "role declared more than once",
				})
			}
			seen[r.Name] = true
			if _, ok := m.Lookup(r.Target); !ok {
				errs = append(errs, &ModelError{
					Field:   t.Alias + "." + r.Name,
					Message: fmt.Sprintf("unknown predecessor type %q", r.Target),
				})
			}
		}
		for name, expr := range t.Conditions {
			if !strings.Contains(expr, "this") {
				errs = append(errs, &ModelError{
					Field:   t.Alias + "." + name,
					Message: "condition must refer to this",
				})
			}
		}
	}
	return errors.Join(errs...)
}
