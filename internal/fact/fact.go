package fact

import (
	"fmt"
	"slices"
	"strings"
)

// Reference is the content-derived identity of a fact.
type Reference struct {
	Type string `json:"type"`
	Hash string `json:"hash"`
}

// String renders the reference as "type:hash".
func (r Reference) String() string {
	return r.Type + ":" + r.Hash
}

// IsZero reports whether r is the zero reference.
func (r Reference) IsZero() bool {
	return r.Type == "" && r.Hash == ""
}

// ParseReference parses the "type:hash" form produced by String.
// Base64 hashes never contain a colon, so the last colon separates the parts.
func ParseReference(s string) (Reference, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 || i == len(s)-1 {
		return Reference{}, malformed("reference %q is not of the form type:hash", s)
	}
	return Reference{Type: s[:i], Hash: s[i+1:]}, nil
}

// Field is a named field value.
type Field struct {
	Name  string
	Value Value
}

// Predecessor is a sealed interface over predecessor edges.
// Only Single and Multiple implement it.
type Predecessor interface {
	predecessor() // Sealed

	// RoleName returns the role of the edge.
	RoleName() string

	// Targets returns the referenced predecessors in order.
	Targets() []Reference
}

// Single is a role pointing at exactly one predecessor.
type Single struct {
	Role      string
	Reference Reference
}

func (Single) predecessor()           {}
func (s Single) RoleName() string     { return s.Role }
func (s Single) Targets() []Reference { return []Reference{s.Reference} }

// Multiple is a role pointing at an ordered list of predecessors.
type Multiple struct {
	Role       string
	References []Reference
}

func (Multiple) predecessor()           {}
func (m Multiple) RoleName() string     { return m.Role }
func (m Multiple) Targets() []Reference { return slices.Clone(m.References) }

// Fact is an immutable, content-addressed record.
// Construct facts with New or Make; the zero value is not a valid fact.
type Fact struct {
	Reference    Reference
	Fields       []Field       // sorted by name
	Predecessors []Predecessor // sorted by role

	canonical string
}

// New sorts fields and predecessors, canonicalizes them, and computes the
// reference. Construction order never affects the result.
func New(factType string, fields []Field, predecessors []Predecessor) (Fact, error) {
	if factType == "" {
		return Fact{}, malformed("fact type is empty")
	}

	sortedFields := slices.Clone(fields)
	slices.SortStableFunc(sortedFields, func(a, b Field) int { return compareKeys(a.Name, b.Name) })
	sortedPreds := slices.Clone(predecessors)
	slices.SortStableFunc(sortedPreds, func(a, b Predecessor) int { return compareKeys(a.RoleName(), b.RoleName()) })

	canonical, err := Canonicalize(sortedFields, sortedPreds)
	if err != nil {
		return Fact{}, fmt.Errorf("fact %s: %w", factType, err)
	}

	return Fact{
		Reference:    Reference{Type: factType, Hash: ComputeHash(canonical)},
		Fields:       sortedFields,
		Predecessors: sortedPreds,
		canonical:    canonical,
	}, nil
}

// Make builds a fact from a map of plain Go field values.
func Make(factType string, fields map[string]any, predecessors ...Predecessor) (Fact, error) {
	fs := make([]Field, 0, len(fields))
	for name, v := range fields {
		val, err := valueOf(name, v)
		if err != nil {
			return Fact{}, fmt.Errorf("fact %s: %w", factType, err)
		}
		fs = append(fs, Field{Name: name, Value: val})
	}
	return New(factType, fs, predecessors)
}

// MustMake is like Make but panics on error. Use only in tests and
// for statically known facts.
func MustMake(factType string, fields map[string]any, predecessors ...Predecessor) Fact {
	f, err := Make(factType, fields, predecessors...)
	if err != nil {
		panic(err)
	}
	return f
}

// Type returns the fact type name.
func (f Fact) Type() string { return f.Reference.Type }

// Canonical returns the canonical JSON form the hash was computed over.
func (f Fact) Canonical() string { return f.canonical }

// Field returns the value of the named field.
func (f Fact) Field(name string) (Value, bool) {
	for _, fld := range f.Fields {
		if fld.Name == name {
			return fld.Value, true
		}
	}
	return nil, false
}

// Predecessor returns the edge with the given role.
func (f Fact) Predecessor(role string) (Predecessor, bool) {
	for _, p := range f.Predecessors {
		if p.RoleName() == role {
			return p, true
		}
	}
	return nil, false
}

// PredecessorReferences returns every predecessor reference in role order.
func (f Fact) PredecessorReferences() []Reference {
	var refs []Reference
	for _, p := range f.Predecessors {
		refs = append(refs, p.Targets()...)
	}
	return refs
}
