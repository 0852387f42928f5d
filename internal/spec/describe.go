package spec

import (
	"strings"
)

const indentUnit = "    "

// String renders the specification in its canonical diagnostic form:
//
//	(airline: Skylane.Airline) {
//	    flight: Skylane.Flight [
//	        flight->airlineDay: Skylane.Airline.Day->airline: Skylane.Airline = airline
//	    ]
//	}
//
// The output is byte-for-byte stable and is asserted literally in tests.
func (s *Specification) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, g := range s.Given {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(g.Name)
		b.WriteString(": ")
		b.WriteString(g.Type)
	}
	b.WriteString(") {\n")
	describeMatches(&b, s.Matches, 1)
	b.WriteByte('}')
	describeProjection(&b, s.Projection, lastUnknown(s.Matches), 0)
	b.WriteByte('\n')
	return b.String()
}

func describeMatches(b *strings.Builder, matches []Match, depth int) {
	for _, m := range matches {
		describeMatch(b, m, depth)
	}
}

func describeMatch(b *strings.Builder, m Match, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	b.WriteString(indent)
	b.WriteString(m.Unknown.Name)
	b.WriteString(": ")
	b.WriteString(m.Unknown.Type)
	b.WriteString(" [\n")
	for _, pc := range m.PathConditions {
		b.WriteString(indent)
		b.WriteString(indentUnit)
		b.WriteString(m.Unknown.Name)
		describeRoles(b, pc.RolesLeft)
		b.WriteString(" = ")
		b.WriteString(pc.LabelRight)
		describeRoles(b, pc.RolesRight)
		b.WriteByte('\n')
	}
	for _, ec := range m.ExistentialConditions {
		b.WriteString(indent)
		b.WriteString(indentUnit)
		if !ec.Exists {
			b.WriteByte('!')
		}
		b.WriteString("E {\n")
		describeMatches(b, ec.Matches, depth+2)
		b.WriteString(indent)
		b.WriteString(indentUnit)
		b.WriteString("}\n")
	}
	b.WriteString(indent)
	b.WriteString("]\n")
}

func describeRoles(b *strings.Builder, roles []Role) {
	for _, r := range roles {
		b.WriteString("->")
		b.WriteString(r.Name)
		b.WriteString(": ")
		b.WriteString(r.TargetType)
	}
}

// describeProjection writes the projection suffix that follows a closing
// brace. Selecting the last matched label is the default and is omitted.
func describeProjection(b *strings.Builder, p Projection, last string, depth int) {
	switch proj := p.(type) {
	case nil:
	case FactProjection:
		if proj.Label == last {
			return
		}
		b.WriteString(" => ")
		b.WriteString(proj.Label)
	case CompositeProjection:
		b.WriteString(" => ")
		describeComposite(b, proj, depth)
	case CollectionProjection:
		b.WriteString(" => ")
		describeCollection(b, proj, depth)
	}
}

func describeComposite(b *strings.Builder, c CompositeProjection, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	b.WriteString("{\n")
	for _, m := range c.Members {
		b.WriteString(indent)
		b.WriteString(indentUnit)
		b.WriteString(m.Name)
		b.WriteString(" = ")
		switch inner := m.Projection.(type) {
		case FactProjection:
			b.WriteString(inner.Label)
		case CompositeProjection:
			describeComposite(b, inner, depth+1)
		case CollectionProjection:
			describeCollection(b, inner, depth+1)
		}
		b.WriteByte('\n')
	}
	b.WriteString(indent)
	b.WriteByte('}')
}

func describeCollection(b *strings.Builder, c CollectionProjection, depth int) {
	b.WriteString("{\n")
	describeMatches(b, c.Matches, depth+1)
	b.WriteString(strings.Repeat(indentUnit, depth))
	b.WriteByte('}')
	describeProjection(b, c.Projection, lastUnknown(c.Matches), depth)
}

func lastUnknown(matches []Match) string {
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1].Unknown.Name
}
