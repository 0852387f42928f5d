package spec

// Projection is a sealed interface describing the shape of a result row.
// Only FactProjection, CompositeProjection, and CollectionProjection
// implement it.
type Projection interface {
	projection() // Sealed
}

// FactProjection selects the fact bound to Label.
type FactProjection struct {
	Label string
}

func (FactProjection) projection() {}

// Member is one named entry of a composite projection.
type Member struct {
	Name       string
	Projection Projection
}

// CompositeProjection builds a named record. Member order is source order.
type CompositeProjection struct {
	Members []Member
}

func (CompositeProjection) projection() {}

// CollectionProjection is a nested query evaluated once per outer row.
// Its matches may join to any outer label.
type CollectionProjection struct {
	Matches    []Match
	Projection Projection
}

func (CollectionProjection) projection() {}

// Collections returns the collection members of p keyed by dotted member
// path, in member order.
func Collections(p Projection) []NamedCollection {
	var out []NamedCollection
	collectCollections(p, "", &out)
	return out
}

// NamedCollection pairs a collection projection with its member path.
type NamedCollection struct {
	Path       string
	Collection CollectionProjection
}

func collectCollections(p Projection, prefix string, out *[]NamedCollection) {
	comp, ok := p.(CompositeProjection)
	if !ok {
		return
	}
	for _, m := range comp.Members {
		path := m.Name
		if prefix != "" {
			path = prefix + "." + m.Name
		}
		switch inner := m.Projection.(type) {
		case CollectionProjection:
			*out = append(*out, NamedCollection{Path: path, Collection: inner})
		case CompositeProjection:
			collectCollections(inner, path, out)
		}
	}
}
