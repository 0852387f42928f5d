package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/factdb/internal/fact"
)

// ErrGivenMismatch is returned when the number of start facts differs
// from the number of givens.
var ErrGivenMismatch = errors.New("start facts do not match the givens")

// RoleKey names a role by the fact type that declares it.
type RoleKey struct {
	DefiningType string
	Role         string
}

func (k RoleKey) String() string {
	return fmt.Sprintf("%s.%s", k.DefiningType, k.Role)
}

// Resolver maps type names and roles to store ids. Names the store has
// never seen are absent from the returned maps.
type Resolver interface {
	ResolveTypes(ctx context.Context, names []string) (map[string]int64, error)
	ResolveRoles(ctx context.Context, keys []RoleKey) (map[RoleKey]int64, error)
}

// Direction of a hop along a predecessor edge.
type Direction int

const (
	// Predecessor walks from a fact to the facts it names in a role.
	Predecessor Direction = iota
	// Successor walks from a fact to the facts that name it in a role.
	Successor
)

func (d Direction) String() string {
	if d == Successor {
		return "successor"
	}
	return "predecessor"
}

// Hop is one resolved step of a walk. The role is always declared by the
// successor side of the edge: FromType for a predecessor hop, ToType for
// a successor hop.
type Hop struct {
	Direction    Direction
	Role         string
	RoleID       int64
	DefiningType string
	FromType     string
	ToType       string
	ToTypeID     int64
}

// Source walks hops from start facts. For each start it returns the
// distinct references reached by the full walk, in a stable order.
type Source interface {
	Follow(ctx context.Context, starts []fact.Reference, hops []Hop) ([][]fact.Reference, error)
}

// Backend is everything the planner needs from a store.
type Backend interface {
	Resolver
	Source
}
