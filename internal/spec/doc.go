// Package spec defines the specification AST: the declarative description
// of a query graph over facts.
//
// A Specification starts from given labels, binds further labels through
// Matches, filters them with existential conditions, and shapes each
// result row with a Projection. Specifications are immutable once built;
// the compiler produces them and the planner consumes them.
//
// The variant types (Step, Projection, Element) are sealed interfaces so
// that consumers can switch over them exhaustively.
package spec
