// Package schema describes the fact types a query expression may name.
//
// A Model maps short aliases (Flight) to full fact type names
// (Skylane.Flight), records each type's predecessor roles and their target
// types, and holds named conditions: boolean shorthands such as IsCancelled
// whose meaning is an existential sub-query written against `this`.
//
// Models are built in Go with NewModel or loaded from CUE or YAML files.
package schema
