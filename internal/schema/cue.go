package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// LoadCUE parses a model from CUE source:
//
//	types: {
//		Airline: name: "Skylane.Airline"
//		AirlineDay: {
//			name: "Skylane.Airline.Day"
//			predecessors: airline: "Airline"
//		}
//		Flight: {
//			name: "Skylane.Flight"
//			predecessors: airlineDay: "AirlineDay"
//			conditions: IsCancelled: "facts.OfType<FlightCancellation>(c => c.flight == this)"
//		}
//		Booking: predecessors: passengers: {type: "Passenger", many: true}
//	}
//
// Declaration order is preserved.
func LoadCUE(filename string, src []byte) (*Model, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileModel(v)
}

// LoadCUEFile reads and parses a CUE model file.
func LoadCUEFile(path string) (*Model, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return LoadCUE(path, src)
}

func compileModel(v cue.Value) (*Model, error) {
	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, &ModelError{Field: "types", Message: "types is required", Pos: v.Pos()}
	}

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	m := NewModel()
	for iter.Next() {
		t, err := compileType(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		m.add(t)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func compileType(alias string, v cue.Value) (*FactType, error) {
	t := &FactType{Alias: alias, Name: alias}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		t.Name = name
	}

	if predsVal := v.LookupPath(cue.ParsePath("predecessors")); predsVal.Exists() {
		iter, err := predsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			role, err := compileRole(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			t.Roles = append(t.Roles, role)
		}
	}

	if condsVal := v.LookupPath(cue.ParsePath("conditions")); condsVal.Exists() {
		iter, err := condsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		t.Conditions = make(map[string]string)
		for iter.Next() {
			expr, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			t.Conditions[iter.Label()] = expr
		}
	}

	return t, nil
}

// compileRole accepts either a target string or {type: string, many: bool}.
func compileRole(name string, v cue.Value) (Role, error) {
	if target, err := v.String(); err == nil {
		return Role{Name: name, Target: target}, nil
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return Role{}, &ModelError{
			Field:   "predecessors." + name,
			Message: "role needs a target type",
			Pos:     v.Pos(),
		}
	}
	target, err := typeVal.String()
	if err != nil {
		return Role{}, formatCUEError(err)
	}

	role := Role{Name: name, Target: target}
	if manyVal := v.LookupPath(cue.ParsePath("many")); manyVal.Exists() {
		many, err := manyVal.Bool()
		if err != nil {
			return Role{}, formatCUEError(err)
		}
		role.Many = many
	}
	return role, nil
}
