package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const skylaneCUE = `
types: {
	Airline: name: "Skylane.Airline"
	AirlineDay: {
		name: "Skylane.Airline.Day"
		predecessors: airline: "Airline"
	}
	Flight: {
		name: "Skylane.Flight"
		predecessors: airlineDay: "AirlineDay"
		conditions: IsCancelled: "facts.OfType<FlightCancellation>(c => c.flight == this)"
	}
	FlightCancellation: {
		name: "Skylane.Flight.Cancellation"
		predecessors: flight: "Flight"
	}
	Group: predecessors: flights: {type: "Flight", many: true}
}
`

const skylaneYAML = `
types:
  Airline:
    name: Skylane.Airline
  AirlineDay:
    name: Skylane.Airline.Day
    predecessors:
      airline: Airline
  Flight:
    name: Skylane.Flight
    predecessors:
      airlineDay: AirlineDay
    conditions:
      IsCancelled: "facts.OfType<FlightCancellation>(c => c.flight == this)"
  FlightCancellation:
    name: Skylane.Flight.Cancellation
    predecessors:
      flight: Flight
  Group:
    predecessors:
      flights: {type: Flight, many: true}
`

func assertSkylane(t *testing.T, m *Model) {
	t.Helper()

	aliases := make([]string, 0)
	for _, ft := range m.Types() {
		aliases = append(aliases, ft.Alias)
	}
	assert.Equal(t, []string{"Airline", "AirlineDay", "Flight", "FlightCancellation", "Group"}, aliases)

	day, ok := m.Lookup("AirlineDay")
	require.True(t, ok)
	assert.Equal(t, "Skylane.Airline.Day", day.Name)

	byName, ok := m.Lookup("Skylane.Airline.Day")
	require.True(t, ok)
	assert.Same(t, day, byName)

	role, ok := day.Role("airline")
	require.True(t, ok)
	target, ok := m.Target(role)
	require.True(t, ok)
	assert.Equal(t, "Skylane.Airline", target.Name)

	flight, _ := m.Lookup("Flight")
	expr, ok := flight.Condition("IsCancelled")
	require.True(t, ok)
	assert.Equal(t, "facts.OfType<FlightCancellation>(c => c.flight == this)", expr)

	group, _ := m.Lookup("Group")
	assert.Equal(t, "Group", group.Name)
	flights, ok := group.Role("flights")
	require.True(t, ok)
	assert.True(t, flights.Many)
}

func TestLoadCUE(t *testing.T) {
	m, err := LoadCUE("skylane.cue", []byte(skylaneCUE))
	require.NoError(t, err)
	assertSkylane(t, m)
}

func TestLoadYAML(t *testing.T) {
	m, err := LoadYAML([]byte(skylaneYAML))
	require.NoError(t, err)
	assertSkylane(t, m)
}

func TestBuilderMatchesLoaders(t *testing.T) {
	m := NewModel().
		Type("Airline", "Skylane.Airline").
		Type("AirlineDay", "Skylane.Airline.Day", Predecessor("airline", "Airline")).
		Type("Flight", "Skylane.Flight",
			Predecessor("airlineDay", "AirlineDay"),
			Condition("IsCancelled", "facts.OfType<FlightCancellation>(c => c.flight == this)")).
		Type("FlightCancellation", "Skylane.Flight.Cancellation", Predecessor("flight", "Flight")).
		Type("Group", "", Predecessors("flights", "Flight"))

	require.NoError(t, m.Validate())
	assertSkylane(t, m)
}

func TestLoadCUESyntaxErrorHasPosition(t *testing.T) {
	_, err := LoadCUE("broken.cue", []byte("types: {\n\tAirline: name: \n}"))
	require.Error(t, err)

	var me *ModelError
	require.ErrorAs(t, err, &me)
	assert.True(t, me.Pos.IsValid())
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestValidateUnknownTarget(t *testing.T) {
	m := NewModel().Type("Flight", "Skylane.Flight", Predecessor("airlineDay", "AirlineDay"))
	err := m.Validate()
	require.Error(t, err)
	assert.True(t, IsModelError(err))
	assert.Contains(t, err.Error(), `unknown predecessor type "AirlineDay"`)
}

func TestValidateDuplicates(t *testing.T) {
	m := NewModel().
		Type("Airline", "Skylane.Airline").
		Type("Airline", "Skylane.Other").
		Type("Carrier", "Skylane.Airline").
		Type("Day", "", Predecessor("airline", "Airline"), Predecessor("airline", "Airline"))

	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type declared more than once")
	assert.Contains(t, err.Error(), "already declared as Airline")
	assert.Contains(t, err.Error(), "role declared more than once")
}

func TestValidateConditionMustReferToThis(t *testing.T) {
	m := NewModel().Type("Flight", "", Condition("IsCancelled", "facts.OfType<Flight>()"))
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "condition must refer to this")
}

func TestLoadMissingTypes(t *testing.T) {
	_, err := LoadYAML([]byte("other: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "types is required")

	_, err = LoadCUE("m.cue", []byte("other: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "types is required")
}

func TestLoadByExtension(t *testing.T) {
	_, err := Load("model.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}
