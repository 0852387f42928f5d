package spec

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	airline   = Label{Name: "airline", Type: "Skylane.Airline"}
	flight    = Label{Name: "flight", Type: "Skylane.Flight"}
	booking   = Label{Name: "booking", Type: "Skylane.Booking"}
	cancelled = Label{Name: "flightCancellation", Type: "Skylane.Flight.Cancellation"}
)

func flightsOfAirline() Match {
	return Match{
		Unknown: flight,
		PathConditions: []PathCondition{{
			RolesLeft: []Role{
				{Name: "airlineDay", TargetType: "Skylane.Airline.Day"},
				{Name: "airline", TargetType: "Skylane.Airline"},
			},
			LabelRight: "airline",
		}},
	}
}

func bookingsOfFlight() Match {
	return Match{
		Unknown: booking,
		PathConditions: []PathCondition{{
			RolesLeft:  []Role{{Name: "flight", TargetType: "Skylane.Flight"}},
			LabelRight: "flight",
		}},
	}
}

func notCancelled() ExistentialCondition {
	return ExistentialCondition{
		Exists: false,
		Matches: []Match{{
			Unknown: cancelled,
			PathConditions: []PathCondition{{
				RolesLeft:  []Role{{Name: "flight", TargetType: "Skylane.Flight"}},
				LabelRight: "flight",
			}},
		}},
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestDescribeFlightsOfAirline(t *testing.T) {
	s := &Specification{
		Given:      []Label{airline},
		Matches:    []Match{flightsOfAirline()},
		Projection: FactProjection{Label: "flight"},
	}

	assert.Equal(t,
		"(airline: Skylane.Airline) {\n"+
			"    flight: Skylane.Flight [\n"+
			"        flight->airlineDay: Skylane.Airline.Day->airline: Skylane.Airline = airline\n"+
			"    ]\n"+
			"}\n",
		s.String())
}

func TestDescribePredecessorShorthand(t *testing.T) {
	s := &Specification{
		Given: []Label{cancelled},
		Matches: []Match{{
			Unknown: flight,
			PathConditions: []PathCondition{{
				LabelRight: "flightCancellation",
				RolesRight: []Role{{Name: "flight", TargetType: "Skylane.Flight"}},
			}},
		}},
		Projection: FactProjection{Label: "flight"},
	}

	assert.Equal(t,
		"(flightCancellation: Skylane.Flight.Cancellation) {\n"+
			"    flight: Skylane.Flight [\n"+
			"        flight = flightCancellation->flight: Skylane.Flight\n"+
			"    ]\n"+
			"}\n",
		s.String())
}

func TestDescribeNegativeExistential(t *testing.T) {
	m := flightsOfAirline()
	m.ExistentialConditions = []ExistentialCondition{notCancelled()}
	s := &Specification{
		Given:      []Label{airline},
		Matches:    []Match{m},
		Projection: FactProjection{Label: "flight"},
	}

	newGoldie(t).Assert(t, "negative_existential", []byte(s.String()))
}

func TestDescribeCompositeWithCollection(t *testing.T) {
	s := &Specification{
		Given:   []Label{airline},
		Matches: []Match{flightsOfAirline()},
		Projection: CompositeProjection{Members: []Member{
			{Name: "flight", Projection: FactProjection{Label: "flight"}},
			{Name: "bookings", Projection: CollectionProjection{
				Matches:    []Match{bookingsOfFlight()},
				Projection: FactProjection{Label: "booking"},
			}},
		}},
	}

	newGoldie(t).Assert(t, "composite_collection", []byte(s.String()))
}

func TestDescribeProjectsGiven(t *testing.T) {
	s := &Specification{
		Given:      []Label{airline},
		Matches:    []Match{flightsOfAirline()},
		Projection: FactProjection{Label: "airline"},
	}

	assert.Contains(t, s.String(), "\n} => airline\n")
}

func TestPathConditionSteps(t *testing.T) {
	pc := flightsOfAirline().PathConditions[0]
	assert.Equal(t, []Step{
		SuccessorStep{Role: "airline", TargetType: "Skylane.Airline.Day"},
		SuccessorStep{Role: "airlineDay", TargetType: "Skylane.Flight"},
	}, pc.Steps(flight))

	shorthand := PathCondition{
		LabelRight: "flightCancellation",
		RolesRight: []Role{{Name: "flight", TargetType: "Skylane.Flight"}},
	}
	assert.Equal(t, []Step{
		PredecessorStep{Role: "flight", TargetType: "Skylane.Flight"},
	}, shorthand.Steps(flight))

	sibling := PathCondition{
		RolesLeft:  []Role{{Name: "flight", TargetType: "Skylane.Flight"}},
		LabelRight: "flightCancellation",
		RolesRight: []Role{{Name: "flight", TargetType: "Skylane.Flight"}},
	}
	assert.Equal(t, []Step{
		PredecessorStep{Role: "flight", TargetType: "Skylane.Flight"},
		SuccessorStep{Role: "flight", TargetType: "Skylane.Booking"},
	}, sibling.Steps(booking))
}

func TestTypes(t *testing.T) {
	m := flightsOfAirline()
	m.ExistentialConditions = []ExistentialCondition{notCancelled()}
	s := &Specification{
		Given:   []Label{airline},
		Matches: []Match{m},
		Projection: CompositeProjection{Members: []Member{
			{Name: "bookings", Projection: CollectionProjection{
				Matches:    []Match{bookingsOfFlight()},
				Projection: FactProjection{Label: "booking"},
			}},
		}},
	}

	assert.Equal(t, []string{
		"Skylane.Airline",
		"Skylane.Flight",
		"Skylane.Airline.Day",
		"Skylane.Flight.Cancellation",
		"Skylane.Booking",
	}, s.Types())
}

func TestValidate(t *testing.T) {
	valid := &Specification{
		Given:      []Label{airline},
		Matches:    []Match{flightsOfAirline()},
		Projection: FactProjection{Label: "flight"},
	}
	require.NoError(t, Validate(valid))

	tests := []struct {
		name    string
		spec    *Specification
		message string
	}{
		{
			name: "missing join",
			spec: &Specification{
				Given:      []Label{airline},
				Matches:    []Match{{Unknown: flight}},
				Projection: FactProjection{Label: "flight"},
			},
			message: `match "flight" has no path condition`,
		},
		{
			name: "unbound right label",
			spec: &Specification{
				Given:      []Label{airline},
				Matches:    []Match{bookingsOfFlight()},
				Projection: FactProjection{Label: "booking"},
			},
			message: `joins to unbound label "flight"`,
		},
		{
			name: "type mismatch",
			spec: &Specification{
				Given: []Label{airline},
				Matches: []Match{{
					Unknown: flight,
					PathConditions: []PathCondition{{
						RolesLeft:  []Role{{Name: "airlineDay", TargetType: "Skylane.Airline.Day"}},
						LabelRight: "airline",
					}},
				}},
				Projection: FactProjection{Label: "flight"},
			},
			message: "compares Skylane.Airline.Day with Skylane.Airline",
		},
		{
			name: "duplicate label",
			spec: &Specification{
				Given:      []Label{airline, airline},
				Projection: FactProjection{Label: "airline"},
			},
			message: `label "airline" is bound more than once`,
		},
		{
			name: "unbound projection",
			spec: &Specification{
				Given:      []Label{airline},
				Projection: FactProjection{Label: "flight"},
			},
			message: `projection selects unbound label "flight"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
