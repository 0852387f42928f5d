package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factdb/internal/spec"
	"github.com/roach88/factdb/internal/testutil"
)

func TestCompileFlightsOfAirline(t *testing.T) {
	s, err := Compile(testutil.SkylaneModel(),
		`Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a))`)
	require.NoError(t, err)

	assert.Equal(t,
		"(airline: Skylane.Airline) {\n"+
			"    flight: Skylane.Flight [\n"+
			"        flight->airlineDay: Skylane.Airline.Day->airline: Skylane.Airline = airline\n"+
			"    ]\n"+
			"}\n",
		s.String())
}

func TestCompileEquivalentForms(t *testing.T) {
	model := testutil.SkylaneModel()
	forms := []string{
		`Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a))`,
		`Given<Airline>.Match(a => facts.OfType<Flight>(f => a == f.airlineDay.airline))`,
		`Given<Airline>.Match((a, facts) => facts.OfType<Flight>().Where(f => f.airlineDay.airline == a))`,
		`Given<Airline>.Match((a, db) => from f in db.OfType<Flight>() where f.airlineDay.airline == a select f)`,
		`Given<Skylane.Airline>.Match(x => facts.OfType<Skylane.Flight>(y => y.airlineDay.airline == x).Select(y => y))`,
	}

	want, err := Compile(model, forms[0])
	require.NoError(t, err)
	for _, form := range forms[1:] {
		got, err := Compile(model, form)
		require.NoError(t, err, form)
		assert.Empty(t, cmp.Diff(want, got), form)
	}
}

func TestCompileNamedConditionMatchesExplicitExistential(t *testing.T) {
	model := testutil.SkylaneModel()

	named, err := Compile(model,
		`Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a && !f.IsCancelled))`)
	require.NoError(t, err)

	explicit, err := Compile(model,
		`Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a &&
			!(from c in facts.OfType<FlightCancellation>() where c.flight == f select c).Any()))`)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(named, explicit))

	ecs := named.Matches[0].ExistentialConditions
	require.Len(t, ecs, 1)
	assert.False(t, ecs[0].Exists)
	assert.Equal(t, []spec.Match{{
		Unknown: spec.Label{Name: "flightCancellation", Type: "Skylane.Flight.Cancellation"},
		PathConditions: []spec.PathCondition{{
			RolesLeft:  []spec.Role{{Name: "flight", TargetType: "Skylane.Flight"}},
			LabelRight: "flight",
		}},
	}}, ecs[0].Matches)
}

func TestCompilePositiveExistential(t *testing.T) {
	s, err := Compile(testutil.SkylaneModel(),
		`Given<Flight>.Match(f => facts.OfType<Booking>(b => b.flight == f && b.IsRefunded))`)
	require.NoError(t, err)

	ecs := s.Matches[0].ExistentialConditions
	require.Len(t, ecs, 1)
	assert.True(t, ecs[0].Exists)
	assert.Equal(t, "refund", ecs[0].Matches[0].Unknown.Name)
}

func TestCompileDoubleNegation(t *testing.T) {
	s, err := Compile(testutil.SkylaneModel(),
		`Given<Flight>.Match(f => facts.OfType<Booking>(b => b.flight == f && !!b.IsRefunded))`)
	require.NoError(t, err)
	assert.True(t, s.Matches[0].ExistentialConditions[0].Exists)
}

func TestCompilePredecessorShorthand(t *testing.T) {
	s, err := Compile(testutil.SkylaneModel(), `Given<FlightCancellation>.Match(c => c.flight)`)
	require.NoError(t, err)

	assert.Equal(t,
		"(flightCancellation: Skylane.Flight.Cancellation) {\n"+
			"    flight: Skylane.Flight [\n"+
			"        flight = flightCancellation->flight: Skylane.Flight\n"+
			"    ]\n"+
			"}\n",
		s.String())
}

func TestCompileLabelCollision(t *testing.T) {
	s, err := Compile(testutil.SkylaneModel(),
		`Given<PassengerName>.Match(n => facts.OfType<PassengerName>(p => p.prior == n))`)
	require.NoError(t, err)

	assert.Equal(t, "passengerName", s.Given[0].Name)
	assert.Equal(t, "passengerName2", s.Matches[0].Unknown.Name)
}

func TestCompileMultipleGivens(t *testing.T) {
	s, err := Compile(testutil.SkylaneModel(),
		`Given<Flight, Passenger>.Match((f, p) =>
			facts.OfType<Booking>(b => b.flight == f && b.passenger == p))`)
	require.NoError(t, err)

	require.Len(t, s.Given, 2)
	m := s.Matches[0]
	require.Len(t, m.PathConditions, 2)
	assert.Equal(t, "flight", m.PathConditions[0].LabelRight)
	assert.Equal(t, "passenger", m.PathConditions[1].LabelRight)
}

func TestCompileComprehensionJoinsToLatestLabel(t *testing.T) {
	s, err := Compile(testutil.SkylaneModel(),
		`Given<Airline>.Match(a =>
			from f in facts.OfType<Flight>()
			where f.airlineDay.airline == a
			from b in facts.OfType<Booking>()
			where b.flight == f
			select b)`)
	require.NoError(t, err)

	require.Len(t, s.Matches, 2)
	assert.Equal(t, "flight", s.Matches[0].Unknown.Name)
	assert.Equal(t, "booking", s.Matches[1].Unknown.Name)
	assert.Equal(t, "flight", s.Matches[1].PathConditions[0].LabelRight)
	assert.Equal(t, spec.FactProjection{Label: "booking"}, s.Projection)
}

func TestCompileSiblingJoin(t *testing.T) {
	s, err := Compile(testutil.SkylaneModel(),
		`Given<Flight>.Match(f =>
			from b in facts.OfType<Booking>()
			where b.flight == f
			from p in facts.OfType<Passenger>()
			where b.passenger == p
			select p)`)
	require.NoError(t, err)

	// The newer side owns the condition, so the predecessor walk is on the right.
	assert.Equal(t, spec.PathCondition{
		LabelRight: "booking",
		RolesRight: []spec.Role{{Name: "passenger", TargetType: "Skylane.Passenger"}},
	}, s.Matches[1].PathConditions[0])
}

func TestCompileCompositeWithCollection(t *testing.T) {
	s, err := Compile(testutil.SkylaneModel(),
		`Given<Airline>.Match(a =>
			from f in facts.OfType<Flight>()
			where f.airlineDay.airline == a
			select new {
				flight = f,
				bookings = facts.OfType<Booking>(b => b.flight == f)
			})`)
	require.NoError(t, err)

	comp, ok := s.Projection.(spec.CompositeProjection)
	require.True(t, ok)
	require.Len(t, comp.Members, 2)
	assert.Equal(t, spec.Member{Name: "flight", Projection: spec.FactProjection{Label: "flight"}}, comp.Members[0])

	coll, ok := comp.Members[1].Projection.(spec.CollectionProjection)
	require.True(t, ok)
	require.Len(t, coll.Matches, 1)
	assert.Equal(t, "booking", coll.Matches[0].Unknown.Name)
	assert.Equal(t, spec.FactProjection{Label: "booking"}, coll.Projection)
}

func TestCompileCompositeShorthandMembers(t *testing.T) {
	s, err := Compile(testutil.SkylaneModel(),
		`Given<Flight>.Match(f => from b in facts.OfType<Booking>() where b.flight == f select new { f, b })`)
	require.NoError(t, err)

	assert.Equal(t, spec.CompositeProjection{Members: []spec.Member{
		{Name: "f", Projection: spec.FactProjection{Label: "flight"}},
		{Name: "b", Projection: spec.FactProjection{Label: "booking"}},
	}}, s.Projection)
}

func TestCompileExistentialInsideCollection(t *testing.T) {
	s, err := Compile(testutil.SkylaneModel(),
		`Given<Flight>.Match(f => from p in facts.OfType<Passenger>()
			where p.airline == f.airlineDay.airline
			select new {
				passenger = p,
				refunded = facts.OfType<Booking>(b => b.passenger == p && b.IsRefunded)
			})`)
	require.NoError(t, err)

	comp := s.Projection.(spec.CompositeProjection)
	coll := comp.Members[1].Projection.(spec.CollectionProjection)
	require.Len(t, coll.Matches[0].ExistentialConditions, 1)
	assert.True(t, coll.Matches[0].ExistentialConditions[0].Exists)
}

func TestCompileMissingJoin(t *testing.T) {
	tests := []struct {
		name       string
		expr       string
		variable   string
		label      string
		suggestion string
	}{
		{
			name:       "direct predecessor",
			expr:       `Given<Company>.Match(c => from o in facts.OfType<Office>() select o)`,
			variable:   "o",
			label:      "office",
			suggestion: "where o.company == c",
		},
		{
			name:       "reverse direction",
			expr:       `Given<Office>.Match(o => from c in facts.OfType<Company>() select c)`,
			variable:   "c",
			label:      "company",
			suggestion: "where c == o.company",
		},
		{
			name:       "common ancestor",
			expr:       `Given<President>.Match(p => facts.OfType<OfficeClosure>().Select(x => x))`,
			variable:   "officeClosure",
			label:      "officeClosure",
			suggestion: "where officeClosure.office == p.office",
		},
		{
			name: "second match",
			expr: `Given<Company>.Match(c =>
				from o in facts.OfType<Office>() where o.company == c
				from x in facts.OfType<OfficeClosure>()
				select x)`,
			variable:   "x",
			label:      "officeClosure",
			suggestion: "where x.office == o",
		},
		{
			name:       "unrelated types",
			expr:       `Given<City>.Match(c => from u in facts.OfType<User>() select u)`,
			variable:   "u",
			label:      "user",
			suggestion: "where u.<predecessor> == c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(testutil.CompanyModel(), tt.expr)
			require.Error(t, err)
			assert.True(t, IsMissingJoin(err))

			ce := err.(*CompileError)
			assert.Equal(t, tt.variable, ce.Variable)
			assert.Equal(t, tt.suggestion, ce.Suggestion)
			assert.Contains(t, err.Error(), tt.label)
			assert.Contains(t, err.Error(), tt.suggestion)
		})
	}
}

func TestCompileMissingJoinMessage(t *testing.T) {
	_, err := Compile(testutil.CompanyModel(),
		`Given<Company>.Match(c => from o in facts.OfType<Office>() select o)`)
	require.Error(t, err)

	ce := err.(*CompileError)
	assert.Equal(t, `The variable "o" (office: Corporate.Office) is not joined to a prior variable.`, ce.Message)
}

func TestCompileMissingJoinInExistential(t *testing.T) {
	_, err := Compile(testutil.SkylaneModel(),
		`Given<Flight>.Match(f => facts.OfType<Booking>(b => b.flight == f &&
			!facts.OfType<Refund>().Any()))`)
	require.Error(t, err)
	assert.True(t, IsMissingJoin(err))
	assert.Contains(t, err.Error(), "refund")
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		code string
	}{
		{"syntax", `Given<Airline>.Match(a => `, ErrSyntax},
		{"unknown given type", `Given<Airplane>.Match(a => a.airline)`, ErrUnknownType},
		{"unknown source type", `Given<Airline>.Match(a => facts.OfType<Airplane>(p => p.airline == a))`, ErrUnknownType},
		{"unknown role", `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airline == a))`, ErrUnknownRole},
		{"unknown shorthand role", `Given<Flight>.Match(f => f.airline)`, ErrUnknownRole},
		{"type mismatch", `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay == a))`, ErrTypeMismatch},
		{"unknown variable", `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == z))`, ErrUnknownVariable},
		{"unknown condition", `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a && !f.IsDelayed))`, ErrUnknownCondition},
		{"negated equality", `Given<Airline>.Match(a => facts.OfType<Flight>(f => !(f.airlineDay.airline == a)))`, ErrUnsupportedShape},
		{"negated conjunction", `Given<Flight>.Match(f => facts.OfType<Booking>(b => b.flight == f && !(b.IsRefunded && b.IsRefunded)))`, ErrUnsupportedShape},
		{"self comparison", `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay == f.airlineDay))`, ErrUnsupportedShape},
		{"role as condition", `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a && f.airlineDay))`, ErrUnsupportedShape},
		{"condition as role", `Given<Booking>.Match(b => facts.OfType<Refund>(r => r.booking.IsRefunded == b))`, ErrUnsupportedShape},
		{"bare given", `Given<Airline>.Match(a => a)`, ErrUnsupportedShape},
		{"too many params", `Given<Airline>.Match((a, b, c) => a.airline)`, ErrUnsupportedShape},
		{"path projection", `Given<Flight>.Match(f => from b in facts.OfType<Booking>() where b.flight == f select b.passenger)`, ErrUnsupportedShape},
		{"unsupported operator", `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a).OrderBy(f => f))`, ErrUnsupportedShape},
		{"duplicate member", `Given<Flight>.Match(f => from b in facts.OfType<Booking>() where b.flight == f select new { b, b })`, ErrUnsupportedShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compile(testutil.SkylaneModel(), tt.expr)
			require.Error(t, err)
			assert.Nil(t, s)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code, ce.Error())
		})
	}
}

func TestCompileIsPure(t *testing.T) {
	model := testutil.SkylaneModel()
	expr := `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a && !f.IsCancelled))`

	first := MustCompile(model, expr)
	second := MustCompile(model, expr)
	assert.Empty(t, cmp.Diff(first, second))
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() {
		MustCompile(testutil.SkylaneModel(), `Given<Nope>.Match(n => n.x)`)
	})
}
