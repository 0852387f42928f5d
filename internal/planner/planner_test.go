package planner_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factdb/internal/compiler"
	"github.com/roach88/factdb/internal/fact"
	"github.com/roach88/factdb/internal/memstore"
	"github.com/roach88/factdb/internal/planner"
	"github.com/roach88/factdb/internal/spec"
	"github.com/roach88/factdb/internal/testutil"
)

// countingBackend records every walk sent to the store.
type countingBackend struct {
	*memstore.Store

	mu      sync.Mutex
	follows [][]planner.Hop
}

func (c *countingBackend) Follow(ctx context.Context, starts []fact.Reference, hops []planner.Hop) ([][]fact.Reference, error) {
	c.mu.Lock()
	c.follows = append(c.follows, hops)
	c.mu.Unlock()
	return c.Store.Follow(ctx, starts, hops)
}

func (c *countingBackend) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.follows)
}

func setup(t *testing.T) (*countingBackend, *testutil.World) {
	t.Helper()
	w := testutil.NewWorld()
	s := memstore.New()
	_, err := s.Save(context.Background(), w.Graph())
	require.NoError(t, err)
	return &countingBackend{Store: s}, w
}

func compile(t *testing.T, expr string) *spec.Specification {
	t.Helper()
	s, err := compiler.Compile(testutil.SkylaneModel(), expr)
	require.NoError(t, err)
	return s
}

func refs(t *testing.T, products []spec.Product, label string) []fact.Reference {
	t.Helper()
	out := make([]fact.Reference, 0, len(products))
	for _, p := range products {
		ref, ok := p.Reference(label)
		require.True(t, ok, "product has no %s", label)
		out = append(out, ref)
	}
	return out
}

func TestRunSuccessorWalk(t *testing.T) {
	b, w := setup(t)
	s := compile(t, `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a))`)

	products, err := planner.Run(context.Background(), b, s, testutil.Refs(w.Airline))
	require.NoError(t, err)

	assert.Equal(t, testutil.Refs(w.Flight101, w.Flight102), refs(t, products, "flight"))
	for _, p := range products {
		ref, _ := p.Reference("airline")
		assert.Equal(t, w.Airline.Reference, ref)
	}
	assert.Equal(t, 1, b.calls())
}

func TestRunPredecessorShorthand(t *testing.T) {
	b, w := setup(t)
	s := compile(t, `Given<FlightCancellation>.Match(c => c.flight)`)

	products, err := planner.Run(context.Background(), b, s, testutil.Refs(w.Cancellation))
	require.NoError(t, err)
	assert.Equal(t, testutil.Refs(w.Flight102), refs(t, products, "flight"))
}

func TestRunExistentialConditions(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want func(w *testutil.World) []fact.Reference
	}{
		{
			name: "negative",
			expr: `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a && !f.IsCancelled))`,
			want: func(w *testutil.World) []fact.Reference { return testutil.Refs(w.Flight101) },
		},
		{
			name: "positive",
			expr: `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a && f.IsCancelled))`,
			want: func(w *testutil.World) []fact.Reference { return testutil.Refs(w.Flight102) },
		},
		{
			name: "explicit any",
			expr: `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a &&
				facts.OfType<Booking>(b => b.flight == f).Any()))`,
			want: func(w *testutil.World) []fact.Reference { return testutil.Refs(w.Flight101) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, w := setup(t)
			products, err := planner.Run(context.Background(), b, compile(t, tt.expr), testutil.Refs(w.Airline))
			require.NoError(t, err)
			assert.Equal(t, tt.want(w), refs(t, products, "flight"))
		})
	}
}

func TestRunMultipleGivens(t *testing.T) {
	b, w := setup(t)
	s := compile(t, `Given<Flight, Passenger>.Match((f, p) =>
		facts.OfType<Booking>(b => b.flight == f && b.passenger == p))`)

	products, err := planner.Run(context.Background(), b, s, testutil.Refs(w.Flight101, w.Alice))
	require.NoError(t, err)
	assert.Equal(t, testutil.Refs(w.Booking), refs(t, products, "booking"))

	products, err = planner.Run(context.Background(), b, s, testutil.Refs(w.Flight101, w.Bob))
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestRunCrossProductOrder(t *testing.T) {
	b, w := setup(t)
	s := compile(t, `Given<Airline>.Match(a =>
		from f in facts.OfType<Flight>() where f.airlineDay.airline == a
		from p in facts.OfType<Passenger>() where p.airline == a
		select new { f, p })`)

	products, err := planner.Run(context.Background(), b, s, testutil.Refs(w.Airline))
	require.NoError(t, err)

	require.Len(t, products, 4)
	assert.Equal(t, testutil.Refs(w.Flight101, w.Flight101, w.Flight102, w.Flight102), refs(t, products, "flight"))
	assert.Equal(t, testutil.Refs(w.Alice, w.Bob, w.Alice, w.Bob), refs(t, products, "passenger"))
}

func TestRunJoinAcrossBranches(t *testing.T) {
	b, w := setup(t)
	s := compile(t, `Given<Airline>.Match(a =>
		from f in facts.OfType<Flight>() where f.airlineDay.airline == a
		from p in facts.OfType<Passenger>() where p.airline == a
		from b in facts.OfType<Booking>() where b.flight == f && b.passenger == p
		select b)`)

	plan, err := planner.Build(context.Background(), b, s)
	require.NoError(t, err)
	tree := plan.Root
	assert.Equal(t, []int{0}, tree.Roots)
	assert.Equal(t, []int{1}, tree.Nodes[0].Children, "passenger moves beneath flight")
	assert.Equal(t, 1, tree.Nodes[2].Parent)

	products, err := plan.Execute(context.Background(), b, testutil.Refs(w.Airline))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, testutil.Refs(w.Booking), refs(t, products, "booking"))
	assert.Equal(t, testutil.Refs(w.Flight101), refs(t, products, "flight"))
	assert.Equal(t, testutil.Refs(w.Alice), refs(t, products, "passenger"))
}

func TestRunCollections(t *testing.T) {
	b, w := setup(t)
	s := compile(t, `Given<Airline>.Match(a =>
		from f in facts.OfType<Flight>() where f.airlineDay.airline == a
		select new {
			flight = f,
			bookings = facts.OfType<Booking>(b => b.flight == f),
			cancellations = facts.OfType<FlightCancellation>(c => c.flight == f)
		})`)

	products, err := planner.Run(context.Background(), b, s, testutil.Refs(w.Airline))
	require.NoError(t, err)
	require.Len(t, products, 2)

	bookings, ok := products[0].Collection("bookings")
	require.True(t, ok)
	assert.Equal(t, testutil.Refs(w.Booking), refs(t, bookings, "booking"))
	cancellations, _ := products[0].Collection("cancellations")
	assert.Empty(t, cancellations)

	bookings, _ = products[1].Collection("bookings")
	assert.Empty(t, bookings)
	cancellations, _ = products[1].Collection("cancellations")
	assert.Equal(t, testutil.Refs(w.Cancellation), refs(t, cancellations, "flightCancellation"))

	result, ok := products[0].Result(s.Projection).(spec.ProductElement)
	require.True(t, ok)
	el, _ := result.Product.Get("flight")
	assert.Equal(t, spec.ReferenceElement{Reference: w.Flight101.Reference}, el)
}

func TestRunGivenMismatch(t *testing.T) {
	b, w := setup(t)
	s := compile(t, `Given<Flight, Passenger>.Match((f, p) =>
		facts.OfType<Booking>(b => b.flight == f && b.passenger == p))`)

	_, err := planner.Run(context.Background(), b, s, testutil.Refs(w.Flight101))
	require.ErrorIs(t, err, planner.ErrGivenMismatch)
}

func TestRunShortCircuits(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		starts   func(w *testutil.World) []fact.Reference
		want     int
		maxCalls int
	}{
		{
			name:   "start of the wrong type",
			expr:   `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a))`,
			starts: func(w *testutil.World) []fact.Reference { return testutil.Refs(w.Flight101) },
		},
		{
			name:   "unknown match type",
			expr:   `Given<Passenger>.Match(p => facts.OfType<PassengerName>(n => n.passenger == p))`,
			starts: func(w *testutil.World) []fact.Reference { return testutil.Refs(w.Alice) },
		},
		{
			name:   "unknown given type",
			expr:   `Given<Booking>.Match(b => facts.OfType<Refund>(r => r.booking == b))`,
			starts: func(w *testutil.World) []fact.Reference { return testutil.Refs(testutil.Refund(w.Booking)) },
		},
		{
			name:     "unsatisfiable positive existential",
			expr:     `Given<Flight>.Match(f => facts.OfType<Booking>(b => b.flight == f && b.IsRefunded))`,
			starts:   func(w *testutil.World) []fact.Reference { return testutil.Refs(w.Flight101) },
			maxCalls: 1,
		},
		{
			name:     "unsatisfiable negative existential",
			expr:     `Given<Flight>.Match(f => facts.OfType<Booking>(b => b.flight == f && !b.IsRefunded))`,
			starts:   func(w *testutil.World) []fact.Reference { return testutil.Refs(w.Flight101) },
			want:     1,
			maxCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, w := setup(t)
			products, err := planner.Run(context.Background(), b, compile(t, tt.expr), tt.starts(w))
			require.NoError(t, err)
			assert.Len(t, products, tt.want)
			assert.Equal(t, tt.maxCalls, b.calls())
		})
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	b, w := setup(t)
	s := compile(t, `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a))`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := planner.Run(ctx, b, s, testutil.Refs(w.Airline))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, b.calls())
}

func TestBuildResolvesHops(t *testing.T) {
	b, _ := setup(t)
	s := compile(t, `Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a))`)

	plan, err := planner.Build(context.Background(), b, s)
	require.NoError(t, err)

	hops := plan.Root.Nodes[0].Anchor.Hops
	require.Len(t, hops, 2)
	assert.Equal(t, planner.Successor, hops[0].Direction)
	assert.Equal(t, "Skylane.Airline.Day", hops[0].DefiningType)
	assert.Equal(t, "Skylane.Airline", hops[0].FromType)
	assert.Equal(t, "Skylane.Flight", hops[1].DefiningType)
	assert.NotZero(t, hops[0].RoleID)
	assert.NotZero(t, hops[1].ToTypeID)
	assert.False(t, plan.Root.Unsatisfiable)
}
