package spec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factdb/internal/fact"
)

func ref(typ, hash string) fact.Reference {
	return fact.Reference{Type: typ, Hash: hash}
}

func TestProductKeyIgnoresCollections(t *testing.T) {
	p := NewProduct(map[string]fact.Reference{
		"flight":  ref("Skylane.Flight", "f1"),
		"airline": ref("Skylane.Airline", "a1"),
	})
	withBookings := p.With("bookings", CollectionElement{Products: []Product{
		NewProduct(map[string]fact.Reference{"booking": ref("Skylane.Booking", "b1")}),
	}})

	assert.Equal(t, "airline=Skylane.Airline:a1|flight=Skylane.Flight:f1", p.Key())
	assert.Equal(t, p.Key(), withBookings.Key())
}

func TestProductWithIsCopy(t *testing.T) {
	p := NewProduct(map[string]fact.Reference{"airline": ref("Skylane.Airline", "a1")})
	q := p.With("flight", ReferenceElement{Reference: ref("Skylane.Flight", "f1")})

	assert.Equal(t, []string{"airline"}, p.Names())
	assert.Equal(t, []string{"airline", "flight"}, q.Names())
	_, ok := p.Get("flight")
	assert.False(t, ok)
}

func TestProductResult(t *testing.T) {
	booking := NewProduct(map[string]fact.Reference{
		"airline": ref("Skylane.Airline", "a1"),
		"flight":  ref("Skylane.Flight", "f1"),
		"booking": ref("Skylane.Booking", "b1"),
	})
	p := NewProduct(map[string]fact.Reference{
		"airline": ref("Skylane.Airline", "a1"),
		"flight":  ref("Skylane.Flight", "f1"),
	}).With("bookings", CollectionElement{Products: []Product{booking}})

	proj := CompositeProjection{Members: []Member{
		{Name: "flight", Projection: FactProjection{Label: "flight"}},
		{Name: "bookings", Projection: CollectionProjection{
			Matches:    []Match{bookingsOfFlight()},
			Projection: FactProjection{Label: "booking"},
		}},
	}}

	result, ok := p.Result(proj).(ProductElement)
	require.True(t, ok)

	f, ok := result.Product.Reference("flight")
	require.True(t, ok)
	assert.Equal(t, ref("Skylane.Flight", "f1"), f)

	data, err := json.Marshal(result.Product)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"flight": {"type": "Skylane.Flight", "hash": "f1"},
		"bookings": [{"type": "Skylane.Booking", "hash": "b1"}]
	}`, string(data))
}

func TestProductMarshalJSON(t *testing.T) {
	p := NewProduct(map[string]fact.Reference{"airline": ref("Skylane.Airline", "a1")}).
		With("flights", CollectionElement{})

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"airline":{"type":"Skylane.Airline","hash":"a1"},"flights":[]}`, string(data))
}

func TestCollections(t *testing.T) {
	proj := CompositeProjection{Members: []Member{
		{Name: "flight", Projection: FactProjection{Label: "flight"}},
		{Name: "detail", Projection: CompositeProjection{Members: []Member{
			{Name: "bookings", Projection: CollectionProjection{
				Matches:    []Match{bookingsOfFlight()},
				Projection: FactProjection{Label: "booking"},
			}},
		}}},
	}}

	cols := Collections(proj)
	require.Len(t, cols, 1)
	assert.Equal(t, "detail.bookings", cols[0].Path)
}
