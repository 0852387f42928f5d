package testutil

import "github.com/roach88/factdb/internal/fact"

// World is a small Skylane dataset:
//
//	airline "SKY"
//	  day 2026-10-19
//	    flight 101  (booked by alice)
//	    flight 102  (cancelled)
//	  passengers alice, bob
type World struct {
	Airline      fact.Fact
	Day          fact.Fact
	Flight101    fact.Fact
	Flight102    fact.Fact
	Cancellation fact.Fact
	Alice        fact.Fact
	Bob          fact.Fact
	AliceUser    fact.Fact
	BobUser      fact.Fact
	Booking      fact.Fact
}

// NewWorld builds the dataset.
func NewWorld() *World {
	w := &World{}
	w.Airline = Airline("SKY")
	w.Day = AirlineDay(w.Airline, "2026-10-19")
	w.Flight101 = Flight(w.Day, 101)
	w.Flight102 = Flight(w.Day, 102)
	w.Cancellation = FlightCancellation(w.Flight102, "2026-10-18")
	w.AliceUser = User("alice-key")
	w.BobUser = User("bob-key")
	w.Alice = Passenger(w.Airline, w.AliceUser)
	w.Bob = Passenger(w.Airline, w.BobUser)
	w.Booking = Booking(w.Flight101, w.Alice)
	return w
}

// Facts returns every fact of the world in causal order.
func (w *World) Facts() []fact.Fact {
	return []fact.Fact{
		w.Airline, w.Day, w.Flight101, w.Flight102, w.Cancellation,
		w.AliceUser, w.BobUser, w.Alice, w.Bob, w.Booking,
	}
}

// Graph returns the world as a fact graph.
func (w *World) Graph() *fact.Graph {
	return fact.NewGraph(w.Facts()...)
}
