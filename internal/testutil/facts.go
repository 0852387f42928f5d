package testutil

import (
	"github.com/roach88/factdb/internal/fact"
)

// Airline returns a Skylane.Airline fact.
func Airline(identifier string) fact.Fact {
	return fact.MustMake("Skylane.Airline", map[string]any{"identifier": identifier})
}

// AirlineDay returns a Skylane.Airline.Day fact.
func AirlineDay(airline fact.Fact, date string) fact.Fact {
	return fact.MustMake("Skylane.Airline.Day",
		map[string]any{"date": date},
		single("airline", airline))
}

// Flight returns a Skylane.Flight fact.
func Flight(day fact.Fact, number int) fact.Fact {
	return fact.MustMake("Skylane.Flight",
		map[string]any{"flightNumber": number},
		single("airlineDay", day))
}

// FlightCancellation returns a Skylane.Flight.Cancellation fact.
func FlightCancellation(flight fact.Fact, date string) fact.Fact {
	return fact.MustMake("Skylane.Flight.Cancellation",
		map[string]any{"dateCancelled": date},
		single("flight", flight))
}

// User returns a Jinaga.User fact.
func User(publicKey string) fact.Fact {
	return fact.MustMake("Jinaga.User", map[string]any{"publicKey": publicKey})
}

// Passenger returns a Skylane.Passenger fact.
func Passenger(airline, user fact.Fact) fact.Fact {
	return fact.MustMake("Skylane.Passenger", nil,
		single("airline", airline),
		single("user", user))
}

// PassengerName returns a Skylane.Passenger.Name fact.
func PassengerName(passenger fact.Fact, value string, prior ...fact.Fact) fact.Fact {
	refs := make([]fact.Reference, len(prior))
	for i, p := range prior {
		refs[i] = p.Reference
	}
	return fact.MustMake("Skylane.Passenger.Name",
		map[string]any{"value": value},
		single("passenger", passenger),
		fact.Multiple{Role: "prior", References: refs})
}

// Booking returns a Skylane.Booking fact.
func Booking(flight, passenger fact.Fact) fact.Fact {
	return fact.MustMake("Skylane.Booking", nil,
		single("flight", flight),
		single("passenger", passenger))
}

// Refund returns a Skylane.Refund fact.
func Refund(booking fact.Fact) fact.Fact {
	return fact.MustMake("Skylane.Refund", nil, single("booking", booking))
}

// Company returns a Corporate.Company fact.
func Company(identifier string) fact.Fact {
	return fact.MustMake("Corporate.Company", map[string]any{"identifier": identifier})
}

// City returns a Corporate.City fact.
func City(name string) fact.Fact {
	return fact.MustMake("Corporate.City", map[string]any{"name": name})
}

// Office returns a Corporate.Office fact.
func Office(company, city fact.Fact, identifier string) fact.Fact {
	return fact.MustMake("Corporate.Office",
		map[string]any{"identifier": identifier},
		single("company", company),
		single("city", city))
}

// OfficeClosure returns a Corporate.Office.Closure fact.
func OfficeClosure(office fact.Fact, date string) fact.Fact {
	return fact.MustMake("Corporate.Office.Closure",
		map[string]any{"date": date},
		single("office", office))
}

func single(role string, f fact.Fact) fact.Predecessor {
	return fact.Single{Role: role, Reference: f.Reference}
}

// Refs returns the references of facts in order.
func Refs(facts ...fact.Fact) []fact.Reference {
	refs := make([]fact.Reference, len(facts))
	for i, f := range facts {
		refs[i] = f.Reference
	}
	return refs
}
