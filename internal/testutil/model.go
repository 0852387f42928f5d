package testutil

import "github.com/roach88/factdb/internal/schema"

// SkylaneModel returns the airline booking model shared by tests.
//
//	Airline <- AirlineDay <- Flight <- FlightCancellation
//	Airline <- Passenger -> User
//	Flight <- Booking -> Passenger
//	Booking <- Refund
func SkylaneModel() *schema.Model {
	return schema.NewModel().
		Type("Airline", "Skylane.Airline").
		Type("AirlineDay", "Skylane.Airline.Day", schema.Predecessor("airline", "Airline")).
		Type("Flight", "Skylane.Flight",
			schema.Predecessor("airlineDay", "AirlineDay"),
			schema.Condition("IsCancelled", "facts.OfType<FlightCancellation>(c => c.flight == this)")).
		Type("FlightCancellation", "Skylane.Flight.Cancellation", schema.Predecessor("flight", "Flight")).
		Type("User", "Jinaga.User").
		Type("Passenger", "Skylane.Passenger",
			schema.Predecessor("airline", "Airline"),
			schema.Predecessor("user", "User")).
		Type("PassengerName", "Skylane.Passenger.Name",
			schema.Predecessor("passenger", "Passenger"),
			schema.Predecessors("prior", "PassengerName")).
		Type("Booking", "Skylane.Booking",
			schema.Predecessor("flight", "Flight"),
			schema.Predecessor("passenger", "Passenger"),
			schema.Condition("IsRefunded", "facts.OfType<Refund>(r => r.booking == this)")).
		Type("Refund", "Skylane.Refund", schema.Predecessor("booking", "Booking"))
}

// CompanyModel returns the corporate office model shared by tests.
func CompanyModel() *schema.Model {
	return schema.NewModel().
		Type("Company", "Corporate.Company").
		Type("City", "Corporate.City").
		Type("Office", "Corporate.Office",
			schema.Predecessor("company", "Company"),
			schema.Predecessor("city", "City"),
			schema.Condition("IsClosed", "facts.OfType<OfficeClosure>(c => c.office == this)")).
		Type("OfficeClosure", "Corporate.Office.Closure", schema.Predecessor("office", "Office")).
		Type("OfficeReopening", "Corporate.Office.Reopening", schema.Predecessor("officeClosure", "OfficeClosure")).
		Type("President", "Corporate.President",
			schema.Predecessor("office", "Office"),
			schema.Predecessor("user", "User")).
		Type("User", "Jinaga.User")
}
