// Package harness runs conformance scenarios against the fact stores.
//
// A scenario seeds a store with named facts, runs one specification from
// named givens, and compares the results. Optional steps then save more
// facts through a client and check the observer's added and removed
// notifications.
//
// # Scenario Format
//
//	name: open_flights
//	description: "Cancelled flights leave the results"
//	model: ../skylane.yaml
//	specification: |
//	  Given<Airline>.Match(a =>
//	    facts.OfType<Flight>(f => f.airlineDay.airline == a && !f.IsCancelled))
//	given: [sky]
//	facts:
//	  - name: sky
//	    type: Skylane.Airline
//	    fields: {identifier: SKY}
//	  - name: day
//	    type: Skylane.Airline.Day
//	    fields: {date: "2026-10-19"}
//	    predecessors: {airline: sky}
//	expect:
//	  - {flight: f101}
//	steps:
//	  - save:
//	      - name: f101_cancelled
//	        type: Skylane.Flight.Cancellation
//	        predecessors: {flight: f101}
//	    removed:
//	      - {flight: f101}
//
// Facts are declared in causal order; predecessors name earlier facts, and
// a list of names declares a multiple-predecessor role. Expected results
// name the fact bound to each label, and are compared as a set.
//
// # Backends
//
// Every scenario runs against the in-memory store and a fresh SQLite
// database. RunWithGolden checks that both produce the same snapshot and
// compares it against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
