// Package store provides SQLite-backed durable storage for facts.
//
// Facts are append-only and content-addressed:
//   - fact: one row per (type, hash), with the canonical JSON in data
//   - edge: one row per predecessor reference, keyed by role
//   - ancestor: the transitive closure of edge, maintained on insert
//   - bookmark: opaque per-feed sync positions
//
// # Identity and Order
//
// Inserts use ON CONFLICT DO NOTHING, so saving a fact twice is a no-op
// and Save reports only the facts that were new. fact_id increases with
// insertion and graphs are saved in causal order, so ordering by fact_id
// yields causal order on every read.
//
// # Queries
//
// Store implements planner.Backend. Each walk of a query plan runs as a
// single statement compiled by querysql.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
