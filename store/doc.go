// Package store persists snapshot projections (stim.Snapshot.Struct) in a
// SQL database through database/sql.
//
// Two drivers are wired in: "sqlite" (modernc.org/sqlite, pure Go, the
// default for local use) and "postgres" (github.com/lib/pq). Queries are
// written with '?' placeholders and rebound to '$n' for postgres.
//
// The schema is created with IF NOT EXISTS, so Open is safe to call on an
// existing database. Payloads are stored as JSON text; timestamps as
// fixed-width UTC text so lexical order equals time order on both drivers.
package store
