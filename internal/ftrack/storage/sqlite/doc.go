// Package sqlite persists track-finder runs in a SQLite database.
//
// A Store owns the database handle and its schema, which is managed by
// golang-migrate from the embedded migrations directory. A Run is one
// invocation of the processor over a batch of events; it implements both
// pipeline.DiagnosticsSink and pipeline.ResultSink so criterion measures,
// per-event counters, candidates and fitted tracks land under the same
// run_id.
package sqlite
