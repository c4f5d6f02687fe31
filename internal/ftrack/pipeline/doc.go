// Package pipeline owns per-event orchestration of the track finder.
//
// Responsibilities: turning one event's hits into a pool, building the
// segment graph under the configured criteria, running the automaton and
// the cleaner, enumerating candidates and handing them to a fitter. Measures
// and results leave through the DiagnosticsSink and ResultSink interfaces.
// Key types: EventProcessor, EventResult, Metrics.
//
// Dependency rule: pipeline may depend on every ftrack package below it and
// on config, monitoring and timeutil. Storage backends depend on pipeline,
// never the reverse.
package pipeline
