// Package cellauto owns the Cellular-Automaton track finding core.
//
// Responsibilities: the per-length segment graph (an index-stable arena with
// per-layer buckets), building longer segments from linked shorter ones under
// a criteria.Set, the synchronous state-propagation automaton, pruning of
// segments that do not lie on a maximal chain, and enumeration of every
// root-to-leaf hit path as a track candidate.
// Key types: Segment, Graph, Builder, Enumerator, Candidate.
//
// Segments hold their hits innermost first. A child extends its parent one
// layer outward and shares all but the parent's innermost hit.
//
// Dependency rule: cellauto may depend on hit and criteria, never on
// pipeline, storage or fit. Everything here is single-threaded and scoped to
// one event.
package cellauto
