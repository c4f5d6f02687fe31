// Package criteria owns the pluggable compatibility tests that decide
// whether two segments may be linked in the segment graph.
//
// Every criterion bounds one scalar measure of a parent/child segment pair
// with an inclusive [min, max] range. Criteria are grouped by arity, the
// number of distinct hits the pair spans: 2Hit criteria compare two single
// hits, 3Hit criteria two overlapping 2-hit segments and 4Hit criteria two
// overlapping 3-hit segments.
//
// Criteria are immutable after construction and safe for concurrent use.
// Diagnostic measures are returned with each verdict rather than stored.
package criteria
