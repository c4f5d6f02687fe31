// Package hit owns the per-event hit pool consumed by the track finder.
//
// Responsibilities: the immutable Hit value, grouping hits into ordered
// detector layers, the optional virtual interaction-point hit, and the
// |z| ordering used before fitting.
// Key types: Hit, Pool.
//
// Dependency rule: hit is a leaf package. It must not import criteria,
// cellauto or anything above them.
package hit
