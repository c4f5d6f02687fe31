// Package fit is the boundary between track finding and track fitting.
//
// The finder hands every candidate to a Fitter. HelixFitter is a small
// algebraic reference fitter: a least-squares circle in the transverse plane
// and a straight line of z against arc length.
package fit
