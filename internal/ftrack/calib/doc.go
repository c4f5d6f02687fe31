// Package calib derives criterion cuts from recorded measures.
//
// A run with diagnostics enabled stores the value every criterion computed.
// Calibrator turns those samples into [min, max] bounds that keep a target
// fraction of them, splitting the excluded tail between the low and high
// side as the criterion's registry definition prescribes. WriteHistogram
// renders the samples and the chosen cut as a PNG for inspection.
package calib
