// Package sweep runs the track finder over a grid of criterion bounds and
// scores each point against truth labels.
//
// A Param names one bound of one criterion ("Crit2_DeltaPhi.max") and the
// values it takes, written as "min:max:step" or a comma list. Runner
// processes the same events once per combination of values, in parallel,
// and reports the track-finding efficiency together with the fake and
// duplicate rates. Results are written as CSV and as an HTML chart.
package sweep
