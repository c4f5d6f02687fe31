package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxValues caps the length of a generated range and the number of
// combinations in a sweep.
const maxValues = 10000

// RangeSpec defines a floating-point parameter range for sweeping.
type RangeSpec struct {
	Min  float64
	Max  float64
	Step float64
}

// ParseRangeSpec parses a "min:max:step" string into a RangeSpec.
func ParseRangeSpec(s string) (RangeSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return RangeSpec{}, fmt.Errorf("invalid range format %q: expected min:max:step", s)
	}

	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid min value %q: %w", parts[0], err)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid max value %q: %w", parts[1], err)
	}
	step, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid step value %q: %w", parts[2], err)
	}
	if step <= 0 {
		return RangeSpec{}, fmt.Errorf("step must be positive, got %g", step)
	}
	if lo > hi {
		return RangeSpec{}, fmt.Errorf("min %g exceeds max %g", lo, hi)
	}
	return RangeSpec{Min: lo, Max: hi, Step: step}, nil
}

// Values generates the range from Min to Max inclusive. Values are rounded
// to 1e-9 so accumulated steps land on the grid. It returns nil when the
// range would exceed maxValues entries.
func (r RangeSpec) Values() []float64 {
	if r.Step <= 0 || r.Min > r.Max {
		return nil
	}
	n := int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
	if n > maxValues || n < 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Round((r.Min+float64(i)*r.Step)*1e9) / 1e9
	}
	return out
}

// ParseCSVFloat64s parses a comma-separated list of float64 values.
// Returns nil, nil for empty input strings.
func ParseCSVFloat64s(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseValues parses either a "min:max:step" range or a comma-separated
// list.
func ParseValues(s string) ([]float64, error) {
	if strings.Contains(s, ":") {
		spec, err := ParseRangeSpec(s)
		if err != nil {
			return nil, err
		}
		vs := spec.Values()
		if vs == nil {
			return nil, fmt.Errorf("range %q exceeds %d values", s, maxValues)
		}
		return vs, nil
	}
	return ParseCSVFloat64s(s)
}

// Combinations returns the cartesian product of values, the last dimension
// varying fastest.
func Combinations(values [][]float64) ([][]float64, error) {
	if len(values) == 0 {
		return nil, nil
	}
	total := 1
	for i, v := range values {
		if len(v) == 0 {
			return nil, fmt.Errorf("dimension %d has no values", i)
		}
		total *= len(v)
		if total > maxValues {
			return nil, fmt.Errorf("parameter combinations would exceed safe limit of %d", maxValues)
		}
	}

	out := make([][]float64, total)
	for i := range out {
		out[i] = make([]float64, len(values))
	}
	repeat := 1
	for dim := len(values) - 1; dim >= 0; dim-- {
		dv := values[dim]
		for i := range out {
			out[i][dim] = dv[(i/repeat)%len(dv)]
		}
		repeat *= len(dv)
	}
	return out, nil
}
