package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVWriter writes sweep results, one row per combination.
type CSVWriter struct {
	w      *csv.Writer
	params []Param
}

// NewCSVWriter creates a CSVWriter for results of params.
func NewCSVWriter(w io.Writer, params []Param) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), params: params}
}

// WriteHeader writes the header row.
func (c *CSVWriter) WriteHeader() error {
	header := make([]string, 0, len(c.params)+10)
	for _, p := range c.params {
		header = append(header, p.Name())
	}
	header = append(header,
		"events", "hits", "candidates", "tracks", "fit_failures", "truncated_events",
		"reconstructable", "found", "efficiency", "fake_rate", "duplicate_rate")
	return c.w.Write(header)
}

// WriteResult writes one result row.
func (c *CSVWriter) WriteResult(r Result) error {
	if len(r.Values) != len(c.params) {
		return fmt.Errorf("result has %d values, want %d", len(r.Values), len(c.params))
	}
	row := make([]string, 0, len(r.Values)+10)
	for _, v := range r.Values {
		row = append(row, formatFloat(v))
	}
	s := r.Summary
	row = append(row,
		strconv.Itoa(s.Events), strconv.Itoa(s.Hits), strconv.Itoa(s.Candidates),
		strconv.Itoa(s.Tracks), strconv.Itoa(s.FitFailures), strconv.Itoa(s.Truncated),
		strconv.Itoa(r.Score.Reconstructable), strconv.Itoa(r.Score.Found),
		formatFloat(r.Score.Efficiency()), formatFloat(r.Score.FakeRate()), formatFloat(r.Score.DuplicateRate()))
	return c.w.Write(row)
}

// WriteAll writes the header and every result, then flushes.
func (c *CSVWriter) WriteAll(results []Result) error {
	if err := c.WriteHeader(); err != nil {
		return err
	}
	for _, r := range results {
		if err := c.WriteResult(r); err != nil {
			return err
		}
	}
	return c.Flush()
}

// Flush flushes buffered rows and reports any write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }
