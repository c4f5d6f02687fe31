package calib

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// HistogramBins is the bin count used by WriteHistogram.
const HistogramBins = 50

var cutColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}

// WriteHistogram renders values as a histogram with the cut window marked by
// two vertical lines and saves it to path. The image format follows the
// extension (.png, .svg, .pdf).
func WriteHistogram(path string, cut Cut, values []float64) error {
	if len(values) == 0 {
		return fmt.Errorf("%s: %w", cut.Name, ErrNoSamples)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%d samples)", cut.Name, len(values))
	p.X.Label.Text = "Value"
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(plotter.Values(values), HistogramBins)
	if err != nil {
		return fmt.Errorf("failed to bin %s: %w", cut.Name, err)
	}
	p.Add(h)

	ymax := 0.0
	for _, b := range h.Bins {
		ymax = max(ymax, b.Weight)
	}
	for _, x := range []float64{cut.Min, cut.Max} {
		l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: ymax}})
		if err != nil {
			return fmt.Errorf("failed to draw cut line: %w", err)
		}
		l.Color = cutColor
		l.Width = vg.Points(1.5)
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(l)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
