package sweep

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteChart renders efficiency, fake rate and duplicate rate against the
// sweep combinations as a standalone HTML page.
func WriteChart(w io.Writer, title string, params []Param, results []Result) error {
	labels := make([]string, len(results))
	eff := make([]opts.LineData, len(results))
	fake := make([]opts.LineData, len(results))
	dup := make([]opts.LineData, len(results))
	for i, r := range results {
		labels[i] = comboLabel(r.Values)
		eff[i] = opts.LineData{Value: r.Score.Efficiency()}
		fake[i] = opts.LineData{Value: r.Score.FakeRate()}
		dup[i] = opts.LineData{Value: r.Score.DuplicateRate()}
	}

	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name()
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%s, %d points", strings.Join(names, " / "), len(results))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: strings.Join(names, " / "), NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Rate", Min: 0, Max: 1}),
	)
	line.SetXAxis(labels).
		AddSeries("efficiency", eff).
		AddSeries("fake rate", fake).
		AddSeries("duplicate rate", dup)

	return line.Render(w)
}

func comboLabel(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, "/")
}
