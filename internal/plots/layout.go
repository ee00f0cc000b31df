package plots

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/ensnano-geometry/internal/design"
)

// LayoutScatter returns a scatter chart of the 2-D helix positions, one
// series per grid plus one for free helices.
func LayoutScatter(d *design.Design) *charts.Scatter {
	series := map[int][]opts.ScatterData{}
	var free []opts.ScatterData
	pad := 5.0
	for _, id := range d.HelixIDs() {
		h, _ := d.Helix(id)
		pos := h.Isometry2D.Translation
		pt := opts.ScatterData{Value: []interface{}{pos.X, pos.Y, id}, Name: fmt.Sprintf("helix %d", id)}
		if h.GridPosition != nil {
			series[h.GridPosition.Grid] = append(series[h.GridPosition.Grid], pt)
		} else {
			free = append(free, pt)
		}
		pad = math.Max(pad, math.Max(math.Abs(pos.X), math.Abs(pos.Y))+2)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Helix layout", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Helix layout", Subtitle: fmt.Sprintf("helices=%d strands=%d", len(d.Helices), len(d.Strands))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (nm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (nm)", NameLocation: "middle", NameGap: 30}),
	)
	for _, gid := range d.GridIDs() {
		if pts := series[gid]; len(pts) > 0 {
			scatter.AddSeries(fmt.Sprintf("grid %d", gid), pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
		}
	}
	if len(free) > 0 {
		scatter.AddSeries("free", free, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
	}
	return scatter
}

// StrainLine returns a line chart of a strain history.
func StrainLine(history []float64) *charts.Line {
	x := make([]int, len(history))
	y := make([]opts.LineData, len(history))
	for i, s := range history {
		x[i] = i + 1
		y[i] = opts.LineData{Value: s}
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Strain", Subtitle: fmt.Sprintf("steps=%d", len(history))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "log", Name: "strain"}),
	)
	line.SetXAxis(x).AddSeries("strain", y)
	return line
}

// WriteLayoutHTML renders the layout scatter, followed by the strain
// history when there is one, as a single HTML page.
func WriteLayoutHTML(w io.Writer, d *design.Design, history []float64) error {
	page := components.NewPage()
	page.AddCharts(LayoutScatter(d))
	if len(history) > 0 {
		page.AddCharts(StrainLine(history))
	}
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render layout: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
