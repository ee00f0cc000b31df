// Package plots draws relaxation histories and 2-D helix layouts.
package plots

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to plot")

// Default PNG size.
const (
	Width  = 10 * vg.Inch
	Height = 5 * vg.Inch
)

var strainColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// StrainPlot builds a line plot of a strain history, one point per step.
// With logScale the Y axis is logarithmic and non-positive strains are
// dropped.
func StrainPlot(history []float64, title string, logScale bool) (*plot.Plot, error) {
	pts := make(plotter.XYs, 0, len(history))
	for i, s := range history {
		if math.IsNaN(s) || math.IsInf(s, 0) || (logScale && s <= 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i + 1), Y: s})
	}
	if len(pts) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Strain"
	if logScale {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = strainColor
	line.Width = vg.Points(1)
	p.Add(line)
	return p, nil
}

// WriteStrainPNG renders the strain history as a PNG.
func WriteStrainPNG(w io.Writer, history []float64, title string, logScale bool) error {
	p, err := StrainPlot(history, title, logScale)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
