package viz

import (
	"errors"
	"fmt"
	"io"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ImageFormat selects the go-chart renderer.
type ImageFormat string

const (
	PNG ImageFormat = "png"
	SVG ImageFormat = "svg"
)

// ErrNoData indicates a chart document has nothing to draw.
var ErrNoData = errors.New("chart has no data")

// ContentType returns the MIME type of an image format.
func (f ImageFormat) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f ImageFormat) provider() (chart.RendererProvider, error) {
	switch f {
	case PNG, "":
		return chart.PNG, nil
	case SVG:
		return chart.SVG, nil
	default:
		return nil, fmt.Errorf("unsupported image format %q", f)
	}
}

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

// RenderPerformance draws the performance line chart. The x axis is the
// sample index; ticks carry the step labels.
func RenderPerformance(w io.Writer, data ChartData, format ImageFormat) error {
	provider, err := format.provider()
	if err != nil {
		return err
	}
	if len(data.Labels) == 0 || len(data.Datasets) == 0 {
		return ErrNoData
	}

	xs := make([]float64, len(data.Labels))
	ticks := make([]chart.Tick, len(data.Labels))
	for i, label := range data.Labels {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: label}
	}
	// go-chart needs a non-zero x range; a lone sample becomes a flat
	// segment centred on its tick.
	single := len(xs) == 1
	if single {
		xs = []float64{-0.5, 0.5}
	}

	graph := chart.Chart{
		Width:  960,
		Height: 420,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Ticks: ticks},
		YAxis: chart.YAxis{
			Name:  "score",
			Range: &chart.ContinuousRange{Min: 0.3, Max: 1.0},
		},
	}
	for _, ds := range data.Datasets {
		style := chart.Style{
			StrokeColor: hexColor(ds.BorderColor),
			StrokeWidth: 2,
		}
		if len(ds.BorderDash) > 0 {
			dash := make([]float64, len(ds.BorderDash))
			for i, d := range ds.BorderDash {
				dash[i] = float64(d)
			}
			style.StrokeDashArray = dash
		}
		ys := ds.Data
		if single && len(ys) == 1 {
			ys = []float64{ys[0], ys[0]}
		}
		graph.Series = append(graph.Series, chart.ContinuousSeries{
			Name:    ds.Label,
			XValues: xs,
			YValues: ys,
			Style:   style,
		})
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(provider, w); err != nil {
		return fmt.Errorf("render performance chart: %w", err)
	}
	return nil
}

// RenderComparison draws the adaptive-vs-baseline bars, one bar per
// category and dataset, coloured by dataset.
func RenderComparison(w io.Writer, data ChartData, format ImageFormat) error {
	provider, err := format.provider()
	if err != nil {
		return err
	}

	var bars []chart.Value
	for i, label := range data.Labels {
		for _, ds := range data.Datasets {
			if i >= len(ds.Data) {
				continue
			}
			color := hexColor(ds.BackgroundColor)
			bars = append(bars, chart.Value{
				Label: label + " (" + ds.Label + ")",
				Value: ds.Data[i],
				Style: chart.Style{FillColor: color, StrokeColor: color, StrokeWidth: 1},
			})
		}
	}
	if len(bars) == 0 {
		return ErrNoData
	}

	bc := chart.BarChart{
		Width:      1200,
		Height:     480,
		BarWidth:   60,
		BarSpacing: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 20},
		},
		Bars: bars,
	}
	if err := bc.Render(provider, w); err != nil {
		return fmt.Errorf("render comparison chart: %w", err)
	}
	return nil
}
