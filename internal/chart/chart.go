// Package chart renders price series as PNG or SVG images.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/dgnsrekt/sp500-explorer/internal/prices"
)

var ErrNotEnoughData = errors.New("at least two bars are required to draw a chart")

// Format selects the image encoding.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// Field selects the plotted value for line charts.
type Field string

const (
	FieldClose  Field = "close"
	FieldVolume Field = "volume"
)

// SkyBlue is the price chart color.
var SkyBlue = drawing.Color{R: 135, G: 206, B: 235, A: 255}

type Options struct {
	Width  int
	Height int
	Format Format
}

// DefaultOptions returns a 1024x512 PNG.
func DefaultOptions() Options {
	return Options{Width: 1024, Height: 512, Format: FormatPNG}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// PriceChart draws the closing price as a line over a filled area, titled
// with the symbol, dates on a rotated x axis.
func PriceChart(s *prices.Series, opts Options) ([]byte, error) {
	if len(s.Bars) < 2 {
		return nil, fmt.Errorf("%s: %w", s.Symbol, ErrNotEnoughData)
	}

	area := gochart.TimeSeries{
		Name:    s.Symbol,
		XValues: s.Times(),
		YValues: s.Closes(),
		Style: gochart.Style{
			StrokeColor: SkyBlue.WithAlpha(204), // 0.8
			StrokeWidth: 2,
			FillColor:   SkyBlue.WithAlpha(77), // 0.3
		},
	}

	graph := gochart.Chart{
		Title:  s.Symbol,
		Width:  opts.Width,
		Height: opts.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis:  dateAxis(s.Bars[0].Time, s.Bars[len(s.Bars)-1].Time),
		YAxis:  gochart.YAxis{Name: "Closing Price"},
		Series: []gochart.Series{area},
	}

	return render(graph, opts.Format)
}

// LineChart draws one field of the series as a plain line.
func LineChart(s *prices.Series, field Field, opts Options) ([]byte, error) {
	if len(s.Bars) < 2 {
		return nil, fmt.Errorf("%s: %w", s.Symbol, ErrNotEnoughData)
	}

	var values []float64
	var name string
	switch field {
	case FieldClose:
		values, name = s.Closes(), "Closing Price"
	case FieldVolume:
		values, name = s.Volumes(), "Volume"
	default:
		return nil, fmt.Errorf("unknown field: %s", field)
	}

	graph := gochart.Chart{
		Title:  fmt.Sprintf("%s %s", s.Symbol, name),
		Width:  opts.Width,
		Height: opts.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: dateAxis(s.Bars[0].Time, s.Bars[len(s.Bars)-1].Time),
		YAxis: gochart.YAxis{Name: name},
		Series: []gochart.Series{gochart.TimeSeries{
			Name:    s.Symbol,
			XValues: s.Times(),
			YValues: values,
			Style: gochart.Style{
				StrokeColor: gochart.ColorBlue,
				StrokeWidth: 1.5,
			},
		}},
	}

	return render(graph, opts.Format)
}

func dateAxis(first, last time.Time) gochart.XAxis {
	var formatter gochart.ValueFormatter = gochart.TimeDateValueFormatter
	if last.Sub(first) > 2*365*24*time.Hour {
		formatter = gochart.TimeValueFormatterWithFormat("2006-01")
	}
	return gochart.XAxis{
		Name:           "Date",
		ValueFormatter: formatter,
		Style: gochart.Style{
			TextRotationDegrees: 90,
		},
	}
}

func render(graph gochart.Chart, format Format) ([]byte, error) {
	provider := gochart.PNG
	if format == FormatSVG {
		provider = gochart.SVG
	}

	var buf bytes.Buffer
	if err := graph.Render(provider, &buf); err != nil {
		return nil, fmt.Errorf("rendering chart: %w", err)
	}
	return buf.Bytes(), nil
}
