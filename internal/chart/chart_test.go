package chart

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/sp500-explorer/internal/prices"
)

func series(n int) *prices.Series {
	s := &prices.Series{Symbol: "AAPL"}
	start := time.Date(2026, 1, 2, 14, 30, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Bars = append(s.Bars, prices.Bar{
			Time:   start.AddDate(0, 0, i),
			Close:  200 + float64(i),
			Volume: int64(1000 * (i + 1)),
		})
	}
	return s
}

func TestPriceChart_PNG(t *testing.T) {
	data, err := PriceChart(series(30), Options{Width: 640, Height: 320, Format: FormatPNG})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 320, img.Bounds().Dy())
}

func TestPriceChart_SVGHasTitle(t *testing.T) {
	data, err := PriceChart(series(10), Options{Width: 640, Height: 320, Format: FormatSVG})
	require.NoError(t, err)

	svg := string(data)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(svg), "<svg"))
	assert.Contains(t, svg, "AAPL")
}

func TestPriceChart_NotEnoughData(t *testing.T) {
	_, err := PriceChart(series(1), DefaultOptions())
	assert.ErrorIs(t, err, ErrNotEnoughData)
}

func TestLineChart(t *testing.T) {
	for _, f := range []Field{FieldClose, FieldVolume} {
		data, err := LineChart(series(20), f, DefaultOptions())
		require.NoError(t, err, "field %s", f)
		assert.NotEmpty(t, data)
	}

	_, err := LineChart(series(20), Field("open"), DefaultOptions())
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", FormatPNG.ContentType())
	assert.Equal(t, "image/svg+xml", FormatSVG.ContentType())
}
