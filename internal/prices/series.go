// Package prices fetches and shapes per-symbol OHLCV series.
package prices

import (
	"time"

	"github.com/dgnsrekt/sp500-explorer/internal/api"
)

type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Series is one symbol's bars in ascending time order.
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Times returns the bar timestamps.
func (s *Series) Times() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Time
	}
	return out
}

// Closes returns the closing prices.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the traded volumes as floats for plotting.
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// FromChart converts a provider chart result into a Series. Samples with
// no close are skipped. When autoAdjust is set and adjusted closes are
// present, open/high/low/close are scaled by adjclose/close.
func FromChart(symbol string, res *api.ChartResult, autoAdjust bool) *Series {
	s := &Series{Symbol: symbol}
	if res == nil || len(res.Indicators.Quote) == 0 {
		return s
	}
	q := res.Indicators.Quote[0]

	var adj []*float64
	if autoAdjust && len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}

	for i, ts := range res.Timestamp {
		c := at(q.Close, i)
		if c == nil {
			continue
		}
		bar := Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  deref(at(q.Open, i)),
			High:  deref(at(q.High, i)),
			Low:   deref(at(q.Low, i)),
			Close: *c,
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		if a := at(adj, i); a != nil && *c != 0 {
			ratio := *a / *c
			bar.Open *= ratio
			bar.High *= ratio
			bar.Low *= ratio
			bar.Close = *a
		}
		s.Bars = append(s.Bars, bar)
	}
	return s
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
