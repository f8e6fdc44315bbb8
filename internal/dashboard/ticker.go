package dashboard

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/chart"
	"github.com/dgnsrekt/sp500-explorer/internal/prices"
)

const (
	DefaultTicker = "GOOGL"
	DefaultStart  = "2010-05-31"
	DefaultEnd    = "2020-05-31"
)

type TickerQuery struct {
	Symbol string `json:"symbol"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// TickerPage shows the closing price and volume of a single symbol.
type TickerPage struct {
	Title  string      `json:"title"`
	Query  TickerQuery `json:"query"`
	Bars   int         `json:"bars"`
	Close  *Image      `json:"close,omitempty"`
	Volume *Image      `json:"volume,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func (q TickerQuery) withDefaults() TickerQuery {
	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	if q.Symbol == "" {
		q.Symbol = DefaultTicker
	}
	if q.Start == "" {
		q.Start = DefaultStart
	}
	if q.End == "" {
		q.End = DefaultEnd
	}
	return q
}

// Ticker fetches one symbol over a date range and renders its close and
// volume line charts.
func (r *Runner) Ticker(ctx context.Context, q TickerQuery) *TickerPage {
	q = q.withDefaults()
	page := &TickerPage{
		Title: fmt.Sprintf("Simple Stock Price App: %s", q.Symbol),
		Query: q,
	}

	req, err := prices.DateRange(q.Start, q.End)
	if err != nil {
		page.Error = err.Error()
		return page
	}

	batch, err := r.fetcher.Fetch(ctx, []string{q.Symbol}, req)
	if err != nil {
		r.logger.Warn("ticker fetch failed", zap.String("symbol", q.Symbol), zap.Error(err))
		page.Error = err.Error()
		return page
	}
	series, ok := batch.Series[q.Symbol]
	if !ok {
		page.Error = fmt.Sprintf("no price data for %s", q.Symbol)
		return page
	}
	page.Bars = len(series.Bars)

	format := r.settings.Chart.Format
	for _, field := range []chart.Field{chart.FieldClose, chart.FieldVolume} {
		img, err := chart.LineChart(series, field, r.settings.Chart)
		if err != nil {
			page.Error = err.Error()
			return page
		}
		image := &Image{
			Symbol:      q.Symbol,
			Title:       string(field),
			ContentType: format.ContentType(),
			DataURI:     dataURI(format, img),
		}
		if field == chart.FieldClose {
			page.Close = image
		} else {
			page.Volume = image
		}
	}

	return page
}
