package dashboard

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/chart"
	"github.com/dgnsrekt/sp500-explorer/internal/constituents"
	"github.com/dgnsrekt/sp500-explorer/internal/export"
	"github.com/dgnsrekt/sp500-explorer/internal/prices"
	"github.com/dgnsrekt/sp500-explorer/internal/selection"
	"github.com/dgnsrekt/sp500-explorer/internal/table"
)

// Fetcher retrieves price series for a list of symbols.
type Fetcher interface {
	Fetch(ctx context.Context, symbols []string, req prices.Request) (*prices.BatchResult, error)
}

var _ Fetcher = (*prices.Manager)(nil)

// Selector builds the selection once the sidebar options are known.
type Selector func(sectors, symbols []string) selection.State

// Query reads the selection from URL query parameters.
func Query(q url.Values) Selector {
	return func(sectors, symbols []string) selection.State {
		return selection.FromQuery(q, sectors, symbols)
	}
}

// Request reads the selection from a websocket or API request body.
func Request(r selection.Request) Selector {
	return func(sectors, symbols []string) selection.State {
		return selection.FromRequest(r, sectors, symbols)
	}
}

// State uses a fixed selection.
func State(s selection.State) Selector {
	return func(_, _ []string) selection.State { return s }
}

type Settings struct {
	URL        string
	TableIndex int
	Columns    selection.Columns
	Prices     prices.Request
	Chart      chart.Options
}

type Runner struct {
	source   constituents.Source
	fetcher  Fetcher
	settings Settings
	logger   *zap.Logger
}

func NewRunner(source constituents.Source, fetcher Fetcher, settings Settings, logger *zap.Logger) *Runner {
	return &Runner{
		source:   source,
		fetcher:  fetcher,
		settings: settings,
		logger:   logger,
	}
}

// Options loads the constituent table and returns the sorted sector and
// symbol values offered by the sidebar.
func (r *Runner) Options(ctx context.Context) (*table.Table, Options, error) {
	t, err := r.source.Load(ctx, r.settings.URL, r.settings.TableIndex)
	if err != nil {
		return nil, Options{}, err
	}
	sectors, err := t.Unique(r.settings.Columns.Sector)
	if err != nil {
		return nil, Options{}, err
	}
	symbols, err := t.Unique(r.settings.Columns.Symbol)
	if err != nil {
		return nil, Options{}, err
	}
	return t, Options{
		Sectors:      sectors,
		Symbols:      symbols,
		MinCompanies: selection.MinCompanies,
		MaxCompanies: selection.MaxCompanies,
	}, nil
}

// Filter loads the table and applies the selection built by pick.
func (r *Runner) Filter(ctx context.Context, pick Selector) (*table.Table, Options, selection.State, error) {
	full, opts, err := r.Options(ctx)
	if err != nil {
		return nil, Options{}, selection.State{}, err
	}

	state := pick(opts.Sectors, opts.Symbols)
	state.CompanyCount = selection.ClampCount(state.CompanyCount)

	filtered, err := selection.Apply(full, r.settings.Columns, state)
	if err != nil {
		return nil, opts, state, err
	}
	return filtered, opts, state, nil
}

// SymbolColumn names the column holding ticker symbols.
func (r *Runner) SymbolColumn() string {
	return r.settings.Columns.Symbol
}

// Rerun builds the whole page for one selection. Failures never escape:
// a load failure leaves an error on the page with no table and no charts,
// and symbols without price data are listed in Missing.
func (r *Runner) Rerun(ctx context.Context, pick Selector) *Page {
	page := &Page{
		Title:       Title,
		Description: Description,
		SourceURL:   r.settings.URL,
	}

	filtered, opts, state, err := r.Filter(ctx, pick)
	if err != nil {
		r.logger.Error("loading constituents failed", zap.String("url", r.settings.URL), zap.Error(err))
		page.Error = err.Error()
		return page
	}
	page.Options = opts
	page.Selection = Selected{
		Sectors:      state.SortedSectors(),
		Symbols:      state.SortedSymbols(),
		CompanyCount: state.CompanyCount,
		ShowPlots:    state.ShowPlots,
	}
	page.Table = filtered
	page.Rows, page.Columns = filtered.Shape()
	page.Dimension = Dimension(page.Rows, page.Columns)

	link, err := export.DownloadLink(filtered)
	if err != nil {
		r.logger.Warn("building download link failed", zap.Error(err))
	} else {
		page.DownloadLink = link
	}

	symbols, err := filtered.Column(r.settings.Columns.Symbol)
	if err != nil {
		page.Error = err.Error()
		return page
	}

	batch, err := r.fetcher.Fetch(ctx, prices.Cap(symbols), r.settings.Prices)
	if err != nil {
		r.logger.Warn("price fetch incomplete", zap.Error(err))
	}
	if batch == nil {
		return page
	}
	page.Missing = batch.Missing

	if state.ShowPlots {
		page.Charts = r.plots(symbols, batch, state.CompanyCount)
	}

	r.logger.Debug("rerun complete",
		zap.Int("rows", page.Rows),
		zap.Int("fetched", batch.Success),
		zap.Int("missing", len(batch.Missing)),
		zap.Int("charts", len(page.Charts)))

	return page
}

// plots renders the first count filtered symbols, skipping any without data.
func (r *Runner) plots(symbols []string, batch *prices.BatchResult, count int) []Image {
	if len(symbols) > count {
		symbols = symbols[:count]
	}

	images := make([]Image, 0, len(symbols))
	for _, sym := range symbols {
		series, ok := batch.Series[sym]
		if !ok {
			continue
		}
		img, err := chart.PriceChart(series, r.settings.Chart)
		if err != nil {
			r.logger.Warn("chart skipped", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		images = append(images, Image{
			Symbol:      sym,
			Title:       sym,
			ContentType: r.settings.Chart.Format.ContentType(),
			DataURI:     dataURI(r.settings.Chart.Format, img),
		})
	}
	return images
}
