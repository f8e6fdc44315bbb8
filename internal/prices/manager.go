package prices

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/api"
)

// MaxSymbols caps every fetch: only the first ten symbols are requested.
const MaxSymbols = 10

type Manager struct {
	client   api.Client
	sessions *Sessions
	workers  int
	logger   *zap.Logger
}

type BatchResult struct {
	Total    int
	Success  int
	NotFound int
	Failed   int
	Symbols  []string // symbols actually requested, in order
	Series   map[string]*Series
	Missing  []string
	Errors   []string
}

// Ordered returns the fetched series in request order, skipping misses.
func (r *BatchResult) Ordered() []*Series {
	out := make([]*Series, 0, len(r.Series))
	for _, sym := range r.Symbols {
		if s, ok := r.Series[sym]; ok {
			out = append(out, s)
		}
	}
	return out
}

type task struct {
	index  int
	symbol string
}

type taskResult struct {
	task     task
	series   *Series
	notFound bool
	err      error
}

func NewManager(client api.Client, sessions *Sessions, workers int, logger *zap.Logger) *Manager {
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		client:   client,
		sessions: sessions,
		workers:  workers,
		logger:   logger,
	}
}

// Cap returns at most the first MaxSymbols symbols.
func Cap(symbols []string) []string {
	if len(symbols) > MaxSymbols {
		return symbols[:MaxSymbols]
	}
	return symbols
}

// Fetch retrieves series for the first MaxSymbols symbols concurrently.
// Symbols without data are reported in Missing and never block the rest.
func (m *Manager) Fetch(ctx context.Context, symbols []string, req Request) (*BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	symbols = Cap(symbols)
	result := &BatchResult{
		Total:   len(symbols),
		Symbols: append([]string(nil), symbols...),
		Series:  make(map[string]*Series, len(symbols)),
	}

	if len(symbols) == 0 {
		return result, nil
	}

	jobs := make(chan task, len(symbols))
	results := make(chan taskResult, len(symbols))

	workers := m.workers
	if workers > len(symbols) {
		workers = len(symbols)
	}

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.worker(ctx, req, jobs, results)
		}()
	}

	// Send jobs
	go func() {
		defer close(jobs)
		for i, sym := range symbols {
			select {
			case <-ctx.Done():
				return
			case jobs <- task{index: i, symbol: sym}:
			}
		}
	}()

	// Wait for workers and close results
	go func() {
		wg.Wait()
		close(results)
	}()

	missing := make([]bool, len(symbols))
	for r := range results {
		switch {
		case r.notFound:
			result.NotFound++
			missing[r.task.index] = true
		case r.err != nil:
			result.Failed++
			missing[r.task.index] = true
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", r.task.symbol, r.err))
		default:
			result.Success++
			result.Series[r.task.symbol] = r.series
		}
	}

	for i, sym := range symbols {
		if missing[i] {
			result.Missing = append(result.Missing, sym)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	return result, nil
}

func (m *Manager) worker(ctx context.Context, req Request, jobs <-chan task, results chan<- taskResult) {
	for t := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := m.processTask(ctx, req, t)

		select {
		case <-ctx.Done():
			return
		case results <- r:
		}
	}
}

func (m *Manager) processTask(ctx context.Context, req Request, t task) (r taskResult) {
	r.task = t
	defer func() {
		if p := recover(); p != nil {
			m.logger.Error("price task panicked", zap.String("symbol", t.symbol), zap.Any("panic", p))
			r = taskResult{task: t, err: fmt.Errorf("processing %s: %v", t.symbol, p)}
		}
	}()

	q := api.ChartQuery{
		Range:          req.Period,
		Start:          req.Start,
		End:            req.End,
		Interval:       req.Interval,
		IncludePrePost: true,
	}

	chart, err := m.client.GetChart(ctx, api.ProviderSymbol(t.symbol), q)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			m.logger.Debug("no price data", zap.String("symbol", t.symbol))
			r.notFound = true
			return r
		}
		m.logger.Warn("price fetch failed", zap.String("symbol", t.symbol), zap.Error(err))
		r.err = err
		return r
	}

	series := FromChart(t.symbol, chart, true)
	if m.sessions != nil {
		if dropped := m.sessions.Trim(series, req.Interval); dropped > 0 {
			m.logger.Debug("dropped off-session bars", zap.String("symbol", t.symbol), zap.Int("count", dropped))
		}
	}

	if len(series.Bars) == 0 {
		r.notFound = true
		return r
	}

	r.series = series
	return r
}
