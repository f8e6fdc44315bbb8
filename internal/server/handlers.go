package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/dashboard"
	"github.com/dgnsrekt/sp500-explorer/internal/export"
	"github.com/dgnsrekt/sp500-explorer/internal/prices"
	"github.com/dgnsrekt/sp500-explorer/internal/selection"
	"github.com/dgnsrekt/sp500-explorer/internal/table"
)

// Dashboard is the page model the handlers render.
type Dashboard interface {
	Options(ctx context.Context) (*table.Table, dashboard.Options, error)
	Filter(ctx context.Context, pick dashboard.Selector) (*table.Table, dashboard.Options, selection.State, error)
	Rerun(ctx context.Context, pick dashboard.Selector) *dashboard.Page
	Ticker(ctx context.Context, q dashboard.TickerQuery) *dashboard.TickerPage
}

type Server struct {
	dash     Dashboard
	fetcher  dashboard.Fetcher
	reloader *ReloadManager
	sessions func() int
	pages    *pages
	logger   *zap.Logger
}

func NewServer(dash Dashboard, fetcher dashboard.Fetcher, reloader *ReloadManager, logger *zap.Logger) (*Server, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	return &Server{
		dash:     dash,
		fetcher:  fetcher,
		reloader: reloader,
		sessions: func() int { return 0 },
		pages:    p,
		logger:   logger,
	}, nil
}

// CountSessions sets the source of the session count reported by health.
func (s *Server) CountSessions(fn func() int) {
	s.sessions = fn
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status       string    `json:"status"`
	CachedTables int       `json:"cached_tables"`
	Sessions     int       `json:"sessions"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

type tableResponse struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	Dimension string     `json:"dimension"`
}

type pricesResponse struct {
	Requested []string         `json:"requested"`
	Series    []*prices.Series `json:"series"`
	Missing   []string         `json:"missing"`
}

type resetResponse struct {
	Status      string    `json:"status"`
	Count       int       `json:"count"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// GetHealth handles GET /api/v1/health
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.reloader.IsReloading() {
		status = "reloading"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       status,
		CachedTables: s.reloader.Cached(),
		Sessions:     s.sessions(),
		RefreshedAt:  s.reloader.LoadedAt(),
	})
}

// GetSectors handles GET /api/v1/sectors
func (s *Server) GetSectors(w http.ResponseWriter, r *http.Request) {
	_, opts, err := s.dash.Options(r.Context())
	if err != nil {
		s.sourceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// GetConstituents handles GET /api/v1/constituents
func (s *Server) GetConstituents(w http.ResponseWriter, r *http.Request) {
	t, _, _, err := s.dash.Filter(r.Context(), dashboard.Query(r.URL.Query()))
	if err != nil {
		s.sourceError(w, err)
		return
	}
	rows, cols := t.Shape()
	writeJSON(w, http.StatusOK, tableResponse{
		Columns:   t.Columns,
		Rows:      t.Rows,
		Dimension: dashboard.Dimension(rows, cols),
	})
}

// ExportConstituents handles GET /api/v1/export
func (s *Server) ExportConstituents(w http.ResponseWriter, r *http.Request) {
	t, _, _, err := s.dash.Filter(r.Context(), dashboard.Query(r.URL.Query()))
	if err != nil {
		s.sourceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "link" {
		link, err := export.DownloadLink(t)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(link))
		return
	}

	data, err := export.CSV(t)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	w.Write(data)
}

// GetPrices handles GET /api/v1/prices
func (s *Server) GetPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := prices.YearToDate()
	if start, end := q.Get("start"), q.Get("end"); start != "" || end != "" {
		ranged, err := prices.DateRange(start, end)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		req = ranged
	}
	if p := q.Get("period"); p != "" {
		req.Period = p
	}
	if i := q.Get("interval"); i != "" {
		req.Interval = i
	}

	batch, err := s.fetcher.Fetch(r.Context(), q["symbol"], req)
	if err != nil && batch == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.logger.Debug("prices served",
		zap.Int("requested", batch.Total),
		zap.Int("found", batch.Success),
		zap.Int("missing", len(batch.Missing)),
	)

	series := batch.Ordered()
	missing := batch.Missing
	if missing == nil {
		missing = []string{}
	}
	writeJSON(w, http.StatusOK, pricesResponse{
		Requested: batch.Symbols,
		Series:    series,
		Missing:   missing,
	})
}

// ResetCache handles POST /api/v1/cache/reset
func (s *Server) ResetCache(w http.ResponseWriter, r *http.Request) {
	result, err := s.reloader.Reload(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrReloadInProgress) {
			status = http.StatusConflict
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, resetResponse{
		Status:      "success",
		Count:       result.Dropped,
		RefreshedAt: result.LoadedAt,
	})
}

func (s *Server) sourceError(w http.ResponseWriter, err error) {
	s.logger.Warn("constituent source unavailable", zap.Error(err))
	writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
