package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/dashboard"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	tmpl *template.Template
}

func loadPages() (*pages, error) {
	tmpl, err := template.New("pages").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &pages{tmpl: tmpl}, nil
}

type option struct {
	Value    string
	Selected bool
}

type chartView struct {
	Symbol string
	Src    template.URL
}

type indexView struct {
	Page         *dashboard.Page
	SidebarTitle string
	TableHeader  string
	ChartsHeader string
	Sectors      []option
	Symbols      []option
	DownloadLink template.HTML
	Charts       []chartView
}

type tickerView struct {
	Page   *dashboard.TickerPage
	Close  *chartView
	Volume *chartView
}

func newIndexView(p *dashboard.Page) indexView {
	v := indexView{
		Page:         p,
		SidebarTitle: dashboard.SidebarTitle,
		TableHeader:  dashboard.TableHeader,
		ChartsHeader: dashboard.ChartsHeader,
		Sectors:      options(p.Options.Sectors, p.Selection.Sectors),
		Symbols:      options(p.Options.Symbols, p.Selection.Symbols),
		// Built by export.DownloadLink from base64 text only.
		DownloadLink: template.HTML(p.DownloadLink),
	}
	for _, c := range p.Charts {
		v.Charts = append(v.Charts, chartView{Symbol: c.Symbol, Src: template.URL(c.DataURI)})
	}
	return v
}

func newTickerView(p *dashboard.TickerPage) tickerView {
	v := tickerView{Page: p}
	if p.Close != nil {
		v.Close = &chartView{Symbol: p.Close.Symbol, Src: template.URL(p.Close.DataURI)}
	}
	if p.Volume != nil {
		v.Volume = &chartView{Symbol: p.Volume.Symbol, Src: template.URL(p.Volume.DataURI)}
	}
	return v
}

func options(all, selected []string) []option {
	picked := make(map[string]bool, len(selected))
	for _, s := range selected {
		picked[s] = true
	}
	out := make([]option, len(all))
	for i, v := range all {
		out[i] = option{Value: v, Selected: picked[v]}
	}
	return out
}

// Index handles GET /
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	page := s.dash.Rerun(r.Context(), dashboard.Query(r.URL.Query()))
	s.render(w, "index", newIndexView(page))
}

// Ticker handles GET /ticker
func (s *Server) Ticker(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := s.dash.Ticker(r.Context(), dashboard.TickerQuery{
		Symbol: q.Get("symbol"),
		Start:  q.Get("start"),
		End:    q.Get("end"),
	})
	s.render(w, "ticker", newTickerView(page))
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
