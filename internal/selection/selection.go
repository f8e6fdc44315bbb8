// Package selection models the sidebar state and applies it to the
// constituent table.
package selection

import (
	"net/url"
	"sort"
	"strconv"

	"github.com/dgnsrekt/sp500-explorer/internal/table"
)

const (
	MinCompanies = 1
	MaxCompanies = 10
)

// State is the sidebar selection for one rerun.
type State struct {
	Sectors      map[string]bool `json:"-"`
	Symbols      map[string]bool `json:"-"`
	CompanyCount int             `json:"company_count"`
	ShowPlots    bool            `json:"show_plots"`
}

// Columns names the table columns the selection applies to.
type Columns struct {
	Symbol string
	Sector string
}

// Request is the JSON shape of a selection sent by a websocket client.
// A nil slice means "everything selected".
type Request struct {
	Sectors      []string `json:"sectors"`
	Symbols      []string `json:"symbols"`
	CompanyCount int      `json:"company_count"`
	ShowPlots    bool     `json:"show_plots"`
}

// ClampCount bounds a company count to [MinCompanies, MaxCompanies].
func ClampCount(n int) int {
	if n < MinCompanies {
		return MinCompanies
	}
	if n > MaxCompanies {
		return MaxCompanies
	}
	return n
}

// Default selects every sector and every symbol, like a fresh page load.
func Default(sectors, symbols []string) State {
	return State{
		Sectors:      toSet(sectors),
		Symbols:      toSet(symbols),
		CompanyCount: MinCompanies,
	}
}

// FromQuery reads the selection from URL query parameters. A missing
// sector or symbol parameter selects every option; a parameter present
// with only empty values selects nothing.
func FromQuery(q url.Values, sectors, symbols []string) State {
	s := Default(sectors, symbols)
	if vs, ok := q["sector"]; ok {
		s.Sectors = toSet(vs)
	}
	if vs, ok := q["symbol"]; ok {
		s.Symbols = toSet(vs)
	}
	if c := q.Get("count"); c != "" {
		if n, err := strconv.Atoi(c); err == nil {
			s.CompanyCount = n
		}
	}
	s.CompanyCount = ClampCount(s.CompanyCount)
	s.ShowPlots = q.Get("plots") != ""
	return s
}

// FromRequest converts a websocket selection into a State.
func FromRequest(r Request, sectors, symbols []string) State {
	s := Default(sectors, symbols)
	if r.Sectors != nil {
		s.Sectors = toSet(r.Sectors)
	}
	if r.Symbols != nil {
		s.Symbols = toSet(r.Symbols)
	}
	s.CompanyCount = ClampCount(r.CompanyCount)
	s.ShowPlots = r.ShowPlots
	return s
}

// Apply filters t down to the selected sectors and symbols.
func Apply(t *table.Table, cols Columns, s State) (*table.Table, error) {
	return t.Filter(cols.Sector, s.Sectors, cols.Symbol, s.Symbols)
}

// SortedSectors returns the selected sectors in order.
func (s State) SortedSectors() []string { return sortedKeys(s.Sectors) }

// SortedSymbols returns the selected symbols in order.
func (s State) SortedSymbols() []string { return sortedKeys(s.Symbols) }

func toSet(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		m[v] = true
	}
	return m
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k, ok := range m {
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
