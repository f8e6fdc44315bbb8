package selection

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/sp500-explorer/internal/table"
)

var cols = Columns{Symbol: "Symbol", Sector: "Sector"}

func TestClampCount(t *testing.T) {
	cases := map[int]int{-5: 1, 0: 1, 1: 1, 7: 7, 10: 10, 11: 10, 500: 10}
	for in, want := range cases {
		got := ClampCount(in)
		assert.Equal(t, want, got, "ClampCount(%d)", in)
		assert.GreaterOrEqual(t, got, MinCompanies)
		assert.LessOrEqual(t, got, MaxCompanies)
	}
}

func TestFromQuery_DefaultsSelectEverything(t *testing.T) {
	s := FromQuery(url.Values{}, []string{"X", "Y"}, []string{"A", "B"})

	assert.Equal(t, []string{"X", "Y"}, s.SortedSectors())
	assert.Equal(t, []string{"A", "B"}, s.SortedSymbols())
	assert.Equal(t, 1, s.CompanyCount)
	assert.False(t, s.ShowPlots)
}

func TestFromQuery_ExplicitEmptySelection(t *testing.T) {
	q := url.Values{"symbol": {""}}
	s := FromQuery(q, []string{"X"}, []string{"A"})

	assert.Empty(t, s.Symbols)
	assert.Equal(t, []string{"X"}, s.SortedSectors())
}

func TestFromQuery_CountAndPlots(t *testing.T) {
	q := url.Values{"count": {"42"}, "plots": {"1"}}
	s := FromQuery(q, nil, nil)
	assert.Equal(t, 10, s.CompanyCount)
	assert.True(t, s.ShowPlots)

	q = url.Values{"count": {"nope"}}
	assert.Equal(t, 1, FromQuery(q, nil, nil).CompanyCount)
}

func TestFromRequest(t *testing.T) {
	s := FromRequest(Request{Sectors: []string{"X"}, CompanyCount: 0, ShowPlots: true},
		[]string{"X", "Y"}, []string{"A", "B"})

	assert.Equal(t, []string{"X"}, s.SortedSectors())
	assert.Equal(t, []string{"A", "B"}, s.SortedSymbols())
	assert.Equal(t, 1, s.CompanyCount)
	assert.True(t, s.ShowPlots)

	s = FromRequest(Request{Symbols: []string{}}, []string{"X"}, []string{"A"})
	assert.Empty(t, s.Symbols)
}

func TestApply(t *testing.T) {
	tbl := table.New([]string{"Symbol", "Sector"}, [][]string{{"A", "X"}, {"B", "Y"}, {"C", "X"}})
	s := State{
		Sectors: map[string]bool{"X": true},
		Symbols: map[string]bool{"A": true, "B": true, "C": true},
	}

	got, err := Apply(tbl, cols, s)
	require.NoError(t, err)
	syms, err := got.Column("Symbol")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, syms)
}
