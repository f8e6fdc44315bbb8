package prices

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/api"
)

type mockClient struct {
	mu       sync.Mutex
	calls    []string
	notFound map[string]bool
	failing  map[string]bool
	panics   map[string]bool
	times    []time.Time
}

func (m *mockClient) GetChart(ctx context.Context, symbol string, q api.ChartQuery) (*api.ChartResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol)
	m.mu.Unlock()

	if m.notFound[symbol] {
		return nil, api.ErrNotFound
	}
	if m.failing[symbol] {
		return nil, fmt.Errorf("server error: 502")
	}
	if m.panics[symbol] {
		panic("malformed chart payload")
	}
	if len(m.times) > 0 {
		return barsAt(m.times), nil
	}

	// Fri 2 Jan and Mon 5 Jan 2026, both NYSE sessions
	c1, c2 := 10.0, 11.0
	v := int64(1000)
	return &api.ChartResult{
		Timestamp: []int64{1767364200, 1767623400},
		Indicators: api.Indicators{
			Quote: []api.Quote{{
				Open:   []*float64{&c1, &c1},
				High:   []*float64{&c2, &c2},
				Low:    []*float64{&c1, &c1},
				Close:  []*float64{&c1, &c2},
				Volume: []*int64{&v, &v},
			}},
		},
	}, nil
}

func (m *mockClient) DownloadFile(ctx context.Context, url string, dest io.Writer) (int64, error) {
	return 0, nil
}

func barsAt(times []time.Time) *api.ChartResult {
	res := &api.ChartResult{Indicators: api.Indicators{Quote: []api.Quote{{}}}}
	q := &res.Indicators.Quote[0]
	for _, ts := range times {
		c := 10.0
		v := int64(1000)
		res.Timestamp = append(res.Timestamp, ts.Unix())
		q.Open = append(q.Open, &c)
		q.High = append(q.High, &c)
		q.Low = append(q.Low, &c)
		q.Close = append(q.Close, &c)
		q.Volume = append(q.Volume, &v)
	}
	return res
}

func symbols(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("S%02d", i)
	}
	return out
}

func TestFetch_CapsAtTenSymbols(t *testing.T) {
	client := &mockClient{}
	logger, _ := zap.NewDevelopment()
	mgr := NewManager(client, NewSessions(), 4, logger)

	result, err := mgr.Fetch(context.Background(), symbols(25), YearToDate())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if len(client.calls) != MaxSymbols {
		t.Errorf("expected %d provider calls, got %d", MaxSymbols, len(client.calls))
	}
	if result.Total != MaxSymbols || result.Success != MaxSymbols {
		t.Errorf("expected %d total/success, got %d/%d", MaxSymbols, result.Total, result.Success)
	}

	ordered := result.Ordered()
	for i, s := range ordered {
		if s.Symbol != fmt.Sprintf("S%02d", i) {
			t.Errorf("expected request order, got %s at %d", s.Symbol, i)
		}
	}
}

func TestFetch_MissingSymbolsAreOmitted(t *testing.T) {
	client := &mockClient{
		notFound: map[string]bool{"DEAD": true},
		failing:  map[string]bool{"FLAKY": true},
	}
	mgr := NewManager(client, nil, 2, zap.NewNop())

	result, err := mgr.Fetch(context.Background(), []string{"AAA", "DEAD", "BBB", "FLAKY"}, YearToDate())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if result.Success != 2 || result.NotFound != 1 || result.Failed != 1 {
		t.Errorf("unexpected counts: success=%d notFound=%d failed=%d", result.Success, result.NotFound, result.Failed)
	}
	if _, ok := result.Series["DEAD"]; ok {
		t.Error("delisted symbol should be omitted")
	}
	if len(result.Missing) != 2 || result.Missing[0] != "DEAD" || result.Missing[1] != "FLAKY" {
		t.Errorf("unexpected missing list: %v", result.Missing)
	}
	if len(result.Series["AAA"].Bars) != 2 {
		t.Errorf("expected 2 bars for AAA, got %d", len(result.Series["AAA"].Bars))
	}
}

func TestFetch_ProviderSymbolMapping(t *testing.T) {
	client := &mockClient{}
	mgr := NewManager(client, nil, 1, zap.NewNop())

	result, err := mgr.Fetch(context.Background(), []string{"BRK.B"}, YearToDate())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if client.calls[0] != "BRK-B" {
		t.Errorf("expected provider symbol BRK-B, got %s", client.calls[0])
	}
	if _, ok := result.Series["BRK.B"]; !ok {
		t.Error("series should be keyed by the index symbol")
	}
}

func TestFetch_Empty(t *testing.T) {
	mgr := NewManager(&mockClient{}, nil, 2, zap.NewNop())

	result, err := mgr.Fetch(context.Background(), nil, YearToDate())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Total != 0 || len(result.Ordered()) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestFetch_InvalidRequest(t *testing.T) {
	mgr := NewManager(&mockClient{}, nil, 2, zap.NewNop())

	_, err := mgr.Fetch(context.Background(), []string{"AAA"}, Request{Period: "ytd", Interval: "3h"})
	if err == nil {
		t.Error("expected error for invalid interval")
	}
}

func TestCap(t *testing.T) {
	if got := Cap(symbols(3)); len(got) != 3 {
		t.Errorf("expected 3, got %d", len(got))
	}
	if got := Cap(symbols(11)); len(got) != MaxSymbols {
		t.Errorf("expected %d, got %d", MaxSymbols, len(got))
	}
}

func TestFromChart_AutoAdjust(t *testing.T) {
	o, h, l, c, adj := 10.0, 12.0, 9.0, 11.0, 5.5
	res := &api.ChartResult{
		Timestamp: []int64{1767364200, 1767623400},
		Indicators: api.Indicators{
			Quote: []api.Quote{{
				Open:  []*float64{&o, &o},
				High:  []*float64{&h, &h},
				Low:   []*float64{&l, &l},
				Close: []*float64{&c, nil},
			}},
			AdjClose: []api.AdjClose{{AdjClose: []*float64{&adj, nil}}},
		},
	}

	s := FromChart("AAA", res, true)
	if len(s.Bars) != 1 {
		t.Fatalf("expected null close to be skipped, got %d bars", len(s.Bars))
	}
	b := s.Bars[0]
	if b.Close != 5.5 || b.Open != 5.0 || b.High != 6.0 || b.Low != 4.5 {
		t.Errorf("unexpected adjusted bar: %+v", b)
	}
	if b.Volume != 0 {
		t.Errorf("expected zero volume when column missing, got %d", b.Volume)
	}

	raw := FromChart("AAA", res, false)
	if raw.Bars[0].Close != 11.0 {
		t.Errorf("expected unadjusted close 11, got %v", raw.Bars[0].Close)
	}
}

func TestSessions_Trim(t *testing.T) {
	s := &Series{Symbol: "AAA", Bars: []Bar{
		{Time: time.Date(2026, 1, 1, 14, 30, 0, 0, time.UTC)}, // New Year's Day
		{Time: time.Date(2026, 1, 2, 14, 30, 0, 0, time.UTC)},
		{Time: time.Date(2026, 1, 3, 14, 30, 0, 0, time.UTC)}, // Saturday
		{Time: time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC)},
	}}

	dropped := NewSessions().Trim(s, Interval1D)
	if dropped != 2 {
		t.Errorf("expected 2 dropped bars, got %d", dropped)
	}
	if len(s.Bars) != 2 || s.Bars[0].Time.Day() != 2 || s.Bars[1].Time.Day() != 5 {
		t.Errorf("unexpected remaining bars: %+v", s.Bars)
	}

	weekly := &Series{Bars: []Bar{{Time: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)}}}
	if NewSessions().Trim(weekly, Interval1Wk) != 0 {
		t.Error("weekly bars should not be trimmed")
	}
}

func TestDateRange(t *testing.T) {
	req, err := DateRange("2010-05-31", "2020-05-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}

	if _, err := DateRange("2020-05-31", "2010-05-31"); err == nil {
		t.Error("expected error for reversed range")
	}
	if _, err := DateRange("31/05/2010", "2020-05-31"); err == nil {
		t.Error("expected error for bad format")
	}
}

func TestFetch_HistoricalRange(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	client := &mockClient{times: []time.Time{
		time.Date(1995, 6, 3, 9, 30, 0, 0, ny), // before the session calendar
		time.Date(2010, 6, 1, 9, 30, 0, 0, ny),
		time.Date(2010, 6, 5, 9, 30, 0, 0, ny), // Saturday
		time.Date(2020, 5, 29, 9, 30, 0, 0, ny),
	}}
	mgr := NewManager(client, NewSessions(), 2, zap.NewNop())

	req, err := DateRange("2010-05-31", "2020-05-31")
	if err != nil {
		t.Fatal(err)
	}

	result, err := mgr.Fetch(context.Background(), []string{"GOOGL"}, req)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	series, ok := result.Series["GOOGL"]
	if !ok {
		t.Fatalf("expected GOOGL series, missing: %v errors: %v", result.Missing, result.Errors)
	}
	if len(series.Bars) != 3 {
		t.Errorf("expected 3 bars after trimming, got %d", len(series.Bars))
	}
}

func TestFetch_PanickingSymbolIsFailed(t *testing.T) {
	client := &mockClient{panics: map[string]bool{"BBB": true}}
	mgr := NewManager(client, NewSessions(), 2, zap.NewNop())

	result, err := mgr.Fetch(context.Background(), []string{"AAA", "BBB", "CCC"}, YearToDate())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Failed != 1 || result.Success != 2 {
		t.Errorf("expected 1 failed and 2 succeeded, got %d/%d", result.Failed, result.Success)
	}
	if len(result.Missing) != 1 || result.Missing[0] != "BBB" {
		t.Errorf("expected BBB missing, got %v", result.Missing)
	}
}

func TestSessions_OutsideCalendar(t *testing.T) {
	s := NewSessions()
	saturday := time.Date(1990, 6, 2, 14, 30, 0, 0, time.UTC)
	if !s.IsSession(saturday) {
		t.Error("days before the calendar should be kept")
	}
	if s.IsSession(time.Date(2005, 1, 1, 14, 30, 0, 0, time.UTC)) {
		t.Error("2005-01-01 is a Saturday and should not be a session")
	}
}
