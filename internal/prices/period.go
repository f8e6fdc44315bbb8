package prices

import (
	"fmt"
	"time"

	"github.com/scmhub/calendar"
)

// Period descriptors accepted by the provider.
const (
	PeriodYTD = "ytd"
	Period1Mo = "1mo"
	Period3Mo = "3mo"
	Period6Mo = "6mo"
	Period1Y  = "1y"
	Period5Y  = "5y"
	PeriodMax = "max"
)

// Sampling intervals accepted by the provider.
const (
	Interval1D  = "1d"
	Interval1Wk = "1wk"
	Interval1Mo = "1mo"
)

var ValidPeriods = map[string]bool{
	PeriodYTD: true, Period1Mo: true, Period3Mo: true, Period6Mo: true,
	Period1Y: true, Period5Y: true, PeriodMax: true,
}

var ValidIntervals = map[string]bool{
	Interval1D: true, Interval1Wk: true, Interval1Mo: true,
}

const dateLayout = "2006-01-02"

// sessionsFrom is the first year the session calendar covers.
const sessionsFrom = 2000

// Request describes the window and sampling for a fetch. Period wins over
// Start/End when both are set.
type Request struct {
	Period   string
	Start    time.Time
	End      time.Time
	Interval string
}

// YearToDate is the default dashboard request: daily bars since Jan 1.
func YearToDate() Request {
	return Request{Period: PeriodYTD, Interval: Interval1D}
}

// DateRange parses YYYY-MM-DD bounds into a daily request.
func DateRange(start, end string) (Request, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return Request{}, fmt.Errorf("invalid start date format (use YYYY-MM-DD): %w", err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return Request{}, fmt.Errorf("invalid end date format (use YYYY-MM-DD): %w", err)
	}
	if !e.After(s) {
		return Request{}, fmt.Errorf("end date must be after start date")
	}
	return Request{Start: s, End: e, Interval: Interval1D}, nil
}

// Validate checks the descriptor values.
func (r Request) Validate() error {
	if r.Period == "" && (r.Start.IsZero() || r.End.IsZero()) {
		return fmt.Errorf("either a period or a start/end range is required")
	}
	if r.Period != "" && !ValidPeriods[r.Period] {
		return fmt.Errorf("invalid period: %s", r.Period)
	}
	if !ValidIntervals[r.Interval] {
		return fmt.Errorf("invalid interval: %s", r.Interval)
	}
	return nil
}

// Sessions filters bars against the NYSE trading calendar.
type Sessions struct {
	nyse     *calendar.Calendar
	location *time.Location
}

func NewSessions() *Sessions {
	// NYSE operates in Eastern time
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &Sessions{
		nyse:     calendar.XNYS(sessionsFrom, time.Now().Year()+calendar.YearsAhead),
		location: loc,
	}
}

// IsSession reports whether t falls on an NYSE business day. Days outside
// the calendar's years are always sessions.
func (s *Sessions) IsSession(t time.Time) bool {
	t = t.In(s.location)
	first, last := s.nyse.Years()
	if t.Year() < first || t.Year() > last {
		return true
	}
	return s.nyse.IsBusinessDay(t)
}

// Trim drops bars that are not on a trading session and returns how many
// were dropped. Only daily bars are checked.
func (s *Sessions) Trim(series *Series, interval string) int {
	if interval != Interval1D {
		return 0
	}
	kept := series.Bars[:0]
	dropped := 0
	for _, b := range series.Bars {
		if s.IsSession(b.Time) {
			kept = append(kept, b)
		} else {
			dropped++
		}
	}
	series.Bars = kept
	return dropped
}
