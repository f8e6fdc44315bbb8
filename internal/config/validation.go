package config

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationErrors collects every configuration problem found.
type ValidationErrors struct {
	Problems []string
}

// HasErrors returns true if any validation errors exist
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Problems) > 0
}

func (e *ValidationErrors) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Error formats all validation errors into a clear message
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, p := range e.Problems {
		sb.WriteString(fmt.Sprintf("  - %s\n", p))
	}
	return sb.String()
}

func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.Source.URL == "" {
		errs.add("source.url is required")
	}
	if c.Source.TableIndex < 0 {
		errs.add("source.table_index must be >= 0, got %d", c.Source.TableIndex)
	}
	if c.Source.SymbolColumn == "" || c.Source.SectorColumn == "" {
		errs.add("source.symbol_column and source.sector_column are required")
	}
	if c.Provider.BaseURL == "" {
		errs.add("provider.base_url is required")
	}
	if c.Provider.RatePerSecond < 1 {
		errs.add("provider.rate_per_second must be >= 1")
	}
	if c.Provider.RetryCount < 0 {
		errs.add("provider.retry_count must be >= 0")
	}
	if !ValidPeriods[c.Provider.Period] {
		errs.add("invalid provider.period: %s (valid: %s)", c.Provider.Period, keys(ValidPeriods))
	}
	if !ValidIntervals[c.Provider.Interval] {
		errs.add("invalid provider.interval: %s (valid: %s)", c.Provider.Interval, keys(ValidIntervals))
	}
	if c.Fetch.Workers < 1 {
		errs.add("fetch.workers must be >= 1")
	}
	if c.Chart.Width < 100 || c.Chart.Height < 100 {
		errs.add("chart.width and chart.height must be >= 100")
	}
	if !ValidChartFormats[c.Chart.Format] {
		errs.add("invalid chart.format: %s (valid: %s)", c.Chart.Format, keys(ValidChartFormats))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func keys(m map[string]bool) string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}
