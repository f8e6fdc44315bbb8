package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Source: SourceConfig{
			URL:          "https://example.com/list",
			SymbolColumn: "Symbol",
			SectorColumn: "GICS Sector",
			CacheTTL:     time.Hour,
		},
		Provider: ProviderConfig{
			BaseURL:       "https://example.com",
			RatePerSecond: 2,
			Period:        "ytd",
			Interval:      "1d",
		},
		Fetch: FetchConfig{Workers: 2},
		Chart: ChartConfig{Width: 800, Height: 400, Format: "png"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected no error for valid config, got: %v", err)
	}
}

func TestValidate_InvalidPeriod(t *testing.T) {
	cfg := validConfig()
	cfg.Provider.Period = "fortnight"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid period")
	}
	if !strings.Contains(err.Error(), "invalid provider.period: fortnight") {
		t.Errorf("error should mention the period, got: %v", err)
	}
	if !strings.Contains(err.Error(), "ytd") {
		t.Errorf("error should list valid periods, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Source.TableIndex = -1
	cfg.Fetch.Workers = 0
	cfg.Chart.Format = "gif"

	err := cfg.Validate()
	var verrs *ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs.Problems) != 3 {
		t.Errorf("expected 3 problems, got %d: %v", len(verrs.Problems), verrs.Problems)
	}

	errStr := err.Error()
	for _, want := range []string{"table_index", "fetch.workers", "chart.format: gif"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}
