package config

import "github.com/dgnsrekt/sp500-explorer/internal/prices"

// ValidPeriods lists the period descriptors the provider understands.
var ValidPeriods = prices.ValidPeriods

// ValidIntervals lists the sampling intervals the provider understands.
var ValidIntervals = prices.ValidIntervals

var ValidChartFormats = map[string]bool{"png": true, "svg": true}
