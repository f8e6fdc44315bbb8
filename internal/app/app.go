// Package app wires configuration into the clients, caches and page runner
// shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dgnsrekt/sp500-explorer/internal/api"
	"github.com/dgnsrekt/sp500-explorer/internal/chart"
	"github.com/dgnsrekt/sp500-explorer/internal/config"
	"github.com/dgnsrekt/sp500-explorer/internal/constituents"
	"github.com/dgnsrekt/sp500-explorer/internal/dashboard"
	"github.com/dgnsrekt/sp500-explorer/internal/prices"
	"github.com/dgnsrekt/sp500-explorer/internal/selection"
)

type App struct {
	Config  *config.Config
	Client  *api.HTTPClient
	Loader  *constituents.Loader
	Cache   *constituents.Cache
	Prices  *prices.Manager
	Runner  *dashboard.Runner
	Columns selection.Columns
	logger  *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *App {
	client := api.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.UserAgent,
		cfg.Provider.RatePerSecond,
		cfg.ProviderTimeout(),
		cfg.ProviderRetryDelay(),
		cfg.Provider.RetryCount,
		logger,
	)

	cols := selection.Columns{Symbol: cfg.Source.SymbolColumn, Sector: cfg.Source.SectorColumn}
	loader := constituents.NewLoader(client, cols.Symbol, logger)
	cache := constituents.NewCache(loader, cfg.Source.CacheTTL, logger)
	manager := prices.NewManager(client, prices.NewSessions(), cfg.Fetch.Workers, logger)

	runner := dashboard.NewRunner(cache, manager, dashboard.Settings{
		URL:        cfg.Source.URL,
		TableIndex: cfg.Source.TableIndex,
		Columns:    cols,
		Prices:     PriceRequest(cfg),
		Chart:      ChartOptions(cfg),
	}, logger)

	return &App{
		Config:  cfg,
		Client:  client,
		Loader:  loader,
		Cache:   cache,
		Prices:  manager,
		Runner:  runner,
		Columns: cols,
		logger:  logger,
	}
}

// PriceRequest is the configured dashboard window.
func PriceRequest(cfg *config.Config) prices.Request {
	return prices.Request{Period: cfg.Provider.Period, Interval: cfg.Provider.Interval}
}

func ChartOptions(cfg *config.Config) chart.Options {
	return chart.Options{
		Width:  cfg.Chart.Width,
		Height: cfg.Chart.Height,
		Format: chart.Format(cfg.Chart.Format),
	}
}

// Warm loads the constituent table into the cache.
func (a *App) Warm(ctx context.Context) error {
	start := time.Now()
	t, err := a.Cache.Load(ctx, a.Config.Source.URL, a.Config.Source.TableIndex)
	if err != nil {
		return err
	}
	rows, cols := t.Shape()
	a.logger.Info("constituents loaded",
		zap.Int("rows", rows),
		zap.Int("columns", cols),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// SetupLogger builds the process logger: development output when verbose,
// JSON otherwise, with an optional log file named after the binary.
func SetupLogger(name string, verbose bool, logCfg *config.LoggingConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if verbose {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.DisableStacktrace = true
	}

	// Set log level from config
	if logCfg != nil && logCfg.Level != "" && !verbose {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(logCfg.Level)); err == nil {
			zapConfig.Level = zap.NewAtomicLevelAt(level)
		}
	}

	// Add file output if enabled
	if logCfg != nil && logCfg.Enabled {
		if err := os.MkdirAll(logCfg.Directory, 0755); err != nil {
			return nil, fmt.Errorf("creating logs directory: %w", err)
		}
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		logFile := filepath.Join(logCfg.Directory, fmt.Sprintf("%s_%s.log", name, timestamp))
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, logFile)
	}

	return zapConfig.Build()
}
