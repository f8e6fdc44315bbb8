package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/app"
	"github.com/dgnsrekt/sp500-explorer/internal/chart"
	"github.com/dgnsrekt/sp500-explorer/internal/dashboard"
	"github.com/dgnsrekt/sp500-explorer/internal/export"
	"github.com/dgnsrekt/sp500-explorer/internal/prices"
	"github.com/dgnsrekt/sp500-explorer/internal/staging"
)

func snapshotCmd() *cobra.Command {
	var (
		sel    selectionFlags
		outDir string
		run    string
		noRaw  bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save one dashboard rerun to disk",
		Long: `Run the dashboard once for the given selection and save its artifacts
into OUT/RUN: the source document, SP500.csv, prices.parquet and, with
--plots, one chart per company. Files are staged and only published when
every artifact was written.

Examples:
  sp500 snapshot --sector Energy --plots --count 5
  sp500 snapshot --out data --run energy-2026-10 --sector Energy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if run == "" {
				run = time.Now().Format("2006-01-02_15-04-05")
			}

			stg := staging.NewManager(outDir)
			if err := stg.PrepareStaging(run); err != nil {
				return err
			}
			defer func() {
				if err := stg.CleanupStaging(run); err != nil {
					logger.Warn("failed to cleanup staging", zap.String("run", run), zap.Error(err))
				}
			}()

			if !noRaw {
				size, err := stg.DownloadToStaging(ctx, deps.Client, run, "source.html", cfg.Source.URL)
				if err != nil {
					return err
				}
				logger.Debug("source saved", zap.Int64("bytes", size))
			}

			t, _, state, err := deps.Runner.Filter(ctx, dashboard.Request(sel.request(cmd)))
			if err != nil {
				return fmt.Errorf("loading constituents: %w", err)
			}

			if _, err := stg.WriteToStaging(run, export.Filename, func(w io.Writer) error {
				data, err := export.CSV(t)
				if err != nil {
					return err
				}
				_, err = w.Write(data)
				return err
			}); err != nil {
				return err
			}

			symbols, err := t.Column(deps.Columns.Symbol)
			if err != nil {
				return err
			}
			fetched := prices.Cap(symbols)
			batch, err := deps.Prices.Fetch(ctx, fetched, app.PriceRequest(cfg))
			if err != nil {
				return err
			}

			var bars int
			if _, err := stg.WriteToStaging(run, "prices.parquet", func(w io.Writer) error {
				n, err := export.WriteParquet(w, batch.Ordered())
				bars = n
				return err
			}); err != nil {
				return err
			}

			charts := 0
			if state.ShowPlots {
				opts := app.ChartOptions(cfg)
				for _, sym := range fetched[:min(state.CompanyCount, len(fetched))] {
					series, ok := batch.Series[sym]
					if !ok {
						continue
					}
					data, err := chart.PriceChart(series, opts)
					if err != nil {
						logger.Warn("chart skipped", zap.String("symbol", sym), zap.Error(err))
						continue
					}
					name := filepath.Join("charts", fmt.Sprintf("%s.%s", sym, opts.Format))
					if _, err := stg.WriteToStaging(run, name, func(w io.Writer) error {
						_, err := w.Write(data)
						return err
					}); err != nil {
						return err
					}
					charts++
				}
			}

			if err := stg.CommitStaging(run); err != nil {
				return fmt.Errorf("publishing snapshot: %w", err)
			}

			logger.Info("snapshot complete",
				zap.String("dir", stg.FinalDir(run)),
				zap.String("dimension", dashboard.Dimension(t.Shape())),
				zap.Int("bars", bars),
				zap.Strings("missing", batch.Missing),
				zap.Int("charts", charts),
			)
			return nil
		},
	}

	sel.register(cmd, true)
	cmd.Flags().StringVarP(&outDir, "out", "o", "snapshots", "output directory")
	cmd.Flags().StringVar(&run, "run", "", "run name (default: current timestamp)")
	cmd.Flags().BoolVar(&noRaw, "no-source", false, "skip saving the raw source document")

	return cmd
}
