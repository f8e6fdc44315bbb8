package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/app"
	"github.com/dgnsrekt/sp500-explorer/internal/chart"
	"github.com/dgnsrekt/sp500-explorer/internal/export"
	"github.com/dgnsrekt/sp500-explorer/internal/prices"
)

func pricesCmd() *cobra.Command {
	var (
		window  windowFlags
		parquet string
	)

	cmd := &cobra.Command{
		Use:   "prices SYMBOL...",
		Short: "Fetch price series for up to ten symbols",
		Long: `Fetch auto-adjusted daily prices for the given symbols. Only the first
ten symbols are requested; symbols without data are reported and skipped.

Examples:
  sp500 prices AAPL MSFT BRK.B
  sp500 prices --start 2010-05-31 --end 2020-05-31 GOOGL
  sp500 prices --parquet prices.parquet AAPL MSFT`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := window.request(app.PriceRequest(cfg))
			if err != nil {
				return err
			}

			symbols := make([]string, len(args))
			for i, a := range args {
				symbols[i] = strings.ToUpper(a)
			}
			if len(symbols) > prices.MaxSymbols {
				logger.Warn("only the first symbols are fetched",
					zap.Int("requested", len(symbols)),
					zap.Int("max", prices.MaxSymbols))
			}

			batch, err := deps.Prices.Fetch(cmd.Context(), symbols, req)
			if err != nil {
				return err
			}

			if err := printSummary(batch); err != nil {
				return err
			}

			if parquet != "" {
				n, err := writeParquetFile(parquet, batch.Ordered())
				if err != nil {
					return err
				}
				logger.Info("parquet written", zap.String("path", parquet), zap.Int("rows", n))
			}

			if batch.Failed > 0 {
				for _, e := range batch.Errors {
					logger.Error("fetch error", zap.String("error", e))
				}
			}
			return nil
		},
	}

	window.register(cmd)
	cmd.Flags().StringVar(&parquet, "parquet", "", "also write all bars to this Parquet file")

	return cmd
}

func chartCmd() *cobra.Command {
	var (
		window windowFlags
		out    string
		field  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "chart SYMBOL",
		Short: "Render a price chart for one symbol",
		Long: `Render the closing price of one symbol as a filled area chart, or a
plain close or volume line with --field.

Examples:
  sp500 chart AAPL
  sp500 chart --field volume --start 2010-05-31 --end 2020-05-31 -o googl_volume.png GOOGL
  sp500 chart --format svg MSFT`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := window.request(app.PriceRequest(cfg))
			if err != nil {
				return err
			}

			symbol := strings.ToUpper(args[0])
			batch, err := deps.Prices.Fetch(cmd.Context(), []string{symbol}, req)
			if err != nil {
				return err
			}
			series, ok := batch.Series[symbol]
			if !ok {
				return fmt.Errorf("no price data for %s", symbol)
			}

			opts := app.ChartOptions(cfg)
			if format != "" {
				opts.Format = chart.Format(format)
			}

			img, err := renderChart(series, field, opts)
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("%s.%s", symbol, opts.Format)
			}
			if err := os.WriteFile(out, img, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}

			logger.Info("chart written",
				zap.String("symbol", symbol),
				zap.String("path", out),
				zap.Int("bars", len(series.Bars)))
			return nil
		},
	}

	window.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default SYMBOL.<format>)")
	cmd.Flags().StringVar(&field, "field", "area", "area, close or volume")
	cmd.Flags().StringVar(&format, "format", "", "png or svg (default from config)")

	return cmd
}

func renderChart(series *prices.Series, field string, opts chart.Options) ([]byte, error) {
	switch field {
	case "area", "":
		return chart.PriceChart(series, opts)
	case string(chart.FieldClose), string(chart.FieldVolume):
		return chart.LineChart(series, chart.Field(field), opts)
	default:
		return nil, fmt.Errorf("unknown field %q (use area, close or volume)", field)
	}
}

func printSummary(batch *prices.BatchResult) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tBARS\tFIRST\tLAST\tCLOSE")
	for _, s := range batch.Ordered() {
		first, last := s.Bars[0], s.Bars[len(s.Bars)-1]
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%.2f\n",
			s.Symbol, len(s.Bars),
			first.Time.Format("2006-01-02"), last.Time.Format("2006-01-02"),
			last.Close)
	}
	for _, sym := range batch.Missing {
		fmt.Fprintf(w, "%s\t-\t-\t-\tno data\n", sym)
	}
	return w.Flush()
}

func writeParquetFile(path string, series []*prices.Series) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}
	n, err := export.WriteParquet(f, series)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return n, err
}
