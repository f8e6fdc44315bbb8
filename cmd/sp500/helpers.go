package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/sp500-explorer/internal/prices"
	"github.com/dgnsrekt/sp500-explorer/internal/selection"
)

// selectionFlags mirrors the sidebar controls on the command line.
type selectionFlags struct {
	sectors []string
	symbols []string
	count   int
	plots   bool
}

func (f *selectionFlags) register(cmd *cobra.Command, withPlots bool) {
	cmd.Flags().StringSliceVar(&f.sectors, "sector", nil, "sectors to keep (default: all)")
	cmd.Flags().StringSliceVar(&f.symbols, "symbol", nil, "symbols to keep (default: all)")
	if withPlots {
		cmd.Flags().IntVar(&f.count, "count", selection.MinCompanies, "number of companies to chart (1-10)")
		cmd.Flags().BoolVar(&f.plots, "plots", false, "render closing price charts")
	}
}

// request converts the flags into a selection. An unset flag selects every
// value; a flag set to an empty list selects none.
func (f *selectionFlags) request(cmd *cobra.Command) selection.Request {
	r := selection.Request{CompanyCount: f.count, ShowPlots: f.plots}
	if cmd.Flags().Changed("sector") {
		r.Sectors = append([]string{}, f.sectors...)
	}
	if cmd.Flags().Changed("symbol") {
		r.Symbols = append([]string{}, f.symbols...)
	}
	return r
}

// windowFlags selects the price window for a fetch.
type windowFlags struct {
	period   string
	start    string
	end      string
	interval string
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.period, "period", "", "period descriptor (ytd, 1mo, 3mo, 6mo, 1y, 5y, max; default from config)")
	cmd.Flags().StringVar(&f.start, "start", "", "start date YYYY-MM-DD (with --end, overrides --period)")
	cmd.Flags().StringVar(&f.end, "end", "", "end date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.interval, "interval", "", "sampling interval (1d, 1wk, 1mo; default from config)")
}

func (f *windowFlags) request(defaults prices.Request) (prices.Request, error) {
	req := defaults
	if f.start != "" || f.end != "" {
		if f.start == "" || f.end == "" {
			return prices.Request{}, fmt.Errorf("--start and --end must be given together")
		}
		ranged, err := prices.DateRange(f.start, f.end)
		if err != nil {
			return prices.Request{}, err
		}
		req = ranged
	}
	if f.period != "" {
		req.Period = f.period
	}
	if f.interval != "" {
		req.Interval = f.interval
	}
	return req, req.Validate()
}
