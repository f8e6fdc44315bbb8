package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/app"
	"github.com/dgnsrekt/sp500-explorer/internal/config"
)

var (
	cfgFile string
	verbose bool
	logger  *zap.Logger
	cfg     *config.Config
	deps    *app.App
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "sp500",
		Short:         "Explore S&P 500 constituents and their year-to-date prices",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip config loading for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				var err error
				logger, err = app.SetupLogger("sp500", verbose, nil)
				return err
			}

			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("reading .env: %w", err)
			}

			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}

			logger, err = app.SetupLogger("sp500", verbose, &cfg.Logging)
			if err != nil {
				return err
			}

			deps = app.New(cfg, logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("SP500_CONFIG"), "config file path (or set SP500_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(constituentsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(pricesCmd())
	rootCmd.AddCommand(chartCmd())
	rootCmd.AddCommand(snapshotCmd())

	// Setup signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
