package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/app"
	"github.com/dgnsrekt/sp500-explorer/internal/config"
	"github.com/dgnsrekt/sp500-explorer/internal/server"
	"github.com/dgnsrekt/sp500-explorer/internal/ws"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv("SP500_CONFIG"), "config file path (or set SP500_CONFIG)")
	verbose := flag.Bool("verbose", false, "verbose output")
	flag.Parse()

	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger, err := app.SetupLogger("server", *verbose, &cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("source", cfg.Source.URL),
		zap.Int("tableIndex", cfg.Source.TableIndex),
		zap.Duration("cacheTTL", cfg.Source.CacheTTL),
		zap.String("provider", cfg.Provider.BaseURL),
		zap.String("period", cfg.Provider.Period),
		zap.Int("workers", cfg.Fetch.Workers),
		zap.Bool("wsEnabled", cfg.Server.WSEnabled),
	)

	a := app.New(cfg, logger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A cold source is not fatal: the page shows the error and the next rerun retries.
	if err := a.Warm(ctx); err != nil {
		logger.Warn("initial constituent load failed", zap.Error(err))
	}

	var (
		notifier  server.Notifier
		wsHandler http.HandlerFunc
		hub       *ws.Hub
	)
	if cfg.Server.WSEnabled {
		encoder, err := ws.NewEncoder()
		if err != nil {
			logger.Error("failed to create websocket encoder", zap.Error(err))
			return 1
		}
		defer encoder.Close()

		hub = ws.NewHub(a.Runner, encoder, logger)
		go hub.Run(ctx)

		notifier = hub
		wsHandler = hub.HandleWS
		logger.Info("WebSocket enabled", zap.String("path", "/ws"))
	}

	reloader := server.NewReloadManager(a.Cache, a.Warm, notifier, logger)

	srv, err := server.NewServer(a.Runner, a.Prices, reloader, logger)
	if err != nil {
		logger.Error("failed to create server", zap.Error(err))
		return 1
	}
	if hub != nil {
		srv.CountSessions(hub.Count)
	}

	router, err := server.NewRouter(srv, wsHandler, logger)
	if err != nil {
		logger.Error("failed to create router", zap.Error(err))
		return 1
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Cancel context to stop WebSocket components
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}
