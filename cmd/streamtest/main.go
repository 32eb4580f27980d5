// streamtest connects to the gateway websocket and prints merged quote
// updates for the indexed universe.
// Usage: go run ./cmd/streamtest --config configs/hedger.yaml
//
// The gateway must be running with an authenticated brokerage session.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/treasury-basis/internal/api"
	"github.com/rickgao/treasury-basis/internal/config"
	"github.com/rickgao/treasury-basis/internal/index"
	"github.com/rickgao/treasury-basis/internal/model"
	"github.com/rickgao/treasury-basis/internal/ratelimit"
	"github.com/rickgao/treasury-basis/internal/stream"
	"github.com/rickgao/treasury-basis/internal/universe"
)

func main() {
	configPath := flag.String("config", "configs/hedger.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full quote JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	opts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithLimiter(ratelimit.New(cfg.Gateway.RateLimit, cfg.Gateway.RateBurst)),
	}
	if cfg.Gateway.InsecureSkipVerify {
		opts = append(opts, api.WithInsecureTLS())
	}
	gw := api.NewClient(cfg.Gateway.BaseURL, opts...)

	// Load the universe for the conids to subscribe
	registry := universe.NewRegistry(universe.Config{
		Paths:            index.PathsFrom(cfg.Files),
		Symbols:          cfg.Strategy.Symbols,
		MaxYearsToExpiry: cfg.Strategy.MaxYearsToExpiry,
		RefreshInterval:  time.Hour,
	}, gw, logger)

	logger.Info("starting universe sync...")
	if err := registry.Start(ctx); err != nil {
		logger.Error("failed to start universe", "error", err)
		os.Exit(1)
	}
	logger.Info("universe ready", "conids", len(registry.Conids()))

	streamCfg := stream.DefaultManagerConfig()
	streamCfg.WSURL = cfg.Gateway.WSURL
	streamCfg.InsecureSkipVerify = cfg.Gateway.InsecureSkipVerify

	handler := stream.QuoteHandlerFunc(func(q model.Quote) {
		registry.ApplyQuote(q)
		printQuote(q, *verbose)
	})
	mgr := stream.NewManager(streamCfg, gw, registry, handler, logger)

	logger.Info("starting stream manager")
	if err := mgr.Start(ctx); err != nil {
		logger.Error("failed to start stream manager", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := mgr.Stats()
				snap := registry.Snapshot()
				logger.Info("stats",
					"connected", stats.Connected,
					"subscriptions", stats.Subscriptions,
					"updates", stats.Updates,
					"reconnects", stats.Reconnects,
					"open_futures", len(snap.Futures),
					"open_treasuries", len(snap.Treasuries),
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	mgr.Stop(shutdownCtx)
	registry.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}

func printQuote(q model.Quote, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(q, "", "  ")
		fmt.Printf("[QUOTE] %s\n", data)
		return
	}
	fmt.Printf("[QUOTE] %d bid=%s ask=%s last=%s vol=%s yield=%s\n",
		q.Conid, q.Bid, q.Ask, q.Last, q.Volume, q.Yield)
}
