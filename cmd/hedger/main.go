package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/treasury-basis/internal/api"
	"github.com/rickgao/treasury-basis/internal/config"
	"github.com/rickgao/treasury-basis/internal/database"
	"github.com/rickgao/treasury-basis/internal/engine"
	"github.com/rickgao/treasury-basis/internal/execution"
	"github.com/rickgao/treasury-basis/internal/index"
	"github.com/rickgao/treasury-basis/internal/model"
	"github.com/rickgao/treasury-basis/internal/ratelimit"
	"github.com/rickgao/treasury-basis/internal/report"
	"github.com/rickgao/treasury-basis/internal/risk"
	"github.com/rickgao/treasury-basis/internal/store"
	"github.com/rickgao/treasury-basis/internal/stream"
	"github.com/rickgao/treasury-basis/internal/universe"
	"github.com/rickgao/treasury-basis/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/hedger.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single cycle, print the report and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("hedger", version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting hedger",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"gateway_url", cfg.Gateway.BaseURL,
		"place_orders", cfg.Orders.PlaceOrders,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Create gateway client
	opts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithTimeout(cfg.Gateway.Timeout),
		api.WithRetries(cfg.Gateway.MaxRetries, time.Second),
		api.WithLimiter(ratelimit.New(cfg.Gateway.RateLimit, cfg.Gateway.RateBurst)),
	}
	if cfg.Gateway.InsecureSkipVerify {
		opts = append(opts, api.WithInsecureTLS())
	}
	gw := api.NewClient(cfg.Gateway.BaseURL, opts...)

	// Check gateway session
	logger.Info("checking gateway session")
	status, err := gw.AuthStatus(ctx)
	if err != nil {
		logger.Error("failed to get auth status", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway session",
		"authenticated", status.Authenticated,
		"connected", status.Connected,
		"competing", status.Competing,
	)
	if !status.Authenticated {
		logger.Error("gateway session not authenticated", "message", status.Message)
		os.Exit(1)
	}

	if err := gw.SuppressMessages(ctx, cfg.Orders.SuppressedIDs); err != nil {
		logger.Warn("failed to suppress order reply messages", "error", err)
	}

	go keepAlive(ctx, gw, cfg.Gateway.TickleInterval, logger)

	// Create instrument universe
	registry := universe.NewRegistry(universe.Config{
		Paths:            index.PathsFrom(cfg.Files),
		Symbols:          cfg.Strategy.Symbols,
		MaxYearsToExpiry: cfg.Strategy.MaxYearsToExpiry,
		RefreshInterval:  cfg.Engine.RefreshInterval,
	}, gw, logger)

	logger.Info("starting universe (initial sync)...")
	if err := registry.Start(ctx); err != nil {
		logger.Error("failed to start universe", "error", err)
		os.Exit(1)
	}
	defer stop(registry.Stop)

	snap := registry.Snapshot()
	logger.Info("universe started",
		"futures", len(snap.Futures),
		"treasuries", len(snap.Treasuries),
	)

	// Assemble the business cycle
	gate := execution.NewGate(gw, cfg.Orders.ActiveLimit, cfg.Orders.PollInterval, logger)
	executor := execution.NewExecutor(gw, gate, execution.Config{
		Account:         cfg.Gateway.AccountID,
		PlaceOrders:     cfg.Orders.PlaceOrders,
		PendingCancelAt: cfg.Orders.PendingCancelAt,
		Volume:          cfg.Orders.Volume,
		RiskReducer:     cfg.Strategy.RiskReducer,
	}, logger)
	evaluator := risk.NewEvaluator(registry, risk.Config{
		Confidence:   cfg.Risk.Confidence,
		Percentile:   cfg.Risk.Percentile,
		OverlayLimit: cfg.Risk.OverlayLimit,
	}, logger)
	engineCfg := engine.Config{
		Instance:      cfg.Instance.ID,
		Account:       cfg.Gateway.AccountID,
		Interval:      cfg.Engine.Interval,
		SMAMultiplier: cfg.Strategy.SMAMultiplier,
		MinSMA:        cfg.Strategy.MinSMA,
		MarginCushion: cfg.Strategy.MarginCushion,
		VolumeScalar:  cfg.Strategy.VolumeScalar,
		TopPairs:      cfg.Strategy.TopPairs,
	}
	deps := engine.Deps{
		Universe: registry,
		Account:  gw,
		Risk:     evaluator,
		Executor: executor,
	}

	if *once {
		rec, err := engine.New(engineCfg, deps, logger).RunCycle(ctx)
		report.Cycle(os.Stdout, rec)
		if err != nil {
			logger.Error("cycle failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Connect to database
	var pool *pgxpool.Pool
	if cfg.Database.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)
		pool, err = database.Connect(ctx, cfg.Database.Postgres, "hedger-"+cfg.Instance.ID)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := store.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		logger.Info("database connected")
	}

	writer := store.NewWriter(store.WriterConfig{
		BatchSize:     cfg.Database.Writer.BatchSize,
		FlushInterval: cfg.Database.Writer.FlushInterval,
		BufferSize:    cfg.Database.Writer.BufferSize,
	}, pool, logger)
	if err := writer.Start(ctx); err != nil {
		logger.Error("failed to start cycle writer", "error", err)
		os.Exit(1)
	}
	defer stop(writer.Stop)
	deps.Sink = writer

	// Stream quotes between snapshot refreshes
	var streamer stream.Manager
	if cfg.Gateway.Stream {
		streamCfg := stream.DefaultManagerConfig()
		streamCfg.WSURL = cfg.Gateway.WSURL
		streamCfg.InsecureSkipVerify = cfg.Gateway.InsecureSkipVerify
		streamCfg.KeepaliveInterval = cfg.Gateway.TickleInterval

		handler := stream.QuoteHandlerFunc(func(q model.Quote) {
			registry.ApplyQuote(q)
		})
		streamer = stream.NewManager(streamCfg, gw, registry, handler, logger)
		if err := streamer.Start(ctx); err != nil {
			logger.Error("failed to start quote stream", "error", err)
			os.Exit(1)
		}
		defer stop(streamer.Stop)
	}

	eng := engine.New(engineCfg, deps, logger)

	// Start health and metrics server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHealthHandler(pool, registry, eng, streamer, cfg.Metrics.Path),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	if err := eng.Start(ctx); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}
	defer stop(eng.Stop)

	logger.Info("hedger running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info("hedger stopped")
}

// stop runs a component's Stop with a shutdown deadline.
func stop(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		slog.Warn("shutdown error", "error", err)
	}
}

// keepAlive tickles the gateway so the brokerage session does not expire.
func keepAlive(ctx context.Context, gw *api.Client, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := gw.Tickle(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("tickle failed", "error", err)
			}
		}
	}
}

// createHealthHandler creates the HTTP handler for health checks and metrics.
func createHealthHandler(pool *pgxpool.Pool, registry universe.Registry, eng *engine.Engine, streamer stream.Manager, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(metricsPath, promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		// Check database
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["postgres"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["postgres"] = "connected"
			}
		}

		// Check universe
		snap := registry.Snapshot()
		health.Components["universe"] = map[string]interface{}{
			"ready":      registry.Ready(),
			"futures":    len(snap.Futures),
			"treasuries": len(snap.Treasuries),
			"quoted_at":  snap.At,
		}
		if !registry.Ready() || len(snap.Futures) == 0 {
			health.Status = "degraded"
		}

		// Check quote stream
		if streamer != nil {
			stats := streamer.Stats()
			health.Components["stream"] = stats
			if !stats.Connected && health.Status == "healthy" {
				health.Status = "degraded"
			}
		}

		// Last cycle
		if rec, ok := eng.Last(); ok {
			health.Components["engine"] = map[string]interface{}{
				"last_cycle":   rec.ID,
				"finished_at":  rec.FinishedAt,
				"ranked_pairs": len(rec.Pairs),
				"error":        rec.Err,
			}
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/pairs", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := eng.Last()
		if !ok {
			http.Error(w, "no cycle yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		report.Cycle(w, rec)
	})

	return mux
}
