package main

import (
	"context"
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
	"github.com/rickgao/treasury-basis/internal/report"
	"github.com/rickgao/treasury-basis/internal/treasury"
	"github.com/rickgao/treasury-basis/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/hedger.yaml", "path to config file")
	force := flag.Bool("force", false, "rebuild every file regardless of freshness")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting indexer",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.Files.Dir, 0o755); err != nil {
		logger.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, *force, logger); err != nil {
		logger.Error("indexer failed", "error", err)
		os.Exit(1)
	}
	logger.Info("indexer done")
}

func run(ctx context.Context, cfg *config.HedgerConfig, force bool, logger *slog.Logger) error {
	paths := index.PathsFrom(cfg.Files)

	reports := index.CheckFiles(paths.Checks(), time.Now(), cfg.Files.ResetHour)
	fmt.Println("Index files:")
	report.Files(os.Stdout, reports)
	reuse := planReuse(paths, reports, force)

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

	treasuries, err := treasuryIndex(ctx, cfg, paths, gw, reuse.treasuryIndex, logger)
	if err != nil {
		return err
	}
	futures, err := futuresIndex(ctx, cfg, paths, gw, reuse.futuresIndex, logger)
	if err != nil {
		return err
	}

	coverage := index.CoverageOptions{
		Period:      cfg.Risk.HistoryPeriod,
		Bar:         cfg.Risk.HistoryBar,
		MaxAttempts: cfg.Files.MaxCoverageRounds,
		Concurrency: cfg.Engine.Concurrency,
		Logger:      logger,
	}

	if err := history(ctx, gw, treasuryTargets(treasuries), paths.TreasuryHistory, reuse.treasuryHistory, coverage); err != nil {
		return err
	}
	return history(ctx, gw, futuresTargets(futures), paths.FuturesHistory, reuse.futuresHistory, coverage)
}

// reusePlan records which files are loaded as is instead of rebuilt.
type reusePlan struct {
	treasuryIndex   bool
	futuresIndex    bool
	treasuryHistory bool
	futuresHistory  bool
}

// planReuse keeps every fresh file unless force is set. Files without a
// report are rebuilt.
func planReuse(paths index.Paths, reports []index.FileReport, force bool) reusePlan {
	if force {
		return reusePlan{}
	}
	fresh := make(map[string]bool, len(reports))
	for _, r := range reports {
		fresh[r.Path] = r.Fresh()
	}
	return reusePlan{
		treasuryIndex:   fresh[paths.TreasuryIndex],
		futuresIndex:    fresh[paths.FuturesIndex],
		treasuryHistory: fresh[paths.TreasuryHistory],
		futuresHistory:  fresh[paths.FuturesHistory],
	}
}

// treasuryTargets lists the quotable treasuries for history coverage.
func treasuryTargets(treasuries []model.Treasury) []index.Target {
	var targets []index.Target
	for _, t := range treasuries {
		if t.Conid != 0 {
			targets = append(targets, index.Target{Conid: t.Conid, YearsToMaturity: t.YearsToMaturity})
		}
	}
	return targets
}

func futuresTargets(futures []model.Future) []index.Target {
	targets := make([]index.Target, 0, len(futures))
	for _, f := range futures {
		targets = append(targets, index.Target{Conid: f.Conid, YearsToMaturity: f.YearsToMaturity})
	}
	return targets
}

// treasuryIndex rebuilds the UST index from the CME workbook, the fiscal API
// and gateway conid lookups, or loads it when fresh.
func treasuryIndex(ctx context.Context, cfg *config.HedgerConfig, paths index.Paths, gw *api.Client, fresh bool, logger *slog.Logger) ([]model.Treasury, error) {
	if fresh {
		return index.LoadTreasuries(paths.TreasuryIndex)
	}

	cme := treasury.NewCMEClient(cfg.Treasury.CMEPageURL, cfg.Treasury.CMEFileURL, treasury.WithLogger(logger))
	published, err := cme.Refresh(ctx, paths.TCFWorkbook)
	if err != nil {
		return nil, fmt.Errorf("refresh tcf workbook: %w", err)
	}
	logger.Info("tcf workbook downloaded", "published", published.Format("2006-01-02"), "path", paths.TCFWorkbook)

	rows, err := treasury.LoadSecurityDatabase(paths.TCFWorkbook)
	if err != nil {
		return nil, err
	}

	fiscal := treasury.NewFiscalClient(cfg.Treasury.FiscalURL, cfg.Treasury.ClientID, cfg.Treasury.ClientSecret, treasury.WithLogger(logger))
	builder := treasury.NewBuilder(fiscal, gw, logger,
		treasury.WithMaxYears(cfg.Treasury.MaxYears),
		treasury.WithConcurrency(cfg.Engine.Concurrency),
	)
	treasuries, err := builder.Build(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("build treasury index: %w", err)
	}
	if err := index.SaveTreasuries(paths.TreasuryIndex, treasuries); err != nil {
		return nil, err
	}
	logger.Info("treasury index written", "rows", len(treasuries), "path", paths.TreasuryIndex)
	return treasuries, nil
}

// futuresIndex rediscovers the futures contracts, or loads them when fresh.
func futuresIndex(ctx context.Context, cfg *config.HedgerConfig, paths index.Paths, gw *api.Client, fresh bool, logger *slog.Logger) ([]model.Future, error) {
	if fresh {
		return index.LoadFutures(paths.FuturesIndex)
	}

	futures, err := index.NewDiscovery(gw, logger, cfg.Strategy.MaxYearsToExpiry).Futures(ctx, cfg.Strategy.Symbols)
	if err != nil {
		return nil, fmt.Errorf("discover futures: %w", err)
	}
	if err := index.SaveFutures(paths.FuturesIndex, futures); err != nil {
		return nil, err
	}
	logger.Info("futures index written", "rows", len(futures), "path", paths.FuturesIndex)
	return futures, nil
}

// history fills gaps in a fresh historical file, or refetches every target
// into a stale one.
func history(ctx context.Context, gw *api.Client, targets []index.Target, path string, fresh bool, opts index.CoverageOptions) error {
	var existing []model.Bar
	if fresh {
		bars, err := index.LoadBars(path)
		if err != nil {
			return err
		}
		existing = bars
	}

	res, err := index.EnsureCoverage(ctx, gw, targets, existing, path, opts)
	if err != nil {
		return fmt.Errorf("history coverage %s: %w", path, err)
	}
	if len(res.Missing) > 0 {
		opts.Logger.Warn("history incomplete", "path", path, "missing", res.Missing)
	}
	return nil
}
