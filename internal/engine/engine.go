package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/treasury-basis/internal/ctd"
	"github.com/rickgao/treasury-basis/internal/execution"
	"github.com/rickgao/treasury-basis/internal/kpi"
	"github.com/rickgao/treasury-basis/internal/metrics"
	"github.com/rickgao/treasury-basis/internal/model"
	"github.com/rickgao/treasury-basis/internal/universe"
)

// ErrNotReady is returned by RunCycle before the first quote refresh.
var ErrNotReady = errors.New("universe not ready")

// Cycle results used as metric labels.
const (
	ResultOK      = "ok"       // order placed or logged
	ResultNoTrade = "no_trade" // no pair passed risk or cleared fees
	ResultSkipped = "skipped"  // universe not ready
	ResultError   = "error"
)

// Universe provides quoted instruments.
type Universe interface {
	Ready() bool
	Snapshot() universe.Snapshot
}

// Account reports the account value used for sizing.
type Account interface {
	NetLiquidation(ctx context.Context, account string) (float64, error)
}

// RiskEvaluator runs the pre-trade checks.
type RiskEvaluator interface {
	Evaluate(pairs []model.Pair) ([]model.RiskResult, int)
}

// Executor cleans up orders and places the combo for approved pairs.
type Executor interface {
	Execute(ctx context.Context, approved []model.Pair) (execution.Result, error)
}

// Sink receives finished cycle records.
type Sink interface {
	Write(rec model.CycleRecord) bool
}

// Config holds engine configuration.
type Config struct {
	Instance      string
	Account       string
	Interval      time.Duration // Cycle interval (default: 3s)
	Timeout       time.Duration // Per-cycle deadline (default: 2m)
	SMAMultiplier float64
	MinSMA        float64
	MarginCushion float64
	VolumeScalar  float64
	TopPairs      int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:      3 * time.Second,
		Timeout:       2 * time.Minute,
		SMAMultiplier: kpi.DefaultSMAMultiplier,
		MinSMA:        kpi.DefaultMinSMA,
		MarginCushion: 0.05,
		VolumeScalar:  8,
		TopPairs:      kpi.DefaultTopPairs,
	}
}

// Deps are the collaborators of the engine. Sink may be nil.
type Deps struct {
	Universe Universe
	Account  Account
	Risk     RiskEvaluator
	Executor Executor
	Sink     Sink
}

// Engine periodically runs the business cycle.
type Engine struct {
	cfg      Config
	deps     Deps
	selector *ctd.Selector
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.RWMutex
	last *model.CycleRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Engine.
func New(cfg Config, deps Deps, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Engine{
		cfg:      cfg,
		deps:     deps,
		selector: ctd.NewSelector(logger),
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the cycle loop.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go e.run()

	e.logger.Info("engine started", "interval", e.cfg.Interval)

	return nil
}

// Stop gracefully shuts down the engine, letting a running cycle finish.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Last returns the most recent cycle record, if any.
func (e *Engine) Last() (model.CycleRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return model.CycleRecord{}, false
	}
	return *e.last, true
}

// run is the main cycle loop.
func (e *Engine) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	// Run immediately on start.
	e.tick()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *Engine) tick() {
	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.Timeout)
	defer cancel()

	if _, err := e.RunCycle(ctx); err != nil && !errors.Is(err, ErrNotReady) && e.ctx.Err() == nil {
		e.logger.Error("cycle failed", "error", err)
	}
}

// RunCycle runs one business cycle and returns its record. The record is
// also sent to the sink, including for failed cycles.
func (e *Engine) RunCycle(ctx context.Context) (model.CycleRecord, error) {
	start := e.now()
	rec := model.CycleRecord{
		ID:        uuid.New(),
		Instance:  e.cfg.Instance,
		StartedAt: start,
	}

	result, err := e.cycle(ctx, &rec)
	if err != nil {
		rec.Err = err.Error()
	}
	rec.FinishedAt = e.now()

	metrics.CycleDuration.Observe(rec.FinishedAt.Sub(start).Seconds())
	metrics.Cycles.WithLabelValues(result).Inc()

	if result != ResultSkipped {
		e.mu.Lock()
		e.last = &rec
		e.mu.Unlock()
		if e.deps.Sink != nil {
			e.deps.Sink.Write(rec)
		}
	}

	e.logger.Debug("cycle complete",
		"cycle_id", rec.ID,
		"result", result,
		"hedges", rec.Hedges,
		"pairs", len(rec.Pairs),
		"duration", rec.FinishedAt.Sub(start),
	)
	return rec, err
}

// cycle fills rec and returns the result label.
func (e *Engine) cycle(ctx context.Context, rec *model.CycleRecord) (string, error) {
	if !e.deps.Universe.Ready() {
		return ResultSkipped, ErrNotReady
	}
	snap := e.deps.Universe.Snapshot()
	today := e.now()

	hedges := ctd.Expand(snap.Futures)
	hedges = e.selector.Pair(hedges, snap.Treasuries)
	hedges = kpi.Enrich(hedges, e.logger)
	rec.Hedges = len(hedges)

	pairs := kpi.Pairs(hedges)
	kpi.ApplyBasis(pairs, today)

	nl, err := e.deps.Account.NetLiquidation(ctx, e.cfg.Account)
	if err != nil {
		return ResultError, fmt.Errorf("net liquidation: %w", err)
	}
	rec.SMA = kpi.SMA(nl, e.cfg.SMAMultiplier)
	metrics.SMA.Set(rec.SMA)

	ranked, err := kpi.Rank(pairs, kpi.RankParams{
		SMA:           rec.SMA,
		MinSMA:        e.cfg.MinSMA,
		MarginCushion: e.cfg.MarginCushion,
		VolumeScalar:  e.cfg.VolumeScalar,
		TopN:          e.cfg.TopPairs,
	})
	if err != nil {
		return ResultError, fmt.Errorf("rank pairs: %w", err)
	}
	rec.Pairs = ranked
	metrics.RankedPairs.Set(float64(len(ranked)))
	if len(ranked) > 0 {
		metrics.TopRENTD.Set(ranked[0].RENTD)
	}

	results, passed := e.deps.Risk.Evaluate(ranked)
	rec.Risk = results
	for _, r := range results {
		if r.Passed() {
			metrics.RiskChecks.WithLabelValues("pass").Inc()
		} else {
			metrics.RiskChecks.WithLabelValues("fail").Inc()
		}
	}

	var approved []model.Pair
	if passed >= 0 {
		approved = ranked[passed : passed+1]
	}

	res, err := e.deps.Executor.Execute(ctx, approved)
	rec.Cancelled = res.Cleanup.Cancelled
	rec.Order = res.Order
	rec.Ack = res.Ack
	rec.DryRun = res.DryRun
	if res.Selected != nil {
		sel := res.Selected.Pair
		rec.Selected = &sel
	}
	switch {
	case errors.Is(err, execution.ErrNoCandidate):
		e.logger.Info("no trade this cycle",
			"ranked", len(ranked),
			"risk_checked", len(results),
			"risk_passed", passed >= 0,
		)
		return ResultNoTrade, nil
	case err != nil:
		return ResultError, fmt.Errorf("execute: %w", err)
	}
	return ResultOK, nil
}
