package universe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/treasury-basis/internal/index"
	"github.com/rickgao/treasury-basis/internal/model"
)

// Gateway is the part of the gateway client the registry uses.
type Gateway interface {
	index.FuturesGateway
	Snapshot(ctx context.Context, conids []int64, fields []string) ([]model.Quote, error)
}

// Config holds registry configuration.
type Config struct {
	Paths            index.Paths
	Symbols          []string // Futures roots to keep; empty keeps all
	MaxYearsToExpiry float64  // Discovery expiry filter
	RefreshInterval  time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Symbols:          []string{"ZT", "ZF", "ZN", "TN", "Z3N"},
		MaxYearsToExpiry: 2,
		RefreshInterval:  time.Minute,
	}
}

// registryImpl implements the Registry interface.
type registryImpl struct {
	cfg       Config
	gw        Gateway
	discovery *index.Discovery
	logger    *slog.Logger
	now       func() time.Time

	state *registryState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a new instrument registry.
func NewRegistry(cfg Config, gw Gateway, logger *slog.Logger) Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultConfig().RefreshInterval
	}

	return &registryImpl{
		cfg:       cfg,
		gw:        gw,
		discovery: index.NewDiscovery(gw, logger, cfg.MaxYearsToExpiry),
		logger:    logger,
		now:       time.Now,
		state:     newState(),
	}
}

// Start loads instruments and runs the first refresh.
func (r *registryImpl) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	// Initial load and refresh (blocking).
	if err := r.initialSync(r.ctx); err != nil {
		r.cancel()
		return err
	}

	// Start background refresh.
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.refreshLoop(r.ctx)
	}()

	futures, treasuries := r.state.counts()
	r.logger.Info("universe registry started",
		"futures", futures,
		"treasuries", treasuries,
		"refresh_interval", r.cfg.RefreshInterval,
	)

	return nil
}

// Stop gracefully shuts down.
func (r *registryImpl) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("universe registry stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether a refresh has completed.
func (r *registryImpl) Ready() bool {
	return r.state.ready()
}

// Snapshot returns copies of the open instruments.
func (r *registryImpl) Snapshot() Snapshot {
	return r.state.snapshot()
}

// ApplyQuote applies a streaming or polled quote.
func (r *registryImpl) ApplyQuote(q model.Quote) bool {
	return r.state.apply(q)
}

// Conids returns every known contract id.
func (r *registryImpl) Conids() []int64 {
	return r.state.conids()
}

// Bars returns the historical bars of one futures contract.
func (r *registryImpl) Bars(conid int64) []model.Bar {
	return r.state.getBars(conid)
}
