package universe

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rickgao/treasury-basis/internal/api"
	"github.com/rickgao/treasury-basis/internal/index"
	"github.com/rickgao/treasury-basis/internal/metrics"
	"github.com/rickgao/treasury-basis/internal/model"
)

var errNoInstruments = errors.New("no instruments to refresh")

// initialSync loads the index data and refreshes quotes once.
func (r *registryImpl) initialSync(ctx context.Context) error {
	start := time.Now()

	treasuries, err := index.LoadTreasuries(r.cfg.Paths.TreasuryIndex)
	if err != nil {
		return fmt.Errorf("load treasury index: %w", err)
	}

	futures, err := r.loadFutures(ctx)
	if err != nil {
		return err
	}

	bars, err := index.LoadBars(r.cfg.Paths.FuturesHistory)
	if err != nil {
		// Pairs without history fail the risk checks.
		r.logger.Warn("futures history unavailable", "path", r.cfg.Paths.FuturesHistory, "error", err)
		bars = nil
	}

	skipped := r.state.load(futures, treasuries, bars)
	r.logger.Info("universe loaded",
		"futures", len(futures),
		"treasuries", len(treasuries),
		"bars", len(bars),
		"skipped_without_conid", skipped,
		"duration", time.Since(start),
	)

	if err := r.refresh(ctx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}
	return nil
}

// loadFutures reads the futures index, running discovery when it is missing
// or empty, and keeps the configured symbols.
func (r *registryImpl) loadFutures(ctx context.Context) ([]model.Future, error) {
	futures, err := index.LoadFutures(r.cfg.Paths.FuturesIndex)
	if err != nil || len(futures) == 0 {
		r.logger.Warn("futures index unavailable, running discovery",
			"path", r.cfg.Paths.FuturesIndex,
			"error", err,
		)
		futures, err = r.discovery.Futures(ctx, r.cfg.Symbols)
		if err != nil {
			return nil, fmt.Errorf("discover futures: %w", err)
		}
	}

	if len(r.cfg.Symbols) == 0 {
		return futures, nil
	}
	kept := futures[:0]
	for _, f := range futures {
		if slices.Contains(r.cfg.Symbols, strings.ToUpper(f.Symbol)) {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// refreshLoop periodically refreshes quotes.
func (r *registryImpl) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.refresh(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("quote refresh failed", "error", err)
			}
		}
	}
}

// refresh fetches a snapshot for every known conid and applies it.
func (r *registryImpl) refresh(ctx context.Context) error {
	start := time.Now()

	conids := r.state.conids()
	if len(conids) == 0 {
		return errNoInstruments
	}

	quotes, err := r.gw.Snapshot(ctx, conids, api.DefaultFields)
	if err != nil {
		return err
	}

	applied := 0
	for _, q := range quotes {
		if r.state.apply(q) {
			applied++
		}
	}
	r.state.markRefreshed(r.now())

	futures, treasuries := r.state.counts()
	metrics.UniverseSize.WithLabelValues("futures").Set(float64(futures))
	metrics.UniverseSize.WithLabelValues("treasuries").Set(float64(treasuries))

	r.logger.Debug("quote refresh complete",
		"requested", len(conids),
		"applied", applied,
		"open_futures", futures,
		"open_treasuries", treasuries,
		"duration", time.Since(start),
	)
	return nil
}
