package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rickgao/treasury-basis/internal/api"
	"github.com/rickgao/treasury-basis/internal/model"
)

// FuturesGateway is the part of the gateway client used for discovery.
type FuturesGateway interface {
	GetFutures(ctx context.Context, symbols []string) (map[string][]api.FuturesContract, error)
	GetSecDefs(ctx context.Context, conids []int64) ([]api.SecDef, error)
}

// Discovery finds the listed Treasury futures on the gateway.
type Discovery struct {
	gw       FuturesGateway
	logger   *slog.Logger
	maxYears float64
	now      func() time.Time
}

// NewDiscovery creates a Discovery keeping contracts that expire within maxYears.
func NewDiscovery(gw FuturesGateway, logger *slog.Logger, maxYears float64) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{gw: gw, logger: logger, maxYears: maxYears, now: time.Now}
}

// Futures scans symbols, filters by expiry and returns the contracts with
// their security definitions, ordered by symbol then expiry.
func (d *Discovery) Futures(ctx context.Context, symbols []string) ([]model.Future, error) {
	bySymbol, err := d.gw.GetFutures(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("scan futures: %w", err)
	}

	now := d.now()
	contracts := api.FlattenFutures(bySymbol)
	conids := make([]int64, 0, len(contracts))
	for _, c := range contracts {
		if api.FuturesYears(c, now) < d.maxYears {
			conids = append(conids, c.Conid.Int())
		}
	}
	d.logger.Info("discovered futures", "contracts", len(contracts), "within_expiry", len(conids))

	defs, err := d.gw.GetSecDefs(ctx, conids)
	if err != nil {
		return nil, fmt.Errorf("get secdefs: %w", err)
	}

	futures := make([]model.Future, 0, len(defs))
	for _, sd := range defs {
		f, ok := api.SecDefToFuture(sd, now)
		if !ok {
			d.logger.Debug("skipping secdef", "conid", sd.Conid.Int(), "error", sd.Error)
			continue
		}
		futures = append(futures, f)
	}

	sort.SliceStable(futures, func(i, j int) bool {
		if futures[i].Symbol != futures[j].Symbol {
			return futures[i].Symbol < futures[j].Symbol
		}
		return futures[i].Expiry.Before(futures[j].Expiry)
	})
	return futures, nil
}
