// Package execution turns approved pairs into combo limit orders: it clears
// stale pending orders, selects the first profitable pair after fees, prices
// it on the tick grid and submits it once an active-order slot is free.
package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/rickgao/treasury-basis/internal/metrics"
	"github.com/rickgao/treasury-basis/internal/model"
)

// Order statuses reported by the gateway.
const (
	StatusSubmitted     = "Submitted"
	StatusPreSubmitted  = "PreSubmitted"
	StatusPendingSubmit = "PendingSubmit"
	StatusClear         = "Clear"
	StatusCleared       = "Cleared"
)

// DefaultActiveLimit is the number of active orders at which placement waits.
const DefaultActiveLimit = 5

// Gateway is the part of the gateway client used for orders.
type Gateway interface {
	LiveOrders(ctx context.Context) ([]model.LiveOrder, error)
	PlaceOrders(ctx context.Context, account string, orders []model.ComboOrder) ([]model.OrderAck, error)
	CancelOrder(ctx context.Context, account, orderID string) error
}

// Gate blocks order placement while too many orders are active.
type Gate struct {
	gw     Gateway
	limit  int
	poll   time.Duration
	logger *slog.Logger
}

// NewGate creates a Gate allowing fewer than limit active orders, polling
// every poll while full.
func NewGate(gw Gateway, limit int, poll time.Duration, logger *slog.Logger) *Gate {
	if limit <= 0 {
		limit = DefaultActiveLimit
	}
	if poll <= 0 {
		poll = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{gw: gw, limit: limit, poll: poll, logger: logger}
}

// WaitForSlot returns once fewer than the limit of orders are Submitted,
// PreSubmitted or PendingSubmit. Fetch errors are logged and retried.
func (g *Gate) WaitForSlot(ctx context.Context) error {
	ticker := time.NewTicker(g.poll)
	defer ticker.Stop()

	for {
		orders, err := g.gw.LiveOrders(ctx)
		if err != nil {
			g.logger.Warn("failed to count active orders", "error", err)
		} else {
			n := ActiveCount(orders)
			metrics.ActiveOrders.Set(float64(n))
			if n < g.limit {
				g.logger.Debug("order slot available", "active", n, "remaining", g.limit-n)
				return nil
			}
			g.logger.Info("active orders at limit, waiting", "active", n, "limit", g.limit)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ActiveCount returns the number of orders still working at the exchange.
func ActiveCount(orders []model.LiveOrder) int {
	n := 0
	for _, o := range orders {
		switch o.Status {
		case StatusSubmitted, StatusPreSubmitted, StatusPendingSubmit:
			n++
		}
	}
	return n
}
