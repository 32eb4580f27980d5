package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/rickgao/treasury-basis/internal/metrics"
	"github.com/rickgao/treasury-basis/internal/model"
)

// DefaultPendingCancelAt is the pending order count at which the oldest is cancelled.
const DefaultPendingCancelAt = 4

// CleanupResult lists what a cleanup pass found and did.
type CleanupResult struct {
	Cleared   []string // Orders already cleared or fully filled
	Cancelled []string
	Pending   int // Pending orders left working
}

// Cleanup fetches live orders, records cleared ones and cancels the oldest
// pending orders until fewer than cancelAt remain. It stops at the first
// cancel failure and returns it with the partial result.
func Cleanup(ctx context.Context, gw Gateway, account string, cancelAt int, logger *slog.Logger) (CleanupResult, error) {
	if cancelAt <= 0 {
		cancelAt = DefaultPendingCancelAt
	}
	if logger == nil {
		logger = slog.Default()
	}

	var res CleanupResult
	orders, err := gw.LiveOrders(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch orders: %w", err)
	}

	var pending []model.LiveOrder
	for _, o := range orders {
		switch {
		case o.Status == StatusClear || o.Status == StatusCleared || (o.HasRemaining && o.RemainingQuantity == 0):
			res.Cleared = append(res.Cleared, o.OrderID)
		case o.Status == StatusSubmitted || o.Status == StatusPreSubmitted:
			pending = append(pending, o)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].SeenAt.Before(pending[j].SeenAt)
	})

	for len(pending) >= cancelAt {
		oldest := pending[0]
		logger.Info("cancelling oldest pending order",
			"order_id", oldest.OrderID,
			"pending", len(pending),
			"cancel_at", cancelAt)
		if err := gw.CancelOrder(ctx, account, oldest.OrderID); err != nil {
			res.Pending = len(pending)
			return res, fmt.Errorf("cancel oldest pending: %w", err)
		}
		metrics.Orders.WithLabelValues("cancelled").Inc()
		res.Cancelled = append(res.Cancelled, oldest.OrderID)
		pending = pending[1:]
	}
	res.Pending = len(pending)
	return res, nil
}
