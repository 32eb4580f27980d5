package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rickgao/treasury-basis/internal/metrics"
	"github.com/rickgao/treasury-basis/internal/model"
)

// Config holds order placement settings.
type Config struct {
	Account         string
	PlaceOrders     bool // false logs the order instead of sending it
	PendingCancelAt int
	Volume          int     // monthly contracts for the commission tier
	RiskReducer     float64 // share of net revenue kept in the limit price
}

// Result is the outcome of one execution pass.
type Result struct {
	Cleanup  CleanupResult
	Selected *Selection
	Order    *model.ComboOrder
	Ack      *model.OrderAck
	DryRun   bool
}

// Executor places at most one combo order per call.
type Executor struct {
	gw     Gateway
	gate   *Gate
	cfg    Config
	logger *slog.Logger
	newID  func() string
}

// NewExecutor creates an Executor.
func NewExecutor(gw Gateway, gate *Gate, cfg Config, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		gw:     gw,
		gate:   gate,
		cfg:    cfg,
		logger: logger,
		newID:  func() string { return uuid.NewString() },
	}
}

// Execute cleans up pending orders, selects the first profitable approved
// pair and places its combo order. ErrNoCandidate is returned, with the
// cleanup result, when nothing qualifies.
func (e *Executor) Execute(ctx context.Context, approved []model.Pair) (Result, error) {
	var res Result

	cr, err := Cleanup(ctx, e.gw, e.cfg.Account, e.cfg.PendingCancelAt, e.logger)
	res.Cleanup = cr
	if err != nil {
		e.logger.Warn("order cleanup failed", "error", err)
	}

	sel, err := Select(approved, e.cfg.Volume, e.cfg.RiskReducer)
	if err != nil {
		metrics.Orders.WithLabelValues("skipped").Inc()
		return res, err
	}
	res.Selected = &sel

	order := BuildCombo(sel, e.newID())
	res.Order = &order

	if !e.cfg.PlaceOrders {
		res.DryRun = true
		metrics.Orders.WithLabelValues("dry_run").Inc()
		e.logger.Info("dry run order",
			"exchange", order.Exchange,
			"conidex", order.Conidex,
			"price", order.Price,
			"quantity", order.Quantity,
			"fees", sel.Fees,
			"value", sel.Value)
		return res, nil
	}

	if e.gate != nil {
		if err := e.gate.WaitForSlot(ctx); err != nil {
			return res, fmt.Errorf("wait for order slot: %w", err)
		}
	}

	acks, err := e.gw.PlaceOrders(ctx, e.cfg.Account, []model.ComboOrder{order})
	if err != nil {
		metrics.Orders.WithLabelValues("rejected").Inc()
		return res, fmt.Errorf("place combo: %w", err)
	}
	if len(acks) == 0 {
		return res, errors.New("place combo: empty reply")
	}
	ack := acks[0]
	res.Ack = &ack
	metrics.Orders.WithLabelValues("placed").Inc()
	e.logger.Info("placed order",
		"order_id", ack.OrderID,
		"status", ack.OrderStatus,
		"conidex", order.Conidex,
		"price", order.Price,
		"quantity", order.Quantity,
		"message_ids", ack.MessageIDs)
	return res, nil
}
