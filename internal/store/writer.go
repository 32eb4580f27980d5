package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/treasury-basis/internal/metrics"
	"github.com/rickgao/treasury-basis/internal/model"
)

// WriterConfig contains configuration for the cycle writer.
type WriterConfig struct {
	// BatchSize is the number of cycles to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the capacity of the input channel.
	BufferSize int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     10,
		FlushInterval: 5 * time.Second,
		BufferSize:    100,
	}
}

// WriterMetrics counts writer activity.
type WriterMetrics struct {
	Cycles  int64
	Rows    int64
	Errors  int64
	Flushes int64
	Dropped int64
}

// Writer batches cycle records and writes them with pgx.Batch. A nil pool
// accepts and discards records.
type Writer struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input
	input chan model.CycleRecord

	// Database
	db *pgxpool.Pool

	// Batching
	batch       []cycleRows
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewWriter creates a new Writer.
func NewWriter(cfg WriterConfig, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	def := DefaultWriterConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan model.CycleRecord, cfg.BufferSize),
		batch:  make([]cycleRows, 0, cfg.BatchSize),
	}
}

// Write queues a record without blocking. It reports false when the buffer
// is full and the record was dropped.
func (w *Writer) Write(rec model.CycleRecord) bool {
	select {
	case w.input <- rec:
		return true
	default:
		metrics.RecordsDropped.Inc()
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
		w.logger.Warn("cycle writer buffer full, dropping record", "cycle_id", rec.ID)
		return false
	}
}

// Start begins consuming records and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("cycle writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
		"database", w.db != nil,
	)
	return nil
}

// Stop gracefully shuts down the writer, draining queued records.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping cycle writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("cycle writer stopped")
	case <-ctx.Done():
		w.logger.Warn("cycle writer stop timed out")
	}

	// Drain anything queued after the consumer exited
drain:
	for {
		select {
		case rec := <-w.input:
			w.add(rec)
		default:
			break drain
		}
	}

	// Final flush
	w.flushWith(ctx)

	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case rec := <-w.input:
			if w.add(rec) {
				w.flush()
			}
		}
	}
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

// add transforms and batches a record, reporting whether the batch is full.
func (w *Writer) add(rec model.CycleRecord) bool {
	rows := transform(rec)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, rows)
	return len(w.batch) >= w.cfg.BatchSize
}

func (w *Writer) flush() {
	w.flushWith(w.ctx)
}

func (w *Writer) flushWith(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]cycleRows, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	if w.db == nil {
		w.logger.Debug("discarding cycles without database", "count", len(batch))
		return
	}

	start := time.Now()
	// A cancelled lifecycle context must not abort the final flush.
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}

	n, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "cycles", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Cycles += int64(len(batch))
	w.metrics.Rows += int64(n)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed cycles",
		"cycles", len(batch),
		"rows", n,
		"duration", time.Since(start),
	)
}

// batchInsert writes every row of the batch in one round trip.
func (w *Writer) batchInsert(ctx context.Context, rows []cycleRows) (int, error) {
	batch := &pgx.Batch{}
	queued := make(map[string]int)
	for _, r := range rows {
		c := r.Cycle
		batch.Queue(`
			INSERT INTO cycles (id, instance, started_at, finished_at, hedges, sma, ranked_pairs, dry_run, error)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING
		`, c.ID, c.Instance, c.StartedAt, c.FinishedAt, c.Hedges, c.SMA, c.RankedPairs, c.DryRun, c.Error)
		queued["cycles"]++

		for _, p := range r.Pairs {
			batch.Queue(`
				INSERT INTO cycle_pairs (cycle_id, rank, front_conid, back_conid, front_source, back_source,
					front_ctd, back_ctd, front_qty, back_qty, quantity, dv01_ratio, notional,
					adj_net_basis, volume_weight, rentd)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
				ON CONFLICT (cycle_id, rank) DO NOTHING
			`, c.ID, p.Rank, p.FrontConid, p.BackConid, p.FrontSource, p.BackSource,
				p.FrontCTD, p.BackCTD, p.FrontQty, p.BackQty, p.Quantity, p.DV01Ratio, p.Notional,
				p.AdjNetBasis, p.VolumeWeight, p.RENTD)
			queued["cycle_pairs"]++
		}

		for _, k := range r.Risk {
			batch.Queue(`
				INSERT INTO cycle_risk (cycle_id, seq, front_conid, back_conid, value_at_risk, position_risk, overlay,
					net_contract_value, overlay_breach, convexity_breach, duration_breach, stress_breach,
					passed, stress)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
				ON CONFLICT (cycle_id, seq) DO NOTHING
			`, c.ID, k.Seq, k.FrontConid, k.BackConid, k.VaR, k.PositionRisk, k.Overlay,
				k.NetContractValue, k.OverlayBreach, k.ConvexityBreach, k.DurationBreach, k.StressBreach,
				k.Passed, k.Stress)
			queued["cycle_risk"]++
		}

		if o := r.Order; o != nil {
			batch.Queue(`
				INSERT INTO cycle_orders (cycle_id, customer_order_id, exchange, conidex, price, quantity,
					order_id, order_status, dry_run, cancelled)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (cycle_id) DO NOTHING
			`, c.ID, o.CustomerOrderID, o.Exchange, o.Conidex, o.Price, o.Quantity,
				o.OrderID, o.OrderStatus, o.DryRun, o.Cancelled)
			queued["cycle_orders"]++
		}
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	total := 0
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return total, err
		}
		total++
	}

	for table, n := range queued {
		metrics.RecordsWritten.WithLabelValues(table).Add(float64(n))
	}
	return total, nil
}
