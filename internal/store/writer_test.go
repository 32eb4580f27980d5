package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/treasury-basis/internal/model"
)

func testRecord() model.CycleRecord {
	started := time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)
	pair := model.Pair{
		A: model.Leg{
			Hedge:    model.Hedge{Future: model.Future{Conid: 11}, Source: model.SourceBid, CTD: model.CTD{Treasury: model.Treasury{CUSIP: "91282CMG3"}}},
			Sign:     1,
			Quantity: 3,
		},
		B: model.Leg{
			Hedge:    model.Hedge{Future: model.Future{Conid: 22}, Source: model.SourceAsk, CTD: model.CTD{Treasury: model.Treasury{CUSIP: "91282CLW9"}}},
			Sign:     -1,
			Quantity: 2,
		},
		Quantity:    1,
		AdjNetBasis: 1.25,
		RENTD:       2.5,
	}
	return model.CycleRecord{
		ID:         uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Instance:   "hedger-1",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Hedges:     8,
		SMA:        400000,
		Pairs:      []model.Pair{pair},
		Risk: []model.RiskResult{{
			FrontConid:    11,
			BackConid:     22,
			VaR:           12.5,
			OverlayBreach: true,
			Stress:        []model.StressPoint{{Shift: 0.005, Overlay: -0.25}},
		}},
		Order:  &model.ComboOrder{CustomerOrderID: "cid-1", Conidex: "28812380;;;11/3,22/-2", Price: 1.046875, Quantity: 1},
		Ack:    &model.OrderAck{OrderID: "987", OrderStatus: "PreSubmitted"},
		DryRun: false,
	}
}

func TestTransform(t *testing.T) {
	rec := testRecord()
	rows := transform(rec)

	if rows.Cycle.ID != rec.ID || rows.Cycle.Instance != "hedger-1" {
		t.Errorf("Cycle = %+v, want id and instance from record", rows.Cycle)
	}
	if rows.Cycle.RankedPairs != 1 {
		t.Errorf("RankedPairs = %d, want 1", rows.Cycle.RankedPairs)
	}

	if len(rows.Pairs) != 1 {
		t.Fatalf("len(Pairs) = %d, want 1", len(rows.Pairs))
	}
	p := rows.Pairs[0]
	if p.Rank != 1 {
		t.Errorf("Rank = %d, want 1", p.Rank)
	}
	if p.FrontQty != 3 || p.BackQty != -2 {
		t.Errorf("quantities = (%d, %d), want (3, -2)", p.FrontQty, p.BackQty)
	}
	if p.FrontSource != "bid" || p.BackSource != "ask" {
		t.Errorf("sources = (%s, %s), want (bid, ask)", p.FrontSource, p.BackSource)
	}
	if p.FrontCTD != "91282CMG3" || p.BackCTD != "91282CLW9" {
		t.Errorf("ctds = (%s, %s)", p.FrontCTD, p.BackCTD)
	}

	if len(rows.Risk) != 1 {
		t.Fatalf("len(Risk) = %d, want 1", len(rows.Risk))
	}
	r := rows.Risk[0]
	if r.Passed {
		t.Error("Passed = true, want false with an overlay breach")
	}
	if want := `[{"shift":0.005,"overlay":-0.25}]`; string(r.Stress) != want {
		t.Errorf("Stress = %s, want %s", r.Stress, want)
	}

	if rows.Order == nil {
		t.Fatal("Order = nil")
	}
	if rows.Order.OrderID != "987" || rows.Order.OrderStatus != "PreSubmitted" {
		t.Errorf("Order = %+v, want ack fields", rows.Order)
	}
	if rows.Order.Cancelled == nil {
		t.Error("Cancelled = nil, want empty slice for the NOT NULL column")
	}
}

func TestTransformNoOrder(t *testing.T) {
	rec := testRecord()
	rec.Order, rec.Ack, rec.Risk = nil, nil, nil
	rows := transform(rec)

	if rows.Order != nil {
		t.Errorf("Order = %+v, want nil", rows.Order)
	}
	if len(rows.Risk) != 0 {
		t.Errorf("len(Risk) = %d, want 0", len(rows.Risk))
	}
}

func TestWriter_Lifecycle(t *testing.T) {
	cfg := WriterConfig{
		BatchSize:     2,
		FlushInterval: 10 * time.Millisecond,
		BufferSize:    4,
	}
	w := NewWriter(cfg, nil, nil)

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if !w.Write(testRecord()) {
			t.Fatalf("Write %d dropped", i)
		}
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	stats := w.Stats()
	if stats.Errors != 0 || stats.Cycles != 0 {
		t.Errorf("Stats = %+v, want nothing written without a database", stats)
	}
	w.batchMu.Lock()
	pending := len(w.batch)
	w.batchMu.Unlock()
	if pending != 0 {
		t.Errorf("batch = %d after Stop, want 0", pending)
	}
}

func TestWriter_DropsWhenFull(t *testing.T) {
	w := NewWriter(WriterConfig{BufferSize: 1}, nil, nil)

	if !w.Write(testRecord()) {
		t.Fatal("first Write dropped")
	}
	if w.Write(testRecord()) {
		t.Error("second Write accepted, want dropped on a full buffer")
	}
	if got := w.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}
