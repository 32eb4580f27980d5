package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/treasury-basis/internal/index"
	"github.com/rickgao/treasury-basis/internal/model"
	"github.com/rickgao/treasury-basis/internal/risk"
)

func testPair() model.Pair {
	return model.Pair{
		A: model.Leg{
			Hedge:    model.Hedge{Future: model.Future{Conid: 11, Symbol: "ZT"}, Source: model.SourceBid},
			Sign:     1,
			Quantity: 4,
		},
		B: model.Leg{
			Hedge:    model.Hedge{Future: model.Future{Conid: 12, Symbol: "ZN"}, Source: model.SourceAsk},
			Sign:     -1,
			Quantity: 2,
		},
		DV01Ratio:   0.5,
		Notional:    1234567.5,
		AdjNetBasis: 1.25,
		RENTD:       2.5,
		Quantity:    2,
	}
}

func TestPairs(t *testing.T) {
	var buf bytes.Buffer
	Pairs(&buf, []model.Pair{testPair()})
	out := buf.String()

	for _, want := range []string{"RENTD", "ZT 11 bid", "ZN 12 ask", "-2", "$1,234,567.50", "2.5000"} {
		if !strings.Contains(out, want) {
			t.Errorf("Pairs output missing %q:\n%s", want, out)
		}
	}
}

func TestRisk(t *testing.T) {
	var buf bytes.Buffer
	Risk(&buf, []model.RiskResult{
		{FrontConid: 11, BackConid: 12, OverlayBreach: true},
		{FrontConid: 12, BackConid: 11},
	})
	out := buf.String()

	if !strings.Contains(out, "FAIL") {
		t.Errorf("Risk output missing FAIL flag:\n%s", out)
	}
	if !strings.Contains(out, "pass") || !strings.Contains(out, "fail") {
		t.Errorf("Risk output missing results:\n%s", out)
	}
}

func TestBands(t *testing.T) {
	var buf bytes.Buffer
	Bands(&buf, []risk.Band{{Conid: 11, PriceMean: 110.5, VolumeMean: 125000}})
	out := buf.String()

	for _, want := range []string{"11", "110.5000", "125,000"} {
		if !strings.Contains(out, want) {
			t.Errorf("Bands output missing %q:\n%s", want, out)
		}
	}
}

func TestFiles(t *testing.T) {
	var buf bytes.Buffer
	Files(&buf, []index.FileReport{
		{Path: "data/UST_index.csv", Status: index.StatusFresh, Size: 2048, ModTime: time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)},
		{Path: "data/FUTURES_index.csv", Status: index.StatusMissing},
	})
	out := buf.String()

	for _, want := range []string{"fresh", "missing", "2,048", "2025-03-14 18:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("Files output missing %q:\n%s", want, out)
		}
	}
}

func TestCycle(t *testing.T) {
	started := time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)
	base := model.CycleRecord{
		ID:         uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Hedges:     4,
		SMA:        400000,
		Pairs:      []model.Pair{testPair()},
		Risk:       []model.RiskResult{{FrontConid: 11, BackConid: 12}},
	}
	order := &model.ComboOrder{Conidex: "28812380;;;11/2,12/-1", Price: 1.046875, Quantity: 2}

	tests := []struct {
		name string
		edit func(r *model.CycleRecord)
		want []string
	}{
		{"no order", func(r *model.CycleRecord) {}, []string{"6ba7b810", "1.5s", "$400,000.00", "Ranked pairs:", "Risk:", "no order"}},
		{"dry run", func(r *model.CycleRecord) { r.Order, r.DryRun = order, true }, []string{"dry run: 28812380;;;11/2,12/-1 x2 @ 1.046875"}},
		{"placed", func(r *model.CycleRecord) {
			r.Order = order
			r.Ack = &model.OrderAck{OrderID: "987", OrderStatus: "PreSubmitted"}
			r.Cancelled = []string{"5", "6"}
		}, []string{"placed:", "order 987 PreSubmitted", "cancelled: 5, 6"}},
		{"error", func(r *model.CycleRecord) { r.Err = "net liquidation: gateway down" }, []string{"error: net liquidation: gateway down"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base
			tt.edit(&rec)

			var buf bytes.Buffer
			Cycle(&buf, rec)
			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("Cycle output missing %q:\n%s", want, out)
				}
			}
		})
	}
}
