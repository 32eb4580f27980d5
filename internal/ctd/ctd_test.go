package ctd

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rickgao/treasury-basis/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMaturityWindow(t *testing.T) {
	expiry := date(2025, 6, 18)
	lo, hi, ok := MaturityWindow("zn", expiry)
	if !ok {
		t.Fatal("expected ZN bin")
	}
	if want := expiry.AddDate(0, 0, 2363); !lo.Equal(want) {
		t.Errorf("lo = %v, want %v", lo, want)
	}
	if want := expiry.AddDate(0, 0, 3659); !hi.Equal(want) {
		t.Errorf("hi = %v, want %v", hi, want)
	}
	if _, _, ok := MaturityWindow("ZB", expiry); ok {
		t.Error("ZB should have no bin")
	}
}

func TestExpand(t *testing.T) {
	futures := []model.Future{
		{Conid: 1, Bid: 110.5, Ask: 110.515625, Last: 110.5},
		{Conid: 2, Bid: 108, Last: 108.25},
		{Conid: 3, Bid: 107, Ask: 107.1, Closed: true},
		{Conid: 4},
	}
	got := Expand(futures)

	want := []struct {
		conid  int64
		source model.PriceSource
		price  float64
	}{
		{1, model.SourceBid, 110.5},
		{1, model.SourceAsk, 110.515625},
		{2, model.SourceLast, 108.25},
	}
	if len(got) != len(want) {
		t.Fatalf("len(Expand) = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Future.Conid != w.conid || got[i].Source != w.source || got[i].Price != w.price {
			t.Errorf("row %d = {%d %s %v}, want {%d %s %v}",
				i, got[i].Future.Conid, got[i].Source, got[i].Price, w.conid, w.source, w.price)
		}
	}
}

func TestIRR(t *testing.T) {
	tests := []struct {
		name string
		days int
		want float64
	}{
		{"hundred days", 100, (99.0 - 98.0) / 98.0 * 365 / 100},
		{"expired floors to one day", 0, (99.0 - 98.0) / 98.0 * 365},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IRR(110, 0.9, 98, 0, 0, tt.days)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("IRR = %v, want %v", got, tt.want)
			}
		})
	}
}

func newTestSelector() *Selector {
	s := NewSelector(nil)
	s.now = func() time.Time { return date(2025, 3, 14) }
	return s
}

func TestSelect(t *testing.T) {
	treasuries := []model.Treasury{
		{Conid: 10, CUSIP: "RICH", Coupon: 4, MaturityDate: date(2032, 5, 15), CF: 0.85, Price: 99},
		{Conid: 11, CUSIP: "CHEAP", Coupon: 4, MaturityDate: date(2032, 8, 15), CF: 0.85, Price: 96, Yield: 0.0425, HasYield: true},
		{Conid: 12, CUSIP: "SHORT", Coupon: 4, MaturityDate: date(2027, 2, 15), CF: 0.95, Price: 80},
		{Conid: 13, CUSIP: "NOCF", Coupon: 4, MaturityDate: date(2032, 5, 15), Price: 50},
		{Conid: 0, CUSIP: "NOCONID", Coupon: 4, MaturityDate: date(2032, 5, 15), CF: 0.85, Price: 50},
	}
	h := model.Hedge{
		Future: model.Future{Conid: 1, Symbol: "ZN", Expiry: date(2025, 6, 18)},
		Source: model.SourceBid,
		Price:  110,
	}

	s := newTestSelector()
	c, err := s.Select(h, treasuries)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if c.Treasury.CUSIP != "CHEAP" {
		t.Errorf("CTD = %s, want CHEAP", c.Treasury.CUSIP)
	}
	if c.Yield != 0.0425 {
		t.Errorf("Yield = %v, want quoted 0.0425", c.Yield)
	}
	if c.Term != 7.5 {
		t.Errorf("Term = %v, want 7.5", c.Term)
	}
	if c.ModelPrice <= 0 {
		t.Errorf("ModelPrice = %v, want positive", c.ModelPrice)
	}
	if math.Abs(c.ImpliedYield-c.Yield) > 1e-6 {
		t.Errorf("ImpliedYield = %v, want %v", c.ImpliedYield, c.Yield)
	}
	wantIRR := IRR(110, 0.85, 96, 0, 0, 96)
	if math.Abs(c.IRR-wantIRR) > 1e-12 {
		t.Errorf("IRR = %v, want %v", c.IRR, wantIRR)
	}
}

func TestSelectSolvesYield(t *testing.T) {
	treasuries := []model.Treasury{
		{Conid: 10, CUSIP: "A", Coupon: 4, MaturityDate: date(2032, 5, 15), CF: 0.85, Price: 99},
	}
	h := model.Hedge{Future: model.Future{Symbol: "ZN", Expiry: date(2025, 6, 18)}, Price: 110}

	c, err := newTestSelector().Select(h, treasuries)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if math.Abs(c.ModelPrice-99) > 1e-4 {
		t.Errorf("ModelPrice = %v, want 99 at the solved yield", c.ModelPrice)
	}
	if c.Yield <= 0.04 {
		t.Errorf("Yield = %v, want above the coupon for a discount bond", c.Yield)
	}
}

func TestSelectNoEligible(t *testing.T) {
	treasuries := []model.Treasury{
		{Conid: 10, CUSIP: "A", Coupon: 4, MaturityDate: date(2040, 5, 15), CF: 0.85, Price: 99},
	}
	tests := []struct {
		name string
		h    model.Hedge
	}{
		{"outside bin", model.Hedge{Future: model.Future{Symbol: "ZN", Expiry: date(2025, 6, 18)}, Price: 110}},
		{"unknown root", model.Hedge{Future: model.Future{Symbol: "UB", Expiry: date(2025, 6, 18)}, Price: 110}},
		{"unpriced", model.Hedge{Future: model.Future{Symbol: "ZN", Expiry: date(2025, 6, 18)}}},
	}
	s := newTestSelector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Select(tt.h, treasuries)
			if !errors.Is(err, ErrNoEligible) {
				t.Errorf("err = %v, want ErrNoEligible", err)
			}
		})
	}
}

func TestPair(t *testing.T) {
	treasuries := []model.Treasury{
		{Conid: 10, CUSIP: "A", Coupon: 4, MaturityDate: date(2032, 5, 15), CF: 0.8, Price: 99},
	}
	hedges := []model.Hedge{
		{Future: model.Future{Conid: 1, Symbol: "ZN", Expiry: date(2025, 6, 18)}, Price: 110},
		{Future: model.Future{Conid: 2, Symbol: "ZT", Expiry: date(2025, 6, 30)}, Price: 103},
	}

	got := newTestSelector().Pair(hedges, treasuries)
	if len(got) != 1 {
		t.Fatalf("len(Pair) = %d, want 1", len(got))
	}
	if got[0].CTD.Treasury.Conid != 10 {
		t.Errorf("CTD conid = %d, want 10", got[0].CTD.Treasury.Conid)
	}
	if want := got[0].CTD.ModelPrice / 0.8; math.Abs(got[0].TheoreticalPrice-want) > 1e-12 {
		t.Errorf("TheoreticalPrice = %v, want %v", got[0].TheoreticalPrice, want)
	}
}
