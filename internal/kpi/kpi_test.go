package kpi

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

func approx(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestEnrich(t *testing.T) {
	par := model.Hedge{
		Future: model.Future{Conid: 1},
		CTD: model.CTD{
			Treasury: model.Treasury{CUSIP: "PAR", Coupon: 4, CF: 0.8},
			Term:     7,
			Yield:    0.04,
		},
	}
	noCF := par
	noCF.CTD.Treasury.CF = 0
	noYield := par
	noYield.CTD.Yield = 0

	got := Enrich([]model.Hedge{par, noCF, noYield}, nil)
	if len(got) != 1 {
		t.Fatalf("len(Enrich) = %d, want 1", len(got))
	}
	h := got[0]
	if !approx(h.CTD.Analytics.Price, 100, 1e-9) {
		t.Errorf("CTD price = %v, want 100", h.CTD.Analytics.Price)
	}
	if !approx(h.Analytics.Price, 125, 1e-9) {
		t.Errorf("futures price = %v, want 125", h.Analytics.Price)
	}
	if !approx(h.Analytics.DV01, h.CTD.Analytics.DV01/0.8, 1e-12) {
		t.Errorf("futures DV01 = %v, want %v", h.Analytics.DV01, h.CTD.Analytics.DV01/0.8)
	}
	if !approx(h.Analytics.ModifiedDuration, h.CTD.Analytics.ModifiedDuration/0.8, 1e-12) {
		t.Errorf("futures duration = %v, want %v", h.Analytics.ModifiedDuration, h.CTD.Analytics.ModifiedDuration/0.8)
	}
	if h.TheoreticalPrice != h.Analytics.Price {
		t.Errorf("TheoreticalPrice = %v, want %v", h.TheoreticalPrice, h.Analytics.Price)
	}
}

func TestPairs(t *testing.T) {
	hedge := func(future, ctd int64) model.Hedge {
		return model.Hedge{
			Future: model.Future{Conid: future},
			CTD:    model.CTD{Treasury: model.Treasury{Conid: ctd}},
		}
	}
	hedges := []model.Hedge{hedge(1, 10), hedge(1, 10), hedge(2, 11)}

	got := Pairs(hedges)
	if len(got) != 4 {
		t.Fatalf("len(Pairs) = %d, want 4", len(got))
	}
	for _, p := range got {
		if p.A.Hedge.CTD.Treasury.Conid == p.B.Hedge.CTD.Treasury.Conid {
			t.Errorf("pair %v shares a CTD", p.Key())
		}
	}
}

func TestLastCouponDate(t *testing.T) {
	today := date(2025, 3, 14)
	tests := []struct {
		name     string
		maturity time.Time
		want     time.Time
	}{
		{"upcoming steps back", date(2032, 5, 15), date(2024, 11, 15)},
		{"already paid", date(2032, 2, 15), date(2025, 2, 15)},
		{"leap day falls to month end", date(2028, 2, 29), date(2025, 2, 28)},
		{"step back clamps", date(2030, 8, 31), date(2025, 2, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LastCouponDate(tt.maturity, today); !got.Equal(tt.want) {
				t.Errorf("LastCouponDate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSIAAccruedInterest(t *testing.T) {
	got := SIAAccruedInterest(4, date(2032, 2, 15), date(2025, 3, 14))
	if want := 2 * 27 / 182.5; !approx(got, want, 1e-12) {
		t.Errorf("SIAAccruedInterest = %v, want %v", got, want)
	}
}

func TestBasis(t *testing.T) {
	today := date(2025, 3, 14)
	maturity := date(2032, 2, 15)
	h := model.Hedge{
		Price: 110,
		CTD: model.CTD{
			Treasury: model.Treasury{Coupon: 4, CF: 0.9, MaturityDate: maturity},
			Price:    98,
		},
	}

	b := Basis(h, today.Add(15*time.Hour))

	ai := 2 * 27 / 182.5
	dirty := 98 + ai
	days := int(maturity.Sub(today).Hours() / 24)
	gross := 110*0.9 - dirty

	if b.Days != days {
		t.Errorf("Days = %d, want %d", b.Days, days)
	}
	if !approx(b.DirtyPrice, dirty, 1e-12) {
		t.Errorf("DirtyPrice = %v, want %v", b.DirtyPrice, dirty)
	}
	if !approx(b.GrossBasis, gross, 1e-12) {
		t.Errorf("GrossBasis = %v, want %v", b.GrossBasis, gross)
	}
	if want := gross / dirty * 365 / float64(days); !approx(b.ImpliedRepo, want, 1e-12) {
		t.Errorf("ImpliedRepo = %v, want %v", b.ImpliedRepo, want)
	}
	if !approx(b.ConvexityYield, 4/dirty, 1e-12) {
		t.Errorf("ConvexityYield = %v, want %v", b.ConvexityYield, 4/dirty)
	}
	if !approx(b.Carry, 0, 1e-9) {
		t.Errorf("Carry = %v, want 0", b.Carry)
	}
	if !approx(b.NetBasis, gross, 1e-9) {
		t.Errorf("NetBasis = %v, want %v", b.NetBasis, gross)
	}
}

func TestSMA(t *testing.T) {
	if got := SMA(10000, 0); got != 40000 {
		t.Errorf("SMA = %v, want 40000", got)
	}
	if got := SMA(10000, 2); got != 20000 {
		t.Errorf("SMA = %v, want 20000", got)
	}
}

func leg(conid int64, multiplier, price, dv01, volume float64) model.Leg {
	return model.Leg{Hedge: model.Hedge{
		Future:    model.Future{Conid: conid, Multiplier: multiplier, Volume: volume},
		Price:     price,
		Analytics: model.Analytics{DV01: dv01},
	}}
}

func TestOptimizeQuantities(t *testing.T) {
	p := model.Pair{
		A: leg(1, 1000, 110, 0.08, 1),
		B: leg(2, 2000, 104, 0.04, 1),
	}
	tests := []struct {
		name   string
		limit  float64
		qA, qB int
	}{
		{"fits two to one", 1_000_000, 4, 2},
		{"nothing fits", 300_000, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qA, qB := OptimizeQuantities(p, tt.limit)
			if qA != tt.qA || qB != tt.qB {
				t.Errorf("OptimizeQuantities = (%d, %d), want (%d, %d)", qA, qB, tt.qA, tt.qB)
			}
		})
	}
}

func TestRank(t *testing.T) {
	withBasis := func(l model.Leg, repo, net float64) model.Leg {
		l.Basis = model.Basis{ImpliedRepo: repo, NetBasis: net}
		return l
	}
	front := leg(1, 1000, 100, 0.05, 1000)
	back := leg(2, 1000, 100, 0.05, 1000)

	best := model.Pair{A: withBasis(front, 0.01, 0.5), B: withBasis(back, 0.02, 0.2)}
	reversed := model.Pair{A: withBasis(back, 0.02, 0.2), B: withBasis(front, 0.01, 0.5)}
	duplicate := model.Pair{A: withBasis(front, 0.01, 0.4), B: withBasis(back, 0.02, 0.2)}
	quiet := model.Pair{A: withBasis(leg(3, 1000, 100, 0.05, 0), 0.01, 5), B: withBasis(back, 0.02, 0.2)}

	params := RankParams{SMA: 250_000, MarginCushion: 0.2, VolumeScalar: 8}
	got, err := Rank([]model.Pair{duplicate, reversed, quiet, best}, params)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Rank) = %d, want 2", len(got))
	}

	z := 1 + math.Log(1000)/8
	top := got[0]
	if top.A.Sign != 1 || top.B.Sign != -1 {
		t.Errorf("signs = (%d, %d), want (1, -1)", top.A.Sign, top.B.Sign)
	}
	if top.A.Quantity != 1 || top.B.Quantity != 1 || top.Quantity != 1 {
		t.Errorf("quantities = (%d, %d, %d), want (1, 1, 1)", top.A.Quantity, top.B.Quantity, top.Quantity)
	}
	if !approx(top.AdjNetBasis, 0.7, 1e-12) {
		t.Errorf("AdjNetBasis = %v, want 0.7", top.AdjNetBasis)
	}
	if !approx(top.VolumeWeight, z, 1e-12) {
		t.Errorf("VolumeWeight = %v, want %v", top.VolumeWeight, z)
	}
	if !approx(top.RENTD, 0.7*z, 1e-12) {
		t.Errorf("RENTD = %v, want %v", top.RENTD, 0.7*z)
	}
	if top.Notional != 0 {
		t.Errorf("Notional = %v, want 0 for equal legs", top.Notional)
	}
	if top.DV01Ratio != 1 {
		t.Errorf("DV01Ratio = %v, want 1", top.DV01Ratio)
	}
	if got[1].Key() != reversed.Key() {
		t.Errorf("second pair = %v, want %v", got[1].Key(), reversed.Key())
	}

	params.TopN = 1
	got, err = Rank([]model.Pair{duplicate, reversed, best}, params)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(got) != 1 || got[0].AdjNetBasis != top.AdjNetBasis {
		t.Errorf("TopN 1 = %d pairs, want the best pair only", len(got))
	}
}

func TestRankInsufficientMargin(t *testing.T) {
	_, err := Rank(nil, RankParams{SMA: 25000, VolumeScalar: 8})
	if !errors.Is(err, ErrInsufficientMargin) {
		t.Errorf("err = %v, want ErrInsufficientMargin", err)
	}
}
