package universe

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/treasury-basis/internal/api"
	"github.com/rickgao/treasury-basis/internal/index"
	"github.com/rickgao/treasury-basis/internal/model"
)

// fakeGateway serves fixed quotes and discovery results.
type fakeGateway struct {
	mu          sync.Mutex
	quotes      []model.Quote
	snapshotErr error
	snapshots   int
	requested   []int64
	futures     map[string][]api.FuturesContract
	secdefs     []api.SecDef
}

func (f *fakeGateway) Snapshot(_ context.Context, conids []int64, _ []string) ([]model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
	f.requested = append([]int64(nil), conids...)
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.quotes, nil
}

func (f *fakeGateway) GetFutures(_ context.Context, _ []string) (map[string][]api.FuturesContract, error) {
	return f.futures, nil
}

func (f *fakeGateway) GetSecDefs(_ context.Context, _ []int64) ([]api.SecDef, error) {
	return f.secdefs, nil
}

const halfTick = 1.0 / 64

func writeIndex(t *testing.T, withFutures bool) index.Paths {
	t.Helper()
	dir := t.TempDir()
	paths := index.Paths{
		TreasuryIndex:  filepath.Join(dir, "UST_index.csv"),
		FuturesIndex:   filepath.Join(dir, "FUTURES_index.csv"),
		FuturesHistory: filepath.Join(dir, "FUTURES_historical.csv"),
	}

	treasuries := []model.Treasury{
		{Conid: 101, CUSIP: "91282CMG3", Coupon: 4.25, CF: 0.8123},
		{Conid: 0, CUSIP: "91282CLW9", Coupon: 4.0}, // no gateway contract
	}
	if err := index.SaveTreasuries(paths.TreasuryIndex, treasuries); err != nil {
		t.Fatalf("SaveTreasuries: %v", err)
	}

	if withFutures {
		futures := []model.Future{
			{Conid: 11, Symbol: "ZN", Increment: halfTick, Multiplier: 1000},
			{Conid: 12, Symbol: "ZB", Increment: 1.0 / 32, Multiplier: 1000},
		}
		if err := index.SaveFutures(paths.FuturesIndex, futures); err != nil {
			t.Fatalf("SaveFutures: %v", err)
		}
	}

	t0 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	bars := []model.Bar{
		{Conid: 11, Sequence: 2, Time: t0.AddDate(0, 0, 1), Close: 110.5},
		{Conid: 11, Sequence: 1, Time: t0, Close: 110.25},
		{Conid: 12, YearsToMaturity: -0.1}, // placeholder without history
	}
	if err := index.SaveBars(paths.FuturesHistory, bars); err != nil {
		t.Fatalf("SaveBars: %v", err)
	}
	return paths
}

func testQuotes() []model.Quote {
	return []model.Quote{
		{Conid: 11, Bid: "110'16", Ask: "110'17", Last: "110'16", Volume: "1.2K"},
		{Conid: 101, Bid: "99.5", Last: "99.4", Yield: "4.25"},
		{Conid: 999, Bid: "1"},
	}
}

func startRegistry(t *testing.T, paths index.Paths, gw *fakeGateway) Registry {
	t.Helper()
	cfg := Config{
		Paths:            paths,
		Symbols:          []string{"ZN"},
		MaxYearsToExpiry: 2,
		RefreshInterval:  time.Hour,
	}
	r := NewRegistry(cfg, gw, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r.Stop(ctx)
	})
	return r
}

func TestRegistry_StartLoadsAndRefreshes(t *testing.T) {
	gw := &fakeGateway{quotes: testQuotes()}
	r := startRegistry(t, writeIndex(t, true), gw)

	if !r.Ready() {
		t.Fatal("Ready() = false after Start")
	}

	if got := r.Conids(); len(got) != 2 || got[0] != 11 || got[1] != 101 {
		t.Errorf("Conids() = %v, want [11 101]", got)
	}

	snap := r.Snapshot()
	if len(snap.Futures) != 1 {
		t.Fatalf("len(Futures) = %d, want 1", len(snap.Futures))
	}
	f := snap.Futures[0]
	if f.Bid != 110.5 || f.Ask != 110.53125 || f.Price != 110.5 {
		t.Errorf("future quote = bid %v ask %v price %v, want 110.5 110.53125 110.5", f.Bid, f.Ask, f.Price)
	}
	if f.Volume != 1200 {
		t.Errorf("Volume = %v, want 1200", f.Volume)
	}

	if len(snap.Treasuries) != 1 {
		t.Fatalf("len(Treasuries) = %d, want 1", len(snap.Treasuries))
	}
	tr := snap.Treasuries[0]
	if tr.Price != 99.5 || !tr.HasYield || tr.Yield != 0.0425 {
		t.Errorf("treasury = price %v yield %v (%v), want 99.5 0.0425", tr.Price, tr.Yield, tr.HasYield)
	}
	if snap.At.IsZero() {
		t.Error("Snapshot.At is zero")
	}
}

func TestRegistry_Bars(t *testing.T) {
	gw := &fakeGateway{quotes: testQuotes()}
	r := startRegistry(t, writeIndex(t, true), gw)

	bars := r.Bars(11)
	if len(bars) != 2 {
		t.Fatalf("len(Bars(11)) = %d, want 2", len(bars))
	}
	if bars[0].Sequence != 1 || bars[1].Sequence != 2 {
		t.Errorf("sequences = %d, %d, want 1, 2", bars[0].Sequence, bars[1].Sequence)
	}

	// Mutating the copy must not leak into the registry.
	bars[0].Close = 0
	if got := r.Bars(11)[0].Close; got != 110.25 {
		t.Errorf("Close = %v after caller mutation, want 110.25", got)
	}

	if got := r.Bars(12); len(got) != 0 {
		t.Errorf("Bars(12) = %v, want none for a placeholder row", got)
	}
}

func TestRegistry_ApplyQuote(t *testing.T) {
	gw := &fakeGateway{quotes: testQuotes()}
	r := startRegistry(t, writeIndex(t, true), gw)

	tests := []struct {
		name        string
		q           model.Quote
		wantKnown   bool
		wantFutures int
	}{
		{"closed future excluded", model.Quote{Conid: 11, Last: "C110'16"}, true, 0},
		{"reopened future included", model.Quote{Conid: 11, Bid: "111'00", Last: "111'00"}, true, 1},
		{"unknown conid", model.Quote{Conid: 42, Bid: "1"}, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.ApplyQuote(tt.q); got != tt.wantKnown {
				t.Errorf("ApplyQuote() = %v, want %v", got, tt.wantKnown)
			}
			if got := len(r.Snapshot().Futures); got != tt.wantFutures {
				t.Errorf("len(Futures) = %d, want %d", got, tt.wantFutures)
			}
		})
	}

	if got := r.Snapshot().Futures[0].Price; got != 111 {
		t.Errorf("Price = %v, want 111", got)
	}
}

func TestRegistry_PartialQuoteKeepsBook(t *testing.T) {
	gw := &fakeGateway{quotes: testQuotes()}
	r := startRegistry(t, writeIndex(t, true), gw)

	if !r.ApplyQuote(model.Quote{Conid: 11, Last: "110'18"}) {
		t.Fatal("ApplyQuote() = false, want known conid")
	}
	futures := r.Snapshot().Futures
	if len(futures) != 1 {
		t.Fatalf("len(Futures) = %d, want 1", len(futures))
	}
	f := futures[0]
	if f.Bid != 110.5 || f.Ask != 110.53125 {
		t.Errorf("Bid/Ask = %v/%v, want snapshot 110.5/110.53125", f.Bid, f.Ask)
	}
	if f.Last != 110.5625 {
		t.Errorf("Last = %v, want 110.5625", f.Last)
	}
	if f.Price != 110.5 {
		t.Errorf("Price = %v, want bid 110.5", f.Price)
	}
}

func TestRegistry_ClosedTreasuryExcluded(t *testing.T) {
	gw := &fakeGateway{quotes: testQuotes()}
	r := startRegistry(t, writeIndex(t, true), gw)

	r.ApplyQuote(model.Quote{Conid: 101, Bid: "C99.5"})
	if got := len(r.Snapshot().Treasuries); got != 0 {
		t.Errorf("len(Treasuries) = %d, want 0", got)
	}
}

func TestRegistry_DiscoveryFallback(t *testing.T) {
	expiry := time.Now().AddDate(1, 0, 0).Format("20060102")
	n, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		t.Fatal(err)
	}
	gw := &fakeGateway{
		quotes: []model.Quote{{Conid: 21, Bid: "112'00"}},
		futures: map[string][]api.FuturesContract{
			"ZN": {{Symbol: "ZN", Conid: 21, ExpirationDate: api.Number(n)}},
		},
		secdefs: []api.SecDef{
			{Conid: 21, Ticker: "ZN", Expiry: expiry, IncrementRules: []api.IncrementRule{{Increment: halfTick}}},
		},
	}
	r := startRegistry(t, writeIndex(t, false), gw)

	snap := r.Snapshot()
	if len(snap.Futures) != 1 || snap.Futures[0].Conid != 21 {
		t.Fatalf("Futures = %+v, want discovered conid 21", snap.Futures)
	}
	if snap.Futures[0].Price != 112 {
		t.Errorf("Price = %v, want 112", snap.Futures[0].Price)
	}
}

func TestRegistry_StartFails(t *testing.T) {
	t.Run("missing treasury index", func(t *testing.T) {
		paths := index.Paths{TreasuryIndex: filepath.Join(t.TempDir(), "missing.csv")}
		r := NewRegistry(Config{Paths: paths}, &fakeGateway{}, nil)
		if err := r.Start(context.Background()); err == nil {
			t.Error("Start() error = nil, want missing index error")
		}
	})

	t.Run("refresh error", func(t *testing.T) {
		gw := &fakeGateway{snapshotErr: errors.New("gateway down")}
		r := NewRegistry(Config{Paths: writeIndex(t, true), Symbols: []string{"ZN"}}, gw, nil)
		if err := r.Start(context.Background()); err == nil {
			t.Error("Start() error = nil, want refresh error")
		}
		if r.Ready() {
			t.Error("Ready() = true after failed refresh")
		}
	})
}
