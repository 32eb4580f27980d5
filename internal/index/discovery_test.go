package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rickgao/treasury-basis/internal/api"
)

type fakeFuturesGateway struct {
	futures   map[string][]api.FuturesContract
	defs      map[int64]api.SecDef
	requested []int64
	scanErr   error
}

func (f *fakeFuturesGateway) GetFutures(_ context.Context, _ []string) (map[string][]api.FuturesContract, error) {
	return f.futures, f.scanErr
}

func (f *fakeFuturesGateway) GetSecDefs(_ context.Context, conids []int64) ([]api.SecDef, error) {
	f.requested = conids
	var out []api.SecDef
	for _, id := range conids {
		if d, ok := f.defs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func TestDiscoveryFutures(t *testing.T) {
	gw := &fakeFuturesGateway{
		futures: map[string][]api.FuturesContract{
			"ZN": {
				{Symbol: "ZN", Conid: 3, ExpirationDate: 20250919},
				{Symbol: "ZN", Conid: 2, ExpirationDate: 20250618},
				{Symbol: "ZN", Conid: 9, ExpirationDate: 20280618}, // beyond two years
			},
			"ZF": {
				{Symbol: "ZF", Conid: 5, ExpirationDate: 20250630},
				{Symbol: "ZF", Conid: 6, ExpirationDate: 20250930},
			},
		},
		defs: map[int64]api.SecDef{
			2: {Conid: 2, Ticker: "ZN", Expiry: "20250618", Multiplier: 1000},
			3: {Conid: 3, Ticker: "ZN", Expiry: "20250919", Multiplier: 1000},
			5: {Conid: 5, Ticker: "ZF", Expiry: "20250630", Multiplier: 1000},
			6: {Conid: 6, Ticker: "IBCID6", Error: "no contract found"},
		},
	}

	d := NewDiscovery(gw, nil, 2)
	d.now = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }

	got, err := d.Futures(context.Background(), []string{"ZN", "ZF"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.requested) != 4 {
		t.Errorf("requested %d secdefs, want 4", len(gw.requested))
	}
	for _, id := range gw.requested {
		if id == 9 {
			t.Error("contract beyond two years was requested")
		}
	}

	wantOrder := []int64{5, 2, 3}
	if len(got) != len(wantOrder) {
		t.Fatalf("len = %d, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].Conid != id {
			t.Errorf("got[%d].Conid = %d, want %d", i, got[i].Conid, id)
		}
	}
	if got[1].YearsToMaturity <= 0 {
		t.Errorf("YearsToMaturity = %v, want > 0", got[1].YearsToMaturity)
	}
}

func TestDiscoveryScanError(t *testing.T) {
	gw := &fakeFuturesGateway{scanErr: errors.New("boom")}
	if _, err := NewDiscovery(gw, nil, 2).Futures(context.Background(), []string{"ZN"}); err == nil {
		t.Fatal("expected error, got nil")
	}
}
