package model

import "testing"

func TestLegRatio(t *testing.T) {
	tests := []struct {
		name string
		leg  Leg
		qty  int
		want int
	}{
		{"long unit", Leg{Sign: 1, Quantity: 3}, 3, 1},
		{"short scaled", Leg{Sign: -1, Quantity: 6}, 3, -2},
		{"zero quantity treated as one", Leg{Sign: 1, Quantity: 2}, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.leg.Ratio(tt.qty); got != tt.want {
				t.Errorf("Ratio(%d) = %d, want %d", tt.qty, got, tt.want)
			}
		})
	}
}

func TestPairKey(t *testing.T) {
	var p Pair
	p.A.Hedge.Future.Conid = 111
	p.B.Hedge.Future.Conid = 222
	if got := p.Key(); got != [2]int64{111, 222} {
		t.Errorf("Key() = %v, want [111 222]", got)
	}
}

func TestRiskResultPassed(t *testing.T) {
	tests := []struct {
		name string
		r    RiskResult
		want bool
	}{
		{"clean", RiskResult{}, true},
		{"overlay", RiskResult{OverlayBreach: true}, false},
		{"convexity", RiskResult{ConvexityBreach: true}, false},
		{"duration", RiskResult{DurationBreach: true}, false},
		{"stress", RiskResult{StressBreach: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Passed(); got != tt.want {
				t.Errorf("Passed() = %v, want %v", got, tt.want)
			}
		})
	}
}
