package kpi

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rickgao/treasury-basis/internal/model"
)

// ErrInsufficientMargin is returned when the special memorandum account is
// too small to size pairs.
var ErrInsufficientMargin = errors.New("kpi: insufficient margin")

const (
	// DefaultSMAMultiplier approximates Reg T buying power from net liquidation.
	DefaultSMAMultiplier = 4.0
	// DefaultMinSMA is the SMA at or below which no pair is sized.
	DefaultMinSMA = 25000.0
	// DefaultTopPairs is the number of ranked pairs kept.
	DefaultTopPairs = 5

	maxContracts = 10000
)

// SMA returns the special memorandum account estimate for a net liquidation
// value. A non-positive multiplier uses DefaultSMAMultiplier.
func SMA(netLiquidation, multiplier float64) float64 {
	if multiplier <= 0 {
		multiplier = DefaultSMAMultiplier
	}
	return netLiquidation * multiplier
}

// RankParams holds the sizing and ranking scalars.
type RankParams struct {
	SMA           float64
	MinSMA        float64 // 0 means DefaultMinSMA
	MarginCushion float64 // fraction of SMA held back
	VolumeScalar  float64 // log-volume denominator
	TopN          int     // 0 means DefaultTopPairs
}

// Limit returns the notional budget for one pair.
func (p RankParams) Limit() float64 {
	return p.SMA * (1 - p.MarginCushion)
}

// Rank sizes, scores and orders pairs by RENTD, best first. Pairs without
// positive volume on both legs are dropped, duplicates of a futures pair keep
// their best row, and at most TopN pairs are returned.
func Rank(pairs []model.Pair, p RankParams) ([]model.Pair, error) {
	minSMA := p.MinSMA
	if minSMA == 0 {
		minSMA = DefaultMinSMA
	}
	if p.SMA <= minSMA {
		return nil, fmt.Errorf("%w: sma %.2f <= %.2f", ErrInsufficientMargin, p.SMA, minSMA)
	}
	if p.VolumeScalar <= 0 {
		return nil, fmt.Errorf("kpi: volume scalar must be positive, got %v", p.VolumeScalar)
	}
	topN := p.TopN
	if topN <= 0 {
		topN = DefaultTopPairs
	}
	limit := p.Limit()

	ranked := make([]model.Pair, 0, len(pairs))
	for _, pair := range pairs {
		vA, vB := pair.A.Hedge.Future.Volume, pair.B.Hedge.Future.Volume
		if !(vA > 0) || !(vB > 0) {
			continue
		}

		if pair.A.Basis.ImpliedRepo < pair.B.Basis.ImpliedRepo {
			pair.A.Sign, pair.B.Sign = 1, -1
		} else {
			pair.A.Sign, pair.B.Sign = -1, 1
		}
		pair.A.Quantity, pair.B.Quantity = OptimizeQuantities(pair, limit)
		pair.Quantity = gcd(pair.A.Quantity, pair.B.Quantity)

		pair.CostA = legCost(pair.A)
		pair.CostB = legCost(pair.B)
		pair.DV01Ratio = dv01Ratio(pair)

		qA := float64(pair.A.Sign * pair.A.Quantity)
		qB := float64(pair.B.Sign * pair.B.Quantity)
		pair.Notional = qA*pair.CostA + qB*pair.CostB
		pair.AdjNetBasis = pair.A.Basis.NetBasis*qA - pair.B.Basis.NetBasis*qB

		pair.VolumeWeight = ((1 + math.Log(vA)/p.VolumeScalar) + (1 + math.Log(vB)/p.VolumeScalar)) / 2
		pair.RENTD = pair.AdjNetBasis * pair.VolumeWeight
		if math.IsNaN(pair.RENTD) {
			continue
		}
		ranked = append(ranked, pair)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RENTD > ranked[j].RENTD
	})

	seen := make(map[[2]int64]bool, len(ranked))
	out := make([]model.Pair, 0, topN)
	for _, pair := range ranked {
		if seen[pair.Key()] {
			continue
		}
		seen[pair.Key()] = true
		out = append(out, pair)
		if len(out) == topN {
			break
		}
	}
	return out, nil
}

// OptimizeQuantities returns the whole contract counts qA, qB >= 1 whose
// combined cost is largest without exceeding limit, preferring the ratio
// closest to the DV01 ratio on ties. It returns 1, 1 when nothing fits.
func OptimizeQuantities(p model.Pair, limit float64) (qA, qB int) {
	costA, costB := legCost(p.A), legCost(p.B)
	r := dv01Ratio(p)

	maxB := 1
	if costB > 0 {
		maxB = int(math.Min(math.Floor(limit/costB), maxContracts))
	}

	bestCost, bestErr := -1.0, math.Inf(1)
	for b := 1; b <= maxB; b++ {
		a := int(math.RoundToEven(r * float64(b)))
		if a < 1 {
			a = 1
		}
		cost := float64(a)*costA + float64(b)*costB
		if cost > limit {
			continue
		}
		e := math.Abs(float64(a)/float64(b) - r)
		if cost > bestCost || (cost == bestCost && e < bestErr) {
			qA, qB, bestCost, bestErr = a, b, cost, e
		}
	}
	if qA == 0 || qB == 0 {
		return 1, 1
	}
	return qA, qB
}

func legCost(l model.Leg) float64 {
	return l.Hedge.Future.Multiplier * l.Hedge.Price
}

func dv01Ratio(p model.Pair) float64 {
	b := p.B.Hedge.Analytics.DV01
	if b == 0 {
		return 1
	}
	return p.A.Hedge.Analytics.DV01 / b
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	if a == 0 {
		return 1
	}
	return a
}
