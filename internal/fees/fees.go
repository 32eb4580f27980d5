// Package fees computes per-contract commissions and exchange fees for
// Treasury futures.
package fees

import (
	"errors"
	"fmt"
)

// ErrUnknownSymbol is returned when no fee schedule lists a symbol.
var ErrUnknownSymbol = errors.New("fees: unknown symbol")

// Exchange names in the fee table.
const (
	CBOT      = "CBOT"
	QBAlgo    = "QBAlgo"
	SmallExch = "SmallExch"
)

// Schedule holds the per-contract charges on one exchange.
type Schedule struct {
	Exchange   float64
	Regulatory float64
	GiveUp     float64
}

// Total returns the per-contract sum of the schedule.
func (s Schedule) Total() float64 {
	return s.Exchange + s.Regulatory + s.GiveUp
}

type tier struct {
	upTo float64
	rate float64
}

var commissionTiers = []tier{
	{1000, 0.85},
	{10000, 0.65},
	{20000, 0.45},
	{-1, 0.25},
}

var table = map[string]map[string]Schedule{
	CBOT: {
		"ZT":  {0.65, 0.02, 0.06},
		"ZF":  {0.65, 0.02, 0.06},
		"Z3N": {0.65, 0.02, 0.06},
		"ZN":  {0.80, 0.02, 0.06},
		"TN":  {0.80, 0.02, 0.06},
	},
	QBAlgo: {
		"ZT":  {0.75, 0, 0},
		"ZF":  {0.75, 0, 0},
		"Z3N": {0.75, 0, 0},
		"ZN":  {0.75, 0, 0},
		"TN":  {0.75, 0, 0},
	},
	SmallExch: {
		"ZT":  {0.15, 0.02, 0.02},
		"ZF":  {0.15, 0.02, 0.02},
		"Z3N": {0.15, 0.02, 0.02},
		"ZN":  {0.15, 0.02, 0.02},
		"TN":  {0.15, 0.02, 0.02},
	},
}

// CommissionRate returns the broker commission per contract for a monthly
// volume. Non-positive volumes pay nothing.
func CommissionRate(volume int) float64 {
	if volume <= 0 {
		return 0
	}
	for _, t := range commissionTiers {
		if t.upTo < 0 || float64(volume) <= t.upTo {
			return t.rate
		}
	}
	return 0
}

// SymbolFees looks up the schedule for symbol, trying preferred, then CBOT,
// QBAlgo and SmallExch. Without a preferred exchange only QBAlgo is tried.
func SymbolFees(symbol, preferred string) (Schedule, error) {
	order := []string{QBAlgo}
	if preferred != "" {
		order = []string{preferred, CBOT, QBAlgo, SmallExch}
	}
	for _, ex := range order {
		if s, ok := table[ex][symbol]; ok {
			return s, nil
		}
	}
	return Schedule{}, fmt.Errorf("%w: %q on %v", ErrUnknownSymbol, symbol, order)
}

// LegCharge describes one leg of a trade for fee purposes.
type LegCharge struct {
	Symbol   string
	Exchange string
	Quantity int
}

// Total returns commission plus exchange fees for every leg at its quantity.
func Total(legs []LegCharge, volume int) (float64, error) {
	commission := CommissionRate(volume)
	var total float64
	for _, l := range legs {
		s, err := SymbolFees(l.Symbol, l.Exchange)
		if err != nil {
			return 0, err
		}
		q := l.Quantity
		if q < 0 {
			q = -q
		}
		total += (commission + s.Total()) * float64(q)
	}
	return total, nil
}
