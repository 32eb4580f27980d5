package execution

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/rickgao/treasury-basis/internal/fees"
	"github.com/rickgao/treasury-basis/internal/model"
)

var (
	// ErrNoCandidate is returned when no approved pair is profitable after fees.
	ErrNoCandidate = errors.New("execution: no profitable candidate")
	// ErrUnsupportedSymbol is returned when a symbol has no tick size.
	ErrUnsupportedSymbol = errors.New("execution: unsupported symbol")
)

// Combo order constants.
const (
	ComboConid = "28812380"
	OrderType  = "LMT"
	SideBuy    = "BUY"
	TIFGTC     = "GTC"
	SecTypeFUT = "FUT"
)

var tick = decimal.New(15625, -6) // 1/64

// TickSize returns the spread price increment of a futures root.
func TickSize(symbol string) (decimal.Decimal, error) {
	switch symbol {
	case "ZT", "Z3N", "ZF", "ZN", "TN":
		return tick, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %q", ErrUnsupportedSymbol, symbol)
}

// LimitPrice floors value to the tick of the leg with the coarser increment
// and truncates it to six decimals.
func LimitPrice(value float64, a, b model.Future) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("execution: invalid price %v", value)
	}
	symbol := a.Symbol
	if b.Increment > a.Increment {
		symbol = b.Symbol
	}
	t, err := TickSize(symbol)
	if err != nil {
		return 0, err
	}
	p := decimal.NewFromFloat(value).Div(t).Floor().Mul(t).Truncate(6)
	return p.InexactFloat64(), nil
}

// Selection is the pair chosen for an order with its economics.
type Selection struct {
	Pair  model.Pair
	Fees  float64
	Value float64 // (AdjNetBasis - Fees) * reducer
	Price float64 // Value on the tick grid
}

// PairFees returns commission and exchange fees for both legs at their
// full quantities.
func PairFees(p model.Pair, volume int) (float64, error) {
	return fees.Total([]fees.LegCharge{
		{Symbol: p.A.Hedge.Future.Symbol, Exchange: p.A.Hedge.Future.UnderlyingExchange, Quantity: p.A.Quantity},
		{Symbol: p.B.Hedge.Future.Symbol, Exchange: p.B.Hedge.Future.UnderlyingExchange, Quantity: p.B.Quantity},
	}, volume)
}

// Select returns the first pair whose adjusted net basis after fees, scaled
// by reducer, is positive. Pairs whose fees or price cannot be computed are
// skipped.
func Select(approved []model.Pair, volume int, reducer float64) (Selection, error) {
	for _, p := range approved {
		f, err := PairFees(p, volume)
		if err != nil {
			continue
		}
		v := (p.AdjNetBasis - f) * reducer
		if !(v > 0) {
			continue
		}
		price, err := LimitPrice(v, p.A.Hedge.Future, p.B.Hedge.Future)
		if err != nil {
			continue
		}
		return Selection{Pair: p, Fees: f, Value: v, Price: price}, nil
	}
	return Selection{}, ErrNoCandidate
}

// BuildCombo returns the combo limit order for a selection under a new
// customer order id.
func BuildCombo(s Selection, orderID string) model.ComboOrder {
	p := s.Pair
	a, b := p.A.Hedge.Future.Conid, p.B.Hedge.Future.Conid
	qty := p.Quantity
	if qty <= 0 {
		qty = 1
	}
	return model.ComboOrder{
		CustomerOrderID: orderID,
		Exchange:        fmt.Sprintf("SMART;;;%d,%d", a, b),
		Conidex:         fmt.Sprintf("%s;;;%d/%d,%d/%d", ComboConid, a, p.A.Ratio(qty), b, p.B.Ratio(qty)),
		OrderType:       OrderType,
		Price:           s.Price,
		Side:            SideBuy,
		TIF:             TIFGTC,
		Quantity:        qty,
		SecType:         SecTypeFUT,
		OutsideRTH:      true,
	}
}
