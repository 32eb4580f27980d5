// Package ctd pairs futures quote rows with their cheapest-to-deliver Treasury.
package ctd

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/rickgao/treasury-basis/internal/fixedincome"
	"github.com/rickgao/treasury-basis/internal/model"
)

// ErrNoEligible is returned when no Treasury falls in a contract's delivery bin.
var ErrNoEligible = errors.New("ctd: no eligible treasury")

// Bin bounds the deliverable maturities of a contract, in years after expiry.
type Bin struct {
	Min float64
	Max float64
}

// Bins lists the delivery bins by futures root.
var Bins = map[string]Bin{
	"ZT":  {1.73, 2.02},
	"Z3N": {2.73, 3.02},
	"ZF":  {4.11, 5.27},
	"ZN":  {6.47, 10.02},
	"TN":  {9.4, 10.02},
}

// MaturityWindow returns the maturity dates bounding the bin of symbol for a
// contract expiring at expiry.
func MaturityWindow(symbol string, expiry time.Time) (lo, hi time.Time, ok bool) {
	b, ok := Bins[strings.ToUpper(symbol)]
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	lo = expiry.AddDate(0, 0, int(b.Min*fixedincome.DaysPerYear))
	hi = expiry.AddDate(0, 0, int(b.Max*fixedincome.DaysPerYear))
	return lo, hi, true
}

// Expand turns each open future into priced hedge rows: one bid and one ask
// row when both sides are quoted, otherwise one last row.
func Expand(futures []model.Future) []model.Hedge {
	hedges := make([]model.Hedge, 0, 2*len(futures))
	for _, f := range futures {
		if f.Closed {
			continue
		}
		switch {
		case valid(f.Bid) && valid(f.Ask):
			hedges = append(hedges,
				model.Hedge{Future: f, Source: model.SourceBid, Price: f.Bid},
				model.Hedge{Future: f, Source: model.SourceAsk, Price: f.Ask},
			)
		case valid(f.Last):
			hedges = append(hedges, model.Hedge{Future: f, Source: model.SourceLast, Price: f.Last})
		}
	}
	return hedges
}

func valid(x float64) bool {
	return x != 0 && !math.IsNaN(x)
}

// IRR is the annualised implied repo rate of buying a Treasury at price and
// delivering it into a future at futPrice after days.
func IRR(futPrice, cf, price, aiPurchase, aiDelivery float64, days int) float64 {
	if days < 1 {
		days = 1
	}
	invoice := futPrice*cf + aiDelivery
	cost := price + aiPurchase
	return (invoice - cost) / cost * 365 / float64(days)
}

// Selector chooses the CTD for hedge rows.
type Selector struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewSelector creates a Selector.
func NewSelector(logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{logger: logger, now: time.Now}
}

// Pair selects a CTD for every hedge row. Rows without an eligible Treasury
// are logged and dropped.
func (s *Selector) Pair(hedges []model.Hedge, treasuries []model.Treasury) []model.Hedge {
	out := make([]model.Hedge, 0, len(hedges))
	for _, h := range hedges {
		c, err := s.Select(h, treasuries)
		if err != nil {
			s.logger.Debug("no ctd for hedge",
				"conid", h.Future.Conid,
				"symbol", h.Future.Symbol,
				"source", h.Source,
				"error", err)
			continue
		}
		h.CTD = c
		if c.Treasury.CF != 0 {
			h.TheoreticalPrice = c.ModelPrice / c.Treasury.CF
		}
		out = append(out, h)
	}
	return out
}

// Select returns the max-IRR Treasury deliverable into h.
func (s *Selector) Select(h model.Hedge, treasuries []model.Treasury) (model.CTD, error) {
	lo, hi, ok := MaturityWindow(h.Future.Symbol, h.Future.Expiry)
	if !ok {
		return model.CTD{}, fmt.Errorf("%w: no bin for %q", ErrNoEligible, h.Future.Symbol)
	}
	if !valid(h.Price) {
		return model.CTD{}, fmt.Errorf("%w: unpriced row", ErrNoEligible)
	}

	today := dateOf(s.now())
	days := fixedincome.Days(today, h.Future.Expiry)

	var (
		best  model.Treasury
		irr   = math.Inf(-1)
		found bool
	)
	for _, t := range treasuries {
		if t.Conid == 0 || t.CF == 0 || t.Price <= 0 {
			continue
		}
		if t.MaturityDate.Before(lo) || t.MaturityDate.After(hi) {
			continue
		}
		r := IRR(h.Price, t.CF, t.Price,
			accrued(t, today),
			accrued(t, h.Future.Expiry),
			days)
		if r > irr {
			best, irr, found = t, r, true
		}
	}
	if !found {
		return model.CTD{}, fmt.Errorf("%w: %s %s", ErrNoEligible, h.Future.Symbol, h.Future.Expiry.Format("2006-01-02"))
	}
	return price(best, irr, today)
}

func price(t model.Treasury, irr float64, today time.Time) (model.CTD, error) {
	c := model.CTD{
		Treasury: t,
		Price:    t.Price,
		IRR:      irr,
		Term:     fixedincome.RoundTerm(fixedincome.Term(today, t.MaturityDate)),
	}
	bond := fixedincome.Bond{Coupon: t.Coupon, Term: c.Term, NextCoupon: t.NextCoupon}

	if t.HasYield {
		c.Yield = t.Yield
	} else {
		y, err := fixedincome.YieldFromPrice(bond, t.Price)
		if err != nil {
			return c, fmt.Errorf("solve yield %s: %w", t.CUSIP, err)
		}
		c.Yield = y
	}

	mp, err := fixedincome.Price(bond, c.Yield)
	if err != nil {
		return c, fmt.Errorf("model price %s: %w", t.CUSIP, err)
	}
	c.ModelPrice = mp
	if iy, err := fixedincome.YieldFromPrice(bond, mp); err == nil {
		c.ImpliedYield = iy
	}
	return c, nil
}

// accrued returns interest accrued on t at asOf, or 0 outside its schedule.
func accrued(t model.Treasury, asOf time.Time) float64 {
	prev, next, ok := fixedincome.CouponBounds(t.IssueDate, t.MaturityDate, asOf)
	if !ok {
		return 0
	}
	ai, err := fixedincome.AccruedInterest(t.Coupon, 2, prev, asOf, next, fixedincome.ActualActual)
	if err != nil {
		return 0
	}
	return ai
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
