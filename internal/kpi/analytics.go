// Package kpi computes futures analytics, SIA basis and pair rankings from
// hedge rows paired with their CTD.
package kpi

import (
	"fmt"
	"log/slog"

	"github.com/rickgao/treasury-basis/internal/fixedincome"
	"github.com/rickgao/treasury-basis/internal/model"
)

// Enrich computes the CTD analytics of every hedge and the futures analytics
// derived from them by dividing by the conversion factor. Rows whose
// analytics cannot be computed are logged and dropped.
func Enrich(hedges []model.Hedge, logger *slog.Logger) []model.Hedge {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]model.Hedge, 0, len(hedges))
	for _, h := range hedges {
		a, err := ctdAnalytics(h.CTD)
		if err != nil {
			logger.Debug("skipping hedge analytics",
				"conid", h.Future.Conid,
				"ctd", h.CTD.Treasury.CUSIP,
				"error", err)
			continue
		}
		h.CTD.Analytics = a
		h.Analytics = scale(a, 1/h.CTD.Treasury.CF)
		h.TheoreticalPrice = h.Analytics.Price
		out = append(out, h)
	}
	return out
}

func ctdAnalytics(c model.CTD) (model.Analytics, error) {
	if c.Treasury.CF == 0 {
		return model.Analytics{}, fmt.Errorf("%s: %w: no conversion factor", c.Treasury.CUSIP, fixedincome.ErrUndefined)
	}
	b := fixedincome.Bond{
		Coupon:     c.Treasury.Coupon,
		Term:       c.Term,
		Begin:      c.Treasury.PrevCoupon,
		NextCoupon: c.Treasury.NextCoupon,
		DayCount:   fixedincome.ActualActual,
	}
	y := c.Yield

	var (
		a   model.Analytics
		err error
	)
	if a.Price, err = fixedincome.Price(b, y); err != nil {
		return a, fmt.Errorf("price: %w", err)
	}
	if a.ModifiedDuration, err = fixedincome.ModifiedDuration(b, y); err != nil {
		return a, fmt.Errorf("modified duration: %w", err)
	}
	if a.MacaulayDuration, err = fixedincome.MacaulayDuration(b, y); err != nil {
		return a, fmt.Errorf("macaulay duration: %w", err)
	}
	if a.DV01, err = fixedincome.DV01(b, y); err != nil {
		return a, fmt.Errorf("dv01: %w", err)
	}
	if a.ApproxDuration, err = fixedincome.ApproxDuration(b, y, fixedincome.DefaultShift); err != nil {
		return a, fmt.Errorf("approximate duration: %w", err)
	}
	if a.ApproxConvexity, err = fixedincome.ApproxConvexity(b, y, fixedincome.DefaultShift); err != nil {
		return a, fmt.Errorf("approximate convexity: %w", err)
	}
	return a, nil
}

func scale(a model.Analytics, k float64) model.Analytics {
	return model.Analytics{
		Price:            a.Price * k,
		ModifiedDuration: a.ModifiedDuration * k,
		MacaulayDuration: a.MacaulayDuration * k,
		DV01:             a.DV01 * k,
		ApproxDuration:   a.ApproxDuration * k,
		ApproxConvexity:  a.ApproxConvexity * k,
	}
}

// Pairs returns every ordered pair of hedges whose CTDs differ.
func Pairs(hedges []model.Hedge) []model.Pair {
	var pairs []model.Pair
	for i := range hedges {
		for j := range hedges {
			if hedges[i].CTD.Treasury.Conid == hedges[j].CTD.Treasury.Conid {
				continue
			}
			pairs = append(pairs, model.Pair{
				A: model.Leg{Hedge: hedges[i]},
				B: model.Leg{Hedge: hedges[j]},
			})
		}
	}
	return pairs
}
