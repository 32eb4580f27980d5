package kpi

import (
	"time"

	"github.com/rickgao/treasury-basis/internal/fixedincome"
	"github.com/rickgao/treasury-basis/internal/model"
)

// SIAAccruedInterest returns semiannual accrued interest on a coupon
// (percent) since the last coupon date implied by maturity, on a 182.5 day
// half year.
func SIAAccruedInterest(coupon float64, maturity, today time.Time) float64 {
	last := LastCouponDate(maturity, today)
	days := fixedincome.Days(last, today)
	return coupon / 2 * float64(days) / 182.5
}

// LastCouponDate places the maturity month and day in today's year, using
// the month end when the day does not exist, and steps back six months when
// that lands after today.
func LastCouponDate(maturity, today time.Time) time.Time {
	y, m, d := today.Year(), maturity.Month(), maturity.Day()
	last := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if last.Month() != m {
		last = time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
	}
	if last.After(today) {
		last = fixedincome.AddMonths(last, -6)
	}
	return last
}

// Basis returns the SIA basis measures of h at today.
func Basis(h model.Hedge, today time.Time) model.Basis {
	today = dateOf(today)
	t := h.CTD.Treasury
	cf := t.CF

	var b model.Basis
	b.AccruedInterest = SIAAccruedInterest(t.Coupon, t.MaturityDate, today)
	b.DirtyPrice = h.CTD.Price + b.AccruedInterest
	b.Days = fixedincome.Days(today, t.MaturityDate)
	b.GrossBasis = h.Price*cf - b.DirtyPrice
	if b.DirtyPrice != 0 && b.Days != 0 {
		days := float64(b.Days)
		b.ImpliedRepo = (h.Price*cf - b.DirtyPrice) / b.DirtyPrice * 365 / days
		b.ConvexityYield = t.Coupon / b.DirtyPrice * (days / 365) * (365 / days)
	}
	financing := b.DirtyPrice * b.ImpliedRepo * float64(b.Days) / 365
	b.Carry = b.GrossBasis - financing
	b.NetBasis = b.GrossBasis + b.Carry
	return b
}

// ApplyBasis sets the basis of both legs of every pair.
func ApplyBasis(pairs []model.Pair, today time.Time) {
	for i := range pairs {
		pairs[i].A.Basis = Basis(pairs[i].A.Hedge, today)
		pairs[i].B.Basis = Basis(pairs[i].B.Hedge, today)
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
