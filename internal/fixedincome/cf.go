package fixedincome

import (
	"math"
	"time"
)

// StandardYield is the 6% notional yield behind CME conversion factors.
const StandardYield = 0.06

// ConversionFactor returns the CME conversion factor of a deliverable with the
// given coupon (percent) whose current coupon period runs prev to next,
// assuming delivery mid-period. The result is the price at StandardYield per
// unit of par, unrounded.
func ConversionFactor(coupon float64, prev, next, maturity time.Time) (float64, error) {
	period := Days(prev, next)
	if period <= 0 {
		return 0, ErrUndefined
	}
	delivery := prev.Add(next.Sub(prev) / 2)
	frac := float64(Days(delivery, next)) / float64(period)
	pmt := coupon / 2

	var coupons []time.Time
	for cur := next; !cur.After(maturity); cur = AddMonths(cur, 6) {
		coupons = append(coupons, cur)
	}
	lastFull := next
	if len(coupons) > 0 {
		lastFull = coupons[len(coupons)-1]
	}

	delta := 1.0
	N := len(coupons)
	if maturity.After(lastFull) {
		after := AddMonths(lastFull, 6)
		delta = float64(Days(lastFull, maturity)) / float64(Days(lastFull, after))
		N++
	}

	r := StandardYield / 2
	pv := pmt / math.Pow(1+r, frac)
	for j := 1; j < N-1; j++ {
		pv += pmt / math.Pow(1+r, frac+float64(j))
	}
	pv += (100 + pmt*delta) / math.Pow(1+r, frac+float64(N-1))
	return pv / 100, nil
}

// Round6 rounds x to six decimal places, the precision CME publishes factors in.
func Round6(x float64) float64 {
	return roundTo(x, 6)
}
