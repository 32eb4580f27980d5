package fixedincome

import (
	"errors"
	"math"
	"time"
)

// ErrUndefined is returned when a metric cannot be computed from its inputs.
var ErrUndefined = errors.New("fixedincome: undefined")

// ErrNoConvergence is returned when an iterative yield solve does not settle.
var ErrNoConvergence = errors.New("fixedincome: yield did not converge")

// DayCount selects the accrual convention.
type DayCount int

const (
	ActualActual DayCount = iota + 1
	Thirty360
)

// Bond describes the cash flows priced by Price and the risk measures.
//
// Term is in years and is rounded to the nearest half year before the number
// of coupon periods is taken. When Begin, Settle and NextCoupon are all set,
// prices are adjusted for the fraction of the current period already accrued.
type Bond struct {
	Coupon     float64 // annual, percent of par
	Term       float64
	Frequency  int // coupons per year; 0 means semiannual
	Begin      time.Time
	Settle     time.Time
	NextCoupon time.Time
	DayCount   DayCount
}

func (b Bond) freq() float64 {
	if b.Frequency <= 0 {
		return 2
	}
	return float64(b.Frequency)
}

func (b Bond) periods() (int, error) {
	if math.IsNaN(b.Term) || math.IsInf(b.Term, 0) {
		return 0, ErrUndefined
	}
	return int(RoundTerm(b.Term) * b.freq()), nil
}

func (b Bond) accrues() bool {
	return !b.Begin.IsZero() && !b.Settle.IsZero() && !b.NextCoupon.IsZero()
}

// AccrualPeriod returns the fraction of the coupon period elapsed at settle.
// Actual/Actual divides elapsed days by period days; 30/360 divides a 30/360
// day count by 180.
func AccrualPeriod(begin, settle, next time.Time, dc DayCount) (float64, error) {
	if dc == Thirty360 {
		days := 360*(settle.Year()-begin.Year()) + 30*(int(settle.Month())-int(begin.Month())) + settle.Day() - begin.Day()
		return float64(days) / 180, nil
	}
	if next.IsZero() {
		next = settle
	}
	period := Days(begin, next)
	if period == 0 {
		return 0, ErrUndefined
	}
	return float64(Days(begin, settle)) / float64(period), nil
}

// AccruedInterest returns coupon interest accrued from begin to settle.
func AccruedInterest(coupon float64, frequency int, begin, settle, next time.Time, dc DayCount) (float64, error) {
	v, err := AccrualPeriod(begin, settle, next, dc)
	if err != nil {
		return 0, err
	}
	b := Bond{Frequency: frequency}
	return coupon / b.freq() * v, nil
}

// Price returns the clean price of b at yield y.
func Price(b Bond, y float64) (float64, error) {
	if math.IsNaN(y) {
		return 0, ErrUndefined
	}
	T, err := b.periods()
	if err != nil {
		return 0, err
	}
	C := b.Coupon / b.freq()
	Y := y / b.freq()
	if Y == 0 {
		return 0, ErrUndefined
	}
	n := float64(T)
	price := C*(1-math.Pow(1+Y, -n))/Y + 100/math.Pow(1+Y, n)

	if b.accrues() {
		v, err := AccrualPeriod(b.Begin, b.Settle, b.NextCoupon, b.DayCount)
		if err != nil {
			return 0, err
		}
		price = math.Pow(1+Y, v)*price - v*C
	}
	return price, nil
}

// YieldToMaturity solves for the yield at which a bond paying coupon (percent)
// over years is worth price (percent of face). It runs Newton steps on a
// central-difference derivative and rounds the result to digits places.
func YieldToMaturity(price, face, coupon, years float64, frequency, digits int) (float64, error) {
	if frequency <= 0 {
		frequency = 2
	}
	f := float64(frequency)
	target := price / 100 * face
	rate := coupon / 100
	pmt := face * rate / f
	T := int(years * f)

	value := func(y float64) float64 {
		pv := 0.0
		for t := 1; t <= T; t++ {
			pv += pmt / math.Pow(1+y/f, float64(t))
		}
		return pv + face/math.Pow(1+y/f, float64(T))
	}

	const (
		tolerance = 1e-8
		maxIter   = 1000
		h         = 1e-5
	)
	y := rate
	for i := 0; i < maxIter; i++ {
		d := (value(y+h) - value(y-h)) / (2 * h)
		if math.Abs(d) < 1e-12 {
			return roundTo(y, digits), nil
		}
		next := y - (value(y)-target)/d
		if math.Abs(next-y) < tolerance {
			return roundTo(next, digits), nil
		}
		y = next
	}
	return y, ErrNoConvergence
}

// YieldFromPrice returns the yield in [-0.5, 1] whose Price is closest to
// price, by golden-section search on the squared pricing error.
func YieldFromPrice(b Bond, price float64) (float64, error) {
	if _, err := b.periods(); err != nil {
		return 0, err
	}
	obj := func(y float64) float64 {
		p, err := Price(b, y)
		if err != nil {
			return math.Inf(1)
		}
		return (price - p) * (price - p)
	}

	const (
		lo, hi = -0.5, 1.0
		tol    = 1e-10
	)
	invPhi := (math.Sqrt(5) - 1) / 2
	a, c := lo, hi
	x1 := c - invPhi*(c-a)
	x2 := a + invPhi*(c-a)
	f1, f2 := obj(x1), obj(x2)
	for i := 0; i < 200 && c-a > tol; i++ {
		if f1 < f2 {
			c, x2, f2 = x2, x1, f1
			x1 = c - invPhi*(c-a)
			f1 = obj(x1)
		} else {
			a, x1, f1 = x1, x2, f2
			x2 = a + invPhi*(c-a)
			f2 = obj(x2)
		}
	}
	y := (a + c) / 2
	if math.IsInf(obj(y), 1) {
		return 0, ErrUndefined
	}
	return y, nil
}

func roundTo(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.RoundToEven(x*p) / p
}
