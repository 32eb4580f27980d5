package fixedincome

import "math"

// DefaultShift is the yield shift used by the finite-difference measures.
const DefaultShift = 0.0001

// ModifiedDuration returns the closed-form modified duration of b at yield y,
// taken on the full price when b accrues.
func ModifiedDuration(b Bond, y float64) (float64, error) {
	c, err := b.curve(y)
	if err != nil {
		return 0, err
	}
	return -c.d1 / (c.f * c.full), nil
}

// MacaulayDuration returns modified duration scaled by one period of yield.
func MacaulayDuration(b Bond, y float64) (float64, error) {
	md, err := ModifiedDuration(b, y)
	if err != nil {
		return 0, err
	}
	return md * (1 + y/b.freq()), nil
}

// DV01 returns the price change for a one basis point move, rounded to 5 places.
func DV01(b Bond, y float64) (float64, error) {
	P, err := Price(b, y)
	if err != nil {
		return 0, err
	}
	md, err := ModifiedDuration(b, y)
	if err != nil {
		return 0, err
	}
	return roundTo(md*P*0.0001, 5), nil
}

// Convexity returns the closed-form convexity of b at yield y, taken on the
// full price when b accrues.
func Convexity(b Bond, y float64) (float64, error) {
	c, err := b.curve(y)
	if err != nil {
		return 0, err
	}
	return c.d2 / (c.f * c.f * c.full), nil
}

// curvePoint holds the full price of a bond and its first two derivatives
// with respect to the per-period yield.
type curvePoint struct {
	f, full, d1, d2 float64
}

func (b Bond) curve(y float64) (curvePoint, error) {
	T, err := b.periods()
	if err != nil {
		return curvePoint{}, err
	}
	f := b.freq()
	C := b.Coupon / f
	Y := y / f
	if Y == 0 || math.IsNaN(Y) {
		return curvePoint{}, ErrUndefined
	}
	var v float64
	if b.accrues() {
		if v, err = AccrualPeriod(b.Begin, b.Settle, b.NextCoupon, b.DayCount); err != nil {
			return curvePoint{}, err
		}
	}
	n := float64(T)
	annuity := 1 - math.Pow(1+Y, -n)

	p0 := C/Y*annuity + 100*math.Pow(1+Y, -n)
	p1 := -C/(Y*Y)*annuity + n*C/(Y*math.Pow(1+Y, n+1)) - n*100/math.Pow(1+Y, n+1)
	p2 := 2*C/(Y*Y*Y)*annuity -
		2*n*C/(Y*Y*math.Pow(1+Y, n+1)) -
		n*(n+1)*C/(Y*math.Pow(1+Y, n+2)) +
		n*(n+1)*100/math.Pow(1+Y, n+2)

	g := math.Pow(1+Y, v)
	full := g * p0
	if full == 0 {
		return curvePoint{}, ErrUndefined
	}
	return curvePoint{
		f:    f,
		full: full,
		d1:   v*math.Pow(1+Y, v-1)*p0 + g*p1,
		d2:   v*(v-1)*math.Pow(1+Y, v-2)*p0 + 2*v*math.Pow(1+Y, v-1)*p1 + g*p2,
	}, nil
}

// ApproxDuration estimates duration from prices at y-dy and y+dy.
// A zero dy uses DefaultShift.
func ApproxDuration(b Bond, y, dy float64) (float64, error) {
	p, up, down, err := shifted(b, y, dy)
	if err != nil {
		return 0, err
	}
	if dy == 0 {
		dy = DefaultShift
	}
	return (down - up) / (2 * p * dy), nil
}

// ApproxConvexity estimates convexity from prices at y-dy, y and y+dy.
// A zero dy uses DefaultShift.
func ApproxConvexity(b Bond, y, dy float64) (float64, error) {
	p, up, down, err := shifted(b, y, dy)
	if err != nil {
		return 0, err
	}
	if dy == 0 {
		dy = DefaultShift
	}
	return (down + up - 2*p) / (p * dy * dy), nil
}

func shifted(b Bond, y, dy float64) (p, up, down float64, err error) {
	if dy == 0 {
		dy = DefaultShift
	}
	if p, err = Price(b, y); err != nil {
		return 0, 0, 0, err
	}
	if p == 0 {
		return 0, 0, 0, ErrUndefined
	}
	if up, err = Price(b, y+dy); err != nil {
		return 0, 0, 0, err
	}
	if down, err = Price(b, y-dy); err != nil {
		return 0, 0, 0, err
	}
	return p, up, down, nil
}
