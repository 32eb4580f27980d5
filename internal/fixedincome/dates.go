package fixedincome

import (
	"math"
	"time"
)

// DaysPerYear is the day count used to turn calendar days into years.
const DaysPerYear = 365.25

// RoundTerm rounds a term in years to the nearest half year, ties to even.
func RoundTerm(years float64) float64 {
	return math.RoundToEven(years*2) / 2
}

// Term returns the years between settle and maturity on a 365.25 day year.
func Term(settle, maturity time.Time) float64 {
	return float64(Days(settle, maturity)) / DaysPerYear
}

// Days returns whole calendar days from a to b, floored.
func Days(a, b time.Time) int {
	return int(math.Floor(b.Sub(a).Hours() / 24))
}

// SettlementDate adds n business days to trade, skipping Saturdays and Sundays.
func SettlementDate(trade time.Time, n int) time.Time {
	d := trade
	for added := 0; added < n; {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return d
}

// AddMonths shifts t by months, clamping the day to the end of the target month.
func AddMonths(t time.Time, months int) time.Time {
	m := int(t.Month()) - 1 + months
	year := t.Year() + floorDiv(m, 12)
	month := time.Month(floorMod(m, 12) + 1)
	day := t.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// CouponBounds returns the coupon dates on either side of asOf for a
// semiannual security issued at issue and maturing at maturity. The schedule
// is anchored six months after issue and includes the issue date itself.
// ok is false when asOf falls outside it.
func CouponBounds(issue, maturity, asOf time.Time) (prev, next time.Time, ok bool) {
	if issue.IsZero() || maturity.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	first := AddMonths(issue, 6)
	floor := issue.AddDate(-11, 0, 0)

	var coupons []time.Time
	for cur := first; cur.After(floor); {
		cur = AddMonths(cur, -6)
		if cur.After(issue) {
			continue
		}
		coupons = append(coupons, cur)
	}
	for cur := first; !cur.After(maturity); cur = AddMonths(cur, 6) {
		coupons = append(coupons, cur)
	}

	var havePrev, haveNext bool
	for _, d := range coupons {
		if !d.After(asOf) {
			if !havePrev || d.After(prev) {
				prev, havePrev = d, true
			}
		} else if !haveNext || d.Before(next) {
			next, haveNext = d, true
		}
	}
	return prev, next, havePrev && haveNext
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
