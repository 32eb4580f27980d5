package fixedincome

import "time"

// Security is a quoted Treasury with its coupon schedule.
type Security struct {
	Face       float64 // 0 means 100
	Coupon     float64 // annual, percent
	Issue      time.Time
	Maturity   time.Time
	PrevCoupon time.Time
	NextCoupon time.Time
	Frequency  int
	DayCount   DayCount
}

// Metrics is the full analytic set for a quoted security.
type Metrics struct {
	TimeToMaturity   float64
	AccruedInterest  float64
	YieldToMaturity  float64
	CleanPrice       float64
	ModifiedDuration float64
	MacaulayDuration float64
	Convexity        float64
	DV01             float64
	ApproxDuration   float64
	ApproxConvexity  float64
}

// Analyze prices s at marketPrice for settlement on settle. The yield is
// solved from the market price; every other metric is evaluated at that
// yield with accrual from the previous coupon (or issue) to settle.
func Analyze(s Security, marketPrice float64, settle time.Time) (Metrics, error) {
	face := s.Face
	if face == 0 {
		face = 100
	}
	freq := s.Frequency
	if freq <= 0 {
		freq = 2
	}
	dc := s.DayCount
	if dc == 0 {
		dc = ActualActual
	}
	begin := s.PrevCoupon
	if begin.IsZero() {
		begin = s.Issue
	}
	if settle.IsZero() {
		settle = s.Maturity
	}

	var m Metrics
	m.TimeToMaturity = Term(settle, s.Maturity)

	ytm, err := YieldToMaturity(marketPrice, face, s.Coupon, m.TimeToMaturity, freq, 5)
	if err != nil {
		return m, err
	}
	m.YieldToMaturity = ytm

	b := Bond{
		Coupon:     s.Coupon,
		Term:       m.TimeToMaturity,
		Frequency:  freq,
		Begin:      begin,
		Settle:     settle,
		NextCoupon: s.NextCoupon,
		DayCount:   dc,
	}
	if m.AccruedInterest, err = AccruedInterest(s.Coupon, freq, begin, settle, s.NextCoupon, dc); err != nil {
		return m, err
	}
	if m.CleanPrice, err = Price(b, ytm); err != nil {
		return m, err
	}
	if m.ModifiedDuration, err = ModifiedDuration(b, ytm); err != nil {
		return m, err
	}
	if m.MacaulayDuration, err = MacaulayDuration(b, ytm); err != nil {
		return m, err
	}
	if m.DV01, err = DV01(b, ytm); err != nil {
		return m, err
	}
	if m.Convexity, err = Convexity(b, ytm); err != nil {
		return m, err
	}
	if m.ApproxDuration, err = ApproxDuration(b, ytm, DefaultShift); err != nil {
		return m, err
	}
	if m.ApproxConvexity, err = ApproxConvexity(b, ytm, DefaultShift); err != nil {
		return m, err
	}
	return m, nil
}
