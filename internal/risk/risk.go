// Package risk runs the pre-trade checks on ranked hedge pairs: value at
// risk, DV01 overlay, convexity and duration against history, and stressed
// overlays.
package risk

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/rickgao/treasury-basis/internal/fixedincome"
	"github.com/rickgao/treasury-basis/internal/model"
)

// Defaults for Config.
const (
	DefaultConfidence   = 0.99
	DefaultPercentile   = 99.0
	DefaultOverlayLimit = 0.1
)

var (
	// HistoryShifts are the yield moves compared against history.
	HistoryShifts = []float64{0.0001, 0.001, -0.0001, -0.001}
	// StressShifts are the yield moves of the stress overlay.
	StressShifts = []float64{0.005, -0.005, 0.05, -0.05, 0.5, -0.5}
)

// HistorySource returns the historical bars of a contract.
type HistorySource interface {
	Bars(conid int64) []model.Bar
}

// Config holds the check thresholds.
type Config struct {
	Confidence   float64 // one-tailed VaR confidence
	Percentile   float64 // historical percentile bounding convexity and duration
	OverlayLimit float64 // fraction of net contract value
}

func (c Config) withDefaults() Config {
	if c.Confidence <= 0 || c.Confidence >= 1 {
		c.Confidence = DefaultConfidence
	}
	if c.Percentile <= 0 || c.Percentile > 100 {
		c.Percentile = DefaultPercentile
	}
	if c.OverlayLimit <= 0 {
		c.OverlayLimit = DefaultOverlayLimit
	}
	return c
}

// Evaluator checks pairs against the historical behaviour of their legs.
type Evaluator struct {
	cfg     Config
	history HistorySource
	logger  *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(history HistorySource, cfg Config, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{cfg: cfg.withDefaults(), history: history, logger: logger}
}

// Evaluate checks pairs in order and stops at the first that passes. It
// returns every result computed and the index of the passing pair, or -1.
func (e *Evaluator) Evaluate(pairs []model.Pair) ([]model.RiskResult, int) {
	s := newSession(e)
	results := make([]model.RiskResult, 0, len(pairs))
	for i, p := range pairs {
		r := s.check(p)
		results = append(results, r)
		e.logger.Info("risk checked",
			"front", r.FrontConid,
			"back", r.BackConid,
			"var", r.VaR,
			"overlay", r.Overlay,
			"passed", r.Passed())
		if r.Passed() {
			return results, i
		}
	}
	return results, -1
}

// Check evaluates one pair.
func (e *Evaluator) Check(p model.Pair) model.RiskResult {
	return newSession(e).check(p)
}

// Volatility returns the population standard deviation of the log returns
// of a contract's closes scaled by the z-score of the confidence level.
func (e *Evaluator) Volatility(conid int64) float64 {
	return volatility(closes(e.bars(conid)), e.cfg.Confidence)
}

func (e *Evaluator) bars(conid int64) []model.Bar {
	if e.history == nil {
		return nil
	}
	return e.history.Bars(conid)
}

func closes(bars []model.Bar) []float64 {
	out := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 {
			out = append(out, b.Close)
		}
	}
	return out
}

func volatility(closes []float64, confidence float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	sd, err := stats.StandardDeviationPopulation(returns)
	if err != nil {
		return 0
	}
	return sd * stats.NormPpf(confidence, 0, 1)
}

// leg is the per-contract view the checks need.
type leg struct {
	conid      int64
	ratio      float64
	multiplier float64
	price      float64
	cf         float64
	bond       fixedincome.Bond
	yield      float64
}

func newLeg(l model.Leg, qty int) leg {
	c := l.Hedge.CTD
	cf := c.Treasury.CF
	if cf == 0 {
		cf = 1
	}
	return leg{
		conid:      l.Hedge.Future.Conid,
		ratio:      float64(l.Ratio(qty)),
		multiplier: l.Hedge.Future.Multiplier,
		price:      l.Hedge.Price,
		cf:         cf,
		bond:       fixedincome.Bond{Coupon: c.Treasury.Coupon, Term: c.Term},
		yield:      c.Yield,
	}
}

// profile holds the historical sensitivity series of one contract.
type profile struct {
	vol       float64
	convexity map[float64][]float64
	duration  map[float64][]float64
}

// session caches contract profiles across the pairs of one evaluation.
type session struct {
	e        *Evaluator
	profiles map[int64]profile
}

func newSession(e *Evaluator) *session {
	return &session{e: e, profiles: make(map[int64]profile)}
}

func (s *session) profile(l leg) profile {
	if p, ok := s.profiles[l.conid]; ok {
		return p
	}
	cl := closes(s.e.bars(l.conid))
	p := profile{
		vol:       volatility(cl, s.e.cfg.Confidence),
		convexity: make(map[float64][]float64, len(HistoryShifts)),
		duration:  make(map[float64][]float64, len(HistoryShifts)),
	}
	for _, c := range cl {
		y, err := fixedincome.YieldFromPrice(l.bond, c*l.cf)
		for _, dy := range HistoryShifts {
			var conv, dur float64
			if err == nil {
				conv, dur = sensitivities(l, y, dy)
			}
			p.convexity[dy] = append(p.convexity[dy], conv)
			p.duration[dy] = append(p.duration[dy], dur)
		}
	}
	s.profiles[l.conid] = p
	return p
}

// sensitivities returns approximate convexity and duration per unit of CF,
// or zeros when they are undefined.
func sensitivities(l leg, y, dy float64) (conv, dur float64) {
	c, err := fixedincome.ApproxConvexity(l.bond, y, dy)
	if err != nil {
		return 0, 0
	}
	d, err := fixedincome.ApproxDuration(l.bond, y, dy)
	if err != nil {
		return 0, 0
	}
	return c / l.cf, d / l.cf
}

func (s *session) check(p model.Pair) model.RiskResult {
	cfg := s.e.cfg
	qty := p.Quantity
	if qty <= 0 {
		qty = 1
	}
	q := float64(qty)
	legs := [2]leg{newLeg(p.A, qty), newLeg(p.B, qty)}

	r := model.RiskResult{FrontConid: legs[0].conid, BackConid: legs[1].conid}
	for _, l := range legs {
		vol := s.profile(l).vol
		r.VaR += q * l.multiplier * vol * l.ratio
		r.PositionRisk += q * l.multiplier * l.price * vol * l.ratio
		r.NetContractValue += q * l.multiplier * l.price * l.ratio

		dv01, err := fixedincome.DV01(l.bond, l.yield)
		if err != nil {
			s.e.logger.Debug("dv01 undefined", "conid", l.conid, "error", err)
			r.OverlayBreach = true
			continue
		}
		r.Overlay += dv01 / l.cf * l.ratio
	}
	limit := cfg.OverlayLimit * math.Abs(r.NetContractValue)
	if math.Abs(r.Overlay) > limit {
		r.OverlayBreach = true
	}

	for _, dy := range HistoryShifts {
		for _, l := range legs {
			prof := s.profile(l)
			conv, dur := sensitivities(l, l.yield, dy)
			if conv > threshold(prof.convexity[dy], cfg.Percentile) {
				r.ConvexityBreach = true
			}
			if dur > threshold(prof.duration[dy], cfg.Percentile) {
				r.DurationBreach = true
			}
		}
	}

	r.Stress = make([]model.StressPoint, 0, len(StressShifts))
	for _, dy := range StressShifts {
		pt, err := stress(legs, dy)
		if err != nil {
			s.e.logger.Debug("stress undefined", "shift", dy, "error", err)
			r.StressBreach = true
		}
		r.Stress = append(r.Stress, pt)
		if math.Abs(pt.Overlay) > limit {
			r.StressBreach = true
		}
	}
	return r
}

func stress(legs [2]leg, dy float64) (model.StressPoint, error) {
	pt := model.StressPoint{Shift: dy}
	for _, l := range legs {
		d, err := fixedincome.ApproxDuration(l.bond, l.yield, dy)
		if err != nil {
			return pt, fmt.Errorf("conid %d: %w", l.conid, err)
		}
		pt.Overlay += d * l.price * 0.0001 * l.ratio
	}
	return pt, nil
}

// threshold returns the pct percentile of series, its maximum when the
// series is too short for the percentile, and 0 when it is empty.
func threshold(series []float64, pct float64) float64 {
	if len(series) == 0 {
		return 0
	}
	v, err := stats.Percentile(series, pct)
	if err != nil || math.IsNaN(v) {
		v, _ = stats.Max(series)
	}
	return v
}
