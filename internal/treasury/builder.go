package treasury

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/treasury-basis/internal/fixedincome"
	"github.com/rickgao/treasury-basis/internal/model"
)

// DefaultMaxYears is the longest remaining maturity kept in the universe.
const DefaultMaxYears = 10.25

// DetailSource looks up fiscal security records.
type DetailSource interface {
	SecurityDetail(ctx context.Context, cusip string, issue time.Time) (*SecurityDetail, error)
}

// ConidLookup resolves a CUSIP to a gateway conid.
type ConidLookup interface {
	SearchSecDef(ctx context.Context, symbol string) (int64, error)
}

// Builder turns workbook rows into index Treasuries.
type Builder struct {
	details     DetailSource
	lookup      ConidLookup
	logger      *slog.Logger
	maxYears    float64
	concurrency int
	now         func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithMaxYears sets the maturity cutoff in years.
func WithMaxYears(years float64) BuilderOption {
	return func(b *Builder) {
		if years > 0 {
			b.maxYears = years
		}
	}
}

// WithConcurrency sets how many securities are enriched at once.
func WithConcurrency(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithClock overrides the clock used for coupon bounds and maturity filtering.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder creates a Builder. details and lookup may be nil to skip
// enrichment and conid resolution.
func NewBuilder(details DetailSource, lookup ConidLookup, logger *slog.Logger, opts ...BuilderOption) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{
		details:     details,
		lookup:      lookup,
		logger:      logger,
		maxYears:    DefaultMaxYears,
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build filters rows and produces enriched Treasuries ordered by maturity.
// Fiscal and conid lookup failures are logged and the row is kept.
func (b *Builder) Build(ctx context.Context, rows []SecurityRow) ([]model.Treasury, error) {
	now := b.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var out []model.Treasury
	var factors []map[string]float64
	for _, r := range rows {
		if r.CUSIP == "" || r.MaturityDate.IsZero() {
			continue
		}
		years := fixedincome.Term(today, r.MaturityDate)
		if years > b.maxYears {
			continue
		}

		t := model.Treasury{
			CUSIP:            r.CUSIP,
			OTRIssue:         r.OTRIssue,
			OriginalMaturity: r.OriginalMaturity,
			Coupon:           r.Coupon,
			IssueDate:        r.IssueDate,
			MaturityDate:     r.MaturityDate,
			YearsToMaturity:  years,
			AdjustedIssuance: r.AdjustedIssuance,
			OriginalIssuance: r.OriginalIssuance,
		}
		if prev, next, ok := fixedincome.CouponBounds(r.IssueDate, r.MaturityDate, today); ok {
			t.PrevCoupon, t.NextCoupon = prev, next
		}
		out = append(out, t)
		factors = append(factors, r.Factors)
	}

	b.logger.Info("filtered security database", "rows", len(rows), "kept", len(out), "max_years", b.maxYears)

	if err := b.enrich(ctx, out); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].CF = b.conversionFactor(out[i], factors[i])
	}

	if err := b.resolveConids(ctx, out); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MaturityDate.Before(out[j].MaturityDate)
	})
	return out, nil
}

func (b *Builder) enrich(ctx context.Context, ts []model.Treasury) error {
	if b.details == nil {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range ts {
		t := &ts[i]
		if t.IssueDate.IsZero() {
			continue
		}
		g.Go(func() error {
			d, err := b.details.SecurityDetail(gctx, t.CUSIP, t.IssueDate)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				b.logger.Warn("security detail failed", "cusip", t.CUSIP, "error", err)
				return nil
			}
			applyDetail(t, d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("enrich securities: %w", err)
	}
	return nil
}

func applyDetail(t *model.Treasury, d *SecurityDetail) {
	t.SecurityType = d.SecurityType
	t.CorpusCUSIP = strings.TrimSpace(d.CorpusCUSIP)
	if t.Coupon == 0 {
		if v, err := strconv.ParseFloat(d.InterestRate, 64); err == nil {
			t.Coupon = v
		}
	}
}

// conversionFactor computes the 6% factor, falling back to a published
// factor when the coupon schedule is unknown.
func (b *Builder) conversionFactor(t model.Treasury, published map[string]float64) float64 {
	if !t.PrevCoupon.IsZero() && !t.NextCoupon.IsZero() {
		cf, err := fixedincome.ConversionFactor(t.Coupon, t.PrevCoupon, t.NextCoupon, t.MaturityDate)
		if err == nil {
			return fixedincome.Round6(cf)
		}
		b.logger.Debug("conversion factor failed", "cusip", t.CUSIP, "error", err)
	}

	names := make([]string, 0, len(published))
	for name := range published {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		return published[names[0]]
	}
	return 0
}

func (b *Builder) resolveConids(ctx context.Context, ts []model.Treasury) error {
	if b.lookup == nil {
		return nil
	}

	var mu sync.Mutex
	failed := 0
	resolve := func(ctx context.Context, code string, dst *int64) error {
		if code == "" {
			return nil
		}
		conid, err := b.lookup.SearchSecDef(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mu.Lock()
			failed++
			mu.Unlock()
			b.logger.Warn("conid lookup failed", "cusip", code, "error", err)
			return nil
		}
		*dst = conid
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range ts {
		t := &ts[i]
		g.Go(func() error {
			if err := resolve(gctx, t.CUSIP, &t.Conid); err != nil {
				return err
			}
			return resolve(gctx, t.CorpusCUSIP, &t.CorpusConid)
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("resolve conids: %w", err)
	}

	b.logger.Info("resolved conids", "securities", len(ts), "failed", failed)
	return nil
}
