package index

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/treasury-basis/internal/api"
	"github.com/rickgao/treasury-basis/internal/model"
)

// HistorySource fetches historical bars for one contract.
type HistorySource interface {
	History(ctx context.Context, conid int64, period, bar string) (*api.HistoryResponse, error)
}

// Target is a contract that must be covered by a historical file.
type Target struct {
	Conid           int64
	YearsToMaturity float64
}

// CoverageOptions tunes EnsureCoverage.
type CoverageOptions struct {
	Period      string // e.g. "1mo"
	Bar         string // e.g. "1d"
	MaxAttempts int
	Concurrency int
	Logger      *slog.Logger
}

// CoverageResult summarises a coverage run.
type CoverageResult struct {
	Bars     []model.Bar
	Attempts int
	Missing  []int64 // still uncovered when the run ended
}

// Uncovered returns the targets without a non-empty bar in bars.
func Uncovered(targets []Target, bars []model.Bar) []Target {
	covered := make(map[int64]bool, len(bars))
	for _, b := range bars {
		if !IsEmptyBar(b) {
			covered[b.Conid] = true
		}
	}
	var out []Target
	for _, t := range targets {
		if !covered[t.Conid] {
			out = append(out, t)
		}
	}
	return out
}

// EnsureCoverage fetches history for every target that is missing or empty
// in existing, rewriting path after each attempt. It stops when coverage is
// complete, when the first fetched target has no history and has already
// expired, or after MaxAttempts rounds.
func EnsureCoverage(ctx context.Context, src HistorySource, targets []Target, existing []model.Bar, path string, opts CoverageOptions) (CoverageResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	bars := append([]model.Bar(nil), existing...)
	missing := Uncovered(targets, bars)
	res := CoverageResult{}

	for len(missing) > 0 && res.Attempts < opts.MaxAttempts {
		res.Attempts++
		logger.Info("fetching history",
			"path", path,
			"attempt", res.Attempts,
			"missing", len(missing),
			"expected", len(targets),
		)

		fetched := make([][]model.Bar, len(missing))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for i, t := range missing {
			g.Go(func() error {
				resp, err := src.History(gctx, t.Conid, opts.Period, opts.Bar)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					logger.Warn("history fetch failed", "conid", t.Conid, "error", err)
				}
				fetched[i] = api.HistoryToBars(t.Conid, resp, t.YearsToMaturity)
				if len(fetched[i]) == 0 {
					fetched[i] = []model.Bar{{Conid: t.Conid, YearsToMaturity: t.YearsToMaturity}}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return res, fmt.Errorf("fetch history: %w", err)
		}

		if first := fetched[0][0]; IsEmptyBar(first) && first.YearsToMaturity < 0 {
			logger.Info("stopping history retries", "reason", "first target expired without data", "conid", first.Conid)
			break
		}

		bars = merge(bars, fetched)
		if err := SaveBars(path, bars); err != nil {
			return res, err
		}
		missing = Uncovered(targets, bars)
	}

	res.Bars = bars
	for _, t := range missing {
		res.Missing = append(res.Missing, t.Conid)
	}
	logger.Info("history coverage done", "path", path, "rows", len(bars), "attempts", res.Attempts, "missing", len(res.Missing))
	return res, nil
}

// merge drops the placeholder rows of refetched contracts and appends the
// new rows.
func merge(bars []model.Bar, fetched [][]model.Bar) []model.Bar {
	refetched := make(map[int64]bool, len(fetched))
	for _, rows := range fetched {
		refetched[rows[0].Conid] = true
	}

	out := bars[:0:0]
	for _, b := range bars {
		if refetched[b.Conid] && IsEmptyBar(b) {
			continue
		}
		out = append(out, b)
	}
	for _, rows := range fetched {
		out = append(out, rows...)
	}
	return out
}
