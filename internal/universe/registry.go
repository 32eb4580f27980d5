package universe

import (
	"context"
	"time"

	"github.com/rickgao/treasury-basis/internal/model"
)

// Registry owns the tradable instruments and their latest quotes.
type Registry interface {
	// Start loads the index data and runs the first quote refresh before
	// returning. Later refreshes run in the background.
	Start(ctx context.Context) error

	// Stop gracefully shuts down.
	Stop(ctx context.Context) error

	// Ready reports whether at least one quote refresh has completed.
	Ready() bool

	// Snapshot returns copies of the open, quoted instruments.
	Snapshot() Snapshot

	// ApplyQuote applies a quote update. It reports false for unknown conids.
	ApplyQuote(q model.Quote) bool

	// Conids returns every known futures and Treasury contract id.
	Conids() []int64

	// Bars returns the historical bars of one futures contract.
	Bars(conid int64) []model.Bar
}

// Snapshot is a point-in-time copy of the universe.
type Snapshot struct {
	Futures    []model.Future
	Treasuries []model.Treasury
	At         time.Time // Time of the last quote refresh
}
