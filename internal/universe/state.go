package universe

import (
	"sort"
	"sync"
	"time"

	"github.com/rickgao/treasury-basis/internal/model"
	"github.com/rickgao/treasury-basis/internal/quote"
)

// registryState holds the thread-safe instrument cache.
type registryState struct {
	mu sync.RWMutex

	// Instruments indexed by conid.
	futures    map[int64]*model.Future
	treasuries map[int64]*model.Treasury

	// Historical bars by futures conid, in sequence order.
	bars map[int64][]model.Bar

	// Last completed quote refresh.
	refreshedAt time.Time
}

func newState() *registryState {
	return &registryState{
		futures:    make(map[int64]*model.Future),
		treasuries: make(map[int64]*model.Treasury),
		bars:       make(map[int64][]model.Bar),
	}
}

// load replaces the instrument set (write-locked). Entries without a conid
// cannot be quoted and are skipped; the number skipped is returned.
func (s *registryState) load(futures []model.Future, treasuries []model.Treasury, bars []model.Bar) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	skipped := 0
	s.futures = make(map[int64]*model.Future, len(futures))
	for _, f := range futures {
		if f.Conid == 0 {
			skipped++
			continue
		}
		fCopy := f
		s.futures[f.Conid] = &fCopy
	}

	s.treasuries = make(map[int64]*model.Treasury, len(treasuries))
	for _, t := range treasuries {
		if t.Conid == 0 {
			skipped++
			continue
		}
		tCopy := t
		s.treasuries[t.Conid] = &tCopy
	}

	s.bars = make(map[int64][]model.Bar)
	for _, b := range bars {
		if b.Sequence == 0 {
			continue
		}
		s.bars[b.Conid] = append(s.bars[b.Conid], b)
	}
	for conid := range s.bars {
		rows := s.bars[conid]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Sequence < rows[j].Sequence })
	}
	return skipped
}

// apply normalizes q onto the matching instrument (write-locked).
func (s *registryState) apply(q model.Quote) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.futures[q.Conid]; ok {
		if err := quote.NormalizeFuture(f, q); err != nil {
			f.Closed = true
		} else {
			f.Closed = false
		}
		return true
	}
	if t, ok := s.treasuries[q.Conid]; ok {
		if err := quote.NormalizeTreasury(t, q); err != nil {
			t.Closed = true
		} else {
			t.Closed = false
		}
		return true
	}
	return false
}

// snapshot copies the open instruments ordered by conid (read-locked).
func (s *registryState) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Futures:    make([]model.Future, 0, len(s.futures)),
		Treasuries: make([]model.Treasury, 0, len(s.treasuries)),
		At:         s.refreshedAt,
	}
	for _, f := range s.futures {
		if !f.Closed {
			snap.Futures = append(snap.Futures, *f)
		}
	}
	for _, t := range s.treasuries {
		if !t.Closed {
			snap.Treasuries = append(snap.Treasuries, *t)
		}
	}
	sort.Slice(snap.Futures, func(i, j int) bool { return snap.Futures[i].Conid < snap.Futures[j].Conid })
	sort.Slice(snap.Treasuries, func(i, j int) bool { return snap.Treasuries[i].Conid < snap.Treasuries[j].Conid })
	return snap
}

// conids returns every known conid, futures first (read-locked).
func (s *registryState) conids() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	futures := make([]int64, 0, len(s.futures))
	for conid := range s.futures {
		futures = append(futures, conid)
	}
	treasuries := make([]int64, 0, len(s.treasuries))
	for conid := range s.treasuries {
		treasuries = append(treasuries, conid)
	}
	sort.Slice(futures, func(i, j int) bool { return futures[i] < futures[j] })
	sort.Slice(treasuries, func(i, j int) bool { return treasuries[i] < treasuries[j] })
	return append(futures, treasuries...)
}

// getBars returns a copy of one contract's bars (read-locked).
func (s *registryState) getBars(conid int64) []model.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Bar(nil), s.bars[conid]...)
}

// counts returns the open futures and Treasuries (read-locked).
func (s *registryState) counts() (futures, treasuries int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.futures {
		if !f.Closed {
			futures++
		}
	}
	for _, t := range s.treasuries {
		if !t.Closed {
			treasuries++
		}
	}
	return futures, treasuries
}

func (s *registryState) markRefreshed(at time.Time) {
	s.mu.Lock()
	s.refreshedAt = at
	s.mu.Unlock()
}

func (s *registryState) ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.refreshedAt.IsZero()
}
