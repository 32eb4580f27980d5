// Package quote parses gateway market data strings into decimal prices.
package quote

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rickgao/treasury-basis/internal/model"
)

var (
	// ErrClosed marks a price the gateway prefixed with "C" (prior close).
	ErrClosed = errors.New("quote: market closed")
	// ErrBadFormat is returned for strings that are not prices or volumes.
	ErrBadFormat = errors.New("quote: bad format")
)

// Fractions of a 32nd keyed by the contract's minimum increment.
var denominators = map[float64]float64{
	1.0 / 512: 16, // sixteenth
	1.0 / 256: 8,  // eighth
	1.0 / 128: 4,  // quarter
	1.0 / 64:  2,  // half
	1.0 / 32:  1,  // whole
}

// Denominator returns how many parts a 32nd is split into for a contract
// quoted in increment. Unknown increments use 32.
func Denominator(increment float64) float64 {
	if d, ok := denominators[increment]; ok {
		return d
	}
	return 32
}

// ParseFuturesPrice converts a futures quote such as "134'16.5" (134 and
// 16.5/32) to a decimal. Plain decimals pass through. The result is snapped to
// the increment grid implied by Denominator.
func ParseFuturesPrice(raw string, increment float64) (float64, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return 0, fmt.Errorf("%w: empty price", ErrBadFormat)
	}
	if p[0] == 'C' || p[0] == 'c' {
		return 0, ErrClosed
	}

	whole, frac, ok := strings.Cut(p, "'")
	if !ok {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadFormat, raw)
		}
		return v, nil
	}

	w, err := strconv.Atoi(whole)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadFormat, raw)
	}
	thirtySeconds, err := strconv.ParseFloat(frac, 64)
	if err != nil || thirtySeconds < 0 || thirtySeconds >= 32 {
		return 0, fmt.Errorf("%w: %q", ErrBadFormat, raw)
	}

	grid := 32 * Denominator(increment)
	fraction := math.Round(thirtySeconds/32*grid) / grid
	if w < 0 {
		return float64(w) - fraction, nil
	}
	return float64(w) + fraction, nil
}

// ParseVolume converts gateway volume strings such as "1.2K" or "3M".
func ParseVolume(raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, fmt.Errorf("%w: empty volume", ErrBadFormat)
	}
	mult := 1.0
	switch s[len(s)-1] {
	case 'K', 'k':
		mult, s = 1e3, s[:len(s)-1]
	case 'M', 'm':
		mult, s = 1e6, s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadFormat, raw)
	}
	return v * mult, nil
}

// ParseYield converts a quoted yield ("4.25%" or "4.25") to a decimal.
func ParseYield(raw string) (float64, error) {
	s := strings.TrimSuffix(strings.TrimSpace(raw), "%")
	if s == "" {
		return 0, fmt.Errorf("%w: empty yield", ErrBadFormat)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadFormat, raw)
	}
	return v / 100, nil
}

// IsClosed reports whether any of the raw prices carries the closed marker.
func IsClosed(raw ...string) bool {
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r != "" && (r[0] == 'C' || r[0] == 'c') {
			return true
		}
	}
	return false
}

// NormalizeFuture applies q to f. It returns ErrClosed, leaving f untouched,
// when any price is closed. Prices missing from q keep their previous value,
// so partial stream updates do not clear the book; unparsable prices become 0.
func NormalizeFuture(f *model.Future, q model.Quote) error {
	if IsClosed(q.Ask, q.Bid, q.Last) {
		return ErrClosed
	}
	setFutures(&f.Bid, q.Bid, f.Increment)
	setFutures(&f.Ask, q.Ask, f.Increment)
	setFutures(&f.Last, q.Last, f.Increment)
	f.Price = f.Bid
	if f.Price == 0 {
		f.Price = f.Last
	}
	if v, err := ParseVolume(q.Volume); err == nil {
		f.Volume = v
	}
	return nil
}

// NormalizeTreasury applies q to t. It returns ErrClosed, leaving t
// untouched, when any price is closed. Missing prices are kept as in
// NormalizeFuture.
func NormalizeTreasury(t *model.Treasury, q model.Quote) error {
	if IsClosed(q.Ask, q.Bid, q.Last) {
		return ErrClosed
	}
	setDecimal(&t.Bid, q.Bid)
	setDecimal(&t.Ask, q.Ask)
	setDecimal(&t.Last, q.Last)
	t.Price = t.Bid
	if t.Price == 0 {
		t.Price = t.Last
	}
	if y, err := ParseYield(q.Yield); err == nil {
		t.Yield, t.HasYield = y, true
	}
	return nil
}

func setFutures(dst *float64, raw string, increment float64) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	v, err := ParseFuturesPrice(raw, increment)
	if err != nil {
		v = 0
	}
	*dst = v
}

func setDecimal(dst *float64, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v = 0
	}
	*dst = v
}
