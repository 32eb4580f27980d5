package index

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rickgao/treasury-basis/internal/config"
)

// DefaultResetHour is the local hour at which index files expire.
const DefaultResetHour = 17

// Status is the freshness of one index file.
type Status int

const (
	StatusFresh Status = iota
	StatusMissing
	StatusEmpty
	StatusStale
	StatusInvalidHeader
)

func (s Status) String() string {
	switch s {
	case StatusFresh:
		return "fresh"
	case StatusMissing:
		return "missing"
	case StatusEmpty:
		return "empty"
	case StatusStale:
		return "stale"
	case StatusInvalidHeader:
		return "invalid_header"
	default:
		return "unknown"
	}
}

// historyKeys are the columns a historical file must carry at least one of.
var historyKeys = []string{"serverId", "symbol", "conid"}

// Paths locates every index file.
type Paths struct {
	TreasuryIndex   string
	FuturesIndex    string
	TreasuryHistory string
	FuturesHistory  string
	TCFWorkbook     string
}

// PathsFrom joins the configured file names onto the data directory.
func PathsFrom(cfg config.FilesConfig) Paths {
	join := func(name string) string { return filepath.Join(cfg.Dir, name) }
	return Paths{
		TreasuryIndex:   join(cfg.TreasuryIndex),
		FuturesIndex:    join(cfg.FuturesIndex),
		TreasuryHistory: join(cfg.TreasuryHistory),
		FuturesHistory:  join(cfg.FuturesHistory),
		TCFWorkbook:     join(cfg.TCFWorkbook),
	}
}

// Checks lists the files to verify, marking the historical ones.
func (p Paths) Checks() []FileCheck {
	return []FileCheck{
		{Path: p.TreasuryIndex},
		{Path: p.FuturesIndex},
		{Path: p.TreasuryHistory, Historical: true},
		{Path: p.FuturesHistory, Historical: true},
	}
}

// FileCheck names a file and whether it holds historical bars.
type FileCheck struct {
	Path       string
	Historical bool
}

// FileReport is the outcome of checking one file.
type FileReport struct {
	Path    string
	Status  Status
	Size    int64
	ModTime time.Time
}

// Fresh reports whether the file can be used as is.
func (r FileReport) Fresh() bool { return r.Status == StatusFresh }

// MostRecentReset returns the latest reset at hour on or before now.
func MostRecentReset(now time.Time, hour int) time.Time {
	reset := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if now.Before(reset) {
		reset = reset.AddDate(0, 0, -1)
	}
	return reset
}

// CheckFiles reports the status of each file against the most recent reset.
func CheckFiles(checks []FileCheck, now time.Time, hour int) []FileReport {
	reset := MostRecentReset(now, hour)
	reports := make([]FileReport, 0, len(checks))
	for _, c := range checks {
		reports = append(reports, CheckFile(c, reset))
	}
	return reports
}

// CheckFile reports the status of one file.
func CheckFile(c FileCheck, reset time.Time) FileReport {
	r := FileReport{Path: c.Path}

	info, err := os.Stat(c.Path)
	if err != nil {
		r.Status = StatusMissing
		return r
	}
	r.Size = info.Size()
	r.ModTime = info.ModTime()

	switch {
	case r.Size == 0:
		r.Status = StatusEmpty
	case c.Historical && !hasHistoryHeader(c.Path):
		r.Status = StatusInvalidHeader
	case r.ModTime.Before(reset):
		r.Status = StatusStale
	default:
		r.Status = StatusFresh
	}
	return r
}

func hasHistoryHeader(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		return false
	}
	for _, h := range header {
		h = strings.TrimSpace(h)
		for _, key := range historyKeys {
			if strings.EqualFold(h, key) {
				return true
			}
		}
	}
	return false
}

// conidReader lower-cases any conid column name in the header row so files
// written with "ConID" or "CONID" decode into the same field.
type conidReader struct {
	r      *csv.Reader
	headed bool
}

func newConidReader(r io.Reader) *conidReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return &conidReader{r: cr}
}

func (c *conidReader) Read() ([]string, error) {
	rec, err := c.r.Read()
	if err != nil {
		return rec, err
	}
	if !c.headed {
		c.headed = true
		normalizeHeader(rec)
	}
	return rec, nil
}

func (c *conidReader) ReadAll() ([][]string, error) {
	var out [][]string
	for {
		rec, err := c.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func normalizeHeader(rec []string) {
	for i, h := range rec {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if strings.EqualFold(h, "conid") {
			h = "conid"
		}
		rec[i] = h
	}
}
