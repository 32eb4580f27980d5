package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rickgao/treasury-basis/internal/index"
	"github.com/rickgao/treasury-basis/internal/model"
)

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestPlanReuse(t *testing.T) {
	now := time.Date(2025, 3, 14, 18, 0, 0, 0, time.Local)
	fresh := now.Add(-30 * time.Minute)
	stale := now.Add(-2 * time.Hour)

	const (
		indexRows   = "conid,cusip\n1,X\n"
		historyRows = "ConID,o,c\n1,2,3\n"
	)

	tests := []struct {
		name  string
		setup func(t *testing.T, p index.Paths)
		force bool
		want  reusePlan
	}{
		{
			name: "all fresh",
			setup: func(t *testing.T, p index.Paths) {
				writeFile(t, p.TreasuryIndex, indexRows, fresh)
				writeFile(t, p.FuturesIndex, indexRows, fresh)
				writeFile(t, p.TreasuryHistory, historyRows, fresh)
				writeFile(t, p.FuturesHistory, historyRows, fresh)
			},
			want: reusePlan{treasuryIndex: true, futuresIndex: true, treasuryHistory: true, futuresHistory: true},
		},
		{
			name: "all fresh forced",
			setup: func(t *testing.T, p index.Paths) {
				writeFile(t, p.TreasuryIndex, indexRows, fresh)
				writeFile(t, p.FuturesIndex, indexRows, fresh)
				writeFile(t, p.TreasuryHistory, historyRows, fresh)
				writeFile(t, p.FuturesHistory, historyRows, fresh)
			},
			force: true,
			want:  reusePlan{},
		},
		{
			name: "missing futures index",
			setup: func(t *testing.T, p index.Paths) {
				writeFile(t, p.TreasuryIndex, indexRows, fresh)
				writeFile(t, p.TreasuryHistory, historyRows, fresh)
				writeFile(t, p.FuturesHistory, historyRows, fresh)
			},
			want: reusePlan{treasuryIndex: true, treasuryHistory: true, futuresHistory: true},
		},
		{
			name: "stale treasury files",
			setup: func(t *testing.T, p index.Paths) {
				writeFile(t, p.TreasuryIndex, indexRows, stale)
				writeFile(t, p.FuturesIndex, indexRows, fresh)
				writeFile(t, p.TreasuryHistory, historyRows, stale)
				writeFile(t, p.FuturesHistory, historyRows, fresh)
			},
			want: reusePlan{futuresIndex: true, futuresHistory: true},
		},
		{
			name: "empty index and bad history header",
			setup: func(t *testing.T, p index.Paths) {
				writeFile(t, p.TreasuryIndex, "", fresh)
				writeFile(t, p.FuturesIndex, indexRows, fresh)
				writeFile(t, p.TreasuryHistory, historyRows, fresh)
				writeFile(t, p.FuturesHistory, "a,b\n1,2\n", fresh)
			},
			want: reusePlan{futuresIndex: true, treasuryHistory: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			paths := index.Paths{
				TreasuryIndex:   filepath.Join(dir, "UST_index.csv"),
				FuturesIndex:    filepath.Join(dir, "FUTURES_index.csv"),
				TreasuryHistory: filepath.Join(dir, "UST_historical.csv"),
				FuturesHistory:  filepath.Join(dir, "FUTURES_historical.csv"),
			}
			tt.setup(t, paths)

			reports := index.CheckFiles(paths.Checks(), now, 17)
			if got := planReuse(paths, reports, tt.force); got != tt.want {
				t.Errorf("planReuse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPlanReuseWithoutReports(t *testing.T) {
	paths := index.Paths{TreasuryIndex: "a.csv", FuturesIndex: "b.csv"}
	if got := planReuse(paths, nil, false); got != (reusePlan{}) {
		t.Errorf("planReuse() = %+v, want everything rebuilt", got)
	}
}

func TestTargets(t *testing.T) {
	treasuries := []model.Treasury{
		{Conid: 101, YearsToMaturity: 1.9},
		{Conid: 0, YearsToMaturity: 3}, // no gateway contract
		{Conid: 102, YearsToMaturity: 8},
	}
	ust := treasuryTargets(treasuries)
	if len(ust) != 2 || ust[0] != (index.Target{Conid: 101, YearsToMaturity: 1.9}) || ust[1].Conid != 102 {
		t.Errorf("treasuryTargets() = %+v, want conids 101 and 102", ust)
	}

	futures := []model.Future{
		{Conid: 11, YearsToMaturity: 0.25},
		{Conid: 12, YearsToMaturity: -0.1},
	}
	fut := futuresTargets(futures)
	if len(fut) != 2 || fut[1] != (index.Target{Conid: 12, YearsToMaturity: -0.1}) {
		t.Errorf("futuresTargets() = %+v, want both contracts", fut)
	}
	if got := treasuryTargets(nil); len(got) != 0 {
		t.Errorf("treasuryTargets(nil) = %+v, want none", got)
	}
}
