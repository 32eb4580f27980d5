package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rickgao/treasury-basis/internal/engine"
	"github.com/rickgao/treasury-basis/internal/model"
	"github.com/rickgao/treasury-basis/internal/stream"
	"github.com/rickgao/treasury-basis/internal/universe"
)

type fakeRegistry struct {
	ready bool
	snap  universe.Snapshot
}

func (f *fakeRegistry) Start(context.Context) error { return nil }
func (f *fakeRegistry) Stop(context.Context) error  { return nil }
func (f *fakeRegistry) Ready() bool                 { return f.ready }
func (f *fakeRegistry) Snapshot() universe.Snapshot { return f.snap }
func (f *fakeRegistry) ApplyQuote(model.Quote) bool { return true }
func (f *fakeRegistry) Conids() []int64             { return nil }
func (f *fakeRegistry) Bars(int64) []model.Bar      { return nil }

type fakeStream struct {
	stats stream.ManagerStats
}

func (f *fakeStream) Start(context.Context) error { return nil }
func (f *fakeStream) Stop(context.Context) error  { return nil }
func (f *fakeStream) Stats() stream.ManagerStats  { return f.stats }

func TestHealthHandler(t *testing.T) {
	quoted := universe.Snapshot{Futures: []model.Future{{Conid: 11}}}

	tests := []struct {
		name       string
		registry   *fakeRegistry
		streamer   stream.Manager
		wantStatus string
	}{
		{"healthy", &fakeRegistry{ready: true, snap: quoted}, nil, "healthy"},
		{"universe not ready", &fakeRegistry{}, nil, "degraded"},
		{"stream disconnected", &fakeRegistry{ready: true, snap: quoted}, &fakeStream{}, "degraded"},
		{"stream connected", &fakeRegistry{ready: true, snap: quoted}, &fakeStream{stats: stream.ManagerStats{Connected: true}}, "healthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := engine.New(engine.DefaultConfig(), engine.Deps{Universe: tt.registry}, nil)
			h := createHealthHandler(nil, tt.registry, eng, tt.streamer, "/metrics")

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != http.StatusOK {
				t.Errorf("status code = %d, want 200", rec.Code)
			}
			var body struct {
				Status     string                 `json:"status"`
				Components map[string]interface{} `json:"components"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if _, ok := body.Components["universe"]; !ok {
				t.Error("components missing universe")
			}
		})
	}
}

func TestHealthHandler_MetricsAndPairs(t *testing.T) {
	reg := &fakeRegistry{}
	eng := engine.New(engine.DefaultConfig(), engine.Deps{Universe: reg}, nil)
	h := createHealthHandler(nil, reg, eng, nil, "/metrics")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hedger_") {
		t.Error("/metrics missing hedger metrics")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pairs", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/debug/pairs status = %d, want 404 before the first cycle", rec.Code)
	}
}
