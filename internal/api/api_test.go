package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/openpipe-labs/flowpulse/internal/dashboard"
	"github.com/openpipe-labs/flowpulse/internal/query"
	"github.com/openpipe-labs/flowpulse/internal/storage"
)

// emptyRepo answers every query with an empty table.
type emptyRepo struct{}

func (emptyRepo) Query(context.Context, query.Query) (*storage.Table, error) {
	return &storage.Table{}, nil
}

type fakeCache struct {
	cleared int
}

func (c *fakeCache) Clear() { c.cleared++ }

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, cache CacheClearer, pinger Pinger) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := dashboard.New(emptyRepo{}, nil, log)
	s, err := New(&Config{Address: ":0"}, svc, cache, pinger, log)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.setupRouter().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/dashboard/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	report, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("data is %T, want object", resp.Data)
	}
	if report["nominal"] != true {
		t.Errorf("nominal = %v, want true", report["nominal"])
	}
}

func TestHeatmapEndpointReturnsFullGrid(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/dashboard/heatmap?hours=168")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	cells, ok := resp.Data.([]any)
	if !ok {
		t.Fatalf("data is %T, want array", resp.Data)
	}
	if len(cells) != 168 {
		t.Errorf("got %d cells, want 168", len(cells))
	}
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t, nil, nil)

	tests := []struct {
		name     string
		target   string
		wantCode string
	}{
		{"non-numeric hours", "/api/v1/dashboard/health?hours=abc", ErrCodeBadRequest},
		{"negative hours", "/api/v1/dashboard/trends?hours=-1", ErrCodeBadRequest},
		{"processors without runtime", "/api/v1/dashboard/errors/processors", ErrCodeBadRequest},
		{"logs without runtime", "/api/v1/dashboard/errors/logs", ErrCodeBadRequest},
		{"logs from without to", "/api/v1/dashboard/errors/logs?runtime=runtime-a&from=2025-06-01T00:00:00Z", ErrCodeBadRequest},
		{"logs bad timestamp", "/api/v1/dashboard/errors/logs?runtime=runtime-a&from=yesterday&to=today", ErrCodeBadRequest},
		{"logs unknown search field", "/api/v1/dashboard/errors/logs?runtime=runtime-a&" + url.Values{"expr": {`nosuchfield == "x"`}}.Encode(), ErrCodeValidationFailed},
		{"bottlenecks bad threshold", "/api/v1/dashboard/bottlenecks?min_mib=lots", ErrCodeBadRequest},
		{"inventory bad hours", "/api/v1/dashboard/runtimes?inactivity_hours=0", ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodGet, tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			resp := decodeResponse(t, rec)
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestErrorTimeRangeNotFound(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/dashboard/errors/timerange?runtime=runtime-a")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCacheClearEndpoint(t *testing.T) {
	cache := &fakeCache{}
	s := newTestServer(t, cache, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/cache/clear")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cache.cleared != 1 {
		t.Errorf("cache cleared %d times, want 1", cache.cleared)
	}
}

func TestHealthzReflectsStoreReachability(t *testing.T) {
	pinger := &fakePinger{}
	s := newTestServer(t, nil, pinger)

	if rec := doRequest(t, s, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	pinger.err = errors.New("connection refused")
	if rec := doRequest(t, s, http.MethodGet, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   query.Filter
	}{
		{
			"defaults",
			"/x",
			query.Filter{TimeWindowHours: 24, AllRuntimes: true},
		},
		{
			"explicit all",
			"/x?runtimes=all&hours=72",
			query.Filter{TimeWindowHours: 72, AllRuntimes: true},
		},
		{
			"explicit selection",
			"/x?runtimes=runtime-a,runtime-b",
			query.Filter{TimeWindowHours: 24, Runtimes: []string{"runtime-a", "runtime-b"}},
		},
		{
			"empty selection matches nothing",
			"/x?runtimes=",
			query.Filter{TimeWindowHours: 24},
		},
		{
			"processor and search",
			"/x?processor=InvokeHTTP&search=timeout",
			query.Filter{TimeWindowHours: 24, AllRuntimes: true, Processor: "InvokeHTTP", SearchTerm: "timeout"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			got, apiErr := parseFilter(req)
			if apiErr != nil {
				t.Fatalf("unexpected error: %+v", apiErr)
			}
			if got.TimeWindowHours != tt.want.TimeWindowHours ||
				got.AllRuntimes != tt.want.AllRuntimes ||
				got.Processor != tt.want.Processor ||
				got.SearchTerm != tt.want.SearchTerm ||
				len(got.Runtimes) != len(tt.want.Runtimes) {
				t.Errorf("parseFilter = %+v, want %+v", got, tt.want)
			}
			for i := range tt.want.Runtimes {
				if got.Runtimes[i] != tt.want.Runtimes[i] {
					t.Errorf("runtime %d = %q, want %q", i, got.Runtimes[i], tt.want.Runtimes[i])
				}
			}
		})
	}
}
