package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openpipe-labs/flowpulse/internal/dashboard"
	"github.com/openpipe-labs/flowpulse/internal/query"
)

// CacheClearer is implemented by the cached repository.
type CacheClearer interface {
	Clear()
}

// Handler serves the dashboard aggregation endpoints.
type Handler struct {
	svc   *dashboard.Service
	cache CacheClearer
	log   *slog.Logger
}

// NewHandler creates a dashboard handler. cache may be nil when result
// caching is disabled.
func NewHandler(svc *dashboard.Service, cache CacheClearer, log *slog.Logger) *Handler {
	return &Handler{svc: svc, cache: cache, log: log}
}

// Health returns the health summary findings.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	f, apiErr := parseFilter(r)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	OK(w, h.svc.HealthSummary(r.Context(), f))
}

// Trends returns the error and queue-time trend series.
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	f, apiErr := parseFilter(r)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	OK(w, h.svc.TrendSeries(r.Context(), f))
}

// ErrorRuntimes returns the top error runtimes ranking.
func (h *Handler) ErrorRuntimes(w http.ResponseWriter, r *http.Request) {
	f, apiErr := parseFilter(r)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	OK(w, h.svc.TopErrorRuntimes(r.Context(), f))
}

// ErrorProcessors returns the per-processor error breakdown for one runtime.
func (h *Handler) ErrorProcessors(w http.ResponseWriter, r *http.Request) {
	f, apiErr := parseFilter(r)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	runtime := r.URL.Query().Get("runtime")
	if runtime == "" {
		JSONError(w, NewBadRequest("runtime parameter is required"))
		return
	}
	OK(w, h.svc.ProcessorErrors(r.Context(), runtime, f))
}

// ErrorLogs returns decoded error log rows for one runtime.
func (h *Handler) ErrorLogs(w http.ResponseWriter, r *http.Request) {
	f, apiErr := parseFilter(r)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	q := r.URL.Query()
	runtime := q.Get("runtime")
	if runtime == "" {
		JSONError(w, NewBadRequest("runtime parameter is required"))
		return
	}

	from, apiErr := parseTime(q.Get("from"))
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	to, apiErr := parseTime(q.Get("to"))
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	if from.IsZero() != to.IsZero() {
		JSONError(w, NewBadRequest("from and to must be provided together"))
		return
	}
	if !from.IsZero() && to.Before(from) {
		JSONError(w, NewBadRequest("to must not be before from"))
		return
	}

	rows, err := h.svc.SearchErrorLogs(r.Context(), runtime, f, from, to, q.Get("expr"))
	if err != nil {
		JSONError(w, NewValidationError(err.Error()))
		return
	}
	OK(w, rows)
}

// ErrorTimeRange returns the earliest and latest error timestamps for
// one runtime so clients can bound their range pickers.
func (h *Handler) ErrorTimeRange(w http.ResponseWriter, r *http.Request) {
	f, apiErr := parseFilter(r)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	q := r.URL.Query()
	runtime := q.Get("runtime")
	if runtime == "" {
		JSONError(w, NewBadRequest("runtime parameter is required"))
		return
	}

	tr, ok := h.svc.ErrorTimeRange(r.Context(), runtime, q.Get("processor"), f)
	if !ok {
		JSONError(w, ErrNotFound)
		return
	}
	OK(w, tr)
}

// Bottlenecks returns the backpressure and queue-time rankings.
func (h *Handler) Bottlenecks(w http.ResponseWriter, r *http.Request) {
	f, apiErr := parseFilter(r)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	q := r.URL.Query()
	minMiB, apiErr := parseFloat(q.Get("min_mib"), 0)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	minMinutes, apiErr := parseFloat(q.Get("min_minutes"), 0)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	OK(w, h.svc.Bottlenecks(r.Context(), f, minMiB, minMinutes))
}

// Heatmap returns the 7x24 error heatmap grid.
func (h *Handler) Heatmap(w http.ResponseWriter, r *http.Request) {
	f, apiErr := parseFilter(r)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	OK(w, h.svc.ErrorHeatmap(r.Context(), f, r.URL.Query().Get("runtime")))
}

// HeatmapRuntimes lists the runtimes selectable in the heatmap view.
func (h *Handler) HeatmapRuntimes(w http.ResponseWriter, r *http.Request) {
	f, apiErr := parseFilter(r)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	OK(w, h.svc.HeatmapRuntimes(r.Context(), f))
}

// RuntimeInventory returns every known runtime with its classification.
func (h *Handler) RuntimeInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hours, apiErr := parseInt(q.Get("inactivity_hours"), 24)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	if hours <= 0 {
		JSONError(w, NewBadRequest("inactivity_hours must be positive"))
		return
	}
	userOnly := q.Get("user_only") == "true"
	OK(w, h.svc.RuntimeInventory(r.Context(), hours, userOnly))
}

// ListRuntimes lists recently-seen runtimes for the filter sidebar.
func (h *Handler) ListRuntimes(w http.ResponseWriter, r *http.Request) {
	includeInternal := r.URL.Query().Get("include_internal") == "true"
	OK(w, h.svc.ListRuntimes(r.Context(), includeInternal))
}

// ClearCache drops all cached query results.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		h.cache.Clear()
		h.log.Info("result cache cleared")
	}
	OK(w, map[string]string{"status": "cleared"})
}

// parseFilter builds the query filter from the shared request
// parameters. An absent runtimes parameter (or the literal "all") means
// all runtimes; a present but empty one selects nothing.
func parseFilter(r *http.Request) (query.Filter, *Error) {
	q := r.URL.Query()

	hours, apiErr := parseInt(q.Get("hours"), 24)
	if apiErr != nil {
		return query.Filter{}, apiErr
	}
	if hours <= 0 {
		return query.Filter{}, NewBadRequest("hours must be positive")
	}

	f := query.Filter{
		TimeWindowHours: hours,
		Processor:       q.Get("processor"),
		SearchTerm:      q.Get("search"),
	}

	if !q.Has("runtimes") || q.Get("runtimes") == "all" {
		f.AllRuntimes = true
	} else {
		for _, name := range strings.Split(q.Get("runtimes"), ",") {
			if name = strings.TrimSpace(name); name != "" {
				f.Runtimes = append(f.Runtimes, name)
			}
		}
	}

	return f, nil
}

func parseInt(value string, def int) (int, *Error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, NewBadRequest(fmt.Sprintf("invalid integer %q", value))
	}
	return n, nil
}

func parseFloat(value string, def float64) (float64, *Error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, NewBadRequest(fmt.Sprintf("invalid number %q", value))
	}
	return n, nil
}

func parseTime(value string) (time.Time, *Error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, NewBadRequest(fmt.Sprintf("invalid timestamp %q, want RFC3339", value))
	}
	return t.UTC(), nil
}
