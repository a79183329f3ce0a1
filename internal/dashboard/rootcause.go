package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/openpipe-labs/flowpulse/internal/metrics"
	"github.com/openpipe-labs/flowpulse/internal/models"
	"github.com/openpipe-labs/flowpulse/internal/query"
)

// RuntimeErrorCount is one row of the top error runtimes ranking.
type RuntimeErrorCount struct {
	Runtime    string `json:"runtime"`
	ErrorCount int64  `json:"error_count"`
}

// ProcessorErrorShare is one row of the per-runtime processor
// breakdown. PercentOfTotal is relative to the displayed rows, so the
// shown percentages always sum to 100.
type ProcessorErrorShare struct {
	Processor      string  `json:"processor"`
	ErrorCount     int64   `json:"error_count"`
	PercentOfTotal float64 `json:"percent_of_total"`
}

// ErrorLogRow is one decoded error log line.
type ErrorLogRow struct {
	Timestamp time.Time `json:"timestamp"`
	Processor string    `json:"processor"`
	Message   string    `json:"message"`
}

// TimeRange bounds the error activity of one runtime.
type TimeRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// TopErrorRuntimes ranks runtimes by in-window error count, highest
// first, at most 10 rows.
func (s *Service) TopErrorRuntimes(ctx context.Context, f query.Filter) []RuntimeErrorCount {
	now := s.evalNow()
	table := s.run(ctx, "top_error_runtimes", query.TopErrorRuntimes(f, f.WindowStart(now)))

	out := make([]RuntimeErrorCount, 0, table.Len())
	for _, row := range table.Rows {
		out = append(out, RuntimeErrorCount{
			Runtime:    row.String("RUNTIME"),
			ErrorCount: row.Int("ERROR_COUNT"),
		})
	}
	return out
}

// ProcessorErrors breaks one runtime's in-window errors down by
// processor, at most 10 rows, with each row's share of the displayed
// total.
func (s *Service) ProcessorErrors(ctx context.Context, runtime string, f query.Filter) []ProcessorErrorShare {
	now := s.evalNow()
	table := s.run(ctx, "processor_errors", query.ProcessorErrors(runtime, f.WindowStart(now)))

	out := make([]ProcessorErrorShare, 0, table.Len())
	var total int64
	for _, row := range table.Rows {
		count := row.Int("ERROR_COUNT")
		total += count
		out = append(out, ProcessorErrorShare{
			Processor:  row.String("PROCESSOR"),
			ErrorCount: count,
		})
	}
	if total > 0 {
		for i := range out {
			out[i].PercentOfTotal = float64(out[i].ErrorCount) / float64(total) * 100
		}
	}
	return out
}

// ErrorTimeRange probes the earliest and latest error timestamps for a
// runtime, optionally narrowed to one processor. ok is false when the
// runtime produced no in-window errors.
func (s *Service) ErrorTimeRange(ctx context.Context, runtime, processor string, f query.Filter) (TimeRange, bool) {
	now := s.evalNow()
	table := s.run(ctx, "error_time_range", query.ErrorTimeRange(runtime, processor, f.WindowStart(now)))

	if table.Empty() {
		return TimeRange{}, false
	}
	row := table.Rows[0]
	min, max := row.Time("MIN_TS"), row.Time("MAX_TS")
	// min/max over zero matching rows come back as the epoch.
	if min.Unix() <= 0 || max.Unix() <= 0 {
		return TimeRange{}, false
	}
	return TimeRange{Earliest: min, Latest: max}, true
}

// SearchErrorLogs fetches decoded error log rows for one runtime,
// newest first, at most 200. from/to optionally narrow the window (both
// must be set), f.Processor and f.SearchTerm narrow further, and
// expression is an optional search DSL predicate. A malformed
// expression is the caller's error; rows whose payload fails to decode
// are skipped and counted.
func (s *Service) SearchErrorLogs(ctx context.Context, runtime string, f query.Filter, from, to time.Time, expression string) ([]ErrorLogRow, error) {
	var extra *query.Query
	if expression != "" {
		parsed, err := s.search.Parse(expression)
		if err != nil {
			return nil, fmt.Errorf("parse search expression: %w", err)
		}
		q, err := s.sqlgen.Build(parsed)
		if err != nil {
			return nil, fmt.Errorf("translate search expression: %w", err)
		}
		extra = q
	}

	now := s.evalNow()
	table := s.run(ctx, "error_log_search",
		query.ErrorLogSearch(runtime, f, f.WindowStart(now), from, to, extra))

	out := make([]ErrorLogRow, 0, table.Len())
	for _, row := range table.Rows {
		payload, ok := models.DecodeLogPayload(row.String("VALUE"))
		if !ok {
			metrics.MalformedPayloads.Inc()
			s.log.Warn("skipping malformed log payload", "runtime", runtime)
			continue
		}
		out = append(out, ErrorLogRow{
			Timestamp: row.Time("TIMESTAMP"),
			Processor: payload.LoggerName,
			Message:   payload.FormattedMessage,
		})
	}
	return out, nil
}
