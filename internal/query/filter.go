// Package query builds parameterized ClickHouse SQL for the dashboard
// aggregations over the telemetry events table.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/openpipe-labs/flowpulse/internal/models"
)

// EventsTable is the append-only telemetry table FlowPulse reads.
// The table is owned by the ingestion pipeline.
const EventsTable = "events"

// SQL expressions for the semi-structured event columns. Every recipe
// addresses the payload through these, never through ad-hoc lookups.
const (
	exprRuntime    = "resource_attributes['k8s.namespace.name']"
	exprEntityName = "record_attributes['name']"
	exprLogLevel   = "JSONExtractString(value, 'level')"
	exprLogger     = "JSONExtractString(value, 'loggerName')"
	exprMessage    = "JSONExtractString(value, 'formattedMessage')"
	exprMetricName = "JSONExtractString(record, 'metric', 'name')"
	exprMetricVal  = "toFloat64OrZero(value)"
)

// Query is a fully-specified, executable query description: SQL text
// plus bind arguments. Building one has no side effects.
type Query struct {
	SQL  string
	Args []any
}

// Key returns the cache identity of the query: the literal SQL joined
// with its rendered arguments.
func (q Query) Key() string {
	var sb strings.Builder
	sb.WriteString(q.SQL)
	for _, a := range q.Args {
		sb.WriteByte('|')
		if t, ok := a.(time.Time); ok {
			sb.WriteString(t.UTC().Format(time.RFC3339Nano))
			continue
		}
		fmt.Fprintf(&sb, "%v", a)
	}
	return sb.String()
}

// Filter is the caller-selected scope applied to every dashboard query.
type Filter struct {
	// TimeWindowHours bounds the lookback window. Any positive value
	// is accepted; callers typically pick from a small enumerated set.
	TimeWindowHours int

	// AllRuntimes is the "all runtimes" sentinel. When false, Runtimes
	// is an explicit selection; an empty explicit selection matches
	// nothing rather than everything.
	AllRuntimes bool
	Runtimes    []string

	// Processor optionally restricts log queries to one logger name.
	// Empty means all processors.
	Processor string

	// SearchTerm optionally restricts log queries to messages
	// containing the term, case-insensitively. Empty matches all.
	SearchTerm string

	// InactivityThresholdHours is used only by the runtime-status
	// aggregation and is independent of TimeWindowHours.
	InactivityThresholdHours int
}

// WindowStart returns the start of the filter's lookback window
// relative to the given evaluation instant.
func (f Filter) WindowStart(now time.Time) time.Time {
	return now.Add(-time.Duration(f.TimeWindowHours) * time.Hour)
}

// Bucket returns the trend-series bucket granularity for the window:
// hourly up to 48 hours, daily beyond.
func (f Filter) Bucket() string {
	if f.TimeWindowHours <= 48 {
		return "hour"
	}
	return "day"
}

// runtimeScope composes the runtime restriction predicate.
// Sentinel "all" adds no clause; an explicit set restricts to exactly
// that set; an empty explicit set is unsatisfiable so callers get an
// empty result instead of an unfiltered one.
func (f Filter) runtimeScope() (string, []any) {
	if f.AllRuntimes {
		return "", nil
	}
	if len(f.Runtimes) == 0 {
		return "1 = 0", nil
	}
	placeholders := make([]string, len(f.Runtimes))
	args := make([]any, len(f.Runtimes))
	for i, r := range f.Runtimes {
		placeholders[i] = "?"
		args[i] = r
	}
	return exprRuntime + " IN (" + strings.Join(placeholders, ", ") + ")", args
}

// conditions accumulates WHERE-clause fragments with their bind args.
type conditions struct {
	clauses []string
	args    []any
}

func (c *conditions) add(clause string, args ...any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

// addScope appends the filter's runtime restriction, if any.
func (c *conditions) addScope(f Filter) {
	clause, args := f.runtimeScope()
	if clause != "" {
		c.add(clause, args...)
	}
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// errorLogConditions is the shared predicate for ERROR-level LOG rows.
func errorLogConditions(since time.Time) *conditions {
	c := &conditions{}
	c.add("record_type = ?", string(models.RecordTypeLog))
	c.add(exprLogLevel + " = 'ERROR'")
	c.add("timestamp > ?", since)
	return c
}

