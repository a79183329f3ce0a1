package storage

import (
	"strings"
	"time"
)

// Row is a single result row keyed by upper-cased column name.
type Row map[string]any

// Table is an ordered tabular query result. Column names are
// upper-cased on scan so aggregation code can address columns by a
// fixed convention regardless of the store's casing behavior.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// String returns the named column of a row as a string, or "" when the
// column is absent or not string-typed.
func (r Row) String(col string) string {
	if v, ok := r[col].(string); ok {
		return v
	}
	return ""
}

// Int returns the named column as an int64, converting the integer
// widths ClickHouse aggregate functions produce.
func (r Row) Int(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case uint32:
		return int64(v)
	case uint16:
		return int64(v)
	case uint8:
		return int64(v)
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int8:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Float returns the named column as a float64.
func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return 0
	}
}

// Time returns the named column as a time.Time; the zero value when
// the column is absent or not a timestamp.
func (r Row) Time(col string) time.Time {
	if v, ok := r[col].(time.Time); ok {
		return v
	}
	return time.Time{}
}

// normalizeColumns upper-cases column names in place.
func normalizeColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.ToUpper(c)
	}
	return out
}
