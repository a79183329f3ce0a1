package query

import (
	"time"

	"github.com/openpipe-labs/flowpulse/internal/models"
)

// HighErrorRate groups ERROR logs since the given instant by runtime
// and keeps runtimes whose count exceeds the threshold. Rows without a
// runtime identifier never participate in runtime-level grouping.
func HighErrorRate(f Filter, since time.Time, threshold int) Query {
	c := errorLogConditions(since)
	c.add(exprRuntime + " != ''")
	c.addScope(f)

	sql := "SELECT " + exprRuntime + " AS RUNTIME, count() AS ERROR_COUNT" +
		" FROM " + EventsTable + c.where() +
		" GROUP BY RUNTIME HAVING ERROR_COUNT > ? ORDER BY ERROR_COUNT DESC, RUNTIME ASC"
	return Query{SQL: sql, Args: append(c.args, threshold)}
}

// StoppedProcessors ranks processor.run.status.running samples per
// (runtime, processor) pair and counts pairs whose most recent value is
// zero. Ties on timestamp break on descending row id, which is
// deterministic for a fixed data set.
func StoppedProcessors(f Filter, since time.Time) Query {
	c := &conditions{}
	c.add("record_type = ?", string(models.RecordTypeMetric))
	c.add(exprMetricName+" = ?", models.MetricProcessorRunning)
	c.add("timestamp > ?", since)
	c.add(exprRuntime + " != ''")
	c.addScope(f)

	sql := "WITH latest_status AS (" +
		"SELECT " + exprRuntime + " AS RUNTIME, " + exprEntityName + " AS PROCESSOR, " +
		exprMetricVal + " AS STATUS, " +
		"ROW_NUMBER() OVER (PARTITION BY " + exprRuntime + ", " + exprEntityName +
		" ORDER BY timestamp DESC, id DESC) AS rn" +
		" FROM " + EventsTable + c.where() + ")" +
		" SELECT RUNTIME, count() AS STOPPED_COUNT FROM latest_status" +
		" WHERE rn = 1 AND STATUS = 0 GROUP BY RUNTIME ORDER BY RUNTIME ASC"
	return Query{SQL: sql, Args: c.args}
}

// TrendSeries buckets events by hour or day (Filter.Bucket) for
// user-created runtimes only, computing per (bucket, runtime) the total
// ERROR-log count and the peak queue duration converted to minutes.
// Missing buckets are not zero-filled.
func TrendSeries(f Filter, since time.Time) Query {
	bucketFn := "toStartOfHour"
	if f.Bucket() == "day" {
		bucketFn = "toStartOfDay"
	}

	c := &conditions{}
	c.add("record_type IN (?, ?)", string(models.RecordTypeLog), string(models.RecordTypeMetric))
	c.add(exprRuntime+" LIKE ?", models.UserRuntimePrefix+"%")
	c.add("timestamp > ?", since)
	c.addScope(f)

	sql := "SELECT " + bucketFn + "(timestamp) AS TIME_BUCKET, " + exprRuntime + " AS RUNTIME," +
		" countIf(record_type = '" + string(models.RecordTypeLog) + "' AND " + exprLogLevel + " = 'ERROR') AS TOTAL_ERRORS," +
		" maxIf(" + exprMetricVal + " / 60000, record_type = '" + string(models.RecordTypeMetric) + "' AND " + exprMetricName + " = ?) AS MAX_QUEUE_MINUTES" +
		" FROM " + EventsTable + c.where() +
		" GROUP BY TIME_BUCKET, RUNTIME ORDER BY TIME_BUCKET ASC, RUNTIME ASC"

	args := append([]any{models.MetricQueuedDurationMax}, c.args...)
	return Query{SQL: sql, Args: args}
}

// TopErrorRuntimes counts ERROR logs per runtime over the window,
// keeping only positive counts, capped at 10.
func TopErrorRuntimes(f Filter, since time.Time) Query {
	c := errorLogConditions(since)
	c.add(exprRuntime + " != ''")
	c.addScope(f)

	sql := "SELECT " + exprRuntime + " AS RUNTIME, count() AS ERROR_COUNT" +
		" FROM " + EventsTable + c.where() +
		" GROUP BY RUNTIME HAVING ERROR_COUNT > 0" +
		" ORDER BY ERROR_COUNT DESC, RUNTIME ASC LIMIT 10"
	return Query{SQL: sql, Args: c.args}
}

// ProcessorErrors counts ERROR logs per processor (the structured
// payload's loggerName) for one runtime, capped at 10.
func ProcessorErrors(runtime string, since time.Time) Query {
	c := errorLogConditions(since)
	c.add(exprRuntime+" = ?", runtime)

	sql := "SELECT " + exprLogger + " AS PROCESSOR, count() AS ERROR_COUNT" +
		" FROM " + EventsTable + c.where() +
		" GROUP BY PROCESSOR ORDER BY ERROR_COUNT DESC, PROCESSOR ASC LIMIT 10"
	return Query{SQL: sql, Args: c.args}
}

// ErrorTimeRange probes the earliest and latest ERROR timestamps for a
// runtime (optionally one processor) so the UI can bound its slider.
func ErrorTimeRange(runtime, processor string, since time.Time) Query {
	c := errorLogConditions(since)
	c.add(exprRuntime+" = ?", runtime)
	if processor != "" {
		c.add(exprLogger+" = ?", processor)
	}

	sql := "SELECT min(timestamp) AS MIN_TS, max(timestamp) AS MAX_TS" +
		" FROM " + EventsTable + c.where()
	return Query{SQL: sql, Args: c.args}
}

// ErrorLogSearch fetches raw ERROR log rows for one runtime, newest
// first, capped at 200. Processor, sub-range, and search restrictions
// are optional; extra is an additional pre-built predicate (from the
// search DSL) AND-ed in.
func ErrorLogSearch(runtime string, f Filter, since time.Time, from, to time.Time, extra *Query) Query {
	c := errorLogConditions(since)
	c.add(exprRuntime+" = ?", runtime)
	if f.Processor != "" {
		c.add(exprLogger+" = ?", f.Processor)
	}
	if !from.IsZero() && !to.IsZero() {
		c.add("timestamp BETWEEN ? AND ?", from, to)
	}
	if f.SearchTerm != "" {
		c.add("positionCaseInsensitive("+exprMessage+", ?) > 0", f.SearchTerm)
	}
	if extra != nil && extra.SQL != "" {
		c.add("("+extra.SQL+")", extra.Args...)
	}

	sql := "SELECT timestamp AS TIMESTAMP, value AS VALUE" +
		" FROM " + EventsTable + c.where() +
		" ORDER BY timestamp DESC, id DESC LIMIT 200"
	return Query{SQL: sql, Args: c.args}
}

// ConnectionPeak is the shared shape of the bottleneck rankings: the
// maximum observed value of one metric per (runtime, connection) pair,
// scaled by a unit divisor and filtered by a minimum threshold, capped
// at 15.
func ConnectionPeak(f Filter, since time.Time, metric string, divisor, minThreshold float64) Query {
	c := &conditions{}
	c.add("record_type = ?", string(models.RecordTypeMetric))
	c.add(exprMetricName+" = ?", metric)
	c.add("timestamp > ?", since)
	c.add(exprRuntime + " != ''")
	c.addScope(f)

	sql := "SELECT concat(" + exprRuntime + ", ' | ', " + exprEntityName + ") AS RUNTIME_CONNECTION," +
		" max(" + exprMetricVal + ") / ? AS PEAK_VALUE" +
		" FROM " + EventsTable + c.where() +
		" GROUP BY RUNTIME_CONNECTION HAVING PEAK_VALUE > ?" +
		" ORDER BY PEAK_VALUE DESC, RUNTIME_CONNECTION ASC LIMIT 15"

	args := append([]any{divisor}, c.args...)
	return Query{SQL: sql, Args: append(args, minThreshold)}
}

// Backpressure ranks connections by peak queued bytes, in MiB.
func Backpressure(f Filter, since time.Time, minMiB float64) Query {
	return ConnectionPeak(f, since, models.MetricQueuedBytes, 1024*1024, minMiB)
}

// QueueTimes ranks connections by peak queued duration, in minutes.
func QueueTimes(f Filter, since time.Time, minMinutes float64) Query {
	return ConnectionPeak(f, since, models.MetricQueuedDurationMax, 60000, minMinutes)
}

// ErrorHeatmapCounts groups ERROR logs by ISO day-of-week (Mon=1) and
// hour-of-day. The aggregation layer zero-fills the 7x24 grid; only
// observed cells come back from the store. A non-empty runtime pins the
// heatmap to that runtime and overrides the filter's runtime scope.
func ErrorHeatmapCounts(f Filter, since time.Time, runtime string) Query {
	c := errorLogConditions(since)
	if runtime != "" {
		c.add(exprRuntime+" = ?", runtime)
	} else {
		c.addScope(f)
	}

	sql := "SELECT toDayOfWeek(timestamp) AS DAY_OF_WEEK, toHour(timestamp) AS HOUR_OF_DAY," +
		" count() AS ERROR_COUNT" +
		" FROM " + EventsTable + c.where() +
		" GROUP BY DAY_OF_WEEK, HOUR_OF_DAY ORDER BY DAY_OF_WEEK ASC, HOUR_OF_DAY ASC"
	return Query{SQL: sql, Args: c.args}
}

// HeatmapRuntimes lists runtimes that produced ERROR logs in-window.
func HeatmapRuntimes(f Filter, since time.Time) Query {
	c := errorLogConditions(since)
	c.add(exprRuntime + " != ''")
	c.addScope(f)

	sql := "SELECT DISTINCT " + exprRuntime + " AS RUNTIME" +
		" FROM " + EventsTable + c.where() + " ORDER BY RUNTIME ASC"
	return Query{SQL: sql, Args: c.args}
}

// RuntimeInventory lists every runtime ever seen with its first and
// last event timestamps. Type and active/inactive classification happen
// in the aggregation layer.
func RuntimeInventory() Query {
	sql := "SELECT " + exprRuntime + " AS NAME," +
		" min(timestamp) AS CREATED_ON, max(timestamp) AS LAST_EVENT_TIME" +
		" FROM " + EventsTable +
		" WHERE " + exprRuntime + " != '' GROUP BY NAME ORDER BY NAME ASC"
	return Query{SQL: sql}
}

// RecentRuntimes lists distinct runtimes seen since the given instant,
// for the filter sidebar.
func RecentRuntimes(since time.Time) Query {
	c := &conditions{}
	c.add(exprRuntime + " != ''")
	c.add("timestamp > ?", since)

	sql := "SELECT DISTINCT " + exprRuntime + " AS RUNTIME" +
		" FROM " + EventsTable + c.where() + " ORDER BY RUNTIME ASC"
	return Query{SQL: sql, Args: c.args}
}
