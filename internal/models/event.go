// Package models contains the core data structures for FlowPulse.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// RecordType discriminates the payload shape of an event row.
type RecordType string

const (
	RecordTypeLog    RecordType = "LOG"
	RecordTypeMetric RecordType = "METRIC"
)

// Resource attribute keys used by the telemetry pipeline.
const (
	AttrRuntime = "k8s.namespace.name"
	AttrName    = "name"
)

// Metric names emitted by pipeline runtimes.
const (
	MetricProcessorRunning  = "processor.run.status.running"
	MetricQueuedBytes       = "connection.queued.bytes"
	MetricQueuedDurationMax = "connection.queued.duration.max"
)

// UserRuntimePrefix marks runtimes created by users; everything else
// is platform-internal.
const UserRuntimePrefix = "runtime-"

// Event is a single row in the append-only telemetry log. The table is
// owned by the ingestion pipeline; FlowPulse only reads it.
type Event struct {
	// ID is the row identifier, assigned at ingestion.
	ID string `json:"id"`

	// Timestamp is when the event occurred. Monotonic ordering across
	// rows is not guaranteed (ingestion is distributed).
	Timestamp time.Time `json:"timestamp"`

	// RecordType is LOG, METRIC, or another unlisted type.
	RecordType RecordType `json:"record_type"`

	// ResourceAttributes identify the emitting resource; the
	// "k8s.namespace.name" key carries the runtime identifier.
	ResourceAttributes map[string]string `json:"resource_attributes,omitempty"`

	// RecordAttributes carry per-record metadata; the "name" key
	// identifies a processor or connection.
	RecordAttributes map[string]string `json:"record_attributes,omitempty"`

	// Record is the JSON record body. For METRIC rows,
	// record.metric.name identifies the metric.
	Record string `json:"record,omitempty"`

	// Value is a JSON log payload for LOG rows and a numeric string
	// for METRIC rows.
	Value string `json:"value,omitempty"`
}

// Runtime returns the runtime identifier, or "" if the event carries none.
func (e *Event) Runtime() string {
	return e.ResourceAttributes[AttrRuntime]
}

// RuntimeType classifies a runtime as user-created or internal.
type RuntimeType string

const (
	RuntimeTypeUser     RuntimeType = "User Created"
	RuntimeTypeInternal RuntimeType = "Internal"
)

// IsUserRuntime reports whether the identifier names a user-created runtime.
func IsUserRuntime(name string) bool {
	return strings.HasPrefix(name, UserRuntimePrefix)
}

// ClassifyRuntime maps a runtime identifier to its type.
func ClassifyRuntime(name string) RuntimeType {
	if IsUserRuntime(name) {
		return RuntimeTypeUser
	}
	return RuntimeTypeInternal
}

// LogPayload is the decoded JSON payload of a LOG event's value field.
type LogPayload struct {
	// Level is the log severity (ERROR, WARN, INFO, ...).
	Level string `json:"level"`

	// LoggerName identifies the emitting processor.
	LoggerName string `json:"loggerName"`

	// FormattedMessage is the rendered log message.
	FormattedMessage string `json:"formattedMessage"`
}

// DecodeLogPayload parses a LOG value payload. It fails soft: malformed
// or empty payloads return ok=false and the row should be skipped, not
// treated as an error.
func DecodeLogPayload(raw string) (LogPayload, bool) {
	var p LogPayload
	if raw == "" {
		return p, false
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, false
	}
	return p, true
}
