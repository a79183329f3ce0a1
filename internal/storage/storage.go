// Package storage provides event store access for FlowPulse.
package storage

import (
	"context"

	"github.com/openpipe-labs/flowpulse/internal/query"
)

// EventStorage is the lifecycle interface for the telemetry event store.
type EventStorage interface {
	// Open initializes the store connection.
	Open() error
	// Close closes the store connection.
	Close() error
	// Migrate creates the events table if it does not exist. The table
	// is normally owned by the ingestion pipeline; Migrate exists for
	// development and test environments.
	Migrate() error
	// Ping checks the connection health.
	Ping(ctx context.Context) error

	// Events returns the event query repository.
	Events() EventRepository
}

// EventRepository executes query descriptors against the event store.
// A query that matches zero rows returns an empty table and a nil
// error; the two outcomes are never conflated.
type EventRepository interface {
	Query(ctx context.Context, q query.Query) (*Table, error)
}
