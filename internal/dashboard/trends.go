package dashboard

import (
	"context"
	"time"

	"github.com/openpipe-labs/flowpulse/internal/query"
)

// TrendPoint is one (bucket, runtime) sample of the trend series.
type TrendPoint struct {
	Bucket          time.Time `json:"time_bucket"`
	Runtime         string    `json:"runtime"`
	TotalErrors     int64     `json:"total_errors"`
	MaxQueueMinutes float64   `json:"max_queue_minutes"`
}

// TrendSeries returns per-runtime error counts and peak queue minutes
// bucketed by hour (windows up to 48h) or day. Buckets with no events
// are absent rather than zero-valued.
func (s *Service) TrendSeries(ctx context.Context, f query.Filter) []TrendPoint {
	now := s.evalNow()
	table := s.run(ctx, "trend_series", query.TrendSeries(f, f.WindowStart(now)))

	points := make([]TrendPoint, 0, table.Len())
	for _, row := range table.Rows {
		points = append(points, TrendPoint{
			Bucket:          row.Time("TIME_BUCKET"),
			Runtime:         row.String("RUNTIME"),
			TotalErrors:     row.Int("TOTAL_ERRORS"),
			MaxQueueMinutes: row.Float("MAX_QUEUE_MINUTES"),
		})
	}
	return points
}
