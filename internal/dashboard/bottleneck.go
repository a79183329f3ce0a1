package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/openpipe-labs/flowpulse/internal/query"
	"github.com/openpipe-labs/flowpulse/internal/storage"
)

// ConnectionRanking is one row of a bottleneck ranking. Peak's unit
// depends on the ranking: MiB for backpressure, minutes for queue
// times.
type ConnectionRanking struct {
	RuntimeConnection string  `json:"runtime_connection"`
	Peak              float64 `json:"peak"`
}

// BottleneckReport holds both bottleneck rankings.
type BottleneckReport struct {
	Backpressure []ConnectionRanking `json:"backpressure"`
	QueueTimes   []ConnectionRanking `json:"queue_times"`
}

// Bottlenecks runs the backpressure (peak queued MiB above minMiB) and
// queue time (peak queued minutes above minMinutes) rankings
// concurrently. Each ranking is capped at 15 rows.
func (s *Service) Bottlenecks(ctx context.Context, f query.Filter, minMiB, minMinutes float64) BottleneckReport {
	now := s.evalNow()
	since := f.WindowStart(now)

	var backTable, queueTable *storage.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		backTable = s.run(gctx, "backpressure", query.Backpressure(f, since, minMiB))
		return nil
	})
	g.Go(func() error {
		queueTable = s.run(gctx, "queue_times", query.QueueTimes(f, since, minMinutes))
		return nil
	})
	g.Wait()

	return BottleneckReport{
		Backpressure: rankings(backTable),
		QueueTimes:   rankings(queueTable),
	}
}

func rankings(table *storage.Table) []ConnectionRanking {
	out := make([]ConnectionRanking, 0, table.Len())
	for _, row := range table.Rows {
		out = append(out, ConnectionRanking{
			RuntimeConnection: row.String("RUNTIME_CONNECTION"),
			Peak:              row.Float("PEAK_VALUE"),
		})
	}
	return out
}
