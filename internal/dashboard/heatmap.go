package dashboard

import (
	"context"

	"github.com/openpipe-labs/flowpulse/internal/query"
)

// HeatmapCell is one cell of the 7x24 error heatmap.
type HeatmapCell struct {
	DayOfWeek  string `json:"day_of_week"`
	HourOfDay  int    `json:"hour_of_day"`
	ErrorCount int64  `json:"error_count"`
}

// ISO ordering, Monday first.
var dayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// ErrorHeatmap returns exactly 168 cells, Monday through Sunday, hours
// 0 through 23, zero-filled where the window had no errors. A non-empty
// runtime pins the heatmap to that runtime.
func (s *Service) ErrorHeatmap(ctx context.Context, f query.Filter, runtime string) []HeatmapCell {
	now := s.evalNow()
	table := s.run(ctx, "error_heatmap", query.ErrorHeatmapCounts(f, f.WindowStart(now), runtime))

	var counts [8][24]int64
	for _, row := range table.Rows {
		day := row.Int("DAY_OF_WEEK")
		hour := row.Int("HOUR_OF_DAY")
		if day < 1 || day > 7 || hour < 0 || hour > 23 {
			continue
		}
		counts[day][hour] = row.Int("ERROR_COUNT")
	}

	cells := make([]HeatmapCell, 0, 7*24)
	for day := 1; day <= 7; day++ {
		for hour := 0; hour < 24; hour++ {
			cells = append(cells, HeatmapCell{
				DayOfWeek:  dayNames[day-1],
				HourOfDay:  hour,
				ErrorCount: counts[day][hour],
			})
		}
	}
	return cells
}

// HeatmapRuntimes lists the runtimes with in-window errors, for the
// heatmap's runtime picker.
func (s *Service) HeatmapRuntimes(ctx context.Context, f query.Filter) []string {
	now := s.evalNow()
	table := s.run(ctx, "heatmap_runtimes", query.HeatmapRuntimes(f, f.WindowStart(now)))

	out := make([]string, 0, table.Len())
	for _, row := range table.Rows {
		out = append(out, row.String("RUNTIME"))
	}
	return out
}
