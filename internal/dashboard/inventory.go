package dashboard

import (
	"context"
	"time"

	"github.com/openpipe-labs/flowpulse/internal/models"
	"github.com/openpipe-labs/flowpulse/internal/query"
)

// RuntimeStatus is one row of the runtime inventory.
type RuntimeStatus struct {
	Name          string             `json:"name"`
	Type          models.RuntimeType `json:"type"`
	Active        bool               `json:"active"`
	CreatedOn     time.Time          `json:"created_on"`
	LastEventTime time.Time          `json:"last_event_time"`
}

// InventoryReport is the runtime inventory with its summary counts.
type InventoryReport struct {
	Total    int             `json:"total"`
	Active   int             `json:"active"`
	Inactive int             `json:"inactive"`
	Runtimes []RuntimeStatus `json:"runtimes"`
}

// RuntimeInventory lists every runtime ever seen, classified by type
// and by activity. A runtime is active when its latest event is
// strictly younger than the inactivity threshold; one that is exactly
// threshold-old counts as inactive. userOnly keeps user-created
// runtimes only.
func (s *Service) RuntimeInventory(ctx context.Context, inactivityHours int, userOnly bool) InventoryReport {
	now := s.evalNow()
	if inactivityHours <= 0 {
		inactivityHours = 24
	}
	cutoff := now.Add(-time.Duration(inactivityHours) * time.Hour)

	table := s.run(ctx, "runtime_inventory", query.RuntimeInventory())

	report := InventoryReport{Runtimes: make([]RuntimeStatus, 0, table.Len())}
	for _, row := range table.Rows {
		name := row.String("NAME")
		rtype := models.ClassifyRuntime(name)
		if userOnly && rtype != models.RuntimeTypeUser {
			continue
		}
		last := row.Time("LAST_EVENT_TIME")
		active := last.After(cutoff)

		report.Total++
		if active {
			report.Active++
		} else {
			report.Inactive++
		}
		report.Runtimes = append(report.Runtimes, RuntimeStatus{
			Name:          name,
			Type:          rtype,
			Active:        active,
			CreatedOn:     row.Time("CREATED_ON"),
			LastEventTime: last,
		})
	}
	return report
}

// ListRuntimes returns the runtimes seen in the last day for the
// filter sidebar. Internal runtimes are hidden unless requested.
func (s *Service) ListRuntimes(ctx context.Context, includeInternal bool) []string {
	now := s.evalNow()
	table := s.run(ctx, "recent_runtimes", query.RecentRuntimes(now.Add(-24*time.Hour)))

	out := make([]string, 0, table.Len())
	for _, row := range table.Rows {
		name := row.String("RUNTIME")
		if !includeInternal && !models.IsUserRuntime(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}
