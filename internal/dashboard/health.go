package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/openpipe-labs/flowpulse/internal/models"
	"github.com/openpipe-labs/flowpulse/internal/query"
	"github.com/openpipe-labs/flowpulse/internal/storage"
)

// HealthReport is the result of the health summary tab.
type HealthReport struct {
	// Nominal is true when no finding fired.
	Nominal  bool             `json:"nominal"`
	Findings []models.Finding `json:"findings"`
}

// HealthSummary evaluates the error-rate and stopped-processor checks
// against the current rules and turns the offenders into findings.
// High error rate findings sort before stopped processor findings.
func (s *Service) HealthSummary(ctx context.Context, f query.Filter) HealthReport {
	now := s.evalNow()
	rules := s.rules.Current()

	var errTable, stopTable *storage.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		errTable = s.run(gctx, "high_error_rate",
			query.HighErrorRate(f, now.Add(-rules.ErrorWindow()), rules.ErrorCountThreshold))
		return nil
	})
	g.Go(func() error {
		stopTable = s.run(gctx, "stopped_processors",
			query.StoppedProcessors(f, now.Add(-rules.StatusWindow())))
		return nil
	})
	g.Wait()

	findings := make([]models.Finding, 0, errTable.Len()+stopTable.Len())

	for _, row := range errTable.Rows {
		findings = append(findings, models.Finding{
			Kind:  models.FindingError,
			Title: "High Error Rate Detected",
			Detail: fmt.Sprintf("Runtime %s has produced %d errors in the last %d minutes.",
				row.String("RUNTIME"), row.Int("ERROR_COUNT"), rules.ErrorWindowMinutes),
			Action:  "Select this runtime in the root cause view to investigate.",
			Urgency: models.UrgencyHigh,
		})
	}

	for _, row := range stopTable.Rows {
		findings = append(findings, models.Finding{
			Kind:  models.FindingWarning,
			Title: "Stopped Processors Found",
			Detail: fmt.Sprintf("Runtime %s has %d processor(s) in a stopped state.",
				row.String("RUNTIME"), row.Int("STOPPED_COUNT")),
			Action:  "Verify if this is intentional. If not, check the runtime's flow configuration to restart the processor(s).",
			Urgency: models.UrgencyMedium,
		})
	}

	return HealthReport{
		Nominal:  len(findings) == 0,
		Findings: findings,
	}
}
