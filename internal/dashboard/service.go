// Package dashboard implements the aggregation recipes behind each
// dashboard tab: health summary, trends, root-cause drill-down,
// bottleneck ranking, error heatmap, and runtime inventory.
//
// Every aggregation is a function of (filter, evaluation instant) over
// the event store. Failures degrade to empty results per aggregation;
// one failing panel never takes down the dashboard.
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/openpipe-labs/flowpulse/internal/metrics"
	"github.com/openpipe-labs/flowpulse/internal/query"
	"github.com/openpipe-labs/flowpulse/internal/storage"
)

// Service executes dashboard aggregations against an event repository.
type Service struct {
	repo   storage.EventRepository
	rules  *RuleHolder
	log    *slog.Logger
	search *query.SearchDSL
	sqlgen *query.SQLBuilder

	// now is the evaluation clock; replaceable in tests.
	now func() time.Time
}

// New creates a dashboard service. A nil rules holder uses defaults.
func New(repo storage.EventRepository, rules *RuleHolder, log *slog.Logger) *Service {
	if rules == nil {
		rules = NewRuleHolder(DefaultHealthRules(), log)
	}
	return &Service{
		repo:   repo,
		rules:  rules,
		log:    log,
		search: query.NewSearchDSL(query.SearchFields),
		sqlgen: query.NewSQLBuilder(query.SearchFields),
		now:    time.Now,
	}
}

// evalNow returns the single evaluation instant for one aggregation
// call. It is truncated to the minute so repeated UI interaction within
// the cache TTL produces identical query text.
func (s *Service) evalNow() time.Time {
	return s.now().UTC().Truncate(time.Minute)
}

// run executes one sub-query with failure isolation: a store error is
// logged and counted, and the caller receives an empty table. "No data"
// and "error" stay distinguishable through the metrics and log
// side-channel.
func (s *Service) run(ctx context.Context, aggregation string, q query.Query) *storage.Table {
	start := time.Now()
	t, err := s.repo.Query(ctx, q)
	metrics.StoreQueryDuration.WithLabelValues(aggregation).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.StoreQueriesTotal.WithLabelValues(aggregation, "error").Inc()
		s.log.Error("aggregation query failed",
			"aggregation", aggregation,
			"error", err,
		)
		return &storage.Table{}
	}

	metrics.StoreQueriesTotal.WithLabelValues(aggregation, "ok").Inc()
	return t
}
