// Package metrics records per-query pipeline outcomes and aggregates
// them into performance snapshots.
package metrics

import (
	"context"
	"time"

	"github.com/taxdesk/answer-engine/internal/model"
)

// Sink records query metrics. Recording is best-effort from the
// pipeline's point of view; callers log failures and move on.
type Sink interface {
	Record(ctx context.Context, m model.SearchMetrics) error
	Snapshot(ctx context.Context, lookback time.Duration) (*model.PerformanceSnapshot, error)
	Close() error
}

// NopSink discards everything. Used when metrics storage is not
// configured.
type NopSink struct{}

func (NopSink) Record(context.Context, model.SearchMetrics) error { return nil }

func (NopSink) Snapshot(_ context.Context, lookback time.Duration) (*model.PerformanceSnapshot, error) {
	return &model.PerformanceSnapshot{
		LookbackHours: int(lookback.Hours()),
		CollectedAt:   time.Now().UTC(),
	}, nil
}

func (NopSink) Close() error { return nil }
