package cache

import (
	"context"
	"time"

	"backoffice/backend/internal/domain"
)

// ReportCache stores computed DRE reports under a generation. Invalidate
// moves to a new generation, making every stored report unreachable; it is
// called after the data behind a report changes. Callers read Generation
// before loading report data and pass the same value to Get and Set, so a
// report built from data older than an invalidation is never served.
type ReportCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, key string) (*domain.DREReport, bool, error)
	Set(ctx context.Context, gen int64, key string, value *domain.DREReport, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopReportCache struct{}

func (NoopReportCache) Generation(context.Context) (int64, error) {
	return 0, nil
}

func (NoopReportCache) Get(_ context.Context, _ int64, _ string) (*domain.DREReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ int64, _ string, _ *domain.DREReport, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context) error {
	return nil
}
