package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"backoffice/backend/internal/domain"
)

func TestNoopReportCacheNeverHits(t *testing.T) {
	var c ReportCache = NoopReportCache{}
	ctx := context.Background()
	if err := c.Set(ctx, 0, "k", &domain.DREReport{From: "2024-01-01"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, err := c.Get(ctx, 0, "k"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestEntryKeyIncludesGeneration(t *testing.T) {
	if got := entryKey(3, "2024-01-01:2024-01-30"); got != "backoffice:dre:3:2024-01-01:2024-01-30" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestRedisReportCacheInvalidate(t *testing.T) {
	addr := os.Getenv("BACKOFFICE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set BACKOFFICE_TEST_REDIS_ADDR to run redis integration test")
	}
	c := NewRedisReportCache(addr, "", 0)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	key := "test:" + time.Now().Format(time.RFC3339Nano)
	report := &domain.DREReport{From: "2024-01-01", To: "2024-01-02"}
	report.Summary.TotalSales = decimal.NewFromInt(10)
	gen, err := c.Generation(ctx)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if err := c.Set(ctx, gen, key, report, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, gen, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !got.Summary.TotalSales.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected cached total %s", got.Summary.TotalSales)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	next, err := c.Generation(ctx)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if next == gen {
		t.Fatalf("expected invalidate to move the generation past %d", gen)
	}
	if _, ok, err := c.Get(ctx, next, key); ok || err != nil {
		t.Fatalf("expected miss after invalidate, got ok=%v err=%v", ok, err)
	}

	// A report built from data read before the invalidation stays under the
	// old generation.
	if err := c.Set(ctx, gen, key, report, time.Minute); err != nil {
		t.Fatalf("late set: %v", err)
	}
	if _, ok, err := c.Get(ctx, next, key); ok || err != nil {
		t.Fatalf("expected late write to stay unreachable, got ok=%v err=%v", ok, err)
	}
}
