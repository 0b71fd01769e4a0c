package queue

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/f-lab-edu/ticketing-platform/internal/clock"
	"github.com/f-lab-edu/ticketing-platform/internal/domain"
)

// newTestRedis connects to a local Redis and skips the test when none is
// reachable, so the suite runs without infrastructure.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("skipping redis integration tests: %v", err)
	}

	t.Cleanup(func() {
		rdb.Close()
	})
	return rdb
}

func testStockID(prefix string) string {
	return prefix + "-" + time.Now().Format("150405.000000000")
}

func TestRedisRegistryEnterAndStatus(t *testing.T) {
	rdb := newTestRedis(t)
	clk := clock.NewManual(time.Now())
	registry := NewRedisRegistry(rdb, clk)
	ctx := context.Background()

	stockID := testStockID("redis-enter")

	first, err := registry.Enter(ctx, stockID, "user-1")
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	if first.Position == nil || *first.Position != 0 {
		t.Fatalf("expected position 0, got %v", first.Position)
	}
	if first.Status != domain.StatusWaiting {
		t.Fatalf("expected WAITING, got %s", first.Status)
	}

	clk.Advance(time.Millisecond)
	second, err := registry.Enter(ctx, stockID, "user-2")
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	if second.Position == nil || *second.Position != 1 {
		t.Fatalf("expected position 1, got %v", second.Position)
	}

	// Re-entry keeps the original place in line.
	clk.Advance(time.Millisecond)
	again, err := registry.Enter(ctx, stockID, "user-1")
	if err != nil {
		t.Fatalf("re-enter: %v", err)
	}
	if again.Position == nil || *again.Position != 0 {
		t.Fatalf("expected position 0 after re-entry, got %v", again.Position)
	}

	info, err := registry.Status(ctx, stockID, "stranger")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if info.Status != domain.StatusNotInQueue {
		t.Fatalf("expected NOT_IN_QUEUE, got %s", info.Status)
	}

	stocks, err := registry.ActiveStocks(ctx)
	if err != nil {
		t.Fatalf("active stocks: %v", err)
	}
	found := false
	for _, id := range stocks {
		if id == stockID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s among active stocks", stockID)
	}
}

func TestRedisRegistryPromoteAndConsume(t *testing.T) {
	rdb := newTestRedis(t)
	clk := clock.NewManual(time.Now())
	registry := NewRedisRegistry(rdb, clk)
	ctx := context.Background()

	stockID := testStockID("redis-promote")

	for i, userID := range []string{"user-1", "user-2", "user-3"} {
		clk.Advance(time.Duration(i) * time.Millisecond)
		if _, err := registry.Enter(ctx, stockID, userID); err != nil {
			t.Fatalf("enter %s: %v", userID, err)
		}
	}

	deadline := clk.Now().Add(time.Minute)
	promoted, err := registry.Promote(ctx, stockID, 2, deadline)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if len(promoted) != 2 || promoted[0] != "user-1" || promoted[1] != "user-2" {
		t.Fatalf("expected user-1 and user-2 promoted, got %v", promoted)
	}

	count, err := registry.AdmittedCount(ctx, stockID)
	if err != nil {
		t.Fatalf("admitted count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 admitted, got %d", count)
	}

	info, err := registry.Status(ctx, stockID, "user-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !info.CanEnter {
		t.Fatal("expected user-1 to be admitted")
	}

	if err := registry.Consume(ctx, stockID, "user-1"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := registry.Consume(ctx, stockID, "user-1"); !errors.Is(err, domain.ErrNotAdmitted) {
		t.Fatalf("expected ErrNotAdmitted on second consume, got %v", err)
	}
	if err := registry.Consume(ctx, stockID, "user-3"); !errors.Is(err, domain.ErrNotAdmitted) {
		t.Fatalf("expected ErrNotAdmitted for waiting user, got %v", err)
	}
}

func TestRedisRegistryReapsOverdueAdmissions(t *testing.T) {
	rdb := newTestRedis(t)
	clk := clock.NewManual(time.Now())
	registry := NewRedisRegistry(rdb, clk)
	ctx := context.Background()

	stockID := testStockID("redis-reap")

	if _, err := registry.Enter(ctx, stockID, "user-1"); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if _, err := registry.Promote(ctx, stockID, 1, clk.Now().Add(time.Second)); err != nil {
		t.Fatalf("promote: %v", err)
	}

	clk.Advance(2 * time.Second)

	removed, err := registry.Reap(ctx, stockID, clk.Now())
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 reaped, got %d", removed)
	}

	if err := registry.Consume(ctx, stockID, "user-1"); !errors.Is(err, domain.ErrNotAdmitted) {
		t.Fatalf("expected ErrNotAdmitted after reaping, got %v", err)
	}

	// The user may rejoin, now at the back of the line.
	info, err := registry.Enter(ctx, stockID, "user-1")
	if err != nil {
		t.Fatalf("re-enter: %v", err)
	}
	if info.Status != domain.StatusWaiting {
		t.Fatalf("expected WAITING after rejoin, got %s", info.Status)
	}
}

func TestRedisRegistryLeave(t *testing.T) {
	rdb := newTestRedis(t)
	clk := clock.NewManual(time.Now())
	registry := NewRedisRegistry(rdb, clk)
	ctx := context.Background()

	stockID := testStockID("redis-leave")

	if _, err := registry.Enter(ctx, stockID, "user-1"); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := registry.Leave(ctx, stockID, "user-1"); err != nil {
		t.Fatalf("leave: %v", err)
	}

	info, err := registry.Status(ctx, stockID, "user-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if info.Status != domain.StatusNotInQueue {
		t.Fatalf("expected NOT_IN_QUEUE after leaving, got %s", info.Status)
	}
}
