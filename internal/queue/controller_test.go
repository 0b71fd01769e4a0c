package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/f-lab-edu/ticketing-platform/internal/clock"
	"github.com/f-lab-edu/ticketing-platform/internal/inventory"
)

func newTestController(t *testing.T, ceiling int, coupled bool) (*Controller, *MemoryRegistry, *inventory.MemoryStore, *clock.Manual) {
	t.Helper()

	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	registry := NewMemoryRegistry(clk)
	store := inventory.NewMemoryStore()

	controller := NewController(registry, store, clk, ControllerConfig{
		Ceiling:       ceiling,
		Grace:         time.Minute,
		Tick:          10 * time.Millisecond,
		CoupleToStock: coupled,
	})
	return controller, registry, store, clk
}

func enterUsers(t *testing.T, registry Registry, ticketStockID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := registry.Enter(context.Background(), ticketStockID, fmt.Sprintf("user-%d", i)); err != nil {
			t.Fatalf("enter: %v", err)
		}
	}
}

func TestControllerCeiling(t *testing.T) {
	ctx := context.Background()

	t.Run("admits up to the ceiling", func(t *testing.T) {
		controller, registry, store, _ := newTestController(t, 3, true)
		if err := store.SetStock(ctx, "stock-1", 100); err != nil {
			t.Fatalf("set stock: %v", err)
		}
		enterUsers(t, registry, "stock-1", 10)

		admitted, err := controller.TickStock(ctx, "stock-1")
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
		if len(admitted) != 3 {
			t.Fatalf("expected 3 admitted, got %d", len(admitted))
		}

		count, _ := registry.AdmittedCount(ctx, "stock-1")
		if count != 3 {
			t.Fatalf("expected admitted count 3, got %d", count)
		}
	})

	t.Run("full ceiling is a no-op cycle", func(t *testing.T) {
		controller, registry, store, _ := newTestController(t, 3, true)
		if err := store.SetStock(ctx, "stock-1", 100); err != nil {
			t.Fatalf("set stock: %v", err)
		}
		enterUsers(t, registry, "stock-1", 10)

		if _, err := controller.TickStock(ctx, "stock-1"); err != nil {
			t.Fatalf("tick: %v", err)
		}
		admitted, err := controller.TickStock(ctx, "stock-1")
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
		if len(admitted) != 0 {
			t.Fatalf("expected no further admissions, got %d", len(admitted))
		}
	})

	t.Run("ceiling holds under concurrent ticks", func(t *testing.T) {
		controller, registry, store, _ := newTestController(t, 5, true)
		if err := store.SetStock(ctx, "stock-1", 100); err != nil {
			t.Fatalf("set stock: %v", err)
		}
		enterUsers(t, registry, "stock-1", 50)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = controller.TickStock(ctx, "stock-1")
			}()
		}
		wg.Wait()

		count, _ := registry.AdmittedCount(ctx, "stock-1")
		if count > 5 {
			t.Fatalf("admitted count %d exceeds ceiling 5", count)
		}
	})
}

func TestControllerStockCoupling(t *testing.T) {
	ctx := context.Background()

	t.Run("admissions capped by remaining inventory", func(t *testing.T) {
		controller, registry, store, _ := newTestController(t, 10, true)
		if err := store.SetStock(ctx, "stock-1", 2); err != nil {
			t.Fatalf("set stock: %v", err)
		}
		enterUsers(t, registry, "stock-1", 10)

		admitted, err := controller.TickStock(ctx, "stock-1")
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
		if len(admitted) != 2 {
			t.Fatalf("expected 2 admitted with 2 tickets left, got %d", len(admitted))
		}
	})

	t.Run("sold out stops admission", func(t *testing.T) {
		controller, registry, store, _ := newTestController(t, 10, true)
		if err := store.SetStock(ctx, "stock-1", 1); err != nil {
			t.Fatalf("set stock: %v", err)
		}
		if _, err := store.Reserve(ctx, "stock-1", 1); err != nil {
			t.Fatalf("reserve: %v", err)
		}
		enterUsers(t, registry, "stock-1", 5)

		admitted, err := controller.TickStock(ctx, "stock-1")
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
		if len(admitted) != 0 {
			t.Fatalf("expected no admissions for a sold-out stock, got %d", len(admitted))
		}
	})

	t.Run("unknown stock admits no one when coupled", func(t *testing.T) {
		controller, registry, _, _ := newTestController(t, 10, true)
		enterUsers(t, registry, "ghost-stock", 5)

		admitted, err := controller.TickStock(ctx, "ghost-stock")
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
		if len(admitted) != 0 {
			t.Fatalf("expected no admissions for an unknown stock, got %d", len(admitted))
		}
	})

	t.Run("uncoupled controller ignores inventory", func(t *testing.T) {
		controller, registry, store, _ := newTestController(t, 10, false)
		if err := store.SetStock(ctx, "stock-1", 1); err != nil {
			t.Fatalf("set stock: %v", err)
		}
		if _, err := store.Reserve(ctx, "stock-1", 1); err != nil {
			t.Fatalf("reserve: %v", err)
		}
		enterUsers(t, registry, "stock-1", 5)

		admitted, err := controller.TickStock(ctx, "stock-1")
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
		if len(admitted) != 5 {
			t.Fatalf("expected 5 admitted regardless of stock, got %d", len(admitted))
		}
	})
}

// An admitted user who never purchases loses the slot after the grace
// deadline and the next waiting user takes it.
func TestControllerExpiryFreesSlot(t *testing.T) {
	ctx := context.Background()
	controller, registry, store, clk := newTestController(t, 1, true)
	if err := store.SetStock(ctx, "stock-1", 10); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	enterUsers(t, registry, "stock-1", 2)

	admitted, err := controller.TickStock(ctx, "stock-1")
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(admitted) != 1 || admitted[0] != "user-0" {
		t.Fatalf("expected user-0 admitted first, got %v", admitted)
	}

	// Before the deadline the slot is taken.
	admitted, err = controller.TickStock(ctx, "stock-1")
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(admitted) != 0 {
		t.Fatalf("expected no admissions while slot held, got %v", admitted)
	}

	clk.Advance(2 * time.Minute)

	admitted, err = controller.TickStock(ctx, "stock-1")
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(admitted) != 1 || admitted[0] != "user-1" {
		t.Fatalf("expected user-1 admitted after expiry, got %v", admitted)
	}
}

func TestControllerTickAllCoversActiveStocks(t *testing.T) {
	ctx := context.Background()
	controller, registry, store, _ := newTestController(t, 2, true)

	for _, stockID := range []string{"stock-a", "stock-b"} {
		if err := store.SetStock(ctx, stockID, 10); err != nil {
			t.Fatalf("set stock: %v", err)
		}
		if _, err := registry.Enter(ctx, stockID, "user-1"); err != nil {
			t.Fatalf("enter: %v", err)
		}
	}

	controller.TickAll(ctx)

	for _, stockID := range []string{"stock-a", "stock-b"} {
		count, _ := registry.AdmittedCount(ctx, stockID)
		if count != 1 {
			t.Fatalf("stock %s: expected 1 admitted, got %d", stockID, count)
		}
	}
}
