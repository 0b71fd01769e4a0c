package queue

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/f-lab-edu/ticketing-platform/internal/clock"
	"github.com/f-lab-edu/ticketing-platform/internal/domain"
	"github.com/f-lab-edu/ticketing-platform/internal/inventory"
)

// ControllerConfig tunes the admission controller. Ceiling bounds how many
// users may hold an unconsumed admission per ticket stock; Grace is how long
// an admitted user may stay idle before the slot is reclaimed.
type ControllerConfig struct {
	Ceiling       int
	Grace         time.Duration
	Tick          time.Duration
	CoupleToStock bool
}

// Controller promotes waiting users on a fixed cadence. Every tick it reaps
// overdue admissions, then admits `ceiling - admittedCount` of the oldest
// waiting users, optionally capped by remaining inventory so a sold-out stock
// stops admitting.
type Controller struct {
	registry Registry
	store    inventory.Store
	clock    clock.Clock
	cfg      ControllerConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewController(registry Registry, store inventory.Store, clk clock.Clock, cfg ControllerConfig) *Controller {
	return &Controller{
		registry: registry,
		store:    store,
		clock:    clk,
		cfg:      cfg,
		locks:    make(map[string]*sync.Mutex),
	}
}

// stockLock serializes admission cycles per ticket stock so overlapping
// ticks never read the same admitted count and double-admit.
func (c *Controller) stockLock(ticketStockID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[ticketStockID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[ticketStockID] = lock
	}
	return lock
}

// Run ticks until the context is cancelled. Stocks are ticked concurrently so
// one stock's promotion never delays another's.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.TickAll(ctx)
		}
	}
}

// TickAll runs one admission cycle for every active ticket stock.
func (c *Controller) TickAll(ctx context.Context) {
	stocks, err := c.registry.ActiveStocks(ctx)
	if err != nil {
		log.Printf("Failed to list active queues: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, ticketStockID := range stocks {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := c.TickStock(ctx, id); err != nil {
				log.Printf("Admission tick failed for stock %s: %v", id, err)
			}
		}(ticketStockID)
	}
	wg.Wait()
}

// TickStock runs one admission cycle for a single ticket stock and returns
// the users admitted this cycle. A stock with no waiting users and no ceiling
// pressure is a no-op.
func (c *Controller) TickStock(ctx context.Context, ticketStockID string) ([]string, error) {
	lock := c.stockLock(ticketStockID)
	lock.Lock()
	defer lock.Unlock()

	now := c.clock.Now()

	if _, err := c.registry.Reap(ctx, ticketStockID, now); err != nil {
		return nil, err
	}

	admittedCount, err := c.registry.AdmittedCount(ctx, ticketStockID)
	if err != nil {
		return nil, err
	}

	toAdmit := c.cfg.Ceiling - admittedCount
	if toAdmit <= 0 {
		return nil, nil
	}

	if c.cfg.CoupleToStock {
		remaining, err := c.store.Remaining(ctx, ticketStockID)
		if errors.Is(err, domain.ErrNotFound) {
			// Queue for a stock that was never created; nothing to sell,
			// nothing to admit.
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if remaining < toAdmit {
			toAdmit = remaining
		}
		if toAdmit <= 0 {
			return nil, nil
		}
	}

	return c.registry.Promote(ctx, ticketStockID, toAdmit, now.Add(c.cfg.Grace))
}
