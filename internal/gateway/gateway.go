// Package gateway is the purchase entry point. Both paths end at the
// inventory store; the queue-gated path additionally spends the caller's
// admission before touching stock.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/lucsky/cuid"

	"github.com/f-lab-edu/ticketing-platform/internal/domain"
	"github.com/f-lab-edu/ticketing-platform/internal/events"
	"github.com/f-lab-edu/ticketing-platform/internal/inventory"
	"github.com/f-lab-edu/ticketing-platform/internal/queue"
)

type PurchaseResult struct {
	TicketStockID    string
	UserID           string
	Quantity         int
	Remaining        int
	OrderReferenceID string
}

type Service struct {
	store     inventory.Store
	registry  queue.Registry
	publisher *events.Publisher
}

func NewService(store inventory.Store, registry queue.Registry, publisher *events.Publisher) *Service {
	return &Service{
		store:     store,
		registry:  registry,
		publisher: publisher,
	}
}

// DirectPurchase reserves stock with no identity or ordering requirement.
func (s *Service) DirectPurchase(ctx context.Context, ticketStockID string, quantity int) (PurchaseResult, error) {
	if quantity <= 0 {
		return PurchaseResult{}, fmt.Errorf("%w: requestQuantity must be positive", domain.ErrInvalidRequest)
	}

	remaining, err := s.store.Reserve(ctx, ticketStockID, quantity)
	if err != nil {
		return PurchaseResult{Remaining: remaining}, err
	}

	result := PurchaseResult{
		TicketStockID:    ticketStockID,
		Quantity:         quantity,
		Remaining:        remaining,
		OrderReferenceID: newOrderReferenceID(),
	}

	go s.publisher.PublishOrderCreated(events.OrderCreatedMessage{
		TicketStockID:    ticketStockID,
		Quantity:         quantity,
		OrderReferenceID: result.OrderReferenceID,
		Direct:           true,
	})

	return result, nil
}

// QueuedPurchase requires an unexpired admission. Consuming the admission
// first makes retries settle to exactly one reservation: the first call
// spends the entry, any concurrent or later call fails with ErrNotAdmitted.
// When the reservation then finds the stock sold out, the admission stays
// spent so the slot is freed immediately for no one (further admission is
// pointless for an empty stock; the user may re-enter the queue).
func (s *Service) QueuedPurchase(ctx context.Context, ticketStockID, userID string, quantity int) (PurchaseResult, error) {
	if userID == "" || quantity <= 0 {
		return PurchaseResult{}, fmt.Errorf("%w: userId and a positive requestQuantity are required", domain.ErrInvalidRequest)
	}

	if err := s.registry.Consume(ctx, ticketStockID, userID); err != nil {
		return PurchaseResult{}, err
	}

	remaining, err := s.store.Reserve(ctx, ticketStockID, quantity)
	if err != nil {
		return PurchaseResult{Remaining: remaining}, err
	}

	result := PurchaseResult{
		TicketStockID:    ticketStockID,
		UserID:           userID,
		Quantity:         quantity,
		Remaining:        remaining,
		OrderReferenceID: newOrderReferenceID(),
	}

	go s.publisher.PublishOrderCreated(events.OrderCreatedMessage{
		TicketStockID:    ticketStockID,
		UserID:           userID,
		Quantity:         quantity,
		OrderReferenceID: result.OrderReferenceID,
	})

	return result, nil
}

func newOrderReferenceID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), cuid.New())
}
