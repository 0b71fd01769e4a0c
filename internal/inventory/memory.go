package inventory

import (
	"context"
	"sync"

	"github.com/f-lab-edu/ticketing-platform/internal/domain"
)

// MemoryStore keeps stock counters in process. Each ticket stock serializes
// its check-and-decrement behind its own mutex so distinct stocks never
// contend with each other.
type MemoryStore struct {
	mu     sync.RWMutex
	stocks map[string]*memStock
}

type memStock struct {
	mu    sync.Mutex
	stock domain.TicketStock
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stocks: make(map[string]*memStock)}
}

func (s *MemoryStore) Reserve(ctx context.Context, ticketStockID string, quantity int) (int, error) {
	entry, err := s.get(ticketStockID)
	if err != nil {
		return 0, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := entry.stock.Decrease(quantity); err != nil {
		return entry.stock.RemainingQuantity, err
	}
	return entry.stock.RemainingQuantity, nil
}

func (s *MemoryStore) Remaining(ctx context.Context, ticketStockID string) (int, error) {
	entry, err := s.get(ticketStockID)
	if err != nil {
		return 0, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.stock.RemainingQuantity, nil
}

func (s *MemoryStore) SetStock(ctx context.Context, ticketStockID string, totalQuantity int) error {
	stock, err := domain.NewTicketStock(ticketStockID, totalQuantity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.stocks[ticketStockID]; ok {
		existing.mu.Lock()
		existing.stock = stock
		existing.mu.Unlock()
		return nil
	}
	s.stocks[ticketStockID] = &memStock{stock: stock}
	return nil
}

func (s *MemoryStore) get(ticketStockID string) (*memStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.stocks[ticketStockID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}
