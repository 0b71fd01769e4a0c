package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/f-lab-edu/ticketing-platform/internal/clock"
	"github.com/f-lab-edu/ticketing-platform/internal/domain"
)

// MemoryRegistry keeps the waiting room in process. Each ticket stock has its
// own lock; ties on enqueue time are broken by a per-stock insertion sequence
// so admission order is deterministic.
type MemoryRegistry struct {
	mu     sync.RWMutex
	stocks map[string]*memQueue
	clock  clock.Clock
}

type memQueue struct {
	mu      sync.Mutex
	nextSeq int64
	waiting []*memEntry // ascending seq, FIFO
	entries map[string]*memEntry
}

type memEntry struct {
	userID     string
	seq        int64
	enqueuedAt time.Time
	state      domain.EntryState
	admittedAt time.Time
	deadline   time.Time
}

func NewMemoryRegistry(clk clock.Clock) *MemoryRegistry {
	return &MemoryRegistry{
		stocks: make(map[string]*memQueue),
		clock:  clk,
	}
}

func (r *MemoryRegistry) Enter(ctx context.Context, ticketStockID, userID string) (domain.QueueInfo, error) {
	if userID == "" {
		return domain.QueueInfo{}, domain.ErrInvalidRequest
	}

	q := r.stock(ticketStockID)
	q.mu.Lock()
	defer q.mu.Unlock()

	now := r.clock.Now()
	if entry, ok := q.entries[userID]; ok {
		switch entry.state {
		case domain.StateWaiting:
			return q.infoLocked(ticketStockID, entry, now), nil
		case domain.StateAdmitted:
			if now.Before(entry.deadline) {
				return q.infoLocked(ticketStockID, entry, now), nil
			}
			entry.state = domain.StateExpired
		}
		// EXPIRED and CONSUMED fall through and rejoin at the back.
	}

	entry := &memEntry{
		userID:     userID,
		seq:        q.nextSeq,
		enqueuedAt: now,
		state:      domain.StateWaiting,
	}
	q.nextSeq++
	q.waiting = append(q.waiting, entry)
	q.entries[userID] = entry

	return q.infoLocked(ticketStockID, entry, now), nil
}

func (r *MemoryRegistry) Status(ctx context.Context, ticketStockID, userID string) (domain.QueueInfo, error) {
	q := r.stock(ticketStockID)
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[userID]
	if !ok {
		return domain.QueueInfo{
			UserID:        userID,
			TicketStockID: ticketStockID,
			Status:        domain.StatusNotInQueue,
		}, nil
	}
	return q.infoLocked(ticketStockID, entry, r.clock.Now()), nil
}

func (r *MemoryRegistry) Promote(ctx context.Context, ticketStockID string, n int, deadline time.Time) ([]string, error) {
	q := r.stock(ticketStockID)
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.waiting) {
		n = len(q.waiting)
	}
	if n <= 0 {
		return nil, nil
	}

	now := r.clock.Now()
	admitted := make([]string, 0, n)
	for _, entry := range q.waiting[:n] {
		entry.state = domain.StateAdmitted
		entry.admittedAt = now
		entry.deadline = deadline
		admitted = append(admitted, entry.userID)
	}
	q.waiting = q.waiting[n:]

	return admitted, nil
}

func (r *MemoryRegistry) Reap(ctx context.Context, ticketStockID string, now time.Time) (int, error) {
	q := r.stock(ticketStockID)
	q.mu.Lock()
	defer q.mu.Unlock()

	reaped := 0
	for _, entry := range q.entries {
		if entry.state == domain.StateAdmitted && !now.Before(entry.deadline) {
			entry.state = domain.StateExpired
			reaped++
		}
	}
	return reaped, nil
}

func (r *MemoryRegistry) Consume(ctx context.Context, ticketStockID, userID string) error {
	q := r.stock(ticketStockID)
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[userID]
	if !ok || entry.state != domain.StateAdmitted {
		return domain.ErrNotAdmitted
	}
	if !r.clock.Now().Before(entry.deadline) {
		entry.state = domain.StateExpired
		return domain.ErrNotAdmitted
	}
	entry.state = domain.StateConsumed
	return nil
}

func (r *MemoryRegistry) Release(ctx context.Context, ticketStockID, userID string) error {
	q := r.stock(ticketStockID)
	q.mu.Lock()
	defer q.mu.Unlock()

	if entry, ok := q.entries[userID]; ok && entry.state == domain.StateAdmitted {
		entry.state = domain.StateExpired
	}
	return nil
}

func (r *MemoryRegistry) Leave(ctx context.Context, ticketStockID, userID string) error {
	q := r.stock(ticketStockID)
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[userID]
	if !ok {
		return nil
	}
	if entry.state == domain.StateWaiting {
		idx := q.rankLocked(entry.seq)
		if idx >= 0 {
			q.waiting = append(q.waiting[:idx], q.waiting[idx+1:]...)
		}
	}
	delete(q.entries, userID)
	return nil
}

func (r *MemoryRegistry) AdmittedCount(ctx context.Context, ticketStockID string) (int, error) {
	q := r.stock(ticketStockID)
	q.mu.Lock()
	defer q.mu.Unlock()

	count := 0
	for _, entry := range q.entries {
		if entry.state == domain.StateAdmitted {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRegistry) WaitingUsers(ctx context.Context, ticketStockID string) ([]string, error) {
	q := r.stock(ticketStockID)
	q.mu.Lock()
	defer q.mu.Unlock()

	users := make([]string, len(q.waiting))
	for i, entry := range q.waiting {
		users[i] = entry.userID
	}
	return users, nil
}

func (r *MemoryRegistry) ActiveStocks(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stocks := make([]string, 0, len(r.stocks))
	for id := range r.stocks {
		stocks = append(stocks, id)
	}
	sort.Strings(stocks)
	return stocks, nil
}

func (r *MemoryRegistry) stock(ticketStockID string) *memQueue {
	r.mu.RLock()
	q, ok := r.stocks[ticketStockID]
	r.mu.RUnlock()
	if ok {
		return q
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.stocks[ticketStockID]; ok {
		return q
	}
	q = &memQueue{entries: make(map[string]*memEntry)}
	r.stocks[ticketStockID] = q
	return q
}

// rankLocked finds the waiting index of the entry with the given seq via
// binary search; the waiting slice is always sorted by seq.
func (q *memQueue) rankLocked(seq int64) int {
	idx := sort.Search(len(q.waiting), func(i int) bool {
		return q.waiting[i].seq >= seq
	})
	if idx < len(q.waiting) && q.waiting[idx].seq == seq {
		return idx
	}
	return -1
}

func (q *memQueue) infoLocked(ticketStockID string, entry *memEntry, now time.Time) domain.QueueInfo {
	info := domain.QueueInfo{
		UserID:        entry.userID,
		TicketStockID: ticketStockID,
	}

	switch entry.state {
	case domain.StateWaiting:
		if idx := q.rankLocked(entry.seq); idx >= 0 {
			rank := int64(idx)
			info.Position = &rank
		}
	case domain.StateAdmitted:
		info.CanEnter = now.Before(entry.deadline)
		if info.CanEnter {
			info.Deadline = entry.deadline
		}
	}

	info.Status = domain.DetermineStatus(info.Position, info.CanEnter)
	return info
}
