// Package queue implements the virtual waiting room: a per-ticket-stock FIFO
// line of registered users and the admission controller that promotes a
// bounded number of them to the purchase-eligible state.
package queue

import (
	"context"
	"time"

	"github.com/f-lab-edu/ticketing-platform/internal/domain"
)

// Registry tracks queue entries per ticket stock. Implementations must keep
// distinct ticket stocks independent and make Status cheap, since polling
// dominates traffic.
type Registry interface {
	// Enter registers the user in the waiting line. Re-entering while
	// WAITING or ADMITTED is idempotent and returns the current state;
	// EXPIRED and CONSUMED users rejoin at the back of the line.
	Enter(ctx context.Context, ticketStockID, userID string) (domain.QueueInfo, error)

	// Status reports the user's position and admission eligibility.
	// Unknown users get NOT_IN_QUEUE rather than an error.
	Status(ctx context.Context, ticketStockID, userID string) (domain.QueueInfo, error)

	// Promote flips up to n of the oldest WAITING entries to ADMITTED,
	// stamping the given grace deadline, and returns the admitted users.
	Promote(ctx context.Context, ticketStockID string, n int, deadline time.Time) ([]string, error)

	// Reap expires ADMITTED entries whose deadline has passed, freeing
	// their admission slots. Returns how many were reclaimed.
	Reap(ctx context.Context, ticketStockID string, now time.Time) (int, error)

	// Consume transitions an ADMITTED entry to CONSUMED exactly once after
	// a successful purchase. Any other state fails with ErrNotAdmitted.
	Consume(ctx context.Context, ticketStockID, userID string) error

	// Release immediately expires an ADMITTED entry, freeing its slot
	// without waiting for the deadline (purchase hit a sold-out stock).
	Release(ctx context.Context, ticketStockID, userID string) error

	// Leave removes the user from the waiting room entirely.
	Leave(ctx context.Context, ticketStockID, userID string) error

	// AdmittedCount is the number of currently admitted, unconsumed users.
	AdmittedCount(ctx context.Context, ticketStockID string) (int, error)

	// WaitingUsers lists waiting user ids in admission order.
	WaitingUsers(ctx context.Context, ticketStockID string) ([]string, error)

	// ActiveStocks lists ticket stocks with registered queue activity.
	ActiveStocks(ctx context.Context) ([]string, error)
}
