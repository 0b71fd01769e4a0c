// Package inventory owns remaining ticket quantities. Reserve is the only
// mutation on the purchase path and is all-or-nothing: the sum of successful
// reservations never exceeds the stocked total.
package inventory

import "context"

type Store interface {
	// Reserve atomically decrements the stock by quantity and returns the
	// remaining count. Fails with domain.ErrInsufficientStock without any
	// partial decrement when not enough units are left.
	Reserve(ctx context.Context, ticketStockID string, quantity int) (remaining int, err error)

	// Remaining reports the current remaining quantity.
	Remaining(ctx context.Context, ticketStockID string) (int, error)

	// SetStock creates or restocks a ticket stock to the given total.
	SetStock(ctx context.Context, ticketStockID string, totalQuantity int) error
}
