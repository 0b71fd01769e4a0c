package domain

import "fmt"

// TicketStock is a finite pool of purchasable units. RemainingQuantity never
// goes negative and only decreases through Decrease; SetStock is the explicit
// restock path.
type TicketStock struct {
	ID                string
	TotalQuantity     int
	RemainingQuantity int
}

func NewTicketStock(id string, total int) (TicketStock, error) {
	if total < 0 {
		return TicketStock{}, fmt.Errorf("%w: totalQuantity must be >= 0", ErrInvalidRequest)
	}
	return TicketStock{
		ID:                id,
		TotalQuantity:     total,
		RemainingQuantity: total,
	}, nil
}

func (t *TicketStock) Decrease(requestQuantity int) error {
	if requestQuantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	}
	if t.RemainingQuantity < requestQuantity {
		return ErrInsufficientStock
	}
	t.RemainingQuantity -= requestQuantity
	return nil
}
