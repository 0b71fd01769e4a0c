package domain

import "time"

// EntryState is the lifecycle of a queue entry.
type EntryState string

const (
	StateWaiting  EntryState = "WAITING"
	StateAdmitted EntryState = "ADMITTED"
	StateExpired  EntryState = "EXPIRED"
	StateConsumed EntryState = "CONSUMED"
)

// QueueStatus is what polling clients see.
type QueueStatus string

const (
	StatusWaiting    QueueStatus = "WAITING"
	StatusCanEnter   QueueStatus = "CAN_ENTER"
	StatusProcessing QueueStatus = "PROCESSING"
	StatusNotInQueue QueueStatus = "NOT_IN_QUEUE"
)

// DetermineStatus maps a waiting position (nil when not waiting) and
// admission eligibility to the client-facing status.
func DetermineStatus(position *int64, canEnter bool) QueueStatus {
	switch {
	case position == nil && canEnter:
		return StatusProcessing
	case position == nil:
		return StatusNotInQueue
	case canEnter:
		return StatusCanEnter
	default:
		return StatusWaiting
	}
}

// QueueInfo is the snapshot returned by enter and status. Position is the
// 0-based count of waiting users strictly ahead; nil when the user is not in
// the waiting line.
type QueueInfo struct {
	UserID        string
	TicketStockID string
	Position      *int64
	CanEnter      bool
	Status        QueueStatus
	Deadline      time.Time // admission grace deadline, zero unless admitted
}
