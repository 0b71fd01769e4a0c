package domain

import "errors"

var (
	ErrInsufficientStock     = errors.New("not enough tickets available")
	ErrNotAdmitted           = errors.New("user is not admitted for purchase")
	ErrNotFound              = errors.New("ticket stock not found")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrDuplicateRegistration = errors.New("user already registered in queue")
	ErrTooManyRetries        = errors.New("too many retries")
)
