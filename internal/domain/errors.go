package domain

import "errors"

// Error kinds returned by the core. Callers classify with errors.Is and map
// them onto their own protocol.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCapacityExceeded  = errors.New("no seats available")
	ErrDuplicateBooking  = errors.New("booking already exists")
	ErrPastDeparture     = errors.New("flight has already departed")
	ErrBusinessRule      = errors.New("business rule violation")
	ErrInternal          = errors.New("internal failure")
)
