package floor

import "errors"

var (
	ErrInvalidSlipStatus  = errors.New("invalid slip status")
	ErrInvalidTableStatus = errors.New("invalid table status")
	ErrInvalidTransition  = errors.New("invalid transition")

	ErrTableNotActive    = errors.New("table is not active")
	ErrTableHasOpenSlips = errors.New("table has non-terminal slips")
	ErrVisitHasOpenSlips = errors.New("visit has non-terminal slips")
	ErrSeatOutOfRange    = errors.New("seat number out of range")

	ErrSeatConflict           = errors.New("seat already occupied")
	ErrIdempotencyKeyConflict = errors.New("idempotency key reused with a different request")

	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
)
