package queue

import "errors"

// Sentinel kinds for pool errors.
var (
	ErrFull   = errors.New("transaction pool full")
	ErrClosed = errors.New("transaction pool closed")
)
