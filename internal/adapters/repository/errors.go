package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("block not found")
	ErrNotSequential = errors.New("block does not extend the best block")
	ErrBackend       = errors.New("state backend failure")
)
