package geo

import "errors"

var (
	ErrNotDecimal = errors.New("not a decimal number")
	ErrOutOfRange = errors.New("does not fit scaled storage")
	ErrMalformed  = errors.New("malformed scaled coordinates")
)
