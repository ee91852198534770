package fixedpoint

import "errors"

var (
	// ErrEncode reports a value that does not fit the fraction.
	ErrEncode = errors.New("fixedpoint: value out of range")
	// ErrDecode reports malformed encoded bytes.
	ErrDecode = errors.New("fixedpoint: malformed encoding")
)
