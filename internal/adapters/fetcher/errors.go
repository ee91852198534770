package fetcher

import "errors"

var (
	// ErrFetch wraps transport, status and body shape failures.
	// Quantization failures wrap fixedpoint.ErrEncode instead.
	ErrFetch = errors.New("fetch failed")

	ErrStatus         = errors.New("unexpected status")
	ErrMissingLat     = errors.New("could not fetch latitude")
	ErrMissingLong    = errors.New("could not fetch longitude")
	ErrMissingCurrent = errors.New("response has no current_weather")
)
