package oracle

import "errors"

var (
	// ErrResolve means neither an order nor geolocation produced coordinates.
	ErrResolve = errors.New("could not resolve coordinates")
	// ErrInherent is the fatal error TryHandleError reports.
	ErrInherent = errors.New("weather inherent failed")
)
