package author

import "errors"

// Sentinel kinds for skipped slots.
var (
	ErrProvide        = errors.New("inherent data unavailable")
	ErrInherentApply  = errors.New("inherent failed to apply")
	ErrInherentCheck  = errors.New("inherent check failed")
	ErrImport         = errors.New("block import failed")
	ErrAlreadyStarted = errors.New("author already started")
)
