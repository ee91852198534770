package inherent

import "errors"

// ErrDuplicateIdentifier is returned by Data.Put for a key already present.
var ErrDuplicateIdentifier = errors.New("inherent data already exists for identifier")
