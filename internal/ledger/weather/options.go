package weather

import "github.com/okian/weatheroracle/pkg/logger"

type options struct {
	log logger.Logger
}

// Option configures a Module.
type Option func(*options)

// WithLogger sets the module logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
