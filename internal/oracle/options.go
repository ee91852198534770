package oracle

import "github.com/okian/weatheroracle/pkg/logger"

type options struct {
	log logger.Logger
}

// Option configures a Resolver or Provider.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
