package chain

import "github.com/okian/weatheroracle/pkg/logger"

// Option configures a Runtime.
type Option func(*Runtime)

// WithModule registers m. Modules initialize in registration order.
func WithModule(m Module) Option {
	return func(r *Runtime) {
		if _, dup := r.modules[m.Name()]; dup {
			return
		}
		r.modules[m.Name()] = m
		r.order = append(r.order, m)
	}
}

// WithLogger sets the runtime logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.log = l
		}
	}
}
