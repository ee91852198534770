package repository

import "github.com/okian/weatheroracle/pkg/logger"

// Option applies a configuration option to the BlockStore.
type Option func(*BlockStore)

// WithCapacity sets how many blocks are retained.
func WithCapacity(n int) Option {
	return func(s *BlockStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// RedisOption applies a configuration option to the RedisState.
type RedisOption func(*RedisState)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisState) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisLogger sets the logger.
func WithRedisLogger(l logger.Logger) RedisOption {
	return func(s *RedisState) {
		if l != nil {
			s.log = l
		}
	}
}
