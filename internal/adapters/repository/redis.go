package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/weatheroracle/internal/chain"
	"github.com/okian/weatheroracle/pkg/logger"
)

// RedisState keeps ledger state in Redis under a key prefix. Commits run in
// a MULTI/EXEC transaction.
type RedisState struct {
	client *redis.Client
	prefix string
	log    logger.Logger
}

// NewRedisState wraps client. It does not take ownership of connectivity
// checks; call Ping first if the caller needs one.
func NewRedisState(client *redis.Client, opts ...RedisOption) *RedisState {
	s := &RedisState{client: client, prefix: "weatheroracle", log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the connection.
func (s *RedisState) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return nil
}

func (s *RedisState) key(k string) string {
	return s.prefix + ":state:" + k
}

// Get reads key.
func (s *RedisState) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		s.log.Error(ctx, "state read failed", logger.String("key", key), logger.Error(err))
		return nil, false, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return data, true, nil
}

// Commit applies changes atomically.
func (s *RedisState) Commit(ctx context.Context, changes []chain.Change) error {
	if len(changes) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range changes {
			if c.Deleted {
				pipe.Del(ctx, s.key(c.Key))
				continue
			}
			pipe.Set(ctx, s.key(c.Key), c.Value, 0)
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "state commit failed", logger.Int("changes", len(changes)), logger.Error(err))
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	s.log.Debug(ctx, "state committed", logger.Int("changes", len(changes)))
	return nil
}

// Len counts keys under the prefix.
func (s *RedisState) Len(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, s.prefix+":state:*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return n, nil
}

// Close closes the client.
func (s *RedisState) Close() error {
	return s.client.Close()
}
