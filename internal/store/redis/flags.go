package redis

import (
	"context"

	goredis "github.com/go-redis/redis/v8"
)

// flagsKey is the hash operators toggle via redis-cli, e.g.
// HSET console:flags live_orders 1.
const flagsKey = "console:flags"

// FlagStore reads operator feature flags. A missing flag is disabled.
type FlagStore struct {
	client *goredis.Client
}

// NewFlagStore wraps an existing client.
func NewFlagStore(client *goredis.Client) *FlagStore {
	return &FlagStore{client: client}
}

// Enabled reports whether the named flag is set to "1" or "true".
func (s *FlagStore) Enabled(ctx context.Context, name string) (bool, error) {
	v, err := s.client.HGet(ctx, flagsKey, name).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1" || v == "true", nil
}
