package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/worktime/internal/storage"
)

type totalStore struct {
	c redis.Cmdable
}

func (s *totalStore) Get(ctx context.Context, eraID, mode string) (*storage.Total, error) {
	val, err := s.c.HGet(ctx, totalsKey(eraID), mode).Result()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	elapsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, err
	}
	return &storage.Total{EraID: eraID, Mode: mode, Elapsed: elapsed}, nil
}

func (s *totalStore) List(ctx context.Context, eraID string) ([]storage.Total, error) {
	data, err := s.c.HGetAll(ctx, totalsKey(eraID)).Result()
	if err != nil {
		return nil, err
	}
	totals := make([]storage.Total, 0, len(data))
	for mode, val := range data {
		elapsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return nil, err
		}
		totals = append(totals, storage.Total{EraID: eraID, Mode: mode, Elapsed: elapsed})
	}
	return totals, nil
}

// Increment relies on HINCRBY, which initializes an absent field to zero
// before applying the delta.
func (s *totalStore) Increment(ctx context.Context, eraID, mode string, delta int64) error {
	return s.c.HIncrBy(ctx, totalsKey(eraID), mode, delta).Err()
}
