package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/worktime/internal/storage"
)

type adjustmentStore struct {
	c redis.Cmdable
}

func (s *adjustmentStore) Create(ctx context.Context, adj *storage.Adjustment) error {
	keys := []string{adjKey(adj.ID), adjIndex(adj.EraID)}
	args := []interface{}{adj.ID, adj.EraID, adj.Mode, adj.Delta, adj.Timestamp}
	return s.c.Eval(ctx, createAdjustmentScript, keys, args...).Err()
}

func (s *adjustmentStore) ListSince(ctx context.Context, eraID string, cutoff int64) ([]storage.Adjustment, error) {
	min := "-inf"
	if cutoff > 0 {
		min = strconv.FormatInt(cutoff, 10)
	}
	ids, err := s.c.ZRangeByScore(ctx, adjIndex(eraID), &redis.ZRangeBy{Min: min, Max: "+inf"}).Result()
	if err != nil {
		return nil, err
	}

	adjs := make([]storage.Adjustment, 0, len(ids))
	for _, id := range ids {
		data, err := s.c.HGetAll(ctx, adjKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		adj, err := parseAdjustment(data)
		if err != nil {
			return nil, err
		}
		adjs = append(adjs, *adj)
	}
	return adjs, nil
}

func parseAdjustment(data map[string]string) (*storage.Adjustment, error) {
	delta, err := strconv.ParseInt(data["delta"], 10, 64)
	if err != nil {
		return nil, err
	}
	ts, err := strconv.ParseInt(data["timestamp"], 10, 64)
	if err != nil {
		return nil, err
	}
	return &storage.Adjustment{
		ID:        data["id"],
		EraID:     data["era_id"],
		Mode:      data["mode"],
		Delta:     delta,
		Timestamp: ts,
	}, nil
}
