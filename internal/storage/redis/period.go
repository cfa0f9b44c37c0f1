package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/worktime/internal/storage"
)

type periodStore struct {
	c redis.Cmdable
}

func (s *periodStore) Create(ctx context.Context, period *storage.Period) error {
	keys := []string{periodKey(period.ID), periodIndex(period.EraID), periodOpenKey(period.EraID)}
	args := []interface{}{period.ID, period.EraID, period.Mode, period.Start, period.End, period.PrevID}
	return s.c.Eval(ctx, createPeriodScript, keys, args...).Err()
}

func (s *periodStore) Get(ctx context.Context, id string) (*storage.Period, error) {
	data, err := s.c.HGetAll(ctx, periodKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}
	return parsePeriod(data)
}

func (s *periodStore) Open(ctx context.Context, eraID string) (*storage.Period, error) {
	id, err := s.c.Get(ctx, periodOpenKey(eraID)).Result()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *periodStore) Close(ctx context.Context, eraID, periodID string, end int64) error {
	keys := []string{periodKey(periodID), periodOpenKey(eraID)}
	args := []interface{}{periodID, end}
	return s.c.Eval(ctx, closePeriodScript, keys, args...).Err()
}

func (s *periodStore) ListEndingSince(ctx context.Context, eraID string, cutoff int64) ([]storage.Period, error) {
	// The index orders by start time; the end-time filter is applied
	// after the fetch since a period's end is not known at index time.
	ids, err := s.c.ZRange(ctx, periodIndex(eraID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	periods := make([]storage.Period, 0, len(ids))
	for _, id := range ids {
		data, err := s.c.HGetAll(ctx, periodKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		period, err := parsePeriod(data)
		if err != nil {
			return nil, err
		}
		if cutoff > 0 && !period.IsOpen() && period.End < cutoff {
			continue
		}
		periods = append(periods, *period)
	}
	return periods, nil
}

func parsePeriod(data map[string]string) (*storage.Period, error) {
	start, err := strconv.ParseInt(data["start"], 10, 64)
	if err != nil {
		return nil, err
	}
	end, err := strconv.ParseInt(data["end"], 10, 64)
	if err != nil {
		return nil, err
	}
	return &storage.Period{
		ID:     data["id"],
		EraID:  data["era_id"],
		Mode:   data["mode"],
		Start:  start,
		End:    end,
		PrevID: data["prev_id"],
	}, nil
}
