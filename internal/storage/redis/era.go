package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/worktime/internal/storage"
)

type eraStore struct {
	c redis.Cmdable
}

func (s *eraStore) Create(ctx context.Context, era *storage.Era) error {
	keys := []string{eraKey(era.ID), eraUserIndex(era.UserID)}
	args := []interface{}{era.ID, era.UserID, era.Description, era.CreatedAt}
	return s.c.Eval(ctx, createEraScript, keys, args...).Err()
}

func (s *eraStore) Get(ctx context.Context, id string) (*storage.Era, error) {
	data, err := s.c.HGetAll(ctx, eraKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}
	era, err := parseEra(data)
	if err != nil {
		return nil, err
	}
	currentID, err := s.c.Get(ctx, eraCurrentKey(era.UserID)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	era.Current = currentID == era.ID
	return era, nil
}

func (s *eraStore) List(ctx context.Context, userID string) ([]storage.Era, error) {
	ids, err := s.c.ZRange(ctx, eraUserIndex(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	currentID, err := s.c.Get(ctx, eraCurrentKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	eras := make([]storage.Era, 0, len(ids))
	for _, id := range ids {
		data, err := s.c.HGetAll(ctx, eraKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		era, err := parseEra(data)
		if err != nil {
			return nil, err
		}
		era.Current = era.ID == currentID
		eras = append(eras, *era)
	}
	return eras, nil
}

func (s *eraStore) Current(ctx context.Context, userID string) (*storage.Era, error) {
	id, err := s.c.Get(ctx, eraCurrentKey(userID)).Result()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	data, err := s.c.HGetAll(ctx, eraKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}
	era, err := parseEra(data)
	if err != nil {
		return nil, err
	}
	era.Current = true
	return era, nil
}

func (s *eraStore) SetCurrent(ctx context.Context, userID, eraID string) error {
	return s.c.Set(ctx, eraCurrentKey(userID), eraID, 0).Err()
}

func parseEra(data map[string]string) (*storage.Era, error) {
	createdAt, err := strconv.ParseInt(data["created_at"], 10, 64)
	if err != nil {
		return nil, err
	}
	return &storage.Era{
		ID:          data["id"],
		UserID:      data["user_id"],
		Description: data["description"],
		CreatedAt:   createdAt,
	}, nil
}
