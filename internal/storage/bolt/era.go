package bolt

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/goodtune/worktime/internal/storage"
)

type eraStore struct {
	r runner
}

// Create stores an era and indexes it under its owning user.
func (s *eraStore) Create(ctx context.Context, era *storage.Era) error {
	return s.r.update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(era)
		if err != nil {
			return fmt.Errorf("marshal era: %w", err)
		}
		if err := tx.Bucket([]byte(bucketEras)).Put([]byte(era.ID), data); err != nil {
			return fmt.Errorf("put era: %w", err)
		}
		idx, err := tx.Bucket([]byte(bucketErasByUser)).CreateBucketIfNotExists(userKey(era.UserID))
		if err != nil {
			return fmt.Errorf("create user era index: %w", err)
		}
		return idx.Put(timeKey(era.CreatedAt, era.ID), []byte(era.ID))
	})
}

func (s *eraStore) Get(ctx context.Context, id string) (*storage.Era, error) {
	var era *storage.Era
	err := s.r.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketEras)).Get([]byte(id))
		if data == nil {
			return storage.ErrNotFound
		}
		era = &storage.Era{}
		if err := json.Unmarshal(data, era); err != nil {
			return fmt.Errorf("unmarshal era: %w", err)
		}
		era.Current = string(tx.Bucket([]byte(bucketErasCurrent)).Get(userKey(era.UserID))) == era.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return era, nil
}

func (s *eraStore) List(ctx context.Context, userID string) ([]storage.Era, error) {
	eras := []storage.Era{}
	err := s.r.view(func(tx *bbolt.Tx) error {
		idx := tx.Bucket([]byte(bucketErasByUser)).Bucket(userKey(userID))
		if idx == nil {
			return nil
		}
		currentID := string(tx.Bucket([]byte(bucketErasCurrent)).Get(userKey(userID)))
		records := tx.Bucket([]byte(bucketEras))
		return idx.ForEach(func(_, id []byte) error {
			data := records.Get(id)
			if data == nil {
				return fmt.Errorf("era index points at missing record %s", id)
			}
			var era storage.Era
			if err := json.Unmarshal(data, &era); err != nil {
				return fmt.Errorf("unmarshal era: %w", err)
			}
			era.Current = era.ID == currentID
			eras = append(eras, era)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return eras, nil
}

func (s *eraStore) Current(ctx context.Context, userID string) (*storage.Era, error) {
	var era *storage.Era
	err := s.r.view(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(bucketErasCurrent)).Get(userKey(userID))
		if id == nil {
			return storage.ErrNotFound
		}
		data := tx.Bucket([]byte(bucketEras)).Get(id)
		if data == nil {
			return fmt.Errorf("current era pointer targets missing record %s", id)
		}
		era = &storage.Era{}
		if err := json.Unmarshal(data, era); err != nil {
			return fmt.Errorf("unmarshal era: %w", err)
		}
		era.Current = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return era, nil
}

// SetCurrent repoints the user's current-era pointer. Overwriting the single
// pointer is what keeps "at most one current era" structural.
func (s *eraStore) SetCurrent(ctx context.Context, userID, eraID string) error {
	return s.r.update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketErasCurrent)).Put(userKey(userID), []byte(eraID))
	})
}
