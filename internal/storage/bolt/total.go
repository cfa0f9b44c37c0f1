package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/goodtune/worktime/internal/storage"
)

type totalStore struct {
	r runner
}

func totalKey(eraID, mode string) []byte {
	return []byte(eraID + ":" + mode)
}

func (s *totalStore) Get(ctx context.Context, eraID, mode string) (*storage.Total, error) {
	var total *storage.Total
	err := s.r.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketTotals)).Get(totalKey(eraID, mode))
		if data == nil {
			return storage.ErrNotFound
		}
		total = &storage.Total{}
		return json.Unmarshal(data, total)
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

func (s *totalStore) List(ctx context.Context, eraID string) ([]storage.Total, error) {
	totals := []storage.Total{}
	err := s.r.view(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket([]byte(bucketTotals)).Cursor()
		prefix := []byte(eraID + ":")
		for key, data := cursor.Seek(prefix); key != nil && strings.HasPrefix(string(key), string(prefix)); key, data = cursor.Next() {
			var total storage.Total
			if err := json.Unmarshal(data, &total); err != nil {
				return fmt.Errorf("unmarshal total: %w", err)
			}
			totals = append(totals, total)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

// Increment upserts the (era, mode) row and applies the signed delta.
func (s *totalStore) Increment(ctx context.Context, eraID, mode string, delta int64) error {
	return s.r.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketTotals))
		total := storage.Total{EraID: eraID, Mode: mode}
		if data := bucket.Get(totalKey(eraID, mode)); data != nil {
			if err := json.Unmarshal(data, &total); err != nil {
				return fmt.Errorf("unmarshal total: %w", err)
			}
		}
		total.Elapsed += delta
		data, err := json.Marshal(&total)
		if err != nil {
			return fmt.Errorf("marshal total: %w", err)
		}
		return bucket.Put(totalKey(eraID, mode), data)
	})
}
