package bolt

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/goodtune/worktime/internal/storage"
)

type adjustmentStore struct {
	r runner
}

func (s *adjustmentStore) Create(ctx context.Context, adj *storage.Adjustment) error {
	return s.r.update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(adj)
		if err != nil {
			return fmt.Errorf("marshal adjustment: %w", err)
		}
		if err := tx.Bucket([]byte(bucketAdjusts)).Put([]byte(adj.ID), data); err != nil {
			return fmt.Errorf("put adjustment: %w", err)
		}
		idx, err := tx.Bucket([]byte(bucketAdjustsEra)).CreateBucketIfNotExists([]byte(adj.EraID))
		if err != nil {
			return fmt.Errorf("create era adjustment index: %w", err)
		}
		return idx.Put(timeKey(adj.Timestamp, adj.ID), []byte(adj.ID))
	})
}

func (s *adjustmentStore) ListSince(ctx context.Context, eraID string, cutoff int64) ([]storage.Adjustment, error) {
	adjs := []storage.Adjustment{}
	err := s.r.view(func(tx *bbolt.Tx) error {
		idx := tx.Bucket([]byte(bucketAdjustsEra)).Bucket([]byte(eraID))
		if idx == nil {
			return nil
		}
		records := tx.Bucket([]byte(bucketAdjusts))
		cursor := idx.Cursor()
		var start []byte
		if cutoff > 0 {
			start = timeKey(cutoff, "")
		}
		for key, id := cursor.Seek(start); key != nil; key, id = cursor.Next() {
			data := records.Get(id)
			if data == nil {
				return fmt.Errorf("adjustment index points at missing record %s", id)
			}
			var adj storage.Adjustment
			if err := json.Unmarshal(data, &adj); err != nil {
				return fmt.Errorf("unmarshal adjustment: %w", err)
			}
			adjs = append(adjs, adj)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjs, nil
}
