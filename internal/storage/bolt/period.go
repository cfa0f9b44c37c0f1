package bolt

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/goodtune/worktime/internal/storage"
)

type periodStore struct {
	r runner
}

// Create stores a period under its era's start-time index. An open period
// also becomes the era's open-period pointer target.
func (s *periodStore) Create(ctx context.Context, period *storage.Period) error {
	return s.r.update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(period)
		if err != nil {
			return fmt.Errorf("marshal period: %w", err)
		}
		if err := tx.Bucket([]byte(bucketPeriods)).Put([]byte(period.ID), data); err != nil {
			return fmt.Errorf("put period: %w", err)
		}
		idx, err := tx.Bucket([]byte(bucketPeriodsEra)).CreateBucketIfNotExists([]byte(period.EraID))
		if err != nil {
			return fmt.Errorf("create era period index: %w", err)
		}
		if err := idx.Put(timeKey(period.Start, period.ID), []byte(period.ID)); err != nil {
			return err
		}
		if period.IsOpen() {
			return tx.Bucket([]byte(bucketPeriodsOpen)).Put([]byte(period.EraID), []byte(period.ID))
		}
		return nil
	})
}

func (s *periodStore) Get(ctx context.Context, id string) (*storage.Period, error) {
	var period *storage.Period
	err := s.r.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketPeriods)).Get([]byte(id))
		if data == nil {
			return storage.ErrNotFound
		}
		period = &storage.Period{}
		return json.Unmarshal(data, period)
	})
	if err != nil {
		return nil, err
	}
	return period, nil
}

func (s *periodStore) Open(ctx context.Context, eraID string) (*storage.Period, error) {
	var period *storage.Period
	err := s.r.view(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(bucketPeriodsOpen)).Get([]byte(eraID))
		if id == nil {
			return storage.ErrNotFound
		}
		data := tx.Bucket([]byte(bucketPeriods)).Get(id)
		if data == nil {
			return fmt.Errorf("open period pointer targets missing record %s", id)
		}
		period = &storage.Period{}
		return json.Unmarshal(data, period)
	})
	if err != nil {
		return nil, err
	}
	return period, nil
}

// Close sets the period's end timestamp and clears the era's open-period
// pointer if it targets this period.
func (s *periodStore) Close(ctx context.Context, eraID, periodID string, end int64) error {
	return s.r.update(func(tx *bbolt.Tx) error {
		records := tx.Bucket([]byte(bucketPeriods))
		data := records.Get([]byte(periodID))
		if data == nil {
			return storage.ErrNotFound
		}
		var period storage.Period
		if err := json.Unmarshal(data, &period); err != nil {
			return fmt.Errorf("unmarshal period: %w", err)
		}
		period.End = end
		updated, err := json.Marshal(&period)
		if err != nil {
			return fmt.Errorf("marshal period: %w", err)
		}
		if err := records.Put([]byte(periodID), updated); err != nil {
			return err
		}
		open := tx.Bucket([]byte(bucketPeriodsOpen))
		if string(open.Get([]byte(eraID))) == periodID {
			return open.Delete([]byte(eraID))
		}
		return nil
	})
}

func (s *periodStore) ListEndingSince(ctx context.Context, eraID string, cutoff int64) ([]storage.Period, error) {
	periods := []storage.Period{}
	err := s.r.view(func(tx *bbolt.Tx) error {
		idx := tx.Bucket([]byte(bucketPeriodsEra)).Bucket([]byte(eraID))
		if idx == nil {
			return nil
		}
		records := tx.Bucket([]byte(bucketPeriods))
		return idx.ForEach(func(_, id []byte) error {
			data := records.Get(id)
			if data == nil {
				return fmt.Errorf("period index points at missing record %s", id)
			}
			var period storage.Period
			if err := json.Unmarshal(data, &period); err != nil {
				return fmt.Errorf("unmarshal period: %w", err)
			}
			if cutoff > 0 && !period.IsOpen() && period.End < cutoff {
				return nil
			}
			periods = append(periods, period)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return periods, nil
}
