// Package bolt implements the storage.Store interface on a local bbolt
// file. Records are JSON values in per-kind buckets; time-ordered access
// goes through per-era index buckets keyed by timestamp, and the current-era
// and open-period pointers are plain key/value entries.
package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/goodtune/worktime/internal/storage"
)

const (
	bucketEras        = "eras"
	bucketErasByUser  = "eras_by_user"
	bucketErasCurrent = "eras_current"
	bucketPeriods     = "periods"
	bucketPeriodsEra  = "periods_by_era"
	bucketPeriodsOpen = "periods_open"
	bucketAdjusts     = "adjustments"
	bucketAdjustsEra  = "adjustments_by_era"
	bucketTotals      = "totals"
)

// Store implements the storage.Store interface using bbolt.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store.
func Open(path string) (*Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := []string{
			bucketEras, bucketErasByUser, bucketErasCurrent,
			bucketPeriods, bucketPeriodsEra, bucketPeriodsOpen,
			bucketAdjusts, bucketAdjustsEra, bucketTotals,
		}
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Eras returns the EraStore implementation.
func (s *Store) Eras() storage.EraStore {
	return &eraStore{r: s}
}

// Periods returns the PeriodStore implementation.
func (s *Store) Periods() storage.PeriodStore {
	return &periodStore{r: s}
}

// Adjustments returns the AdjustmentStore implementation.
func (s *Store) Adjustments() storage.AdjustmentStore {
	return &adjustmentStore{r: s}
}

// Totals returns the TotalStore implementation.
func (s *Store) Totals() storage.TotalStore {
	return &totalStore{r: s}
}

// Update wraps fn in a single bbolt read-write transaction.
func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&txStores{btx: btx})
	})
}

// runner abstracts "inside an open transaction" from "open one per call" so
// the record stores serve both the top-level Store and Update closures.
type runner interface {
	view(fn func(*bbolt.Tx) error) error
	update(fn func(*bbolt.Tx) error) error
}

func (s *Store) view(fn func(*bbolt.Tx) error) error {
	return s.db.View(fn)
}

func (s *Store) update(fn func(*bbolt.Tx) error) error {
	return s.db.Update(fn)
}

// txStores exposes the record stores bound to one open transaction.
type txStores struct {
	btx *bbolt.Tx
}

func (t *txStores) view(fn func(*bbolt.Tx) error) error   { return fn(t.btx) }
func (t *txStores) update(fn func(*bbolt.Tx) error) error { return fn(t.btx) }

func (t *txStores) Eras() storage.EraStore               { return &eraStore{r: t} }
func (t *txStores) Periods() storage.PeriodStore         { return &periodStore{r: t} }
func (t *txStores) Adjustments() storage.AdjustmentStore { return &adjustmentStore{r: t} }
func (t *txStores) Totals() storage.TotalStore           { return &totalStore{r: t} }

// userKey prefixes a user id so the anonymous user (empty string) still maps
// to a legal bolt key.
func userKey(userID string) []byte {
	return []byte("u:" + userID)
}

// timeKey builds an index key ordered by timestamp with the record id as a
// uniqueness suffix.
func timeKey(ts int64, id string) []byte {
	key := make([]byte, 8+len(id))
	binary.BigEndian.PutUint64(key[:8], uint64(ts))
	copy(key[8:], id)
	return key
}
