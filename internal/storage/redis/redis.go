// Package redis implements the storage.Store interface on Redis. Records
// are hashes, time-ordered access goes through per-era sorted sets, and the
// current-era and open-period pointers are plain keys. Multi-key writes run
// as Lua scripts; Update queues every write on a MULTI/EXEC pipeline so a
// whole logical operation commits atomically.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/worktime/internal/config"
	"github.com/goodtune/worktime/internal/storage"
)

// Store implements the storage.Store interface using Redis.
type Store struct {
	client *redis.Client
}

// Open creates a new Redis-backed storage instance.
func Open(cfg config.RedisConfig) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Eras returns the EraStore implementation.
func (s *Store) Eras() storage.EraStore {
	return &eraStore{c: s.client}
}

// Periods returns the PeriodStore implementation.
func (s *Store) Periods() storage.PeriodStore {
	return &periodStore{c: s.client}
}

// Adjustments returns the AdjustmentStore implementation.
func (s *Store) Adjustments() storage.AdjustmentStore {
	return &adjustmentStore{c: s.client}
}

// Totals returns the TotalStore implementation.
func (s *Store) Totals() storage.TotalStore {
	return &totalStore{c: s.client}
}

// Update queues every write issued through tx on a MULTI/EXEC pipeline and
// executes it when fn returns nil. If fn errors, nothing is sent.
func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	pipe := s.client.TxPipeline()
	if err := fn(&txStores{pipe: pipe}); err != nil {
		pipe.Discard()
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis commit: %w", err)
	}
	return nil
}

// txStores binds the record stores to a transaction pipeline. Commands are
// queued, so writes report errors at Exec and reads are unsupported here.
type txStores struct {
	pipe redis.Pipeliner
}

func (t *txStores) Eras() storage.EraStore               { return &eraStore{c: t.pipe} }
func (t *txStores) Periods() storage.PeriodStore         { return &periodStore{c: t.pipe} }
func (t *txStores) Adjustments() storage.AdjustmentStore { return &adjustmentStore{c: t.pipe} }
func (t *txStores) Totals() storage.TotalStore           { return &totalStore{c: t.pipe} }

func eraKey(id string) string         { return "worktime:era:" + id }
func eraUserIndex(user string) string { return "worktime:eras:" + user }
func eraCurrentKey(user string) string {
	return "worktime:era:current:" + user
}
func periodKey(id string) string      { return "worktime:period:" + id }
func periodIndex(era string) string   { return "worktime:periods:" + era }
func periodOpenKey(era string) string { return "worktime:period:open:" + era }
func adjKey(id string) string         { return "worktime:adjustment:" + id }
func adjIndex(era string) string      { return "worktime:adjustments:" + era }
func totalsKey(era string) string     { return "worktime:totals:" + era }
