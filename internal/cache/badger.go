package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// gcInterval is how often the value log garbage collector runs.
const gcInterval = 10 * time.Minute

// badgerCache implements Cache on a Badger database. It is the persistent
// backend: epoch rewards, prices and transaction history are immutable
// once fetched, so keeping them across runs avoids refetching years of
// data on every invocation.
type badgerCache struct {
	db     *badger.DB
	log    zerolog.Logger
	closed atomic.Bool
	mu     sync.RWMutex

	hits   atomic.Uint64
	misses atomic.Uint64

	stopGC chan struct{}
	gcDone chan struct{}
}

var (
	_ Cache         = (*badgerCache)(nil)
	_ StatsProvider = (*badgerCache)(nil)
	_ PrefixDeleter = (*badgerCache)(nil)
)

// newBadgerCache opens (or creates) the database at cfg.Path.
func newBadgerCache(cfg DiskConfig) (*badgerCache, error) {
	log := logger().With().Str("backend", "badger").Logger()

	opts := badger.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.Path).Msg("failed to open badger cache")
		return nil, err
	}

	b := &badgerCache{
		db:     db,
		log:    log,
		stopGC: make(chan struct{}),
		gcDone: make(chan struct{}),
	}
	go b.runGC()

	log.Info().Str("path", cfg.Path).Bool("sync_writes", cfg.SyncWrites).Msg("badger cache opened")
	return b, nil
}

// runGC reclaims value log space on a timer until Close.
func (b *badgerCache) runGC() {
	defer close(b.gcDone)
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopGC:
			return
		case <-ticker.C:
			// RunValueLogGC returns ErrNoRewrite when there is
			// nothing to collect. That is the common case.
			if err := b.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				b.log.Warn().Err(err).Msg("badger gc failed")
			}
		}
	}
}

func (b *badgerCache) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Get retrieves a value from the cache.
func (b *badgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := b.checkOpen(ctx); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		b.misses.Add(1)
		b.log.Debug().Str("key", key).Bool("hit", false).Msg("cache get")
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.hits.Add(1)
	b.log.Debug().Str("key", key).Bool("hit", true).Int("size", len(value)).Msg("cache get")
	return value, nil
}

// Set stores a value with no expiration.
func (b *badgerCache) Set(ctx context.Context, key string, value []byte) error {
	return b.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a value with a time-to-live. A zero TTL means no
// expiration.
func (b *badgerCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.checkOpen(ctx); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return ErrClosed
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return err
	}

	b.log.Debug().Str("key", key).Int("size", len(value)).Dur("ttl", ttl).Msg("cache set")
	return nil
}

// Delete removes a key. Idempotent.
func (b *badgerCache) Delete(ctx context.Context, key string) error {
	if err := b.checkOpen(ctx); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return ErrClosed
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return err
	}

	b.log.Debug().Str("key", key).Msg("cache delete")
	return nil
}

// Exists checks if a key exists in the cache.
func (b *badgerCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := b.checkOpen(ctx); err != nil {
		return false, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return false, ErrClosed
	}

	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeletePrefix removes all keys under prefix and returns how many were
// removed.
func (b *badgerCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := b.checkOpen(ctx); err != nil {
		return 0, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return 0, ErrClosed
	}

	count := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := b.db.DropPrefix([]byte(prefix)); err != nil {
		return 0, err
	}

	b.log.Info().Str("prefix", prefix).Int("count", count).Msg("cache prefix dropped")
	return count, nil
}

// Close stops the GC loop and closes the database. Idempotent.
func (b *badgerCache) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return nil
	}
	b.closed.Store(true)

	close(b.stopGC)
	<-b.gcDone

	err := b.db.Close()
	b.log.Info().Msg("badger cache closed")
	return err
}

// Stats returns current cache statistics. KeyCount requires a keys-only
// scan, which is cheap at the sizes this cache holds.
func (b *badgerCache) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return Stats{}
	}

	var keys uint64
	_ = b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys++
		}
		return nil
	})

	lsm, vlog := b.db.Size()
	return Stats{
		Hits:      b.hits.Load(),
		Misses:    b.misses.Load(),
		KeyCount:  keys,
		BytesUsed: uint64(lsm + vlog),
	}
}
