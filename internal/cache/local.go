package cache

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// LocalBackend is the in-process fallback tier. It keeps working when Redis
// is unreachable, at the cost of being per-instance. Entries expire lazily
// on read and eagerly via a background sweep.
type LocalBackend struct {
	mu         sync.RWMutex
	entries    map[string]localEntry
	maxEntries int

	stopOnce sync.Once
	stop     chan struct{}
}

func NewLocalBackend(maxEntries int, sweepPeriod time.Duration) *LocalBackend {
	b := &LocalBackend{
		entries:    make(map[string]localEntry),
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}
	if sweepPeriod > 0 {
		go b.sweep(sweepPeriod)
	}
	return b
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	entry, ok := b.entries[key]
	b.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if time.Now().After(entry.expiresAt) {
		b.mu.Lock()
		delete(b.entries, key)
		b.mu.Unlock()
		return nil, ErrMiss
	}
	return entry.value, nil
}

func (b *LocalBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxEntries > 0 && len(b.entries) >= b.maxEntries {
		if _, exists := b.entries[key]; !exists {
			b.evictOneLocked()
		}
	}

	b.entries[key] = localEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (b *LocalBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	delete(b.entries, key)
	b.mu.Unlock()
	return nil
}

// Len reports the current entry count.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *LocalBackend) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
}

// evictOneLocked drops the entry closest to expiry. Linear scan is fine at
// the configured sizes.
func (b *LocalBackend) evictOneLocked() {
	var victim string
	var earliest time.Time
	for key, entry := range b.entries {
		if victim == "" || entry.expiresAt.Before(earliest) {
			victim = key
			earliest = entry.expiresAt
		}
	}
	if victim != "" {
		delete(b.entries, victim)
	}
}

func (b *LocalBackend) sweep(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			now := time.Now()
			b.mu.Lock()
			for key, entry := range b.entries {
				if now.After(entry.expiresAt) {
					delete(b.entries, key)
				}
			}
			b.mu.Unlock()
		}
	}
}
