// Package cache implements the two-tier price cache: an in-process map backed
// by one file per symbol on disk. Both tiers share a single freshness rule,
// an entry is reusable while now - FetchedAt < window.
package cache

import (
	"log/slog"
	"time"
)

// Entry is a cached value together with the instant it was fetched.
type Entry[T any] struct {
	Value     T
	FetchedAt time.Time
}

// Fresh reports whether the entry is still inside window at now.
func (e Entry[T]) Fresh(now time.Time, window time.Duration) bool {
	return now.Sub(e.FetchedAt) < window
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
	log *slog.Logger
}

// WithClock overrides the time source used for stamping and freshness checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used for swallowed disk errors.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Cache is a per-symbol TTL cache. The memory tier is not synchronised and
// must be used from a single goroutine; the disk tier may be written
// concurrently by other processes or goroutines.
type Cache[T any] struct {
	window time.Duration
	mem    map[string]Entry[T]
	disk   *Disk[T]
	now    func() time.Time
	log    *slog.Logger
}

// New creates a cache with the given freshness window. disk may be nil for a
// memory-only cache.
func New[T any](window time.Duration, disk *Disk[T], opts ...Option) *Cache[T] {
	o := options{now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		window: window,
		mem:    make(map[string]Entry[T]),
		disk:   disk,
		now:    o.now,
		log:    o.log,
	}
}

// Window returns the freshness window.
func (c *Cache[T]) Window() time.Duration { return c.window }

// Now returns the cache's notion of the current time.
func (c *Cache[T]) Now() time.Time { return c.now() }

// Get returns a fresh value for symbol. The memory tier is consulted first;
// on a miss a fresh disk entry is promoted into memory keeping its original
// fetch time. Stale or unreadable entries are misses.
func (c *Cache[T]) Get(symbol string) (T, bool) {
	e, ok := c.Lookup(symbol)
	return e.Value, ok
}

// Lookup is Get returning the full entry.
func (c *Cache[T]) Lookup(symbol string) (Entry[T], bool) {
	now := c.now()
	if e, ok := c.mem[symbol]; ok && e.Fresh(now, c.window) {
		return e, true
	}
	if c.disk == nil {
		return Entry[T]{}, false
	}
	e, err := c.disk.Load(symbol)
	if err != nil {
		c.log.Debug("disk cache miss", "symbol", symbol, "error", err)
		return Entry[T]{}, false
	}
	if !e.Fresh(now, c.window) {
		return Entry[T]{}, false
	}
	c.mem[symbol] = e
	return e, true
}

// Put stamps v with the current time and writes it to both tiers.
func (c *Cache[T]) Put(symbol string, v T) {
	e := Entry[T]{Value: v, FetchedAt: c.now()}
	c.mem[symbol] = e
	if c.disk == nil {
		return
	}
	if err := c.disk.Store(symbol, e); err != nil {
		c.log.Debug("disk cache write failed", "symbol", symbol, "error", err)
	}
}

// Adopt inserts a value fetched elsewhere into the memory tier only. The
// producer is expected to have written the disk tier already.
func (c *Cache[T]) Adopt(symbol string, v T, fetchedAt time.Time) {
	c.mem[symbol] = Entry[T]{Value: v, FetchedAt: fetchedAt}
}

// InvalidateAll clears the memory tier. Disk entries are left in place and
// keep satisfying reads while fresh.
func (c *Cache[T]) InvalidateAll() {
	c.mem = make(map[string]Entry[T])
}

// Len returns the number of entries in the memory tier, fresh or not.
func (c *Cache[T]) Len() int { return len(c.mem) }
