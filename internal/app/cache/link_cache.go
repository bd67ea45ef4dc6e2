// Package cache implements the Redis-backed, cache-aside layer in
// front of the durable store, plus a bloom membership filter that stops
// lookups for codes that were never minted from reaching Postgres.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/hollis-dev/snip/internal/app/model"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss signals that the cache holds nothing for the code.
	ErrMiss = errors.New("cache: miss")

	// ErrNegativeEntry signals a cached "does not exist" marker.
	ErrNegativeEntry = errors.New("cache: negative entry")
)

const (
	keyPrefix     = "link:"
	negativeValue = "-"
)

// LinkCache stores resolved links in Redis under link:<code> with a
// jittered TTL. Population races are last-write-wins: entries are
// snapshots of an immutable link, so racing writers store equivalent
// values.
type LinkCache struct {
	rdb         *redis.Client
	ttl         time.Duration
	negativeTTL time.Duration

	mu     sync.RWMutex
	filter *bloom.BloomFilter
	warmed bool
}

// Options size the cache behaviour.
type Options struct {
	TTL         time.Duration
	NegativeTTL time.Duration
	BloomItems  uint
	BloomFPRate float64
}

// New builds a LinkCache. The bloom filter starts cold and is not
// consulted until Warm has run; a cold filter must never veto lookups.
func New(rdb *redis.Client, opts Options) *LinkCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	negTTL := opts.NegativeTTL
	if negTTL <= 0 {
		negTTL = time.Minute
	}
	items := opts.BloomItems
	if items == 0 {
		items = 1000000
	}
	fp := opts.BloomFPRate
	if fp <= 0 || fp >= 1 {
		fp = 0.01
	}

	return &LinkCache{
		rdb:         rdb,
		ttl:         ttl,
		negativeTTL: negTTL,
		filter:      bloom.NewWithEstimates(items, fp),
	}
}

// Warm seeds the bloom filter with every known code and arms it.
func (c *LinkCache) Warm(codes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, code := range codes {
		c.filter.AddString(code)
	}
	c.warmed = true
}

// Add records a freshly minted code in the filter.
func (c *LinkCache) Add(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.AddString(code)
}

// MightContain reports whether the code could exist. False means the
// code was definitely never minted by this process or the warm-up set.
// Before warm-up it always answers true.
func (c *LinkCache) MightContain(code string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.warmed {
		return true
	}
	return c.filter.TestString(code)
}

// Get returns the cached link for the code, ErrMiss when absent, or
// ErrNegativeEntry when a not-found marker is cached.
func (c *LinkCache) Get(ctx context.Context, code string) (*model.ShortLink, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+code).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: get %q: %w", code, err)
	}

	if raw == negativeValue {
		return nil, ErrNegativeEntry
	}

	var link model.ShortLink
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return nil, fmt.Errorf("cache: decode %q: %w", code, err)
	}
	return &link, nil
}

// Set stores the link under its code with a jittered TTL.
func (c *LinkCache) Set(ctx context.Context, link *model.ShortLink) error {
	payload, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", link.Code, err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+link.Code, payload, jitter(c.ttl)).Err(); err != nil {
		return fmt.Errorf("cache: set %q: %w", link.Code, err)
	}
	return nil
}

// SetNegative caches a short-lived not-found marker for the code.
func (c *LinkCache) SetNegative(ctx context.Context, code string) error {
	if err := c.rdb.Set(ctx, keyPrefix+code, negativeValue, c.negativeTTL).Err(); err != nil {
		return fmt.Errorf("cache: set negative %q: %w", code, err)
	}
	return nil
}

// Evict removes the entry for the code.
func (c *LinkCache) Evict(ctx context.Context, code string) error {
	if err := c.rdb.Del(ctx, keyPrefix+code).Err(); err != nil {
		return fmt.Errorf("cache: evict %q: %w", code, err)
	}
	return nil
}

// jitter spreads expiries by ±10% so a burst of inserts does not expire
// as one wave.
func jitter(ttl time.Duration) time.Duration {
	spread := int64(ttl / 10)
	if spread == 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(2*spread)-spread)
}
