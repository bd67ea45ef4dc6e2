package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolve outcomes used as label values.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeExpired  = "expired"
	OutcomeInactive = "inactive"
	OutcomeError    = "error"
)

var (
	// ResolveTotal counts code resolutions by outcome.
	ResolveTotal = promauto.NewCounterVec(prom.CounterOpts{
		Namespace: "snip",
		Name:      "resolve_total",
		Help:      "Short-code resolutions by outcome.",
	}, []string{"outcome"})

	// ResolveDuration tracks end-to-end resolution latency.
	ResolveDuration = promauto.NewHistogram(prom.HistogramOpts{
		Namespace: "snip",
		Name:      "resolve_duration_seconds",
		Help:      "Latency of short-code resolution.",
		Buckets:   prom.DefBuckets,
	})

	// CacheHits and CacheMisses cover the Redis link cache only; bloom
	// rejections never reach the cache.
	CacheHits = promauto.NewCounter(prom.CounterOpts{
		Namespace: "snip",
		Name:      "cache_hits_total",
		Help:      "Link cache hits.",
	})
	CacheMisses = promauto.NewCounter(prom.CounterOpts{
		Namespace: "snip",
		Name:      "cache_misses_total",
		Help:      "Link cache misses.",
	})

	// BloomRejects counts lookups vetoed by the membership filter.
	BloomRejects = promauto.NewCounter(prom.CounterOpts{
		Namespace: "snip",
		Name:      "bloom_rejects_total",
		Help:      "Resolutions short-circuited by the bloom filter.",
	})

	// ShortenTotal counts link creations by strategy.
	ShortenTotal = promauto.NewCounterVec(prom.CounterOpts{
		Namespace: "snip",
		Name:      "shorten_total",
		Help:      "Link creations by code strategy.",
	}, []string{"strategy"})
)
