package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hollis-dev/snip/internal/app/cache"
	"github.com/hollis-dev/snip/internal/app/model"
	"github.com/hollis-dev/snip/internal/app/repository"
	infraprom "github.com/hollis-dev/snip/internal/infra/prometheus"
	"go.uber.org/zap"
)

var (
	// ErrLinkExpired signals a code whose expiry has passed. Expired
	// links resolve as gone no matter where they were found.
	ErrLinkExpired = errors.New("link expired")

	// ErrLinkInactive signals a deactivated link.
	ErrLinkInactive = errors.New("link is inactive")
)

const deactivateTimeout = 5 * time.Second

// Resolver answers "where does this code point" with the cache-aside
// discipline: cache first, store on miss, populate the cache on a store
// hit. Cache failures degrade to store-only operation; correctness
// always comes from the store.
type Resolver struct {
	logger *zap.Logger
	links  repository.LinkRepository
	cache  Cache
}

// NewResolver builds a resolver over the given store and cache.
func NewResolver(logger *zap.Logger, links repository.LinkRepository, c Cache) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger, links: links, cache: c}
}

// Resolve returns the link for the code or one of
// repository.ErrLinkNotFound, ErrLinkExpired, ErrLinkInactive.
func (r *Resolver) Resolve(ctx context.Context, code string) (*model.ShortLink, error) {
	start := time.Now()
	defer func() {
		infraprom.ResolveDuration.Observe(time.Since(start).Seconds())
	}()

	if !r.cache.MightContain(code) {
		infraprom.BloomRejects.Inc()
		infraprom.ResolveTotal.WithLabelValues(infraprom.OutcomeNotFound).Inc()
		return nil, repository.ErrLinkNotFound
	}

	now := time.Now()

	link, err := r.cache.Get(ctx, code)
	switch {
	case err == nil:
		infraprom.CacheHits.Inc()
		return r.vetted(ctx, link, now, true)
	case errors.Is(err, cache.ErrNegativeEntry):
		infraprom.CacheHits.Inc()
		infraprom.ResolveTotal.WithLabelValues(infraprom.OutcomeNotFound).Inc()
		return nil, repository.ErrLinkNotFound
	case errors.Is(err, cache.ErrMiss):
		infraprom.CacheMisses.Inc()
	default:
		// Treat a broken cache like a miss and serve from the store.
		r.logger.Warn("link cache unavailable", zap.String("code", code), zap.Error(err))
		infraprom.CacheMisses.Inc()
	}

	link, err = r.links.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			if cErr := r.cache.SetNegative(ctx, code); cErr != nil {
				r.logger.Warn("failed to cache negative entry", zap.String("code", code), zap.Error(cErr))
			}
			infraprom.ResolveTotal.WithLabelValues(infraprom.OutcomeNotFound).Inc()
			return nil, repository.ErrLinkNotFound
		}
		infraprom.ResolveTotal.WithLabelValues(infraprom.OutcomeError).Inc()
		return nil, fmt.Errorf("resolve %q: %w", code, err)
	}

	return r.vetted(ctx, link, now, false)
}

// vetted gates a loaded link on expiry and active state. Stale entries
// are evicted; an expired link is also deactivated in the store so the
// row stops resurfacing.
func (r *Resolver) vetted(ctx context.Context, link *model.ShortLink, now time.Time, fromCache bool) (*model.ShortLink, error) {
	if link.Expired(now) {
		r.evict(ctx, link.Code)
		go r.deactivateExpired(link.Code)
		infraprom.ResolveTotal.WithLabelValues(infraprom.OutcomeExpired).Inc()
		return nil, ErrLinkExpired
	}
	if !link.Active {
		if fromCache {
			r.evict(ctx, link.Code)
		}
		infraprom.ResolveTotal.WithLabelValues(infraprom.OutcomeInactive).Inc()
		return nil, ErrLinkInactive
	}

	if !fromCache {
		// Populate on store hit. Last write wins; racing writers store
		// equivalent snapshots of the same immutable link.
		if err := r.cache.Set(ctx, link); err != nil {
			r.logger.Warn("failed to populate link cache", zap.String("code", link.Code), zap.Error(err))
		}
	}

	infraprom.ResolveTotal.WithLabelValues(infraprom.OutcomeFound).Inc()
	return link, nil
}

func (r *Resolver) evict(ctx context.Context, code string) {
	if err := r.cache.Evict(ctx, code); err != nil {
		r.logger.Warn("failed to evict link", zap.String("code", code), zap.Error(err))
	}
}

// deactivateExpired runs detached from the request: the redirect answer
// must not wait on the store write.
func (r *Resolver) deactivateExpired(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), deactivateTimeout)
	defer cancel()

	if err := r.links.Deactivate(ctx, code); err != nil && !errors.Is(err, repository.ErrLinkNotFound) {
		r.logger.Error("failed to deactivate expired link", zap.String("code", code), zap.Error(err))
	}
}
