package service

import (
	"context"
	"time"

	"github.com/hollis-dev/snip/internal/app/repository"
	"go.uber.org/zap"
)

// ExpirySweeper periodically deactivates links whose expiry has passed
// and evicts them from the cache, so dead entries cannot be served from
// either layer between lookups.
type ExpirySweeper struct {
	logger   *zap.Logger
	repo     repository.LinkRepository
	cache    Cache
	interval time.Duration
	stopChan chan struct{}
}

// NewExpirySweeper creates a sweeper running at the given interval.
func NewExpirySweeper(logger *zap.Logger, repo repository.LinkRepository, cache Cache, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		logger:   logger,
		repo:     repo,
		cache:    cache,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *ExpirySweeper) Start() {
	go s.run()
}

// Stop halts the sweep loop.
func (s *ExpirySweeper) Stop() {
	close(s.stopChan)
}

func (s *ExpirySweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(context.Background())
		case <-s.stopChan:
			s.logger.Info("expiry sweeper stopped")
			return
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	now := time.Now()

	codes, err := s.repo.DeactivateExpired(ctx, now)
	if err != nil {
		s.logger.Error("failed to deactivate expired links", zap.Error(err))
		return
	}
	if len(codes) == 0 {
		return
	}

	for _, code := range codes {
		if s.cache == nil {
			continue
		}
		if err := s.cache.Evict(ctx, code); err != nil {
			s.logger.Warn("failed to evict expired link", zap.String("code", code), zap.Error(err))
		}
	}

	s.logger.Info("deactivated expired links",
		zap.Int("count", len(codes)),
		zap.Time("cutoff", now),
	)
}
