package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hollis-dev/snip/internal/app/model"
	"github.com/hollis-dev/snip/internal/app/repository"
	infraprom "github.com/hollis-dev/snip/internal/infra/prometheus"
	"github.com/hollis-dev/snip/pkg/base62"
)

var (
	// ErrInvalidTarget signals that the target is not an absolute
	// http(s) URL.
	ErrInvalidTarget = errors.New("target must be an absolute http or https URL")

	// ErrInvalidCode signals a custom code outside the base62 alphabet
	// or the length bounds.
	ErrInvalidCode = errors.New("custom code must be 1-32 base62 characters")

	// ErrInvalidExpiry signals an expiry that does not lie in the future.
	ErrInvalidExpiry = errors.New("expiry must lie in the future")

	// ErrCapacityExhausted is returned when every candidate code within
	// the retry budget was already taken.
	ErrCapacityExhausted = errors.New("could not claim a free code")
)

// Code strategies.
const (
	StrategySequence = "sequence"
	StrategyRandom   = "random"
	strategyCustom   = "custom"
)

const maxCustomCodeLength = 32

// IDSource hands out unique identifiers for the sequence strategy.
type IDSource interface {
	Next(ctx context.Context) (uint64, error)
}

// Cache is the slice of the link cache the services need: feeding the
// membership filter on create, lookups and eviction on resolve.
type Cache interface {
	MightContain(code string) bool
	Get(ctx context.Context, code string) (*model.ShortLink, error)
	Set(ctx context.Context, link *model.ShortLink) error
	SetNegative(ctx context.Context, code string) error
	Evict(ctx context.Context, code string) error
	Add(code string)
}

// LinkService defines behaviour-level operations on links.
type LinkService interface {
	Shorten(ctx context.Context, input ShortenInput) (*model.ShortLink, error)
	GetLink(ctx context.Context, code string) (*model.ShortLink, error)
	ListLinks(ctx context.Context, limit, offset int) ([]model.ShortLink, error)
	Deactivate(ctx context.Context, code string) error
}

// Options tune how codes are minted.
type Options struct {
	Strategy         string
	RandomCodeLength int
	MaxAttempts      int
}

type linkService struct {
	repo  repository.LinkRepository
	ids   IDSource
	cache Cache
	opts  Options
}

// NewLinkService returns a service implementation backed by the given
// repository. ids may be nil when the strategy is random; cache may be
// nil in tests.
func NewLinkService(repo repository.LinkRepository, ids IDSource, cache Cache, opts Options) LinkService {
	if opts.Strategy == "" {
		opts.Strategy = StrategySequence
	}
	if opts.RandomCodeLength <= 0 {
		opts.RandomCodeLength = 7
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &linkService{repo: repo, ids: ids, cache: cache, opts: opts}
}

// ShortenInput captures data required to create a link.
type ShortenInput struct {
	Target     string
	CustomCode string
	ExpiresAt  *time.Time
}

func (s *linkService) Shorten(ctx context.Context, input ShortenInput) (*model.ShortLink, error) {
	if err := validateTarget(input.Target); err != nil {
		return nil, err
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(time.Now()) {
		return nil, ErrInvalidExpiry
	}

	var (
		link     *model.ShortLink
		strategy string
		err      error
	)
	if input.CustomCode != "" {
		strategy = strategyCustom
		link, err = s.createCustom(ctx, input)
	} else {
		strategy = s.opts.Strategy
		link, err = s.createGenerated(ctx, input)
	}
	if err != nil {
		return nil, err
	}

	infraprom.ShortenTotal.WithLabelValues(strategy).Inc()
	if s.cache != nil {
		s.cache.Add(link.Code)
	}
	return link, nil
}

// createCustom claims the requested code exactly once. A conflict is
// the caller's to resolve, so there is no retry.
func (s *linkService) createCustom(ctx context.Context, input ShortenInput) (*model.ShortLink, error) {
	code := input.CustomCode
	if len(code) > maxCustomCodeLength || !base62.IsValid(code) {
		return nil, ErrInvalidCode
	}

	link := newLink(code, input)
	if err := s.repo.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrCodeTaken) {
			return nil, repository.ErrCodeTaken
		}
		return nil, fmt.Errorf("create link: %w", err)
	}
	return link, nil
}

// createGenerated mints candidate codes until one is claimed or the
// attempt budget runs out. Sequence candidates cannot collide with each
// other (the encoding is a bijection over unique identifiers) but may
// land on a code a custom link squatted earlier.
func (s *linkService) createGenerated(ctx context.Context, input ShortenInput) (*model.ShortLink, error) {
	for attempt := 0; attempt < s.opts.MaxAttempts; attempt++ {
		code, err := s.nextCode(ctx)
		if err != nil {
			return nil, err
		}

		link := newLink(code, input)
		err = s.repo.Create(ctx, link)
		if err == nil {
			return link, nil
		}
		if errors.Is(err, repository.ErrCodeTaken) {
			continue
		}
		return nil, fmt.Errorf("create link: %w", err)
	}
	return nil, ErrCapacityExhausted
}

func (s *linkService) nextCode(ctx context.Context) (string, error) {
	switch s.opts.Strategy {
	case StrategyRandom:
		code, err := base62.Random(s.opts.RandomCodeLength)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		return code, nil
	case StrategySequence:
		id, err := s.ids.Next(ctx)
		if err != nil {
			return "", fmt.Errorf("allocate id: %w", err)
		}
		return base62.Encode(id), nil
	default:
		return "", fmt.Errorf("unknown code strategy %q", s.opts.Strategy)
	}
}

func newLink(code string, input ShortenInput) *model.ShortLink {
	return &model.ShortLink{
		Code:      code,
		Target:    input.Target,
		Active:    true,
		ExpiresAt: input.ExpiresAt,
	}
}

func (s *linkService) GetLink(ctx context.Context, code string) (*model.ShortLink, error) {
	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, limit, offset int) ([]model.ShortLink, error) {
	links, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// Deactivate flips the link off and evicts it from the cache. The only
// mutation a link supports after creation.
func (s *linkService) Deactivate(ctx context.Context, code string) error {
	if err := s.repo.Deactivate(ctx, code); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return repository.ErrLinkNotFound
		}
		return fmt.Errorf("deactivate link: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Evict(ctx, code); err != nil {
			return fmt.Errorf("evict deactivated link: %w", err)
		}
	}
	return nil
}

func validateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return ErrInvalidTarget
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidTarget
	}
	return nil
}
