package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hollis-dev/snip/internal/app/cache"
	"github.com/hollis-dev/snip/internal/app/model"
	"github.com/hollis-dev/snip/internal/app/repository"
)

type mockLinkRepository struct {
	createFn            func(ctx context.Context, link *model.ShortLink) error
	getFn               func(ctx context.Context, code string) (*model.ShortLink, error)
	listFn              func(ctx context.Context, limit, offset int) ([]model.ShortLink, error)
	deactivateFn        func(ctx context.Context, code string) error
	deactivateExpiredFn func(ctx context.Context, before time.Time) ([]string, error)
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.ShortLink) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetByCode(ctx context.Context, code string) (*model.ShortLink, error) {
	if m.getFn != nil {
		return m.getFn(ctx, code)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) List(ctx context.Context, limit, offset int) ([]model.ShortLink, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockLinkRepository) Deactivate(ctx context.Context, code string) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, code)
	}
	return nil
}

func (m *mockLinkRepository) DeactivateExpired(ctx context.Context, before time.Time) ([]string, error) {
	if m.deactivateExpiredFn != nil {
		return m.deactivateExpiredFn(ctx, before)
	}
	return nil, nil
}

func (m *mockLinkRepository) AllCodes(ctx context.Context) ([]string, error) {
	return nil, nil
}

type mockIDSource struct {
	next uint64
}

func (m *mockIDSource) Next(ctx context.Context) (uint64, error) {
	id := m.next
	m.next++
	return id, nil
}

// mockCache records filter additions and evictions; Get always misses.
type mockCache struct {
	added    []string
	evicted  []string
	stored   []string
	negative []string
}

func (m *mockCache) MightContain(code string) bool { return true }

func (m *mockCache) Get(ctx context.Context, code string) (*model.ShortLink, error) {
	return nil, cache.ErrMiss
}

func (m *mockCache) Set(ctx context.Context, link *model.ShortLink) error {
	m.stored = append(m.stored, link.Code)
	return nil
}

func (m *mockCache) SetNegative(ctx context.Context, code string) error {
	m.negative = append(m.negative, code)
	return nil
}

func (m *mockCache) Evict(ctx context.Context, code string) error {
	m.evicted = append(m.evicted, code)
	return nil
}

func (m *mockCache) Add(code string) {
	m.added = append(m.added, code)
}

func TestLinkService_Shorten_Sequence(t *testing.T) {
	var created *model.ShortLink
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.ShortLink) error {
			created = link
			return nil
		},
	}
	mc := &mockCache{}

	svc := NewLinkService(repo, &mockIDSource{next: 62}, mc, Options{Strategy: StrategySequence})
	link, err := svc.Shorten(context.Background(), ShortenInput{Target: "https://example.com/a/b"})
	if err != nil {
		t.Fatalf("Shorten returned error: %v", err)
	}
	if link.Code != "10" { // base62 of 62
		t.Errorf("expected code %q, got %q", "10", link.Code)
	}
	if created == nil || !created.Active {
		t.Error("expected link created active")
	}
	if len(mc.added) != 1 || mc.added[0] != "10" {
		t.Errorf("expected filter to learn the new code, got %v", mc.added)
	}
}

func TestLinkService_Shorten_SequenceSkipsTakenCode(t *testing.T) {
	calls := 0
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.ShortLink) error {
			calls++
			if calls == 1 {
				return repository.ErrCodeTaken
			}
			return nil
		},
	}

	svc := NewLinkService(repo, &mockIDSource{}, &mockCache{}, Options{Strategy: StrategySequence})
	link, err := svc.Shorten(context.Background(), ShortenInput{Target: "https://example.com"})
	if err != nil {
		t.Fatalf("Shorten returned error: %v", err)
	}
	if link.Code != "1" {
		t.Errorf("expected the second identifier's code, got %q", link.Code)
	}
	if calls != 2 {
		t.Errorf("expected 2 create attempts, got %d", calls)
	}
}

func TestLinkService_Shorten_RandomRetriesThenSucceeds(t *testing.T) {
	calls := 0
	seen := map[string]bool{}
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.ShortLink) error {
			calls++
			if len(link.Code) != 6 {
				t.Fatalf("expected 6-character candidate, got %q", link.Code)
			}
			seen[link.Code] = true
			if calls < 3 {
				return repository.ErrCodeTaken
			}
			return nil
		},
	}

	svc := NewLinkService(repo, nil, &mockCache{}, Options{
		Strategy:         StrategyRandom,
		RandomCodeLength: 6,
		MaxAttempts:      5,
	})
	if _, err := svc.Shorten(context.Background(), ShortenInput{Target: "https://example.com"}); err != nil {
		t.Fatalf("Shorten returned error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestLinkService_Shorten_RandomExhaustsAttempts(t *testing.T) {
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.ShortLink) error {
			return repository.ErrCodeTaken
		},
	}

	svc := NewLinkService(repo, nil, &mockCache{}, Options{
		Strategy:         StrategyRandom,
		RandomCodeLength: 4,
		MaxAttempts:      3,
	})
	_, err := svc.Shorten(context.Background(), ShortenInput{Target: "https://example.com"})
	if !errors.Is(err, ErrCapacityExhausted) {
		t.Fatalf("expected ErrCapacityExhausted, got %v", err)
	}
}

func TestLinkService_Shorten_CustomCodeConflictDoesNotRetry(t *testing.T) {
	calls := 0
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.ShortLink) error {
			calls++
			return repository.ErrCodeTaken
		},
	}

	svc := NewLinkService(repo, &mockIDSource{}, &mockCache{}, Options{})
	_, err := svc.Shorten(context.Background(), ShortenInput{
		Target:     "https://example.com",
		CustomCode: "launch",
	})
	if !errors.Is(err, repository.ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}
	if calls != 1 {
		t.Errorf("custom codes must not retry, got %d attempts", calls)
	}
}

func TestLinkService_Shorten_RejectsBadInput(t *testing.T) {
	svc := NewLinkService(&mockLinkRepository{}, &mockIDSource{}, &mockCache{}, Options{})

	cases := []struct {
		name  string
		input ShortenInput
		want  error
	}{
		{"relative url", ShortenInput{Target: "/just/a/path"}, ErrInvalidTarget},
		{"bad scheme", ShortenInput{Target: "ftp://example.com/file"}, ErrInvalidTarget},
		{"no host", ShortenInput{Target: "https://"}, ErrInvalidTarget},
		{"bad custom code", ShortenInput{Target: "https://example.com", CustomCode: "with space"}, ErrInvalidCode},
		{"custom code too long", ShortenInput{Target: "https://example.com", CustomCode: strings.Repeat("a", 33)}, ErrInvalidCode},
	}
	for _, tc := range cases {
		if _, err := svc.Shorten(context.Background(), tc.input); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}

	past := time.Now().Add(-time.Hour)
	_, err := svc.Shorten(context.Background(), ShortenInput{Target: "https://example.com", ExpiresAt: &past})
	if !errors.Is(err, ErrInvalidExpiry) {
		t.Errorf("past expiry: got %v, want ErrInvalidExpiry", err)
	}
}

func TestLinkService_GetLink_NotFound(t *testing.T) {
	repo := &mockLinkRepository{
		getFn: func(ctx context.Context, code string) (*model.ShortLink, error) {
			return nil, repository.ErrLinkNotFound
		},
	}

	svc := NewLinkService(repo, &mockIDSource{}, &mockCache{}, Options{})
	_, err := svc.GetLink(context.Background(), "missing")
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestLinkService_Deactivate(t *testing.T) {
	deactivated := ""
	repo := &mockLinkRepository{
		deactivateFn: func(ctx context.Context, code string) error {
			deactivated = code
			return nil
		},
	}
	mc := &mockCache{}

	svc := NewLinkService(repo, &mockIDSource{}, mc, Options{})
	if err := svc.Deactivate(context.Background(), "abc"); err != nil {
		t.Fatalf("Deactivate returned error: %v", err)
	}
	if deactivated != "abc" {
		t.Errorf("expected repo deactivation of abc, got %q", deactivated)
	}
	if len(mc.evicted) != 1 || mc.evicted[0] != "abc" {
		t.Errorf("expected cache eviction of abc, got %v", mc.evicted)
	}
}
