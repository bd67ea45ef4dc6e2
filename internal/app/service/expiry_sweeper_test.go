package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger { return zap.NewNop() }

func TestExpirySweeper_Sweep(t *testing.T) {
	repo := &mockLinkRepository{
		deactivateExpiredFn: func(ctx context.Context, before time.Time) ([]string, error) {
			return []string{"a1", "b2"}, nil
		},
	}
	mc := &mockCache{}

	s := NewExpirySweeper(testLogger(), repo, mc, time.Minute)
	s.sweep(context.Background())

	if len(mc.evicted) != 2 || mc.evicted[0] != "a1" || mc.evicted[1] != "b2" {
		t.Errorf("expected evictions for deactivated codes, got %v", mc.evicted)
	}
}

func TestExpirySweeper_SweepNothingExpired(t *testing.T) {
	repo := &mockLinkRepository{
		deactivateExpiredFn: func(ctx context.Context, before time.Time) ([]string, error) {
			return nil, nil
		},
	}
	mc := &mockCache{}

	s := NewExpirySweeper(testLogger(), repo, mc, time.Minute)
	s.sweep(context.Background())

	if len(mc.evicted) != 0 {
		t.Errorf("expected no evictions, got %v", mc.evicted)
	}
}
