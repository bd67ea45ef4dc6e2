package cache

import (
	"testing"
	"time"
)

func TestMightContainBeforeWarm(t *testing.T) {
	c := New(nil, Options{})

	// A cold filter must never veto a lookup.
	if !c.MightContain("anything") {
		t.Fatal("cold filter vetoed a lookup")
	}
}

func TestMightContainAfterWarm(t *testing.T) {
	c := New(nil, Options{BloomItems: 1000, BloomFPRate: 0.001})
	c.Warm([]string{"abc", "xyz"})

	if !c.MightContain("abc") || !c.MightContain("xyz") {
		t.Fatal("warmed codes must test positive")
	}
	if c.MightContain("never-minted-code") {
		t.Error("expected unknown code to be rejected")
	}
}

func TestAddFeedsFilter(t *testing.T) {
	c := New(nil, Options{BloomItems: 1000, BloomFPRate: 0.001})
	c.Warm(nil)

	if c.MightContain("8M0kX") {
		t.Fatal("expected empty warmed filter to reject")
	}
	c.Add("8M0kX")
	if !c.MightContain("8M0kX") {
		t.Error("added code must test positive")
	}
}

func TestJitterStaysInBounds(t *testing.T) {
	ttl := time.Hour
	for i := 0; i < 100; i++ {
		got := jitter(ttl)
		if got < ttl-ttl/10 || got > ttl+ttl/10 {
			t.Fatalf("jitter(%v) = %v, outside ±10%%", ttl, got)
		}
	}

	if got := jitter(5 * time.Nanosecond); got != 5*time.Nanosecond {
		t.Errorf("tiny TTLs should pass through, got %v", got)
	}
}
