// Package sequence hands out the monotonically increasing identifiers
// that the encoder turns into short codes. Identifiers come from a
// Postgres sequence claimed in blocks, so one round trip serves many
// creations and concurrent instances never overlap.
package sequence

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

const sequenceName = "short_link_ids"

// Allocator claims identifier blocks from Postgres and serves them out
// one at a time. Safe for concurrent use.
type Allocator struct {
	pool  *pgxpool.Pool
	block int64

	mu   sync.Mutex
	next int64
	end  int64 // exclusive; next == end means the block is spent
}

// NewAllocator ensures the backing sequence exists and returns an
// allocator claiming blocks of the given size. The sequence increment
// must match the block size; changing the block later requires an
// ALTER SEQUENCE by hand.
func NewAllocator(ctx context.Context, pool *pgxpool.Pool, block int64) (*Allocator, error) {
	if block <= 0 {
		return nil, fmt.Errorf("sequence: block size must be positive, got %d", block)
	}

	stmt := fmt.Sprintf(
		"CREATE SEQUENCE IF NOT EXISTS %s INCREMENT BY %d MINVALUE 0 START WITH 0",
		sequenceName, block,
	)
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return nil, fmt.Errorf("sequence: create: %w", err)
	}

	return &Allocator{pool: pool, block: block}, nil
}

// Next returns the next identifier, claiming a fresh block from
// Postgres when the current one is spent.
func (a *Allocator) Next(ctx context.Context) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.next >= a.end {
		var start int64
		err := a.pool.QueryRow(ctx, fmt.Sprintf("SELECT nextval('%s')", sequenceName)).Scan(&start)
		if err != nil {
			return 0, fmt.Errorf("sequence: claim block: %w", err)
		}
		a.next = start
		a.end = start + a.block
	}

	id := a.next
	a.next++
	return uint64(id), nil
}
