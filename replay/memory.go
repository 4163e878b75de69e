package replay

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is a process local Store backed by go-cache.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a Memory store. Expired nonces are purged every
// cleanup interval.
func NewMemory(cleanup time.Duration) *Memory {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Memory{c: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *Memory) Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	// Add fails when the key exists and has not expired
	if err := m.c.Add(nonce, struct{}{}, clampTTL(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

// Len returns the number of remembered nonces, including expired ones not
// yet purged.
func (m *Memory) Len() int {
	return m.c.ItemCount()
}
