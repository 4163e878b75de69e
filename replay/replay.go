// Package replay records signature nonces so a verifier can reject a
// signed request that is presented more than once.
package replay

import (
	"context"
	"time"
)

// MinTTL is the shortest time a nonce is remembered.
const MinTTL = time.Second

// Store claims nonces. Claim reports true the first time a nonce is seen
// within ttl, and false for every later claim of the same nonce.
type Store interface {
	Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < MinTTL {
		return MinTTL
	}
	return ttl
}
