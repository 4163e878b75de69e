package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/openbotauth/botsig"
)

// ErrKeyNotFound is returned when no key matches a signature's keyid.
var ErrKeyNotFound = errors.New("key not found")

// KeyResolver resolves keys for signature verification from the keyid
// parameter and the Signature-Agent header.
type KeyResolver = botsig.KeyResolver

// KeyResolverFunc is a function adapter for KeyResolver.
type KeyResolverFunc = botsig.KeyResolverFunc

// StaticKeyResolver provides a single static key for all verifications.
type StaticKeyResolver struct {
	Key any
}

func (s *StaticKeyResolver) ResolveKey(context.Context, string, string) (any, error) {
	return s.Key, nil
}

// MapKeyResolver provides key lookup by keyid from a map.
type MapKeyResolver struct {
	Keys map[string]any
}

func (m *MapKeyResolver) ResolveKey(_ context.Context, keyID, _ string) (any, error) {
	if key, exists := m.Keys[keyID]; exists {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, keyID)
}
