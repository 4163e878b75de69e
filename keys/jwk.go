package keys

import (
	"crypto"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// JWK returns the public key as a JWK. If kid is empty the key ID is left
// unset.
func (k *PublicKey) JWK(kid string) (jwk.Key, error) {
	key, err := jwk.Import(k.key)
	if err != nil {
		return nil, fmt.Errorf("failed to import public key: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.EdDSA()); err != nil {
		return nil, fmt.Errorf("failed to set alg: %w", err)
	}
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return nil, fmt.Errorf("failed to set use: %w", err)
	}
	if kid != "" {
		if err := key.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, fmt.Errorf("failed to set kid: %w", err)
		}
	}
	return key, nil
}

// Thumbprint returns the RFC 7638 SHA-256 thumbprint of the key, base64url
// encoded without padding.
func (k *PublicKey) Thumbprint() (string, error) {
	key, err := jwk.Import(k.key)
	if err != nil {
		return "", fmt.Errorf("failed to import public key: %w", err)
	}
	tp, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("failed to compute thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}

// FromJWK extracts the Ed25519 public key from a JWK. Private JWKs are
// reduced to their public half.
func FromJWK(key jwk.Key) (*PublicKey, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: jwk is nil", ErrInvalidKey)
	}

	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to export jwk: %w", ErrInvalidKey, err)
	}

	switch raw := raw.(type) {
	case ed25519.PublicKey:
		return NewPublicKey(raw)
	case ed25519.PrivateKey:
		return NewPublicKey(raw.Public().(ed25519.PublicKey))
	default:
		return nil, fmt.Errorf("%w: expected an ed25519 jwk, got %s", ErrInvalidKey, keyKind(raw))
	}
}

// MatchKeyID returns the kid of the first key in set whose public key
// equals pub. Keys that are not Ed25519, or that have no kid, are skipped.
func MatchKeyID(set jwk.Set, pub *PublicKey) (string, bool) {
	if set == nil || pub == nil {
		return "", false
	}
	for i := range set.Len() {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		kid, ok := key.KeyID()
		if !ok || kid == "" {
			continue
		}
		candidate, err := FromJWK(key)
		if err != nil {
			continue
		}
		if candidate.Equal(pub) {
			return kid, true
		}
	}
	return "", false
}
