// Package keys loads and holds the Ed25519 key material used for agent
// signatures.
//
// Keys are read from PEM: PKCS#8 "PRIVATE KEY" blocks for private keys and
// PKIX "PUBLIC KEY" blocks for public keys. Anything other than Ed25519 is
// rejected with ErrInvalidKey. Neither the values nor the errors produced
// by this package ever contain key bytes.
package keys

import (
	"crypto/ed25519"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwk/jwkbb"
	"lukechampine.com/frand"
)

// ErrInvalidKey is returned when key material is malformed or is not an
// Ed25519 key.
var ErrInvalidKey = errors.New("invalid key")

// PrivateKey is an Ed25519 private key. It is read-only after construction.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// PublicKey is an Ed25519 public key.
type PublicKey struct {
	key ed25519.PublicKey
}

// Generate creates a new random private key.
func Generate() (*PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(frand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	return &PrivateKey{key: priv}, nil
}

// NewPrivateKey wraps an existing Ed25519 private key.
func NewPrivateKey(key ed25519.PrivateKey) (*PrivateKey, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: ed25519 private key must be %d bytes, got %d", ErrInvalidKey, ed25519.PrivateKeySize, len(key))
	}
	return &PrivateKey{key: append(ed25519.PrivateKey(nil), key...)}, nil
}

// NewPublicKey wraps an existing Ed25519 public key.
func NewPublicKey(key ed25519.PublicKey) (*PublicKey, error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: ed25519 public key must be %d bytes, got %d", ErrInvalidKey, ed25519.PublicKeySize, len(key))
	}
	return &PublicKey{key: append(ed25519.PublicKey(nil), key...)}, nil
}

// ParsePrivateKeyPEM parses a PKCS#8 PEM encoded Ed25519 private key.
// Surrounding whitespace is ignored.
func ParsePrivateKeyPEM(data []byte) (*PrivateKey, error) {
	raw, err := decodePEM(data, jwkbb.PrivateKeyBlockType)
	if err != nil {
		return nil, err
	}
	priv, ok := raw.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected an ed25519 private key, got %s", ErrInvalidKey, keyKind(raw))
	}
	return NewPrivateKey(priv)
}

// ParsePublicKeyPEM parses a PKIX PEM encoded Ed25519 public key.
func ParsePublicKeyPEM(data []byte) (*PublicKey, error) {
	raw, err := decodePEM(data, jwkbb.PublicKeyBlockType)
	if err != nil {
		return nil, err
	}
	pub, ok := raw.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected an ed25519 public key, got %s", ErrInvalidKey, keyKind(raw))
	}
	return NewPublicKey(pub)
}

func decodePEM(data []byte, blockType string) (any, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(string(data))))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKey)
	}
	if block.Type != blockType {
		return nil, fmt.Errorf("%w: expected PEM block %q, got %q", ErrInvalidKey, blockType, block.Type)
	}

	var raw any
	if err := jwkbb.DecodeX509(&raw, block); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s", ErrInvalidKey, strings.ToLower(blockType))
	}
	return raw, nil
}

func keyKind(raw any) string {
	return fmt.Sprintf("%T", raw)
}

// Ed25519 returns a copy of the raw key.
func (k *PrivateKey) Ed25519() ed25519.PrivateKey {
	return append(ed25519.PrivateKey(nil), k.key...)
}

// Seed returns the 32 byte seed of the key.
func (k *PrivateKey) Seed() []byte {
	return k.key.Seed()
}

func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{key: k.key.Public().(ed25519.PublicKey)}
}

// MarshalPEM encodes the key as a PKCS#8 PEM block.
func (k *PrivateKey) MarshalPEM() ([]byte, error) {
	return jwkbb.EncodeX509(nil, k.key)
}

func (k *PrivateKey) String() string {
	return "ed25519 private key"
}

func (k *PrivateKey) GoString() string {
	return "keys.PrivateKey{...}"
}

// Ed25519 returns a copy of the raw key.
func (k *PublicKey) Ed25519() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), k.key...)
}

// Equal reports whether both keys hold the same public key.
func (k *PublicKey) Equal(other *PublicKey) bool {
	if k == nil || other == nil {
		return false
	}
	return k.key.Equal(other.key)
}

// MarshalPEM encodes the key as a PKIX PEM block.
func (k *PublicKey) MarshalPEM() ([]byte, error) {
	return jwkbb.EncodeX509(nil, k.key)
}

func (k *PublicKey) String() string {
	return "ed25519 public key"
}
