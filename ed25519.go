package botsig

import (
	"crypto/ed25519"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws/jwsbb"
	"github.com/openbotauth/botsig/keys"
)

// SignMessage signs message with key and returns the 64 byte Ed25519
// signature. Ed25519 is deterministic: the same message and key always
// produce the same signature.
//
// RFC 9421 Section 3.3.7: the signature base is used as the entire signing
// input, it is neither wrapped in a JOSE header nor base64 encoded first.
func SignMessage(message []byte, key *keys.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: private key is required", ErrSigningFailure)
	}
	signature, err := jwsbb.Sign(key.Ed25519(), jwsAlgorithm, message, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailure, err)
	}
	return signature, nil
}

// VerifyMessage reports whether signature is a valid Ed25519 signature of
// message. key may be a *keys.PublicKey, *keys.PrivateKey,
// ed25519.PublicKey, ed25519.PrivateKey or a jwk.Key holding an Ed25519
// key. A non-Ed25519 key is an error; a signature that does not verify is
// not.
func VerifyMessage(message, signature []byte, key any) (bool, error) {
	pub, err := publicKeyOf(key)
	if err != nil {
		return false, err
	}
	if len(signature) != ed25519.SignatureSize {
		return false, nil
	}
	if err := jwsbb.Verify(pub, jwsAlgorithm, message, signature); err != nil {
		return false, nil
	}
	return true, nil
}

func publicKeyOf(key any) (ed25519.PublicKey, error) {
	switch key := key.(type) {
	case *keys.PublicKey:
		if key == nil {
			break
		}
		return key.Ed25519(), nil
	case *keys.PrivateKey:
		if key == nil {
			break
		}
		return key.Public().Ed25519(), nil
	case ed25519.PublicKey:
		if len(key) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: ed25519 public key must be %d bytes", ErrInvalidKey, ed25519.PublicKeySize)
		}
		return key, nil
	case ed25519.PrivateKey:
		if len(key) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("%w: ed25519 private key must be %d bytes", ErrInvalidKey, ed25519.PrivateKeySize)
		}
		return key.Public().(ed25519.PublicKey), nil
	case jwk.Key:
		pub, err := keys.FromJWK(key)
		if err != nil {
			return nil, err
		}
		return pub.Ed25519(), nil
	}
	return nil, fmt.Errorf("%w: unsupported key type %T", ErrInvalidKey, key)
}
