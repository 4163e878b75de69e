// Package botsig signs HTTP requests made by automated agents with RFC 9421
// HTTP Message Signatures using Ed25519, and verifies such signatures on
// the receiving side.
//
// A signed request carries four headers:
//
//	Signature-Input: sig1=("@method" "@authority" "@path");created=...;expires=...;nonce="...";keyid="...";alg="ed25519"
//	Signature:       sig1=:<base64 signature>:
//	Signature-Agent: <JWKS URL of the agent>
//	User-Agent:      OpenBotAuth-Agent/0.1.0
//
// The signature base is built by package sigbase, keys are loaded by
// package keys, and response classification lives in package decision.
package botsig

import (
	"errors"

	"github.com/openbotauth/botsig/component"
	"github.com/openbotauth/botsig/input"
	"github.com/openbotauth/botsig/keys"
	"github.com/openbotauth/botsig/sigbase"
)

const (
	SignatureInputHeader = input.SignatureInputHeader
	SignatureHeader      = input.SignatureHeader
	SignatureAgentHeader = input.SignatureAgentHeader
	UserAgentHeader      = "User-Agent"

	// UserAgent is sent with every signed request.
	UserAgent = "OpenBotAuth-Agent/0.1.0"

	// Label is the signature label used for agent signatures.
	Label = input.DefaultLabel
	// Algorithm is the RFC 9421 algorithm name of agent signatures.
	Algorithm = input.AlgorithmEd25519
	// jwsAlgorithm is the name jwsbb knows Ed25519 signatures by.
	jwsAlgorithm = "EdDSA"

	// MaxWindow is the longest allowed signature lifetime.
	MaxWindow = input.MaxWindow
)

var (
	// ErrInvalidURL is returned when the target URL has no hostname.
	ErrInvalidURL = component.ErrInvalidURL
	// ErrInvalidWindow is returned when 0 < expires-created <= MaxWindow
	// does not hold.
	ErrInvalidWindow = sigbase.ErrInvalidWindow
	// ErrMissingParameter is returned when the method, nonce or key ID is empty.
	ErrMissingParameter = sigbase.ErrMissingParameter
	// ErrInvalidKey is returned for malformed or non-Ed25519 key material.
	ErrInvalidKey = keys.ErrInvalidKey

	// ErrSigningFailure wraps errors from the Ed25519 signing primitive.
	ErrSigningFailure = errors.New("signing failed")
	// ErrMissingSignature is returned when a request carries no
	// Signature or Signature-Input header.
	ErrMissingSignature = errors.New("missing signature")
	// ErrMalformedSignature is returned when the signature headers cannot
	// be parsed or lack the sig1 label, alg or required components.
	ErrMalformedSignature = errors.New("malformed signature")
	// ErrVerificationFailed is returned when the signature does not match
	// the rebuilt signature base.
	ErrVerificationFailed = errors.New("signature verification failed")
	// ErrExpired is returned when the current time is outside the
	// signature's created/expires window, allowing for skew.
	ErrExpired = errors.New("signature expired or not yet valid")
	// ErrReplayed is returned when the signature's nonce was already
	// claimed in the replay store.
	ErrReplayed = errors.New("signature nonce already used")
)
