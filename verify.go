package botsig

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/sfv"
	"github.com/openbotauth/botsig/component"
	"github.com/openbotauth/botsig/input"
	"github.com/openbotauth/botsig/keys"
	"github.com/openbotauth/botsig/replay"
	"github.com/openbotauth/botsig/sigbase"
)

// KeyResolver looks up the verification key for a signature. agentURL is
// the Signature-Agent header of the request, which may be empty.
type KeyResolver interface {
	ResolveKey(ctx context.Context, keyID, agentURL string) (any, error)
}

// KeyResolverFunc adapts a function to the KeyResolver interface.
type KeyResolverFunc func(ctx context.Context, keyID, agentURL string) (any, error)

func (f KeyResolverFunc) ResolveKey(ctx context.Context, keyID, agentURL string) (any, error) {
	return f(ctx, keyID, agentURL)
}

// Verified describes a request whose agent signature was verified.
type Verified struct {
	KeyID      string
	AgentURL   string
	Nonce      string
	Created    time.Time
	Expires    time.Time
	Components []string
	Base       *sigbase.Base
}

type verifyParams struct {
	clock    Clock
	skew     time.Duration
	store    replay.Store
	required []string
}

func parseVerifyOptions(options []VerifyOption) (*verifyParams, error) {
	p := verifyParams{clock: SystemClock{}}
	for _, opt := range options {
		switch opt.Ident() {
		case identClock{}:
			if err := optionValue(opt, &p.clock); err != nil {
				return nil, err
			}
		case identSkew{}:
			if err := optionValue(opt, &p.skew); err != nil {
				return nil, err
			}
		case identReplayStore{}:
			if err := optionValue(opt, &p.store); err != nil {
				return nil, err
			}
		case identRequiredHeaders{}:
			if err := optionValue(opt, &p.required); err != nil {
				return nil, err
			}
		}
	}
	return &p, nil
}

// VerifyHTTPRequest verifies the "sig1" agent signature on a received
// request (RFC 9421 Section 3.2). The signature must use ed25519, cover
// "@method", "@authority" and "@path" first, and be currently valid with
// a window of at most MaxWindow.
func VerifyHTTPRequest(req *http.Request, resolver KeyResolver, options ...VerifyOption) (*Verified, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", ErrMissingSignature)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: key resolver is required", ErrInvalidKey)
	}
	p, err := parseVerifyOptions(options)
	if err != nil {
		return nil, err
	}

	def, signature, err := extractSignature(req.Header)
	if err != nil {
		return nil, err
	}
	if err := checkDefinition(def, p.required); err != nil {
		return nil, err
	}

	created, _ := def.Created()
	expires, _ := def.Expires()
	if err := sigbase.ValidateWindow(created, expires); err != nil {
		return nil, err
	}
	now := p.clock.Now().Unix()
	if now > expires || now < created-int64(p.skew/time.Second) {
		return nil, fmt.Errorf("%w: valid from %d to %d, now %d", ErrExpired, created, expires, now)
	}

	u, err := component.TargetURL(req)
	if err != nil {
		return nil, err
	}
	base, err := sigbase.FromDefinition(req.Method, u, def, req.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}

	agentURL := req.Header.Get(SignatureAgentHeader)
	key, err := resolver.ResolveKey(req.Context(), def.KeyID(), agentURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve key %q: %w", def.KeyID(), err)
	}

	ok, err := VerifyMessage(base.Bytes(), signature, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: signature does not match key %q", ErrVerificationFailed, def.KeyID())
	}

	nonce, _ := def.Nonce()
	if p.store != nil {
		ttl := time.Duration(expires-now)*time.Second + p.skew
		fresh, err := p.store.Claim(req.Context(), nonce, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to record nonce: %w", err)
		}
		if !fresh {
			return nil, fmt.Errorf("%w: nonce %q", ErrReplayed, nonce)
		}
	}

	createdTime, _ := def.CreatedTime()
	expiresTime, _ := def.ExpiresTime()
	return &Verified{
		KeyID:      def.KeyID(),
		AgentURL:   agentURL,
		Nonce:      nonce,
		Created:    createdTime,
		Expires:    expiresTime,
		Components: def.Components(),
		Base:       base,
	}, nil
}

func extractSignature(hdr http.Header) (*input.Definition, []byte, error) {
	signatureInput := hdr.Get(SignatureInputHeader)
	if signatureInput == "" {
		return nil, nil, fmt.Errorf("%w: missing %s header", ErrMissingSignature, SignatureInputHeader)
	}
	signatureHeader := hdr.Get(SignatureHeader)
	if signatureHeader == "" {
		return nil, nil, fmt.Errorf("%w: missing %s header", ErrMissingSignature, SignatureHeader)
	}

	value, err := input.Parse([]byte(signatureInput))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}
	def, ok := value.GetDefinition(Label)
	if !ok {
		return nil, nil, fmt.Errorf("%w: no %q signature in %s", ErrMissingSignature, Label, SignatureInputHeader)
	}

	dict, err := sfv.ParseDictionary([]byte(signatureHeader))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to parse %s header: %w", ErrMalformedSignature, SignatureHeader, err)
	}

	var entry any
	if err := dict.GetValue(Label, &entry); err != nil {
		return nil, nil, fmt.Errorf("%w: signature label %q not found in %s header", ErrMissingSignature, Label, SignatureHeader)
	}

	var signature []byte
	switch entry := entry.(type) {
	case sfv.BareItem:
		if entry.Type() != sfv.ByteSequenceType {
			return nil, nil, fmt.Errorf("%w: signature %q must be a byte sequence", ErrMalformedSignature, Label)
		}
		if err := entry.GetValue(&signature); err != nil {
			return nil, nil, fmt.Errorf("%w: failed to extract signature bytes: %w", ErrMalformedSignature, err)
		}
	case sfv.Item:
		if err := entry.GetValue(&signature); err != nil {
			return nil, nil, fmt.Errorf("%w: failed to extract signature bytes: %w", ErrMalformedSignature, err)
		}
	default:
		return nil, nil, fmt.Errorf("%w: signature %q must be a byte sequence, got %T", ErrMalformedSignature, Label, entry)
	}
	return def, signature, nil
}

func checkDefinition(def *input.Definition, required []string) error {
	if def.Algorithm() != Algorithm {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedSignature, def.Algorithm())
	}
	if !def.HasRequiredPrefix() {
		return fmt.Errorf("%w: signature must cover @method, @authority and @path first", ErrMalformedSignature)
	}
	if _, ok := def.Created(); !ok {
		return fmt.Errorf("%w: missing created parameter", ErrMalformedSignature)
	}
	if _, ok := def.Expires(); !ok {
		return fmt.Errorf("%w: missing expires parameter", ErrMalformedSignature)
	}
	if nonce, ok := def.Nonce(); !ok || nonce == "" {
		return fmt.Errorf("%w: missing nonce parameter", ErrMalformedSignature)
	}

	covered := make(map[string]struct{})
	for _, name := range def.Components() {
		covered[name] = struct{}{}
	}
	for _, name := range required {
		if _, ok := covered[component.New(name).Name()]; !ok {
			return fmt.Errorf("%w: header %q is not covered", ErrMalformedSignature, name)
		}
	}
	return nil
}

// StaticKey returns a KeyResolver that always resolves to key.
func StaticKey(key *keys.PublicKey) KeyResolver {
	return KeyResolverFunc(func(context.Context, string, string) (any, error) {
		return key, nil
	})
}
