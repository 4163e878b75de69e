package botsig

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openbotauth/botsig/component"
	"github.com/openbotauth/botsig/keys"
	"github.com/openbotauth/botsig/sigbase"
)

// Credentials identify a signing agent. They are plain values: nothing is
// kept in process-wide state.
type Credentials struct {
	// PrivateKeyPEM is the PKCS#8 PEM encoded Ed25519 private key.
	PrivateKeyPEM string
	// KeyID is the kid of the key in the agent's JWKS.
	KeyID string
	// SignatureAgentURL is the URL of the agent's JWKS, sent as
	// Signature-Agent.
	SignatureAgentURL string
}

// SignedRequest is the outcome of signing a single request.
type SignedRequest struct {
	Method  string
	URL     string
	Base    *sigbase.Base
	Headers SignedHeaders
}

// Created returns the created parameter of the signature.
func (r *SignedRequest) Created() time.Time {
	t, _ := r.Base.Definition().CreatedTime()
	return t
}

// Expires returns the expires parameter of the signature.
func (r *SignedRequest) Expires() time.Time {
	t, _ := r.Base.Definition().ExpiresTime()
	return t
}

// Nonce returns the nonce parameter of the signature.
func (r *SignedRequest) Nonce() string {
	n, _ := r.Base.Definition().Nonce()
	return n
}

// Signer signs requests on behalf of one agent. It is immutable and safe
// for concurrent use.
type Signer struct {
	key      *keys.PrivateKey
	keyID    string
	agentURL string
	defaults []SignOption
}

// NewSigner parses the credentials' private key once and returns a Signer.
// The options are applied to every Sign call before the call's own options.
func NewSigner(creds Credentials, options ...SignOption) (*Signer, error) {
	if creds.KeyID == "" {
		return nil, fmt.Errorf("%w: keyid", ErrMissingParameter)
	}
	key, err := keys.ParsePrivateKeyPEM([]byte(creds.PrivateKeyPEM))
	if err != nil {
		return nil, err
	}
	return &Signer{
		key:      key,
		keyID:    creds.KeyID,
		agentURL: creds.SignatureAgentURL,
		defaults: options,
	}, nil
}

// NewSignerWithKey creates a Signer from an already loaded key.
func NewSignerWithKey(key *keys.PrivateKey, keyID, agentURL string, options ...SignOption) (*Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: private key is required", ErrInvalidKey)
	}
	if keyID == "" {
		return nil, fmt.Errorf("%w: keyid", ErrMissingParameter)
	}
	return &Signer{key: key, keyID: keyID, agentURL: agentURL, defaults: options}, nil
}

func (s *Signer) KeyID() string {
	return s.keyID
}

func (s *Signer) AgentURL() string {
	return s.agentURL
}

// PublicKey returns the public half of the signing key.
func (s *Signer) PublicKey() *keys.PublicKey {
	return s.key.Public()
}

type signParams struct {
	clock   Clock
	window  time.Duration
	created *time.Time
	expires *time.Time
	nonce   string
	headers []headerPair
}

func (s *Signer) parseOptions(options []SignOption) (*signParams, error) {
	p := signParams{
		clock:  SystemClock{},
		window: MaxWindow,
	}

	all := append(append([]SignOption(nil), s.defaults...), options...)
	for _, opt := range all {
		switch opt.Ident() {
		case identClock{}:
			if err := optionValue(opt, &p.clock); err != nil {
				return nil, err
			}
		case identWindow{}:
			if err := optionValue(opt, &p.window); err != nil {
				return nil, err
			}
		case identCreated{}:
			var t time.Time
			if err := optionValue(opt, &t); err != nil {
				return nil, err
			}
			p.created = &t
		case identExpires{}:
			var t time.Time
			if err := optionValue(opt, &t); err != nil {
				return nil, err
			}
			p.expires = &t
		case identNonce{}:
			if err := optionValue(opt, &p.nonce); err != nil {
				return nil, err
			}
		case identHeader{}:
			var h headerPair
			if err := optionValue(opt, &h); err != nil {
				return nil, err
			}
			p.headers = append(p.headers, h)
		}
	}
	return &p, nil
}

// Sign builds and signs the signature base for a request with the given
// method to rawURL. By default created is the current time, expires is
// created plus MaxWindow and the nonce is freshly generated.
func (s *Signer) Sign(method, rawURL string, options ...SignOption) (*SignedRequest, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	return s.SignURL(method, u, options...)
}

// SignURL is like Sign, for an already parsed URL.
func (s *Signer) SignURL(method string, u *url.URL, options ...SignOption) (*SignedRequest, error) {
	p, err := s.parseOptions(options)
	if err != nil {
		return nil, err
	}

	created := p.clock.Now()
	if p.created != nil {
		created = *p.created
	}
	expires := created.Add(p.window)
	if p.expires != nil {
		expires = *p.expires
	}
	nonce := p.nonce
	if nonce == "" {
		nonce = NewNonce()
	}

	builder := sigbase.Request(method, u)
	for _, h := range p.headers {
		builder.Header(h.name, h.value)
	}
	base, err := builder.
		Created(created.Unix()).
		Expires(expires.Unix()).
		Nonce(nonce).
		KeyID(s.keyID).
		Build()
	if err != nil {
		return nil, err
	}

	signature, err := SignMessage(base.Bytes(), s.key)
	if err != nil {
		return nil, err
	}

	headers, err := ComposeHeaders(base, signature, s.agentURL)
	if err != nil {
		return nil, err
	}

	return &SignedRequest{
		Method:  strings.ToUpper(method),
		URL:     u.String(),
		Base:    base,
		Headers: headers,
	}, nil
}

// MakeSignedHeaders signs a single request with creds and returns the
// headers to attach to it.
func MakeSignedHeaders(method, rawURL string, creds Credentials, options ...SignOption) (SignedHeaders, error) {
	signer, err := NewSigner(creds)
	if err != nil {
		return SignedHeaders{}, err
	}
	signed, err := signer.Sign(method, rawURL, options...)
	if err != nil {
		return SignedHeaders{}, err
	}
	return signed.Headers, nil
}

// SignHTTPRequest signs req in place. Server-side requests without an
// absolute URL are signed for their Host. The named request headers are
// covered in addition to "@method", "@authority" and "@path"; each must be
// present on req.
func SignHTTPRequest(req *http.Request, signer *Signer, headerNames ...string) (*SignedRequest, error) {
	if req == nil || req.URL == nil {
		return nil, fmt.Errorf("%w: request has no URL", ErrInvalidURL)
	}
	if signer == nil {
		return nil, fmt.Errorf("%w: signer is required", ErrSigningFailure)
	}

	options := make([]SignOption, 0, len(headerNames))
	for _, name := range headerNames {
		values := req.Header.Values(name)
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: header %q is not set on the request", ErrMissingParameter, name)
		}
		options = append(options, WithHeader(name, joinFieldValues(values)))
	}

	u, err := component.TargetURL(req)
	if err != nil {
		return nil, err
	}
	signed, err := signer.SignURL(req.Method, u, options...)
	if err != nil {
		return nil, err
	}
	signed.Headers.Apply(req.Header)
	return signed, nil
}

func joinFieldValues(values []string) string {
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = strings.TrimSpace(v)
	}
	return strings.Join(trimmed, ", ")
}
