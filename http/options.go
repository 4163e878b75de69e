package http

import (
	"net/http"
	"time"

	"github.com/lestrrat-go/option"
	"github.com/openbotauth/botsig/replay"
	"go.uber.org/zap"
)

type Option = option.Interface

// Identifier types for options
type identVerifier struct{}

func (identVerifier) String() string { return "WithVerifier" }

type identTransport struct{}

func (identTransport) String() string { return "WithTransport" }

type identCoveredHeaders struct{}

func (identCoveredHeaders) String() string { return "WithCoveredHeaders" }

type identMaxRedirects struct{}

func (identMaxRedirects) String() string { return "WithMaxRedirects" }

type identTimeout struct{}

func (identTimeout) String() string { return "WithTimeout" }

type identLogger struct{}

func (identLogger) String() string { return "WithLogger" }

type identSkipOnMissing struct{}

func (identSkipOnMissing) String() string { return "WithSkipOnMissing" }

type identVerifierErrorHandler struct{}

func (identVerifierErrorHandler) String() string { return "WithVerifierErrorHandler" }

type identReplayStore struct{}

func (identReplayStore) String() string { return "WithReplayStore" }

type identSkew struct{}

func (identSkew) String() string { return "WithSkew" }

type identRequiredHeaders struct{}

func (identRequiredHeaders) String() string { return "WithRequiredHeaders" }

type identClock struct{}

func (identClock) String() string { return "WithClock" }

type identHTTPClient struct{}

func (identHTTPClient) String() string { return "WithHTTPClient" }

type identCacheTTL struct{}

func (identCacheTTL) String() string { return "WithCacheTTL" }

type identJWKSURL struct{}

func (identJWKSURL) String() string { return "WithJWKSURL" }

type identAllowedAgents struct{}

func (identAllowedAgents) String() string { return "WithAllowedAgents" }

// MiddlewareOption configures Wrap.
type MiddlewareOption interface {
	Option
	wrapperOption()
}

type middlewareOption struct {
	Option
}

func (middlewareOption) wrapperOption() {}

// ClientOption configures a Client.
type ClientOption interface {
	Option
	clientOption()
}

type clientOption struct {
	Option
}

func (clientOption) clientOption() {}

// TransportOption configures a SigningTransport.
type TransportOption interface {
	Option
	transportOption()
}

// ClientTransportOption can be passed to both NewClient and
// NewSigningTransport.
type ClientTransportOption interface {
	ClientOption
	TransportOption
}

type clientTransportOption struct {
	Option
}

func (clientTransportOption) clientOption()    {}
func (clientTransportOption) transportOption() {}

// VerifierOption configures a Verifier.
type VerifierOption interface {
	Option
	verifierOption()
}

type verifierOption struct {
	Option
}

func (verifierOption) verifierOption() {}

// ClientVerifierOption can be passed to both NewClient and NewVerifier.
type ClientVerifierOption interface {
	ClientOption
	VerifierOption
}

type clientVerifierOption struct {
	Option
}

func (clientVerifierOption) clientOption()   {}
func (clientVerifierOption) verifierOption() {}

// JWKSOption configures a JWKSResolver.
type JWKSOption interface {
	Option
	jwksOption()
}

type jwksOption struct {
	Option
}

func (jwksOption) jwksOption() {}

// WithVerifier specifies the verifier to use for request signature verification.
func WithVerifier(verifier *Verifier) MiddlewareOption {
	return middlewareOption{option.New(identVerifier{}, verifier)}
}

// WithTransport sets the underlying transport.
func WithTransport(transport http.RoundTripper) ClientTransportOption {
	return clientTransportOption{option.New(identTransport{}, transport)}
}

// WithCoveredHeaders names request headers to cover in each signature, in
// addition to "@method", "@authority" and "@path". Requests must carry
// every named header.
func WithCoveredHeaders(names ...string) ClientTransportOption {
	return clientTransportOption{option.New(identCoveredHeaders{}, names)}
}

// WithMaxRedirects sets how many redirects a Client follows before giving
// up with ErrTooManyRedirects. Defaults to DefaultMaxRedirects.
func WithMaxRedirects(n int) ClientOption {
	return clientOption{option.New(identMaxRedirects{}, n)}
}

// WithTimeout sets the time limit of each request made by a Client,
// including reading the response body. Defaults to DefaultTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return clientOption{option.New(identTimeout{}, d)}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) ClientVerifierOption {
	return clientVerifierOption{option.New(identLogger{}, logger)}
}

// WithSkipOnMissing configures whether to let unsigned requests through.
// Requests carrying a signature are always verified.
func WithSkipOnMissing(skip bool) VerifierOption {
	return verifierOption{option.New(identSkipOnMissing{}, skip)}
}

// WithVerifierErrorHandler configures custom error handling.
func WithVerifierErrorHandler(handler http.Handler) VerifierOption {
	return verifierOption{option.New(identVerifierErrorHandler{}, handler)}
}

// WithReplayStore rejects requests whose nonce was already seen by store.
func WithReplayStore(store replay.Store) VerifierOption {
	return verifierOption{option.New(identReplayStore{}, store)}
}

// WithSkew tolerates signer clocks running ahead of the verifier's.
func WithSkew(d time.Duration) VerifierOption {
	return verifierOption{option.New(identSkew{}, d)}
}

// WithRequiredHeaders requires signatures to cover the named headers.
func WithRequiredHeaders(names ...string) VerifierOption {
	return verifierOption{option.New(identRequiredHeaders{}, names)}
}

// WithClock sets the clock signatures are checked against.
func WithClock(clock Clock) VerifierOption {
	return verifierOption{option.New(identClock{}, clock)}
}

// WithHTTPClient sets the client used to fetch key sets.
func WithHTTPClient(client *http.Client) JWKSOption {
	return jwksOption{option.New(identHTTPClient{}, client)}
}

// WithCacheTTL sets how long a fetched key set is reused.
func WithCacheTTL(d time.Duration) JWKSOption {
	return jwksOption{option.New(identCacheTTL{}, d)}
}

// WithJWKSURL sets the key set URL used for requests without a
// Signature-Agent header.
func WithJWKSURL(u string) JWKSOption {
	return jwksOption{option.New(identJWKSURL{}, u)}
}

// WithAllowedAgents restricts the key set URLs a JWKSResolver fetches.
// A URL is allowed when it equals one of the entries, or when an entry
// ending in "/" is a prefix of it. Other agents are rejected with
// ErrKeyNotFound without any request being made. Passing no entries
// rejects every agent.
func WithAllowedAgents(urls ...string) JWKSOption {
	return jwksOption{option.New(identAllowedAgents{}, urls)}
}
