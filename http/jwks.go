package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultCacheTTL is how long a JWKSResolver reuses a fetched key set.
const DefaultCacheTTL = 5 * time.Minute

const maxJWKSSize = 1 << 20

// JWKSResolver resolves keys from the JSON Web Key Set published at the
// request's Signature-Agent URL. Key sets are cached per URL.
type JWKSResolver struct {
	client     *http.Client
	cache      *gocache.Cache
	defaultURL string
	allowed    []string
	restricted bool
}

// NewJWKSResolver creates a JWKSResolver.
func NewJWKSResolver(options ...JWKSOption) *JWKSResolver {
	r := &JWKSResolver{
		client: &http.Client{Timeout: DefaultTimeout},
	}
	ttl := DefaultCacheTTL
	for _, opt := range options {
		switch opt.Ident() {
		case identHTTPClient{}:
			if c := opt.Value().(*http.Client); c != nil {
				r.client = c
			}
		case identCacheTTL{}:
			ttl = opt.Value().(time.Duration)
		case identJWKSURL{}:
			r.defaultURL = opt.Value().(string)
		case identAllowedAgents{}:
			r.allowed = opt.Value().([]string)
			r.restricted = true
		}
	}
	r.cache = gocache.New(ttl, 2*ttl)
	return r
}

// ResolveKey returns the jwk.Key with the given keyid from the agent's key
// set.
func (r *JWKSResolver) ResolveKey(ctx context.Context, keyID, agentURL string) (any, error) {
	setURL := strings.Trim(strings.TrimSpace(agentURL), `"`)
	if setURL == "" {
		setURL = r.defaultURL
	}
	if setURL == "" {
		return nil, fmt.Errorf("%w: request has no Signature-Agent", ErrKeyNotFound)
	}
	if !r.allows(setURL) {
		return nil, fmt.Errorf("%w: agent %s is not allowed", ErrKeyNotFound, setURL)
	}

	set, err := r.Fetch(ctx, setURL)
	if err != nil {
		return nil, err
	}
	key, ok := set.LookupKeyID(keyID)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not in %s", ErrKeyNotFound, keyID, setURL)
	}
	return key, nil
}

func (r *JWKSResolver) allows(setURL string) bool {
	if !r.restricted {
		return true
	}
	for _, a := range r.allowed {
		if a == "" {
			continue
		}
		if setURL == a || (strings.HasSuffix(a, "/") && strings.HasPrefix(setURL, a)) {
			return true
		}
	}
	return false
}

// Fetch returns the key set at setURL, from the cache when possible.
func (r *JWKSResolver) Fetch(ctx context.Context, setURL string) (jwk.Set, error) {
	if cached, ok := r.cache.Get(setURL); ok {
		return cached.(jwk.Set), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, setURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid key set URL %q: %w", setURL, err)
	}
	req.Header.Set("Accept", "application/jwk-set+json, application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching key set: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch key set %s: status %d", setURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading key set: %w", ErrTransport, err)
	}

	set, err := jwk.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key set %s: %w", setURL, err)
	}
	r.cache.SetDefault(setURL, set)
	return set, nil
}
