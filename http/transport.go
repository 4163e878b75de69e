package http

import (
	"net/http"

	"github.com/openbotauth/botsig"
)

// SigningTransport is an http.RoundTripper that signs every request it
// sends with a fresh agent signature. Used from an http.Client, each
// redirect hop reaches RoundTrip as a new request and is signed anew.
type SigningTransport struct {
	signer    *botsig.Signer
	transport http.RoundTripper
	headers   []string
}

// NewSigningTransport creates a SigningTransport signing with signer.
func NewSigningTransport(signer *botsig.Signer, options ...TransportOption) *SigningTransport {
	t := &SigningTransport{
		signer:    signer,
		transport: http.DefaultTransport,
	}
	for _, opt := range options {
		switch opt.Ident() {
		case identTransport{}:
			if rt, ok := opt.Value().(http.RoundTripper); ok && rt != nil {
				t.transport = rt
			}
		case identCoveredHeaders{}:
			t.headers = opt.Value().([]string)
		}
	}
	return t
}

// RoundTrip implements http.RoundTripper by signing a copy of the request
// before sending it.
func (t *SigningTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	signedReq := req.Clone(req.Context())
	rootPath(signedReq.URL)
	if _, err := botsig.SignHTTPRequest(signedReq, t.signer, t.headers...); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	return t.transport.RoundTrip(signedReq)
}

// NewHTTPClient creates an http.Client whose requests are signed with
// signer. Redirects are followed by net/http and re-signed per hop.
func NewHTTPClient(signer *botsig.Signer, options ...TransportOption) *http.Client {
	return &http.Client{
		Transport: NewSigningTransport(signer, options...),
		Timeout:   DefaultTimeout,
	}
}
