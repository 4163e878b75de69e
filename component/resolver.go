package component

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RequestInfo contains the discrete values needed to resolve request
// components.
type RequestInfo struct {
	Method    string
	Authority string
	Path      string
	Headers   http.Header
}

// RequestInfoFromURL resolves the derived values for a request that is
// about to be sent to u. The method is upper-cased.
func RequestInfoFromURL(method string, u *url.URL, headers http.Header) (*RequestInfo, error) {
	authority, err := NormalizeAuthority(u)
	if err != nil {
		return nil, err
	}
	return &RequestInfo{
		Method:    strings.ToUpper(method),
		Authority: authority,
		Path:      CanonicalPath(u),
		Headers:   headers,
	}, nil
}

// TargetURL reconstructs the absolute URL of a request received by a
// server. The scheme is taken from the URL if present, otherwise from
// whether the connection used TLS.
func TargetURL(req *http.Request) (*url.URL, error) {
	if req == nil || req.URL == nil {
		return nil, fmt.Errorf("%w: request has no URL", ErrInvalidURL)
	}
	if req.URL.IsAbs() {
		return req.URL, nil
	}

	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	host := req.Host
	if host == "" {
		host = req.URL.Host
	}

	u := *req.URL
	u.Scheme = scheme
	u.Host = host
	return &u, nil
}

// RequestInfoFromHTTP creates RequestInfo from an incoming or outgoing
// http.Request.
func RequestInfoFromHTTP(req *http.Request) (*RequestInfo, error) {
	u, err := TargetURL(req)
	if err != nil {
		return nil, err
	}
	return RequestInfoFromURL(req.Method, u, req.Header)
}

// Resolve resolves the component identifier to its value.
func (ri *RequestInfo) Resolve(comp Identifier) (string, error) {
	if comp.IsDerived() {
		switch comp.name {
		case MethodName:
			return ri.Method, nil
		case AuthorityName:
			return ri.Authority, nil
		case PathName:
			return ri.Path, nil
		default:
			return "", fmt.Errorf("unsupported derived component: %s", comp.name)
		}
	}
	return resolveHeader(comp, ri.Headers)
}

// resolveHeader handles HTTP fields according to RFC 9421 Section 2.1:
// multiple instances are trimmed and joined with ", ".
func resolveHeader(comp Identifier, hdr http.Header) (string, error) {
	values := hdr.Values(comp.name)
	if len(values) == 0 {
		return "", fmt.Errorf("header field %q not found", comp.name)
	}

	trimmed := make([]string, len(values))
	for i, value := range values {
		trimmed[i] = strings.TrimSpace(value)
	}
	return strings.Join(trimmed, ", "), nil
}
