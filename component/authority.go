package component

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ErrInvalidURL is returned when a URL cannot be parsed or has no hostname.
var ErrInvalidURL = errors.New("invalid url")

// NormalizeAuthority reduces u to the canonical "@authority" value
// (RFC 9421 Section 2.2.3). Default ports for http and https are dropped,
// any other port is kept as host:port. The host is lower-cased and
// internationalized names are converted to their ASCII form.
func NormalizeAuthority(u *url.URL) (string, error) {
	if u == nil {
		return "", fmt.Errorf("%w: url is required", ErrInvalidURL)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return "", fmt.Errorf("%w: %q has no hostname", ErrInvalidURL, u.Redacted())
	}

	host, err := asciiHost(hostname)
	if err != nil {
		return "", err
	}

	port := u.Port()
	if port == "" || isDefaultPort(u.Scheme, port) {
		if strings.Contains(host, ":") {
			// IPv6 literal
			return "[" + host + "]", nil
		}
		return host, nil
	}
	return net.JoinHostPort(host, port), nil
}

// ParseAuthority parses rawURL and returns its canonical authority.
func ParseAuthority(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	return NormalizeAuthority(u)
}

// CanonicalPath returns the value signed under "@path": the escaped path,
// followed by "?" and the raw query when the query is non-empty. An empty
// path is returned as-is.
func CanonicalPath(u *url.URL) string {
	p := u.EscapedPath()
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

func isDefaultPort(scheme, port string) bool {
	switch strings.ToLower(scheme) {
	case "https":
		return port == "443"
	case "http":
		return port == "80"
	}
	return false
}

func asciiHost(host string) (string, error) {
	for i := 0; i < len(host); i++ {
		if host[i] >= 0x80 {
			converted, err := idna.Lookup.ToASCII(host)
			if err != nil {
				return "", fmt.Errorf("%w: host %q: %w", ErrInvalidURL, host, err)
			}
			return converted, nil
		}
	}
	return strings.ToLower(host), nil
}
