package component_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/openbotauth/botsig/component"
	"github.com/stretchr/testify/require"
)

func TestComponent(t *testing.T) {
	t.Parallel()
	t.Run("Derived component", func(t *testing.T) {
		comp := component.Method()
		require.Equal(t, "@method", comp.Name())
		require.True(t, comp.IsDerived())
		encoded, err := comp.MarshalSFV()
		require.NoError(t, err)
		require.Equal(t, `"@method"`, string(encoded))
	})

	t.Run("Header names are lower-cased", func(t *testing.T) {
		comp := component.New(" Content-Type ")
		require.Equal(t, "content-type", comp.Name())
		require.False(t, comp.IsDerived())
		encoded, err := comp.MarshalSFV()
		require.NoError(t, err)
		require.Equal(t, `"content-type"`, string(encoded))
	})

	t.Run("Required components", func(t *testing.T) {
		require.Equal(t, []string{"@method", "@authority", "@path"}, component.Names(component.Required()))
	})

	t.Run("Parse", func(t *testing.T) {
		comp, err := component.Parse([]byte(`"@authority"`))
		require.NoError(t, err)
		require.Equal(t, component.Authority(), comp)
	})

	t.Run("Empty name", func(t *testing.T) {
		_, err := component.New("").MarshalSFV()
		require.Error(t, err)
	})
}

func TestNormalizeAuthority(t *testing.T) {
	t.Parallel()
	tests := []struct {
		url      string
		expected string
	}{
		{"https://example.com:443/x", "example.com"},
		{"http://example.com:80/x", "example.com"},
		{"https://example.com:8443/x", "example.com:8443"},
		{"http://example.com:3000/path", "example.com:3000"},
		{"https://example.com:80/", "example.com:80"},
		{"http://example.com:443/", "example.com:443"},
		{"https://Example.COM/", "example.com"},
		{"https://blog.attach.dev/?p=6", "blog.attach.dev"},
		{"https://bücher.example/", "xn--bcher-kva.example"},
		{"http://[::1]:8080/", "[::1]:8080"},
		{"http://[::1]/", "[::1]"},
		{"http://127.0.0.1:80/", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := component.ParseAuthority(tt.url)
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}

	t.Run("Errors", func(t *testing.T) {
		for _, raw := range []string{"/relative/path", "https://:443/", "::not a url", "mailto:someone@example.com"} {
			_, err := component.ParseAuthority(raw)
			require.ErrorIs(t, err, component.ErrInvalidURL, raw)
		}
		_, err := component.NormalizeAuthority(nil)
		require.ErrorIs(t, err, component.ErrInvalidURL)
	})
}

func TestCanonicalPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		url      string
		expected string
	}{
		{"https://blog.attach.dev/?p=6", "/?p=6"},
		{"https://example.com:443/path?query=1", "/path?query=1"},
		{"https://example.com/a%20b", "/a%20b"},
		{"https://example.com/x?", "/x"},
		{"https://example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			require.NoError(t, err)
			require.Equal(t, tt.expected, component.CanonicalPath(u))
		})
	}
}

func TestRequestInfo(t *testing.T) {
	t.Parallel()
	t.Run("From URL", func(t *testing.T) {
		u, err := url.Parse("https://Example.com:443/a/b?c=d")
		require.NoError(t, err)
		hdr := http.Header{}
		hdr.Add("X-Multi", " one ")
		hdr.Add("X-Multi", "two")

		info, err := component.RequestInfoFromURL("post", u, hdr)
		require.NoError(t, err)

		for name, expected := range map[string]string{
			"@method":    "POST",
			"@authority": "example.com",
			"@path":      "/a/b?c=d",
			"X-Multi":    "one, two",
		} {
			got, err := info.Resolve(component.New(name))
			require.NoError(t, err, name)
			require.Equal(t, expected, got, name)
		}

		_, err = info.Resolve(component.New("missing"))
		require.Error(t, err)
		_, err = info.Resolve(component.New("@target-uri"))
		require.Error(t, err)
	})

	t.Run("From server request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resource?x=1", nil)
		req.Host = "origin.example:8443"
		req.TLS = &tls.ConnectionState{}

		info, err := component.RequestInfoFromHTTP(req)
		require.NoError(t, err)
		require.Equal(t, "GET", info.Method)
		require.Equal(t, "origin.example:8443", info.Authority)
		require.Equal(t, "/resource?x=1", info.Path)
	})
}
