package sigbase

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openbotauth/botsig/component"
	"github.com/openbotauth/botsig/input"
)

var (
	// ErrInvalidWindow is returned when expires is not after created, or
	// when the two are further apart than input.MaxWindow.
	ErrInvalidWindow = errors.New("invalid signature window")

	// ErrMissingParameter is returned when a required signature parameter
	// (method, nonce, keyid) is empty.
	ErrMissingParameter = errors.New("missing signature parameter")
)

// ValidateWindow checks that 0 < expires-created <= input.MaxWindow.
func ValidateWindow(created, expires int64) error {
	if expires <= created {
		return fmt.Errorf("%w: expires (%d) must be after created (%d)", ErrInvalidWindow, expires, created)
	}
	if window := expires - created; window > int64(input.MaxWindow/time.Second) {
		return fmt.Errorf("%w: %ds exceeds the maximum of %s", ErrInvalidWindow, window, input.MaxWindow)
	}
	return nil
}

// RequestBuilder is a builder for constructing the signature base of an
// outgoing agent request.
//
//	base, err := sigbase.Request("GET", u).
//		Created(created).
//		Expires(expires).
//		Nonce(nonce).
//		KeyID(kid).
//		Build()
type RequestBuilder struct {
	method  string
	u       *url.URL
	names   []string
	headers http.Header

	created *int64
	expires *int64
	nonce   string
	keyid   string

	err error
}

// Request starts a signature base for a request with the given method to u.
// The method is case-insensitive.
func Request(method string, u *url.URL) *RequestBuilder {
	rb := &RequestBuilder{
		method:  strings.ToUpper(strings.TrimSpace(method)),
		u:       u,
		headers: make(http.Header),
	}
	if u == nil {
		rb.err = fmt.Errorf("%w: url is required", component.ErrInvalidURL)
	}
	return rb
}

// Header adds a header field to the covered components. Fields are
// covered after "@method", "@authority" and "@path", in the order they
// were added. Names are case-insensitive, and adding the same name twice
// is an error.
func (rb *RequestBuilder) Header(name, value string) *RequestBuilder {
	if rb.err != nil {
		return rb
	}

	comp := component.New(name)
	if comp.Name() == "" || comp.IsDerived() {
		rb.err = fmt.Errorf("invalid header field name %q", name)
		return rb
	}
	if strings.ContainsAny(value, "\r\n") {
		rb.err = fmt.Errorf("header field %q contains a line break", comp.Name())
		return rb
	}
	if len(rb.headers.Values(comp.Name())) > 0 {
		rb.err = fmt.Errorf("duplicate component identifier %q", comp.Name())
		return rb
	}

	rb.names = append(rb.names, comp.Name())
	rb.headers.Add(comp.Name(), value)
	return rb
}

// Created sets the created timestamp for signature parameters
func (rb *RequestBuilder) Created(timestamp int64) *RequestBuilder {
	if rb.err != nil {
		return rb
	}
	rb.created = &timestamp
	return rb
}

// Expires sets the expires timestamp for signature parameters
func (rb *RequestBuilder) Expires(timestamp int64) *RequestBuilder {
	if rb.err != nil {
		return rb
	}
	rb.expires = &timestamp
	return rb
}

// Window sets created to t and expires to t+d.
func (rb *RequestBuilder) Window(t time.Time, d time.Duration) *RequestBuilder {
	return rb.Created(t.Unix()).Expires(t.Add(d).Unix())
}

// Nonce sets the nonce for signature parameters
func (rb *RequestBuilder) Nonce(nonce string) *RequestBuilder {
	if rb.err != nil {
		return rb
	}
	rb.nonce = nonce
	return rb
}

// KeyID sets the key identifier for signature parameters
func (rb *RequestBuilder) KeyID(keyid string) *RequestBuilder {
	if rb.err != nil {
		return rb
	}
	rb.keyid = keyid
	return rb
}

// Build constructs the signature base according to RFC 9421 Section 2.5
func (rb *RequestBuilder) Build() (*Base, error) {
	if rb.err != nil {
		return nil, rb.err
	}

	if rb.method == "" {
		return nil, fmt.Errorf("%w: method", ErrMissingParameter)
	}
	if rb.created == nil || rb.expires == nil {
		return nil, fmt.Errorf("%w: created and expires are required", ErrInvalidWindow)
	}
	if err := ValidateWindow(*rb.created, *rb.expires); err != nil {
		return nil, err
	}
	if rb.nonce == "" {
		return nil, fmt.Errorf("%w: nonce", ErrMissingParameter)
	}
	if rb.keyid == "" {
		return nil, fmt.Errorf("%w: keyid", ErrMissingParameter)
	}

	info, err := component.RequestInfoFromURL(rb.method, rb.u, rb.headers)
	if err != nil {
		return nil, err
	}

	names := append(component.Names(component.Required()), rb.names...)
	def, err := input.NewDefinitionBuilder().
		Components(names...).
		Created(*rb.created).
		Expires(*rb.expires).
		Nonce(rb.nonce).
		KeyID(rb.keyid).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build signature parameters: %w", err)
	}

	return build(info, def)
}

// FromDefinition rebuilds the signature base of a received request from
// its parsed Signature-Input definition. Header components are resolved
// from hdr.
func FromDefinition(method string, u *url.URL, def *input.Definition, hdr http.Header) (*Base, error) {
	if def == nil {
		return nil, fmt.Errorf("signature definition is required")
	}
	info, err := component.RequestInfoFromURL(method, u, hdr)
	if err != nil {
		return nil, err
	}
	return build(info, def)
}

func build(info *component.RequestInfo, def *input.Definition) (*Base, error) {
	var output strings.Builder
	for _, comp := range def.Identifiers() {
		sfvBytes, err := comp.MarshalSFV()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal component %q: %w", comp.Name(), err)
		}

		value, err := info.Resolve(comp)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve component %q: %w", comp.Name(), err)
		}

		output.Write(sfvBytes)
		output.WriteString(": ")
		output.WriteString(value)
		output.WriteByte('\n')
	}

	params, err := def.MarshalSFV()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signature parameters: %w", err)
	}
	output.WriteString(`"` + component.SignatureParamsName + `": `)
	output.Write(params)

	result := output.String()
	for i := 0; i < len(result); i++ {
		if result[i] > 0x7f {
			return nil, fmt.Errorf("signature base contains non-ASCII character at offset %d", i)
		}
	}

	return &Base{
		def:    def,
		base:   result,
		params: string(params),
	}, nil
}
