package component

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/lestrrat-go/sfv"
)

const (
	// Derived components used by agent signatures (RFC 9421 Section 2.2)
	MethodName          = "@method"
	AuthorityName       = "@authority"
	PathName            = "@path"
	SignatureParamsName = "@signature-params"
)

var (
	derivedMethod    = New(MethodName)
	derivedAuthority = New(AuthorityName)
	derivedPath      = New(PathName)
)

func Method() Identifier {
	return derivedMethod
}

func Authority() Identifier {
	return derivedAuthority
}

func Path() Identifier {
	return derivedPath
}

// Required returns the components every agent signature starts with, in
// the order they must appear.
func Required() []Identifier {
	return []Identifier{derivedMethod, derivedAuthority, derivedPath}
}

// Identifier represents an HTTP Message Signature component identifier
// according to RFC 9421. Header field names are stored lower-cased.
type Identifier struct {
	name string
}

// New creates a new Identifier with the given name. Names that do not start
// with "@" are HTTP field names and are normalized to lower case.
func New(name string) Identifier {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, "@") {
		name = strings.ToLower(name)
	}
	return Identifier{name: name}
}

func (c Identifier) Name() string {
	return c.name
}

// IsDerived reports whether the identifier names a derived component
// (RFC 9421 Section 2.2) rather than an HTTP field.
func (c Identifier) IsDerived() bool {
	return strings.HasPrefix(c.name, "@")
}

func (c Identifier) SFV() (sfv.Item, error) {
	if c.name == "" {
		return nil, fmt.Errorf("component name is empty")
	}
	return sfv.String(c.name), nil
}

// MarshalSFV returns the serialized component identifier, i.e. the quoted
// name as it appears at the start of a signature base line.
func (c Identifier) MarshalSFV() ([]byte, error) {
	sfvc, err := c.SFV()
	if err != nil {
		return nil, fmt.Errorf("failed to create SFV item: %w", err)
	}

	var buf bytes.Buffer
	enc := sfv.NewEncoder(&buf)
	enc.SetParameterSpacing("")
	if err := enc.Encode(sfvc); err != nil {
		return nil, fmt.Errorf("failed to encode SFV: %w", err)
	}
	return buf.Bytes(), nil
}

func Parse(input []byte) (Identifier, error) {
	item, err := sfv.ParseItem(input)
	if err != nil {
		return Identifier{}, fmt.Errorf("failed to parse SFV input: %w", err)
	}

	return FromItem(item)
}

func FromItem(item sfv.Item) (Identifier, error) {
	var name string
	if err := item.GetValue(&name); err != nil {
		return Identifier{}, fmt.Errorf("failed to get component name: %w", err)
	}
	if name == "" {
		return Identifier{}, fmt.Errorf("component name is empty")
	}
	return New(name), nil
}

// Names returns the names of the given identifiers, in order.
func Names(comps []Identifier) []string {
	names := make([]string, len(comps))
	for i, c := range comps {
		names[i] = c.name
	}
	return names
}
