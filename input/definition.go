package input

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/sfv"
	"github.com/openbotauth/botsig/component"
)

const (
	// DefaultLabel is the only signature label agents produce.
	DefaultLabel = "sig1"
	// AlgorithmEd25519 is the RFC 9421 name of the only supported algorithm.
	AlgorithmEd25519 = "ed25519"
	// MaxWindow is the longest allowed distance between created and expires.
	MaxWindow = 300 * time.Second
)

// Definition represents the parameters of a single agent signature, i.e.
// the value of one member of the Signature-Input field. A Definition
// contains:
//   - a label (always "sig1" for signatures this package creates)
//   - the covered components, starting with "@method", "@authority", "@path"
//   - created and expires, as UNIX timestamps
//   - a nonce
//   - the key ID and the algorithm
type Definition struct {
	label      string
	components []string
	created    *int64
	expires    *int64
	nonce      *string
	keyid      string
	algorithm  string
}

// DefinitionBuilder helps build Definition objects
type DefinitionBuilder struct {
	def *Definition
}

// NewDefinitionBuilder creates a new DefinitionBuilder. The label defaults
// to "sig1" and the algorithm to "ed25519".
func NewDefinitionBuilder() *DefinitionBuilder {
	return &DefinitionBuilder{
		def: &Definition{
			label:     DefaultLabel,
			algorithm: AlgorithmEd25519,
		},
	}
}

func (b *DefinitionBuilder) Label(label string) *DefinitionBuilder {
	b.def.label = label
	return b
}

// Components sets the covered components. Header field names are
// lower-cased.
func (b *DefinitionBuilder) Components(components ...string) *DefinitionBuilder {
	b.def.components = make([]string, len(components))
	for i, name := range components {
		b.def.components[i] = component.New(name).Name()
	}
	return b
}

func (b *DefinitionBuilder) KeyID(keyid string) *DefinitionBuilder {
	b.def.keyid = keyid
	return b
}

func (b *DefinitionBuilder) Algorithm(algorithm string) *DefinitionBuilder {
	b.def.algorithm = algorithm
	return b
}

func (b *DefinitionBuilder) Created(timestamp int64) *DefinitionBuilder {
	b.def.created = &timestamp
	return b
}

func (b *DefinitionBuilder) Expires(timestamp int64) *DefinitionBuilder {
	b.def.expires = &timestamp
	return b
}

func (b *DefinitionBuilder) Nonce(nonce string) *DefinitionBuilder {
	b.def.nonce = &nonce
	return b
}

// Build creates the Definition with validation. Only structural
// requirements are checked here. The signing window is validated by the
// signature base builder.
func (b *DefinitionBuilder) Build() (*Definition, error) {
	if b.def.label == "" {
		return nil, fmt.Errorf("label is required")
	}
	if len(b.def.components) == 0 {
		return nil, fmt.Errorf("at least one component is required")
	}
	seen := make(map[string]struct{}, len(b.def.components))
	for _, name := range b.def.components {
		if name == "" {
			return nil, fmt.Errorf("component name is empty")
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate component identifier %q", name)
		}
		seen[name] = struct{}{}
	}
	if b.def.keyid == "" {
		return nil, fmt.Errorf("keyid is required")
	}

	def := *b.def
	def.components = append([]string(nil), b.def.components...)
	return &def, nil
}

// MustBuild creates the Definition and panics if validation fails
func (b *DefinitionBuilder) MustBuild() *Definition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

func (d *Definition) Label() string {
	return d.label
}

// Components returns a copy of the covered component names
func (d *Definition) Components() []string {
	return append([]string(nil), d.components...)
}

// Identifiers returns the covered components as identifiers
func (d *Definition) Identifiers() []component.Identifier {
	ids := make([]component.Identifier, len(d.components))
	for i, name := range d.components {
		ids[i] = component.New(name)
	}
	return ids
}

func (d *Definition) KeyID() string {
	return d.keyid
}

func (d *Definition) Algorithm() string {
	return d.algorithm
}

// Created returns the created timestamp
func (d *Definition) Created() (int64, bool) {
	if d.created == nil {
		return 0, false
	}
	return *d.created, true
}

// Expires returns the expires timestamp
func (d *Definition) Expires() (int64, bool) {
	if d.expires == nil {
		return 0, false
	}
	return *d.expires, true
}

// Nonce returns the nonce parameter
func (d *Definition) Nonce() (string, bool) {
	if d.nonce == nil {
		return "", false
	}
	return *d.nonce, true
}

// CreatedTime returns the created timestamp as a time.Time
func (d *Definition) CreatedTime() (time.Time, bool) {
	timestamp, ok := d.Created()
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(timestamp, 0), true
}

// ExpiresTime returns the expires timestamp as a time.Time
func (d *Definition) ExpiresTime() (time.Time, bool) {
	timestamp, ok := d.Expires()
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(timestamp, 0), true
}

// HasRequiredPrefix reports whether the covered components start with
// "@method", "@authority" and "@path", in that order.
func (d *Definition) HasRequiredPrefix() bool {
	required := component.Names(component.Required())
	if len(d.components) < len(required) {
		return false
	}
	for i, name := range required {
		if d.components[i] != name {
			return false
		}
	}
	return true
}

// SFV returns the definition as an inner list. Parameters are emitted in
// the order created, expires, nonce, keyid, alg.
func (d *Definition) SFV() (*sfv.InnerList, error) {
	b := sfv.NewInnerListBuilder()
	for _, comp := range d.Identifiers() {
		item, err := comp.SFV()
		if err != nil {
			return nil, fmt.Errorf("failed to convert component %q to SFV: %w", comp.Name(), err)
		}
		b.Add(item)
	}

	if created, ok := d.Created(); ok {
		b.Parameter(ParamCreated, sfv.BareInteger(created))
	}
	if expires, ok := d.Expires(); ok {
		b.Parameter(ParamExpires, sfv.BareInteger(expires))
	}
	if nonce, ok := d.Nonce(); ok {
		b.Parameter(ParamNonce, sfv.BareString(nonce))
	}
	if d.keyid != "" {
		b.Parameter(ParamKeyID, sfv.BareString(d.keyid))
	}
	if d.algorithm != "" {
		b.Parameter(ParamAlgorithm, sfv.BareString(d.algorithm))
	}

	innerList, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build signature parameters: %w", err)
	}
	return innerList, nil
}

// MarshalSFV serializes the definition as it appears after
// "@signature-params": in the signature base, e.g.
//
//	("@method" "@authority" "@path");created=1;expires=2;nonce="n";keyid="k";alg="ed25519"
func (d *Definition) MarshalSFV() ([]byte, error) {
	innerList, err := d.SFV()
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	enc := sfv.NewEncoder(&sb)
	enc.SetParameterSpacing("")
	if err := enc.Encode(innerList); err != nil {
		return nil, fmt.Errorf("failed to encode inner list: %w", err)
	}
	return []byte(sb.String()), nil
}

// String returns the serialized definition, or an empty string if it
// cannot be serialized.
func (d *Definition) String() string {
	b, err := d.MarshalSFV()
	if err != nil {
		return ""
	}
	return string(b)
}
