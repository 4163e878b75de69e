package sigbase

import "github.com/openbotauth/botsig/input"

// Base is an immutable signature base together with the signature
// parameters it was built from.
type Base struct {
	def    *input.Definition
	base   string
	params string
}

// String returns the signature base: one line per covered component
// followed by the "@signature-params" line, without a trailing newline.
func (b *Base) String() string {
	return b.base
}

// Bytes returns the signature base as the message to be signed.
func (b *Base) Bytes() []byte {
	return []byte(b.base)
}

// Params returns the serialized "@signature-params" value.
func (b *Base) Params() string {
	return b.params
}

// SignatureInput returns the Signature-Input field value for the base.
func (b *Base) SignatureInput() string {
	return b.def.Label() + "=" + b.params
}

func (b *Base) Definition() *input.Definition {
	return b.def
}
