package input

import (
	"fmt"
	"strings"

	"github.com/lestrrat-go/sfv"
	"github.com/openbotauth/botsig/component"
)

// Value is a single Signature-Input field value. It may carry more than
// one signature definition, keyed by label, although agents only ever
// produce "sig1".
type Value struct {
	definitions []*Definition
}

// NewValue creates a Value from the given definitions.
func NewValue(defs ...*Definition) *Value {
	return &Value{definitions: defs}
}

// Definitions returns all signature definitions
func (v *Value) Definitions() []*Definition {
	return v.definitions
}

// GetDefinition returns a definition by label
func (v *Value) GetDefinition(label string) (*Definition, bool) {
	for _, def := range v.definitions {
		if def.Label() == label {
			return def, true
		}
	}
	return nil, false
}

// Len returns the number of definitions
func (v *Value) Len() int {
	return len(v.definitions)
}

// MarshalSFV serializes the value as a dictionary, e.g.
// `sig1=("@method" ...);created=...`.
func (v *Value) MarshalSFV() ([]byte, error) {
	var sb strings.Builder
	for i, def := range v.definitions {
		if i > 0 {
			sb.WriteString(", ")
		}
		b, err := def.MarshalSFV()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal definition %q: %w", def.Label(), err)
		}
		sb.WriteString(def.Label())
		sb.WriteByte('=')
		sb.Write(b)
	}
	return []byte(sb.String()), nil
}

// Parse parses a Signature-Input field value.
func Parse(data []byte) (*Value, error) {
	dict, err := sfv.ParseDictionary(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s header: %w", SignatureInputHeader, err)
	}

	var value Value
	for _, label := range dict.Keys() {
		var entry any
		if err := dict.GetValue(label, &entry); err != nil {
			return nil, fmt.Errorf("failed to get signature %q: %w", label, err)
		}

		list, ok := entry.(*sfv.InnerList)
		if !ok {
			return nil, fmt.Errorf("signature %q must be an inner list, got %T", label, entry)
		}

		def, err := parseDefinition(label, list)
		if err != nil {
			return nil, err
		}
		value.definitions = append(value.definitions, def)
	}

	if len(value.definitions) == 0 {
		return nil, fmt.Errorf("%s header contains no signatures", SignatureInputHeader)
	}
	return &value, nil
}

func parseDefinition(label string, list *sfv.InnerList) (*Definition, error) {
	names := make([]string, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		item, ok := list.Get(i)
		if !ok {
			return nil, fmt.Errorf("failed to get component %d from signature %q", i, label)
		}

		comp, err := component.FromItem(item)
		if err != nil {
			return nil, fmt.Errorf("failed to convert component %d in signature %q: %w", i, label, err)
		}
		names = append(names, comp.Name())
	}

	builder := NewDefinitionBuilder().
		Label(label).
		Algorithm("").
		Components(names...)

	params := list.Parameters()
	for _, name := range params.Keys() {
		var bare sfv.BareItem
		if err := params.Get(name, &bare); err != nil {
			return nil, fmt.Errorf("failed to get parameter %q of signature %q: %w", name, label, err)
		}

		switch name {
		case ParamCreated, ParamExpires:
			var ts int64
			if err := bare.GetValue(&ts); err != nil {
				return nil, fmt.Errorf("parameter %q of signature %q must be an integer: %w", name, label, err)
			}
			if name == ParamCreated {
				builder.Created(ts)
			} else {
				builder.Expires(ts)
			}
		case ParamNonce, ParamKeyID, ParamAlgorithm:
			var s string
			if err := bare.GetValue(&s); err != nil {
				return nil, fmt.Errorf("parameter %q of signature %q must be a string: %w", name, label, err)
			}
			switch name {
			case ParamNonce:
				builder.Nonce(s)
			case ParamKeyID:
				builder.KeyID(s)
			default:
				builder.Algorithm(s)
			}
		default:
			// tag and any extension parameters are not interpreted
		}
	}

	def, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid signature definition %q: %w", label, err)
	}
	return def, nil
}
