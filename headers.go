package botsig

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/lestrrat-go/sfv"
	"github.com/openbotauth/botsig/sigbase"
)

// SignedHeaders holds the header values attached to a signed request.
type SignedHeaders struct {
	SignatureInput string
	Signature      string
	SignatureAgent string
	UserAgent      string
}

// ComposeHeaders assembles the request headers for a signature over base.
// The Signature value is `<label>=:<standard base64 of signature>:`.
func ComposeHeaders(base *sigbase.Base, signature []byte, agentURL string) (SignedHeaders, error) {
	if base == nil {
		return SignedHeaders{}, fmt.Errorf("signature base is required")
	}
	if len(signature) == 0 {
		return SignedHeaders{}, fmt.Errorf("%w: signature is empty", ErrSigningFailure)
	}

	dict := sfv.NewDictionary()
	if err := dict.Set(base.Definition().Label(), sfv.ByteSequence(signature)); err != nil {
		return SignedHeaders{}, fmt.Errorf("failed to set signature in dictionary: %w", err)
	}

	var sb strings.Builder
	if err := sfv.NewEncoder(&sb).Encode(dict); err != nil {
		return SignedHeaders{}, fmt.Errorf("failed to encode SFV signature dictionary: %w", err)
	}

	return SignedHeaders{
		SignatureInput: base.SignatureInput(),
		Signature:      sb.String(),
		SignatureAgent: agentURL,
		UserAgent:      UserAgent,
	}, nil
}

// Apply sets the headers on hdr, replacing existing values. An empty
// Signature-Agent is not sent.
func (h SignedHeaders) Apply(hdr http.Header) {
	hdr.Set(SignatureInputHeader, h.SignatureInput)
	hdr.Set(SignatureHeader, h.Signature)
	if h.SignatureAgent != "" {
		hdr.Set(SignatureAgentHeader, h.SignatureAgent)
	}
	hdr.Set(UserAgentHeader, h.UserAgent)
}

// Map returns the headers as a name to value map.
func (h SignedHeaders) Map() map[string]string {
	m := map[string]string{
		SignatureInputHeader: h.SignatureInput,
		SignatureHeader:      h.Signature,
		UserAgentHeader:      h.UserAgent,
	}
	if h.SignatureAgent != "" {
		m[SignatureAgentHeader] = h.SignatureAgent
	}
	return m
}
