package botsig

import (
	"encoding/base64"

	"lukechampine.com/frand"
)

const nonceSize = 16

// NewNonce returns 16 random bytes from a CSPRNG, base64url encoded
// without padding (22 characters).
func NewNonce() string {
	return base64.RawURLEncoding.EncodeToString(frand.Bytes(nonceSize))
}
