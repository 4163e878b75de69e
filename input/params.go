package input

// Signature parameter names (RFC 9421 Section 2.3)
const (
	ParamCreated   = "created"
	ParamExpires   = "expires"
	ParamNonce     = "nonce"
	ParamKeyID     = "keyid"
	ParamAlgorithm = "alg"
	ParamTag       = "tag"
)

// Field names carrying agent signatures and their metadata.
const (
	SignatureInputHeader = "Signature-Input"
	SignatureHeader      = "Signature"
	SignatureAgentHeader = "Signature-Agent"
)
