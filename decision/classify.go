package decision

import (
	"net/http"
	"strings"
)

// Explain classifies a response. headerValue is the value of the decision
// header, or "" when absent; contentLength is the body length in bytes,
// or -1 when unknown. Rules are tried in order and the first match wins:
//
//  1. header "teaser", "allow" or "deny" (case-insensitive)
//  2. status 402
//  3. no header, status 200 and a body shorter than the small-body
//     threshold: Teaser, with BasisHeuristic
//  4. Unknown
func Explain(status int, headerValue string, contentLength int64, options ...Option) Result {
	threshold := int64(DefaultSmallBodyThreshold)
	for _, opt := range options {
		switch opt.Ident() {
		case identSmallBodyThreshold{}:
			threshold = opt.Value().(int64)
		}
	}

	value := strings.ToLower(strings.TrimSpace(headerValue))
	switch value {
	case "teaser":
		return Result{Decision: Teaser, Basis: BasisHeader}
	case "allow":
		return Result{Decision: Allow, Basis: BasisHeader}
	case "deny":
		return Result{Decision: Deny, Basis: BasisHeader}
	}

	if status == http.StatusPaymentRequired {
		return Result{Decision: PaymentRequired, Basis: BasisStatus}
	}

	if value == "" && status == http.StatusOK && contentLength >= 0 && contentLength < threshold {
		return Result{Decision: Teaser, Basis: BasisHeuristic}
	}
	return Result{Decision: Unknown, Basis: BasisNone}
}

// Classify is Explain without the basis.
func Classify(status int, headerValue string, contentLength int64, options ...Option) Decision {
	return Explain(status, headerValue, contentLength, options...).Decision
}

// FromResponse classifies resp. bodyLen is the number of body bytes read
// by the caller; pass -1 to fall back to resp.ContentLength.
func FromResponse(resp *http.Response, bodyLen int64, options ...Option) Result {
	if resp == nil {
		return Result{Decision: Unknown, Basis: BasisNone}
	}
	if bodyLen < 0 {
		bodyLen = resp.ContentLength
	}
	return Explain(resp.StatusCode, resp.Header.Get(Header), bodyLen, options...)
}
