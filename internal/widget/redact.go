package widget

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/openbotauth/botsig"
)

const redacted = "[REDACTED]"

var signaturePrefix = regexp.MustCompile(`^([A-Za-z0-9_.*-]+=:[^:]{10})`)

// RedactHeaders flattens hdr into a map for display. Signature values keep
// their label and the first 10 base64 characters. Credentials are hidden.
func RedactHeaders(hdr http.Header) map[string]string {
	out := make(map[string]string, len(hdr))
	for name, values := range hdr {
		value := strings.Join(values, ", ")
		lower := strings.ToLower(name)
		switch {
		case lower == strings.ToLower(botsig.SignatureHeader):
			if m := signaturePrefix.FindStringSubmatch(value); m != nil {
				value = m[1] + "..." + redacted + ":"
			} else {
				value = redacted
			}
		case strings.Contains(lower, "authorization"), strings.Contains(lower, "cookie"):
			value = redacted
		}
		out[name] = value
	}
	return out
}

// flatten joins multi-valued headers and lower-cases names.
func flatten(hdr http.Header) map[string]string {
	out := make(map[string]string, len(hdr))
	for name, values := range hdr {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}
