package http

import (
	"context"

	"github.com/openbotauth/botsig"
)

type ctxKey int

const (
	ctxKeyVerified ctxKey = iota
	ctxKeyVerifyErr
)

// WithVerificationError records why verification of the request failed.
// The verifier stores it before calling the error handler.
func WithVerificationError(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, ctxKeyVerifyErr, err)
}

// VerificationErrorFromContext returns the error stored by
// WithVerificationError, or nil.
func VerificationErrorFromContext(ctx context.Context) error {
	err, _ := ctx.Value(ctxKeyVerifyErr).(error)
	return err
}

// WithVerified attaches a verified agent signature to ctx.
func WithVerified(ctx context.Context, v *botsig.Verified) context.Context {
	return context.WithValue(ctx, ctxKeyVerified, v)
}

// VerifiedFromContext returns the agent signature verified for the
// current request. It reports false for requests that were let through
// unsigned.
func VerifiedFromContext(ctx context.Context) (*botsig.Verified, bool) {
	v, ok := ctx.Value(ctxKeyVerified).(*botsig.Verified)
	return v, ok && v != nil
}
