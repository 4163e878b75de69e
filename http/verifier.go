package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openbotauth/botsig"
	"github.com/openbotauth/botsig/replay"
	"go.uber.org/zap"
)

// Verifier verifies agent signatures on incoming requests.
type Verifier struct {
	resolver      KeyResolver
	errorHandler  http.Handler
	skipOnMissing bool
	store         replay.Store
	skew          time.Duration
	required      []string
	clock         Clock
	logger        *zap.Logger
}

// NewVerifier creates a new Verifier with the given key resolver.
func NewVerifier(resolver KeyResolver, options ...VerifierOption) *Verifier {
	v := &Verifier{
		resolver:     resolver,
		errorHandler: DefaultErrorHandler(),
		clock:        SystemClock{},
		logger:       zap.NewNop(),
	}

	for _, opt := range options {
		switch opt.Ident() {
		case identSkipOnMissing{}:
			v.skipOnMissing = opt.Value().(bool)
		case identVerifierErrorHandler{}:
			if h, ok := opt.Value().(http.Handler); ok && h != nil {
				v.errorHandler = h
			}
		case identReplayStore{}:
			v.store, _ = opt.Value().(replay.Store)
		case identSkew{}:
			v.skew = opt.Value().(time.Duration)
		case identRequiredHeaders{}:
			v.required = opt.Value().([]string)
		case identClock{}:
			if c, ok := opt.Value().(Clock); ok && c != nil {
				v.clock = c
			}
		case identLogger{}:
			if l := opt.Value().(*zap.Logger); l != nil {
				v.logger = l
			}
		}
	}

	return v
}

// VerifyRequest verifies the agent signature on r. It returns nil, nil
// for an unsigned request when the verifier skips missing signatures.
func (v *Verifier) VerifyRequest(r *http.Request) (*botsig.Verified, error) {
	if r.Header.Get(botsig.SignatureHeader) == "" && r.Header.Get(botsig.SignatureInputHeader) == "" && v.skipOnMissing {
		return nil, nil
	}

	options := []botsig.VerifyOption{
		botsig.WithClock(v.clock),
		botsig.WithSkew(v.skew),
	}
	if v.store != nil {
		options = append(options, botsig.WithReplayStore(v.store))
	}
	if len(v.required) > 0 {
		options = append(options, botsig.WithRequiredHeaders(v.required...))
	}

	verified, err := botsig.VerifyHTTPRequest(r, v.resolver, options...)
	if err != nil {
		v.logger.Info("agent signature rejected",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		return nil, err
	}
	v.logger.Debug("agent signature verified",
		zap.String("keyid", verified.KeyID),
		zap.String("agent", verified.AgentURL))
	return verified, nil
}

// Middleware returns a handler that verifies requests before passing them
// to next. Verified requests carry the result in their context; see
// VerifiedFromContext.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return Wrap(next, WithVerifier(v))
}

// handleError calls the configured error handler with err stored in the
// request context.
func (v *Verifier) handleError(w http.ResponseWriter, r *http.Request, err error) {
	r = r.WithContext(WithVerificationError(r.Context(), err))
	v.errorHandler.ServeHTTP(w, r)
}

// DefaultErrorHandler returns a handler that responds with 401 Unauthorized
// and includes the error message in the response body.
func DefaultErrorHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := VerificationErrorFromContext(r.Context())
		errorMsg := "signature verification failed"
		if err != nil {
			errorMsg = err.Error()
		}
		if errors.Is(err, botsig.ErrMissingSignature) {
			w.Header().Set("WWW-Authenticate", `Signature realm="agents"`)
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprintf(w, "401 Unauthorized: %s\n", errorMsg)
	})
}
