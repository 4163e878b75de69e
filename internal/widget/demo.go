package widget

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/openbotauth/botsig"
	"github.com/openbotauth/botsig/decision"
	botsighttp "github.com/openbotauth/botsig/http"
	"github.com/openbotauth/botsig/replay"
)

// DemoPath is where the verifying demo origin is mounted.
const DemoPath = "/demo/article"

// Demo configures an origin that enforces agent signatures, so the widget
// can be tried without a protected site.
type Demo struct {
	// Resolver finds agent public keys, usually a JWKSResolver.
	Resolver botsighttp.KeyResolver
	// Store rejects replayed nonces. Optional.
	Store replay.Store
	Skew  time.Duration
}

const (
	demoTeaser  = "<html><body><h1>Agent access</h1><p>Signed agents can read the full article.</p></body></html>"
	demoArticle = "<html><body><h1>Agent access</h1><p>Signed agents can read the full article.</p>" +
		"<p>Your request carried an HTTP message signature that was checked against the key " +
		"published at its Signature-Agent URL, so this origin served the complete text.</p></body></html>"
)

func (s *Server) demoHandler(demo *Demo) http.Handler {
	options := []botsighttp.VerifierOption{
		botsighttp.WithSkipOnMissing(true),
		botsighttp.WithSkew(demo.Skew),
		botsighttp.WithLogger(s.logger),
		botsighttp.WithVerifierErrorHandler(s.verificationFailed()),
	}
	if demo.Store != nil {
		options = append(options, botsighttp.WithReplayStore(demo.Store))
	}
	verifier := botsighttp.NewVerifier(demo.Resolver, options...)

	article := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, ok := botsighttp.VerifiedFromContext(r.Context()); ok {
			s.metrics.ObserveVerification("ok")
			w.Header().Set(decision.Header, decision.Allow.String())
			_, _ = io.WriteString(w, demoArticle)
			return
		}
		s.metrics.ObserveVerification("unsigned")
		w.Header().Set(decision.Header, decision.Teaser.String())
		_, _ = io.WriteString(w, demoTeaser)
	})
	return verifier.Middleware(article)
}

func (s *Server) verificationFailed() http.Handler {
	next := botsighttp.DefaultErrorHandler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.ObserveVerification(verificationResult(botsighttp.VerificationErrorFromContext(r.Context())))
		next.ServeHTTP(w, r)
	})
}

func verificationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, botsig.ErrMissingSignature):
		return "missing"
	case errors.Is(err, botsig.ErrMalformedSignature):
		return "malformed"
	case errors.Is(err, botsig.ErrExpired):
		return "expired"
	case errors.Is(err, botsig.ErrReplayed):
		return "replayed"
	case errors.Is(err, botsig.ErrVerificationFailed):
		return "invalid"
	default:
		return "error"
	}
}
