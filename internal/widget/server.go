// Package widget serves the fetch widget API: it fetches a URL on behalf
// of a browser, signed or unsigned, and reports how the origin answered.
package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/openbotauth/botsig"
	"github.com/openbotauth/botsig/decision"
	botsighttp "github.com/openbotauth/botsig/http"
	"github.com/openbotauth/botsig/internal/logger"
	"github.com/openbotauth/botsig/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	Name    = "OpenBotAuth Widget Backend"
	Version = "0.1.0"

	// MaxBodyBytes bounds how much of an origin response is read.
	MaxBodyBytes = 5 << 20
	maxRequest   = 1 << 20
)

// Config holds the collaborators of a Server.
type Config struct {
	// Signer signs requests. Without it only unsigned fetches are served.
	Signer *botsig.Signer
	// SignedDefault applies when a fetch request does not say.
	SignedDefault bool
	// ClientOptions are passed to both fetch clients.
	ClientOptions []botsighttp.ClientOption
	Metrics       *metrics.Metrics
	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
	// Demo mounts a verifying origin at DemoPath when set.
	Demo *Demo
	// Now is used for the health timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Server is the widget HTTP API.
type Server struct {
	signed        *botsighttp.Client
	unsigned      *botsighttp.Client
	signedDefault bool
	keyID         string
	metrics       *metrics.Metrics
	gatherer      prometheus.Gatherer
	logger        *zap.Logger
	demo          *Demo
	now           func() time.Time
}

// FetchRequest is the body of POST /api/fetch.
type FetchRequest struct {
	URL          string            `json:"url"`
	Signed       *bool             `json:"signed,omitempty"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty"`
}

// FetchResponse describes one fetch.
type FetchResponse struct {
	Status      int               `json:"status"`
	Bytes       int               `json:"bytes"`
	Headers     map[string]string `json:"headers"`
	BodySnippet string            `json:"bodySnippet"`
	Signed      bool              `json:"signed"`
	Decision    decision.Decision `json:"decision"`
	Basis       decision.Basis    `json:"basis"`
	Request     SentRequest       `json:"request"`
	Trace       *Trace            `json:"trace,omitempty"`
	Redirects   []Redirect        `json:"redirects"`
}

// SentRequest is the final request as sent, with secrets redacted.
type SentRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// Trace carries the parameters of the final signature.
type Trace struct {
	Created        int64  `json:"created"`
	Expires        int64  `json:"expires"`
	KeyID          string `json:"keyId"`
	Nonce          string `json:"nonce"`
	SignatureInput string `json:"signatureInput"`
}

// Redirect is one hop that answered with a redirect.
type Redirect struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Status int    `json:"status"`
	Signed bool   `json:"signed"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Signed bool   `json:"signed"`
}

// New creates a Server.
func New(cfg Config) *Server {
	s := &Server{
		unsigned:      botsighttp.NewClient(nil, cfg.ClientOptions...),
		signedDefault: cfg.SignedDefault,
		metrics:       cfg.Metrics,
		gatherer:      cfg.Gatherer,
		logger:        cfg.Logger,
		demo:          cfg.Demo,
		now:           cfg.Now,
	}
	if cfg.Signer != nil {
		s.signed = botsighttp.NewClient(cfg.Signer, cfg.ClientOptions...)
		s.keyID = cfg.Signer.KeyID()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(cors)

	r.Get("/", s.handleInfo)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Post("/api/fetch", s.handleFetch)
	if s.demo != nil && s.demo.Resolver != nil {
		r.Method(http.MethodGet, DemoPath, s.demoHandler(s.demo))
	}
	return r
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := logger.ToContext(r.Context(), s.logger.With(logger.RequestID(id)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    Name,
		"version": Version,
		"endpoints": map[string]string{
			"fetch":   "POST /api/fetch",
			"health":  "GET /healthz",
			"metrics": "GET /metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"hasKeys":   s.signed != nil,
	})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context())

	var in FetchRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequest)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(in.URL) == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	u, err := url.Parse(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(w, http.StatusBadRequest, "Invalid URL")
		return
	}

	signed := s.signedDefault
	if in.Signed != nil {
		signed = *in.Signed
	}
	client := s.unsigned
	mode := "unsigned"
	if signed {
		if s.signed == nil {
			writeError(w, http.StatusServiceUnavailable, "signing keys are not configured")
			return
		}
		client = s.signed
		mode = "signed"
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid URL")
		return
	}
	for name, value := range in.ExtraHeaders {
		req.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := client.Do(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, botsighttp.ErrTransport) || errors.Is(err, botsighttp.ErrTooManyRedirects) {
			status = http.StatusBadGateway
		}
		log.Warn("fetch failed",
			logger.Method(req.Method),
			logger.URL(in.URL),
			zap.String("mode", mode),
			logger.Duration(time.Since(start)),
			zap.Error(err))
		s.metrics.ObserveFetch(mode, "error", 0, time.Since(start))
		writeError(w, status, err.Error())
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("failed to read response body: %s", err))
		return
	}

	result := decision.FromResponse(resp.Response, int64(len(body)))
	out := FetchResponse{
		Status:      resp.StatusCode,
		Bytes:       len(body),
		Headers:     flatten(resp.Header),
		BodySnippet: Snippet(body, SnippetLength),
		Signed:      signed,
		Decision:    result.Decision,
		Basis:       result.Basis,
		Redirects:   make([]Redirect, 0, resp.Redirects()),
	}
	for _, hop := range resp.Hops[:resp.Redirects()] {
		out.Redirects = append(out.Redirects, Redirect{
			Method: hop.Method,
			URL:    hop.URL,
			Status: hop.Status,
			Signed: hop.Signed != nil,
		})
	}
	final := resp.Final()
	out.Request = SentRequest{Method: final.Method, URL: final.URL}
	if resp.Request != nil {
		out.Request.Headers = RedactHeaders(resp.Request.Header)
	}
	if final.Signed != nil {
		out.Trace = &Trace{
			Created:        final.Signed.Created().Unix(),
			Expires:        final.Signed.Expires().Unix(),
			KeyID:          s.keyID,
			Nonce:          final.Signed.Nonce(),
			SignatureInput: final.Signed.Headers.SignatureInput,
		}
	}

	elapsed := time.Since(start)
	s.metrics.ObserveFetch(mode, result.Decision.String(), resp.Redirects(), elapsed)
	log.Info("fetch",
		logger.Method(final.Method),
		logger.URL(final.URL),
		logger.Status(resp.StatusCode),
		logger.Duration(elapsed),
		zap.String("mode", mode),
		zap.Int("redirects", resp.Redirects()),
		logger.Decision(result.Decision.String(), result.Basis.String()))

	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
