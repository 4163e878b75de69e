package http

import (
	"net/http"
)

// Middleware is the handler returned by Wrap. Requests reach next only
// after the verifier accepts them; the verified signature, if any, is
// available through VerifiedFromContext.
type Middleware struct {
	next http.Handler
	v    *Verifier
}

// Wrap puts agent signature verification in front of h. Without
// WithVerifier every request passes straight through.
func Wrap(h http.Handler, options ...MiddlewareOption) http.Handler {
	var v *Verifier
	for _, opt := range options {
		if opt.Ident() == (identVerifier{}) {
			v = opt.Value().(*Verifier)
		}
	}
	return &Middleware{next: h, v: v}
}

func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.v == nil {
		m.next.ServeHTTP(w, r)
		return
	}
	verified, err := m.v.VerifyRequest(r)
	if err != nil {
		m.v.handleError(w, r, err)
		return
	}
	if verified != nil {
		r = r.WithContext(WithVerified(r.Context(), verified))
	}
	m.next.ServeHTTP(w, r)
}
