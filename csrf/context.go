package csrf

import (
	"context"
	"net/http"
)

type ctxKey string

const (
	tokenKey    ctxKey = "csrf_token_ctx"
	verifierKey ctxKey = "csrf_verifier_ctx"
)

// Verifier is the request-scoped verification capability attached by
// Protect. It is bound to the request's session.
type Verifier struct {
	guard *Guard
	sess  Session
}

// Exists reports whether the session still holds an unexpired token.
func (v *Verifier) Exists() bool {
	return v.guard.Exists(v.sess)
}

// Token returns the active token, or "" when it is missing or expired.
func (v *Verifier) Token() string {
	tok, _ := v.guard.Token(v.sess)
	return tok
}

// VerifyToken checks candidate against the session token.
func (v *Verifier) VerifyToken(candidate string) bool {
	return v.guard.VerifyToken(v.sess, candidate)
}

// VerifyRequest reads the candidate from r, the configured header first and
// then the form field, and verifies it. Pass the request the handler is
// serving: middlewares after Protect may have derived a new one.
func (v *Verifier) VerifyRequest(r *http.Request) bool {
	return v.VerifyToken(extractClientToken(r, v.guard.cfg.HeaderName, v.guard.cfg.FormField))
}

// contextWithVerifier returns a derived context carrying v and its token.
//
// Params:
// - ctx: base context to attach to.
// - v: verifier bound to the current session.
// - tok: token string to store.
//
// Returns:
// - a new context containing both values.
func contextWithVerifier(ctx context.Context, v *Verifier, tok string) context.Context {
	ctx = context.WithValue(ctx, verifierKey, v)
	return context.WithValue(ctx, tokenKey, tok)
}

// FromContext returns the Verifier attached by Protect, if present.
func FromContext(ctx context.Context) (*Verifier, bool) {
	v, ok := ctx.Value(verifierKey).(*Verifier)
	return v, ok && v != nil
}

// TokenFromContext returns the token issued for the request, if present.
//
// Params:
// - ctx: context potentially containing a token set by the middleware.
//
// Returns:
// - token (string) and a boolean indicating whether a token was found.
func TokenFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(tokenKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
