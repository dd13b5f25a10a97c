package csrf

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// ErrNoSession is reported when a request carries no session to hold the token.
var ErrNoSession = errors.New("csrf: no session for request")

// Methods that require CSRF protection
var unsafeMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Protect wraps next so every request has an active token in its session.
//
// Behavior:
//   - resolves the request session and runs EnsureToken on it.
//   - attaches a Verifier and the token to the request context.
//   - always calls next. Protect never rejects a request because of a bad
//     or missing token; handlers decide with FromContext(ctx).VerifyRequest(r),
//     or the chain adds Enforce.
//
// A missing session or a failed session write answers 500.
//
// Params:
// - next: downstream handler.
//
// Returns:
// - An http.Handler that issues the token before delegating to next.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := g.cfg.SessionFunc(r)
		if !ok {
			g.cfg.Logger.Error("csrf protect", zap.Error(ErrNoSession), zap.String("path", r.URL.Path))
			http.Error(w, "no session", http.StatusInternalServerError)
			return
		}

		rec, err := g.EnsureToken(s)
		if err != nil {
			g.cfg.Logger.Error("csrf protect", zap.Error(err), zap.String("path", r.URL.Path))
			http.Error(w, "failed to issue CSRF token", http.StatusInternalServerError)
			return
		}

		v := &Verifier{guard: g, sess: s}
		next.ServeHTTP(w, r.WithContext(contextWithVerifier(r.Context(), v, rec.Value)))
	})
}

// Enforce rejects unsafe requests that do not carry a valid token. It must
// be chained inside Protect.
//
// Behavior:
//   - "safe" methods (GET/HEAD/OPTIONS) pass through.
//   - "unsafe" methods (POST/PUT/PATCH/DELETE): optionally validates Origin/Referer
//     (when EnforceOriginCheck is true), then requires VerifyRequest to succeed.
//
// Params:
// - next: downstream handler executed after the checks pass.
//
// Returns:
// - An http.Handler answering 403 on failure.
func (g *Guard) Enforce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !unsafeMethods[r.Method] {
			next.ServeHTTP(w, r)
			return
		}

		v, ok := FromContext(r.Context())
		if !ok {
			g.cfg.Logger.Error("csrf enforce without protect", zap.String("path", r.URL.Path))
			http.Error(w, "csrf not configured", http.StatusInternalServerError)
			return
		}

		if g.cfg.EnforceOriginCheck {
			if err := validateOriginOrReferer(r, g.cfg.AllowedOrigin); err != nil {
				g.cfg.Logger.Info("csrf origin rejected", zap.Error(err), zap.String("path", r.URL.Path))
				http.Error(w, "invalid origin", http.StatusForbidden)
				return
			}
		}

		if !v.VerifyRequest(r) {
			g.cfg.Logger.Info("csrf token rejected", zap.String("method", r.Method), zap.String("path", r.URL.Path))
			http.Error(w, "bad CSRF token", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// TokenHandler returns an HTTP handler that writes the current CSRF token.
// This is useful for SPAs to fetch the token and attach it to subsequent requests.
//
// Returns:
// - http.Handler that responds with the token in the response body (text/plain).
func (g *Guard) TokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok, ok := TokenFromContext(r.Context()); ok {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Write([]byte(tok))
			return
		}
		http.Error(w, "no token", http.StatusInternalServerError)
	})
}

// validateOriginOrReferer checks whether the request is same-site according to
// the allowed host policy. When allowed is empty, it falls back to r.Host.
// It prefers the Origin header; if empty, it falls back to Referer.
func validateOriginOrReferer(r *http.Request, allowed string) error {
	host := allowed
	if host == "" {
		host = r.Host
	}

	origin := r.Header.Get("Origin")
	ref := r.Header.Get("Referer")

	if origin == "" && ref == "" {
		return errors.New("no origin/referer")
	}
	if origin != "" && !sameSite(origin, host) {
		return errors.New("bad origin")
	}
	if origin == "" && ref != "" && !sameSite(ref, host) {
		return errors.New("bad referer")
	}
	return nil
}
