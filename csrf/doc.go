// Package csrf provides session-backed CSRF token protection for Go
// net/http servers.
//
// How it works
//   - A Guard keeps one token record per session under the "_token" key: a
//     random value plus its issuance time. A record older than Config.Expire
//     is treated as absent.
//   - Protect runs before the route handler. It issues a token when the
//     session has none or the old one expired, attaches a Verifier to the
//     request context and always continues the chain.
//   - Handlers decide what to do with a bad token. Verifier.VerifyToken and
//     Verifier.VerifyRequest compare in constant time and return false for
//     missing, expired or mismatching tokens.
//   - Enforce is an optional middleware that turns this into a policy:
//     unsafe methods without a valid token get 403.
//
// # Configuration
//
// Behavior is driven by Config. Key fields include:
//   - Expire (default: 1h) and TokenLength (default: 32 bytes)
//   - HeaderName (default: "X-CSRF-Token") and FormField (default: "_token")
//   - EnforceOriginCheck and AllowedOrigin, used by Enforce
//   - SessionFunc (default: the session set by session.Manager)
//
// ConfigFromMap accepts the plain option map {"expire": seconds, "tokenLength": n}.
//
// Typical usage
//
//	sm := session.NewManager(session.NewMemoryBackend(0, 0), session.Options{})
//	g := csrf.New(csrf.Config{Expire: time.Hour})
//	http.ListenAndServe(":8080", sm.Middleware(g.Protect(appMux)))
//
// In handlers:
//
//	v, _ := csrf.FromContext(r.Context())
//	if r.Method == http.MethodPost && !v.VerifyRequest(r) {
//	    http.Error(w, "bad token", http.StatusForbidden)
//	    return
//	}
package csrf
