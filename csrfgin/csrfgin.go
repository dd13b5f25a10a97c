// Package csrfgin adapts session.Manager and csrf.Guard to Gin.
package csrfgin

import (
	"net/http"

	"github.com/JeanGrijp/go-csrfguard/csrf"
	"github.com/JeanGrijp/go-csrfguard/session"
	"github.com/gin-gonic/gin"
)

// Middleware runs the session and CSRF middlewares in front of the rest of
// the Gin chain. Like csrf.Guard.Protect it never rejects a request for a
// bad token; use Verifier in handlers, or EnforceMiddleware.
func Middleware(sm *session.Manager, g *csrf.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		reached := false
		h := sm.Middleware(g.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			c.Request = r

			// Gin handlers write to c.Writer, never to w, so the session
			// must be saved and its cookie set before their first write.
			orig := c.Writer
			c.Writer = &committingWriter{
				ResponseWriter: orig,
				commit:         func() { w.WriteHeader(orig.Status()) },
			}
			defer func() { c.Writer = orig }()
			c.Next()
		})))
		h.ServeHTTP(c.Writer, c.Request)
		if !reached {
			c.Abort()
		}
	}
}

// committingWriter runs commit once, just before the response is first
// written.
type committingWriter struct {
	gin.ResponseWriter
	commit    func()
	committed bool
}

func (w *committingWriter) before() {
	if !w.committed {
		w.committed = true
		w.commit()
	}
}

func (w *committingWriter) Write(b []byte) (int, error) {
	w.before()
	return w.ResponseWriter.Write(b)
}

func (w *committingWriter) WriteString(s string) (int, error) {
	w.before()
	return w.ResponseWriter.WriteString(s)
}

func (w *committingWriter) WriteHeaderNow() {
	w.before()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *committingWriter) Flush() {
	w.before()
	w.ResponseWriter.Flush()
}

// EnforceMiddleware rejects unsafe requests without a valid token. It must
// come after Middleware.
func EnforceMiddleware(g *csrf.Guard) gin.HandlerFunc {
	return wrap(g.Enforce)
}

func wrap(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		reached := false
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// keep gin context in sync with possibly modified *http.Request
			reached = true
			c.Request = r
			c.Next()
		}))
		h.ServeHTTP(c.Writer, c.Request)
		if !reached {
			c.Abort()
		}
	}
}

// Verifier returns the CSRF verifier attached to the request.
func Verifier(c *gin.Context) (*csrf.Verifier, bool) {
	return csrf.FromContext(c.Request.Context())
}

// Token returns the request's CSRF token, for templates and JSON responses.
func Token(c *gin.Context) string {
	tok, _ := csrf.TokenFromContext(c.Request.Context())
	return tok
}
