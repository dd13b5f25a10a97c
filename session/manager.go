package session

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"go.uber.org/zap"
)

type Options struct {
	// Cookie
	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	// Lifetime is the absolute maximum age of a session, default 24h.
	Lifetime time.Duration
	// IdleTimeout expires a session not used for this long. Every request
	// rewrites the stored session and its cookie with a fresh deadline.
	// Zero disables it.
	IdleTimeout time.Duration

	Logger *zap.Logger
}

// Manager loads the session named by the request cookie, exposes it through
// the request context and commits it before the response is written.
type Manager struct {
	scs    *scs.SessionManager
	logger *zap.Logger
}

// NewManager applies defaults to opts. The cookie is always HttpOnly.
func NewManager(backend Backend, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "session_id"
	}
	if opts.CookiePath == "" {
		opts.CookiePath = "/"
	}
	if opts.CookieSameSite == 0 {
		opts.CookieSameSite = http.SameSiteLaxMode
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	sm := scs.New()
	sm.Store = backend
	sm.Codec = Codec{}
	sm.Lifetime = opts.Lifetime
	sm.IdleTimeout = opts.IdleTimeout
	sm.Cookie.Name = opts.CookieName
	sm.Cookie.Path = opts.CookiePath
	sm.Cookie.Domain = opts.CookieDomain
	sm.Cookie.Secure = opts.CookieSecure
	sm.Cookie.SameSite = opts.CookieSameSite
	sm.Cookie.HttpOnly = true
	sm.Cookie.Persist = true

	m := &Manager{scs: sm, logger: opts.Logger}
	sm.ErrorFunc = m.fail
	return m
}

func (m *Manager) fail(w http.ResponseWriter, r *http.Request, err error) {
	m.logger.Error("session failure", zap.Error(err), zap.String("path", r.URL.Path))
	http.Error(w, "session unavailable", http.StatusInternalServerError)
}

// Middleware wraps next with scs LoadAndSave and puts a *Session for the
// request into the context.
//
// Behavior:
//   - an unknown, expired or missing cookie starts an empty session.
//   - a modified session is committed and its cookie written before the
//     first byte of the response; a destroyed one gets an expired cookie.
//   - a backend or decode failure while loading answers 500.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return m.scs.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := &Session{sm: m.scs, ctx: r.Context()}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	}))
}

// CookieName returns the configured session cookie name.
func (m *Manager) CookieName() string {
	return m.scs.Cookie.Name
}
