// Package session provides the per-user key-value store the CSRF guard
// writes into. Sessions are managed by scs; this package adds a byte-valued
// facade over the scs request data, a msgpack codec, memory and Redis
// stores, and a Manager middleware.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
)

// ErrDestroyed is returned when writing to a destroyed session.
var ErrDestroyed = errors.New("session: destroyed")

// Session is one user's session data for the current request. It is a view
// over the scs session data carried by ctx, so all copies share state.
type Session struct {
	sm  *scs.SessionManager
	ctx context.Context
}

// detached backs sessions created by New. Nothing is ever committed to it.
var detached = sync.OnceValue(func() *scs.SessionManager {
	sm := scs.New()
	sm.Store = NewMemoryBackend(1, time.Minute)
	sm.Codec = Codec{}
	return sm
})

// New returns an empty session that is not bound to a request or store,
// for hosts that keep session state themselves and for tests.
func New() *Session {
	sm := detached()
	// an empty token never reaches the store, so Load cannot fail
	ctx, _ := sm.Load(context.Background(), "")
	return &Session{sm: sm, ctx: ctx}
}

// ID returns the session token. It is empty until the session is first saved.
func (s *Session) ID() string {
	return s.sm.Token(s.ctx)
}

// IsNew reports whether the session has not been saved yet.
func (s *Session) IsNew() bool {
	return s.ID() == ""
}

// Modified reports whether the session will be written back. With an idle
// timeout configured every loaded session counts as modified.
func (s *Session) Modified() bool {
	return s.sm.Status(s.ctx) == scs.Modified
}

// Destroyed reports whether Destroy was called.
func (s *Session) Destroyed() bool {
	return s.sm.Status(s.ctx) == scs.Destroyed
}

func (s *Session) Has(key string) bool {
	return s.sm.Exists(s.ctx, key)
}

// Get returns a copy of the value stored under key.
func (s *Session) Get(key string) ([]byte, bool) {
	v, ok := s.sm.Get(s.ctx, key).([]byte)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// Set stores value under key, replacing any previous value.
func (s *Session) Set(key string, value []byte) error {
	if s.Destroyed() {
		return ErrDestroyed
	}
	s.sm.Put(s.ctx, key, append([]byte(nil), value...))
	return nil
}

func (s *Session) Delete(key string) {
	s.sm.Remove(s.ctx, key)
}

// Destroy clears every value and deletes the session from its store.
func (s *Session) Destroy() error {
	return s.sm.Destroy(s.ctx)
}

// Renew issues a new session token and keeps the data. Call it when the
// privilege level changes, e.g. at login.
func (s *Session) Renew() error {
	return s.sm.RenewToken(s.ctx)
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx by the Manager, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
