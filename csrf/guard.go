package csrf

import (
	"crypto/subtle"
	"fmt"

	"go.uber.org/zap"
)

// Session is the storage a Guard needs from a user session.
// *session.Session satisfies it.
type Session interface {
	Has(key string) bool
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
}

type recordState int

const (
	stateAbsent recordState = iota
	stateExpired
	stateActive
)

func (g *Guard) lookup(s Session) (Record, recordState) {
	if !s.Has(g.cfg.SessionKey) {
		return Record{}, stateAbsent
	}
	b, _ := s.Get(g.cfg.SessionKey)
	rec, ok := decodeRecord(b)
	if !ok {
		return Record{}, stateAbsent
	}
	if rec.Expired(g.cfg.Now(), g.cfg.Expire) {
		return rec, stateExpired
	}
	return rec, stateActive
}

// EnsureToken makes sure s holds an active token. An absent or expired
// record is replaced by a fresh one; an active record is returned as is.
//
// Params:
// - s: the session to read and possibly write.
//
// Returns:
// - the active record; an error only when randomness or the session write fails.
func (g *Guard) EnsureToken(s Session) (Record, error) {
	if rec, state := g.lookup(s); state == stateActive {
		return rec, nil
	}

	tok, err := newToken(g.cfg.TokenLength)
	if err != nil {
		return Record{}, fmt.Errorf("csrf: generate token: %w", err)
	}
	rec := Record{Value: tok, IssuedAt: g.cfg.Now()}
	b, err := encodeRecord(rec)
	if err != nil {
		return Record{}, fmt.Errorf("csrf: encode token: %w", err)
	}
	if err := s.Set(g.cfg.SessionKey, b); err != nil {
		return Record{}, fmt.Errorf("csrf: store token: %w", err)
	}

	g.metrics.issued.Inc()
	g.cfg.Logger.Debug("issued csrf token", zap.Time("issued_at", rec.IssuedAt))
	return rec, nil
}

// Exists reports whether s holds a token that has not expired.
func (g *Guard) Exists(s Session) bool {
	_, state := g.lookup(s)
	return state == stateActive
}

// Token returns the active token value of s.
func (g *Guard) Token(s Session) (string, bool) {
	rec, state := g.lookup(s)
	if state != stateActive {
		return "", false
	}
	return rec.Value, true
}

// VerifyToken reports whether candidate matches the active token of s.
// Missing, expired and mismatching tokens all yield false. The comparison
// runs in constant time.
func (g *Guard) VerifyToken(s Session, candidate string) bool {
	rec, state := g.lookup(s)
	switch state {
	case stateAbsent:
		g.metrics.verified(resultMissing)
		return false
	case stateExpired:
		g.metrics.verified(resultExpired)
		return false
	}

	if candidate == "" || subtle.ConstantTimeCompare([]byte(candidate), []byte(rec.Value)) != 1 {
		g.metrics.verified(resultInvalid)
		return false
	}
	g.metrics.verified(resultValid)
	return true
}
