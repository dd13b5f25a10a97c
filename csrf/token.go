package csrf

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Record is the token state kept in the session.
type Record struct {
	Value    string    `msgpack:"v"`
	IssuedAt time.Time `msgpack:"t"`
}

// Expired reports whether more than ttl has elapsed since issuance.
func (rec Record) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(rec.IssuedAt) > ttl
}

func encodeRecord(rec Record) ([]byte, error) {
	return msgpack.Marshal(rec)
}

// decodeRecord returns false for anything that is not a usable record.
func decodeRecord(b []byte) (Record, bool) {
	var rec Record
	if err := msgpack.Unmarshal(b, &rec); err != nil {
		return Record{}, false
	}
	if rec.Value == "" {
		return Record{}, false
	}
	return rec, true
}

// newToken returns n random bytes, url-safe base64 without padding.
func newToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func extractClientToken(r *http.Request, headerName, formField string) string {
	// header wins
	if h := r.Header.Get(headerName); h != "" {
		return h
	}
	// then x-www-form-urlencoded / multipart
	_ = r.ParseForm()
	if v := r.Form.Get(formField); v != "" {
		return v
	}
	return ""
}

// sameSite reports whether originOrRef points at allowedHost.
func sameSite(originOrRef, allowedHost string) bool {
	u, err := url.Parse(originOrRef)
	if err != nil {
		return false
	}
	// host only, port included when present
	return strings.EqualFold(u.Host, allowedHost)
}
