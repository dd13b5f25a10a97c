package csrf

import (
	"testing"
	"time"
)

// Absent keys keep defaults and unknown keys are ignored.
func TestConfigFromMapDefaults(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]any{"foo": "bar"})
	if err != nil {
		t.Fatalf("ConfigFromMap: %v", err)
	}
	if cfg.Expire != DefaultExpire {
		t.Fatalf("expire = %v, want %v", cfg.Expire, DefaultExpire)
	}
	if cfg.TokenLength != DefaultTokenLength {
		t.Fatalf("tokenLength = %d, want %d", cfg.TokenLength, DefaultTokenLength)
	}

	cfg, err = ConfigFromMap(nil)
	if err != nil {
		t.Fatalf("ConfigFromMap(nil): %v", err)
	}
	if cfg.Expire != DefaultExpire {
		t.Fatalf("expire = %v, want %v", cfg.Expire, DefaultExpire)
	}
}

func TestConfigFromMapValues(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]any{"expire": 1, "tokenLength": "16"})
	if err != nil {
		t.Fatalf("ConfigFromMap: %v", err)
	}
	if cfg.Expire != time.Second {
		t.Fatalf("expire = %v, want 1s", cfg.Expire)
	}
	if cfg.TokenLength != 16 {
		t.Fatalf("tokenLength = %d, want 16", cfg.TokenLength)
	}
}

func TestConfigFromMapRejectsBadValues(t *testing.T) {
	for _, m := range []map[string]any{
		{"expire": "soon"},
		{"expire": -5},
		{"tokenLength": map[string]any{"n": 1}},
		{"expire": 1.5},
		{"expire": "2.5"},
		{"expire": 9223372037},
		{"expire": 1e300},
		{"tokenLength": 4096},
	} {
		if _, err := ConfigFromMap(m); err == nil {
			t.Fatalf("expected error for %v", m)
		}
	}
}

// The largest accepted expire still fits a time.Duration.
func TestConfigFromMapMaxExpire(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]any{"expire": maxExpireSeconds, "tokenLength": 2.0})
	if err != nil {
		t.Fatalf("ConfigFromMap: %v", err)
	}
	if cfg.Expire <= 0 {
		t.Fatalf("expire overflowed: %v", cfg.Expire)
	}
	if cfg.Expire != time.Duration(maxExpireSeconds)*time.Second {
		t.Fatalf("expire = %v", cfg.Expire)
	}
	if cfg.TokenLength != 2 {
		t.Fatalf("tokenLength = %d, want 2", cfg.TokenLength)
	}
}

// New fills zero fields with defaults.
func TestNewDefaults(t *testing.T) {
	g := New(Config{})
	if g.cfg.Expire != time.Hour {
		t.Fatalf("expire = %v", g.cfg.Expire)
	}
	if g.cfg.SessionKey != "_token" || g.cfg.HeaderName != "X-CSRF-Token" || g.cfg.FormField != "_token" {
		t.Fatalf("unexpected defaults: %+v", g.cfg)
	}
	if g.cfg.Now == nil || g.cfg.Logger == nil || g.cfg.SessionFunc == nil {
		t.Fatalf("expected Now, Logger and SessionFunc defaults")
	}
}
