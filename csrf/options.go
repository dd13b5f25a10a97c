package csrf

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/JeanGrijp/go-csrfguard/session"
	"github.com/go-viper/mapstructure/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	DefaultExpire      = 3600 * time.Second
	DefaultTokenLength = 32
	DefaultSessionKey  = "_token"
)

type Config struct {
	// Token lifecycle
	Expire      time.Duration // token lifetime, default 1h
	TokenLength int           // bytes of entropy, default 32
	SessionKey  string        // session key holding the record, default "_token"

	// Token transport, read by Verifier.VerifyRequest
	HeaderName string // e.g.: "X-CSRF-Token"
	FormField  string // e.g.: "_token"

	// Used only by Enforce
	EnforceOriginCheck bool
	AllowedOrigin      string // if empty, uses r.Host

	// SessionFunc resolves the session of a request. Defaults to the session
	// placed in the context by session.Manager.
	SessionFunc func(r *http.Request) (Session, bool)

	Now        func() time.Time
	Logger     *zap.Logger
	Registerer prometheus.Registerer // nil disables metrics
}

// Guard issues, expires and verifies per-session CSRF tokens.
type Guard struct {
	cfg     Config
	metrics *metrics
}

func New(cfg Config) *Guard {
	if cfg.Expire <= 0 {
		cfg.Expire = DefaultExpire
	}
	if cfg.TokenLength <= 0 {
		cfg.TokenLength = DefaultTokenLength
	}
	if cfg.SessionKey == "" {
		cfg.SessionKey = DefaultSessionKey
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-CSRF-Token"
	}
	if cfg.FormField == "" {
		cfg.FormField = "_token"
	}
	if cfg.SessionFunc == nil {
		cfg.SessionFunc = sessionFromContext
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Guard{cfg: cfg, metrics: newMetrics(cfg.Registerer, cfg.Logger)}
}

func sessionFromContext(r *http.Request) (Session, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		return nil, false
	}
	return s, true
}

const (
	// maxExpireSeconds keeps Expire representable as a time.Duration.
	maxExpireSeconds = math.MaxInt64 / int64(time.Second)
	maxTokenLength   = 1024
)

// mapOptions is the loosely typed option surface accepted by ConfigFromMap.
// Numbers decode as float64 so fractional input is caught, not truncated.
type mapOptions struct {
	Expire      float64 `mapstructure:"expire"`
	TokenLength float64 `mapstructure:"tokenLength"`
}

// ConfigFromMap builds a Config from a plain option map such as
// {"expire": 60, "tokenLength": 16}. Expire is in seconds. Unknown keys are
// ignored and absent keys keep their defaults. Numeric strings are accepted;
// negative, fractional or out of range values are errors.
func ConfigFromMap(m map[string]any) (Config, error) {
	var opts mapOptions
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(m); err != nil {
		return Config{}, fmt.Errorf("csrf options: %w", err)
	}

	expire, err := wholeNumber("expire", opts.Expire, maxExpireSeconds)
	if err != nil {
		return Config{}, err
	}
	tokenLength, err := wholeNumber("tokenLength", opts.TokenLength, maxTokenLength)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Expire:      DefaultExpire,
		TokenLength: DefaultTokenLength,
	}
	if expire > 0 {
		cfg.Expire = time.Duration(expire) * time.Second
	}
	if tokenLength > 0 {
		cfg.TokenLength = int(tokenLength)
	}
	return cfg, nil
}

func wholeNumber(key string, v float64, limit int64) (int64, error) {
	if v < 0 || v != math.Trunc(v) || math.IsNaN(v) {
		return 0, fmt.Errorf("csrf options: %s must be a non-negative integer, got %v", key, v)
	}
	if v > float64(limit) {
		return 0, fmt.Errorf("csrf options: %s %v exceeds maximum %d", key, v, limit)
	}
	return int64(v), nil
}
