package csrf

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	resultValid   = "valid"
	resultInvalid = "invalid"
	resultMissing = "missing"
	resultExpired = "expired"
)

type metrics struct {
	issued        prometheus.Counter
	verifications *prometheus.CounterVec
}

// newMetrics registers the guard's collectors on reg. Guards sharing a
// registry share the collectors. With a nil reg the collectors still work
// but are not exported.
func newMetrics(reg prometheus.Registerer, logger *zap.Logger) *metrics {
	return &metrics{
		issued: register(reg, logger, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csrf_tokens_issued_total",
			Help: "Number of CSRF tokens issued.",
		})),
		verifications: register(reg, logger, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "csrf_verifications_total",
			Help: "CSRF token verifications by result.",
		}, []string{"result"})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, logger *zap.Logger, c C) C {
	if reg == nil {
		return c
	}
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	logger.Warn("csrf metrics not exported", zap.Error(err))
	return c
}

func (m *metrics) verified(result string) {
	m.verifications.WithLabelValues(result).Inc()
}
