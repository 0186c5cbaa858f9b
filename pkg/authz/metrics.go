package authz

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeeDigitalWorks/aclgate/pkg/debug"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3err"
)

var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aclgate",
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Authorization decisions by target and outcome.",
		},
		[]string{"target", "outcome"},
	)

	decisionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aclgate",
			Subsystem: "authz",
			Name:      "decision_duration_seconds",
			Help:      "Time spent evaluating an authorization decision, backend fetches included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"target"},
	)
)

func init() {
	debug.Registry().MustRegister(decisionsTotal, decisionDuration)
}

func observeDecision(target Target, err error, elapsed time.Duration) {
	decisionsTotal.WithLabelValues(target.String(), outcomeLabel(err)).Inc()
	decisionDuration.WithLabelValues(target.String()).Observe(elapsed.Seconds())
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "allow"
	case errors.Is(err, s3err.ErrAccessDenied):
		return "deny"
	default:
		return "error"
	}
}
