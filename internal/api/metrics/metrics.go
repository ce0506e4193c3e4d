// Package metrics defines and registers the custom Prometheus metrics of the
// identity service. It is the single source of truth for metric names, labels
// and help strings.
//
// Metrics register with the default registry at package init through promauto;
// RegisterHashPool is the one collector wired at startup.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Authentication metrics ───────────────────────────────────────────────────

// AuthAttemptsTotal counts credential operations.
// Labels:
//   - operation: "register", "login" or "logout"
//   - outcome: "success", "invalid", "conflict" or "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of register, login and logout attempts by outcome.",
	},
	[]string{"operation", "outcome"},
)

// TokenVerificationsTotal counts authenticator decisions.
// Label:
//   - result: "ok", "no_token", "invalid", "identity_gone" or "error"
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of session token checks, labelled by result.",
	},
	[]string{"result"},
)

// AccessDecisionsTotal counts role gate decisions.
// Labels:
//   - gate: the comma-joined roles the gate admits (e.g. "buyer,seller")
//   - decision: "allow" or "deny"
var AccessDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_decisions_total",
		Help:      "Total number of role gate decisions.",
	},
	[]string{"gate", "decision"},
)

// ── Credential hashing metrics ───────────────────────────────────────────────

// HashDuration measures bcrypt work including time spent queued.
// Label:
//   - op: "hash" or "verify"
var HashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hash and verify operations.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"op"},
)

// ObserveHash has the signature of security.HashObserver.
func ObserveHash(op string, d time.Duration) {
	HashDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RegisterHashPool exports the hash pool queue depth. Call once at startup.
func RegisterHashPool(depth func() int) {
	promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hash_pool_queue_depth",
			Help:      "Current number of password hashing jobs waiting for a worker.",
		},
		func() float64 { return float64(depth()) },
	)
}
