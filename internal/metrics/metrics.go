// Package metrics defines the Prometheus metrics exported on /metrics.
// All metrics register with the default registry at package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "socialhub"

// Registrations counts registration attempts.
// Label result: "created", "duplicate" or "error".
var Registrations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// Logins counts login attempts.
// Label result: "success", "unknown_user", "wrong_password" or "error".
var Logins = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokensRejected counts requests turned away by the auth gate.
// Label reason: "missing" or "invalid".
var TokensRejected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_rejected_total",
		Help:      "Total number of requests rejected for a missing or invalid token.",
	},
	[]string{"reason"},
)

// MessagesSent counts stored direct messages.
var MessagesSent = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Total number of direct messages stored.",
	},
)
