// Package metrics defines and registers all custom Prometheus metrics for
// the admin gateway. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register against the default registry at package load; the
// echoprometheus middleware in the router serves them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docuchat_admin"

// ── Session metrics ───────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "bad_credentials", "not_authorized", "policy_rejected",
//     "upstream_unreachable", "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of upstream login attempts, by outcome.",
	},
	[]string{"result"},
)

// TokenRefreshTotal counts silent-renewal outcomes.
// Label:
//   - result: "success", "failure", or "skipped" (a refresh was already in flight)
var TokenRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Total number of access-token refresh attempts, by outcome.",
	},
	[]string{"result"},
)

// SessionReady reports whether the upstream session is currently ready
// (1) or not (0).
var SessionReady = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_ready",
		Help:      "Whether the gateway currently holds a ready upstream session.",
	},
)

// ── Upstream metrics ──────────────────────────────────────────────────────────

// UpstreamRequestsTotal counts calls to the upstream backend.
// Labels:
//   - path: the upstream endpoint path
//   - status: the HTTP status code, or "transport_error"
var UpstreamRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Total number of requests issued to the upstream backend.",
	},
	[]string{"path", "status"},
)

// UpstreamRequestDuration measures upstream round-trip time for requests
// that received a response.
// Label:
//   - path: the upstream endpoint path
var UpstreamRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Duration of upstream requests from send to body read.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"path"},
)

// ── Chat metrics ──────────────────────────────────────────────────────────────

// ChatExchangesTotal counts answered chat queries.
// Label:
//   - result: "success" or "error"
var ChatExchangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_exchanges_total",
		Help:      "Total number of retrieval-augmented chat queries, by outcome.",
	},
	[]string{"result"},
)

// TranscriptQueueDepth tracks the number of transcript writes waiting in
// each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var TranscriptQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "transcript_queue_depth",
		Help:      "Current number of transcript writes pending per dispatcher worker.",
	},
	[]string{"worker_id"},
)
