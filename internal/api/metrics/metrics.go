// Package metrics defines and registers all custom Prometheus metrics for
// the data platform. It is the single source of truth for metric names,
// labels, and help strings. Registration happens at import time via
// promauto; the router exposes the default registry on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "appdata"

// RateLimitedTotal counts rejected requests per route class.
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter, by route class.",
	},
	[]string{"class"},
)

// ItemWritesTotal counts item mutations.
// Labels:
//   - operation: "create", "update", "delete", "bulk_delete", "bulk_archive"
var ItemWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "item_writes_total",
		Help:      "Total number of item write operations, by operation.",
	},
	[]string{"operation"},
)

// ValidationFailuresTotal counts writes rejected by schema validation.
var ValidationFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_failures_total",
		Help:      "Total number of writes rejected by dynamic schema validation.",
	},
)

// SignupsTotal counts identities created, by the role they received.
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of identities created, by initial role.",
	},
	[]string{"role"},
)
