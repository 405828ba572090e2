// Package metrics defines and registers all custom Prometheus metrics for the
// sensor backend. It is the single source of truth for metric names, labels,
// and help strings.
//
// Collectors are registered with the default Prometheus registry when the
// package is loaded; HTTP request metrics are added separately by the
// echoprometheus middleware in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sensor"

// ── Ingestion metrics ─────────────────────────────────────────────────────────

// ReadingsIngestedTotal counts readings that were stored successfully.
// Label:
//   - source: the transport that delivered the reading ("http", "mqtt", "reporter")
var ReadingsIngestedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_ingested_total",
		Help:      "Total number of sensor readings stored.",
	},
	[]string{"source"},
)

// ReadingsIngestErrorsTotal counts rejected or failed ingestion attempts.
// Label:
//   - reason: "validation" or "storage"
var ReadingsIngestErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_ingest_errors_total",
		Help:      "Total number of sensor readings that could not be stored.",
	},
	[]string{"reason"},
)

// ReadingsPurgedTotal counts readings removed through the purge endpoint.
var ReadingsPurgedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_purged_total",
		Help:      "Total number of sensor readings deleted by purge requests.",
	},
)

// ── Realtime metrics ──────────────────────────────────────────────────────────

// RealtimeSubscribers tracks the number of currently registered subscribers.
var RealtimeSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_subscribers",
		Help:      "Current number of live realtime subscribers.",
	},
)

// RealtimeEventsTotal counts fan-out attempts per subscriber.
// Label:
//   - result: "queued" (accepted by the subscriber queue) or "dropped" (queue full)
var RealtimeEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_events_total",
		Help:      "Total number of realtime events offered to subscribers, by result.",
	},
	[]string{"result"},
)

// ── Auth and control metrics ──────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ServicePaused is 1 while the self-reporting task is paused, 0 otherwise.
var ServicePaused = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "service_paused",
		Help:      "Soft pause flag of the self-reporting task (1 = paused).",
	},
)

// ReporterTicksTotal counts self-reporting ticks.
// Label:
//   - outcome: "submitted", "skipped" (paused) or "failed"
var ReporterTicksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reporter_ticks_total",
		Help:      "Total number of self-reporting ticks, by outcome.",
	},
	[]string{"outcome"},
)
