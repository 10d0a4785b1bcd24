package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Workspace metrics
	ProjectsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vcw_projects_total",
			Help: "Number of projects in the local workspace tree",
		},
	)

	PagesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vcw_pages_total",
			Help: "Number of pages in the local workspace tree",
		},
	)

	TabsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vcw_tabs_total",
			Help: "Number of tabs in the local workspace tree by kind",
		},
		[]string{"kind"},
	)

	PendingOperations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vcw_pending_operations",
			Help: "Number of in-flight operations tracked for idempotency",
		},
	)

	// Gateway metrics
	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcw_gateway_requests_total",
			Help: "Total number of backend gateway requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vcw_gateway_request_duration_seconds",
			Help:    "Backend gateway request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	GatewayRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vcw_gateway_retries_total",
			Help: "Total number of retried gateway requests",
		},
	)

	// Synchronization metrics
	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcw_mutations_total",
			Help: "Optimistic mutations by entity, operation and outcome",
		},
		[]string{"entity", "operation", "outcome"},
	)

	CommitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vcw_commit_duration_seconds",
			Help:    "Time from optimistic event to confirmation or rollback",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity"},
	)

	DeletesSuppressedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vcw_deletes_suppressed_total",
			Help: "Concurrent deletes dropped because one was already in flight",
		},
	)

	IDMappingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vcw_id_mappings_total",
			Help: "Temporary ids mapped to server-issued ids",
		},
	)

	// Tab content metrics
	TabDataFragmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vcw_tab_data_fragments_total",
			Help: "Tab content fragments received from the UI",
		},
	)

	TabDataWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcw_tab_data_writes_total",
			Help: "Tab content writes sent to the backend by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	// Event metrics
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcw_events_published_total",
			Help: "Events broadcast to subscribers by type",
		},
		[]string{"type"},
	)

	EventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vcw_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		},
	)
)

func init() {
	prometheus.MustRegister(ProjectsTotal)
	prometheus.MustRegister(PagesTotal)
	prometheus.MustRegister(TabsTotal)
	prometheus.MustRegister(PendingOperations)
	prometheus.MustRegister(GatewayRequestsTotal)
	prometheus.MustRegister(GatewayRequestDuration)
	prometheus.MustRegister(GatewayRetriesTotal)
	prometheus.MustRegister(MutationsTotal)
	prometheus.MustRegister(CommitDuration)
	prometheus.MustRegister(DeletesSuppressedTotal)
	prometheus.MustRegister(IDMappingsTotal)
	prometheus.MustRegister(TabDataFragmentsTotal)
	prometheus.MustRegister(TabDataWritesTotal)
	prometheus.MustRegister(EventsPublishedTotal)
	prometheus.MustRegister(EventsDroppedTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
