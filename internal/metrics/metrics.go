// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HttpRequestsTotal counts HTTP requests by route, method and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of http requests handled by the service.",
		},
		[]string{"path", "method", "code"},
	)

	// GatewayOperationsTotal counts gateway calls by operation and outcome
	// (success or the failed result kind).
	GatewayOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_operations_total",
			Help: "Total number of job store gateway operations.",
		},
		[]string{"operation", "outcome"},
	)

	// JobChangeEventsTotal counts change notifications received from the feed.
	JobChangeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_change_events_total",
			Help: "Total number of job change notifications observed.",
		},
		[]string{"kind"},
	)

	// SavedJobTogglesTotal counts save toggles by result (saved, unsaved, failed).
	SavedJobTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saved_job_toggles_total",
			Help: "Total number of saved job toggles.",
		},
		[]string{"result"},
	)

	// JobsExpiredTotal counts postings deactivated by the maintenance task.
	JobsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_expired_total",
			Help: "Total number of job postings deactivated after expiry.",
		},
	)

	// ClusterNodes is the number of serving replicas registered in etcd.
	ClusterNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cluster_nodes",
			Help: "Number of job board replicas currently registered.",
		},
	)

	// IsLeader is 1 while this node runs the maintenance scheduler.
	IsLeader = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "is_leader",
			Help: "Is this node currently the leader. 1 if leader, 0 otherwise.",
		},
		[]string{"node_id"},
	)
)
