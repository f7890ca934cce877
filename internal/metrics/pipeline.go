package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline and retrieval Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auditdex",
			Name:      "queries_total",
			Help:      "Total audit queries by classified type and outcome",
		},
		[]string{"query_type", "status"}, // status: "ok" / "degraded"
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "auditdex",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage", "status"}, // status: "ok" / "error"
	)

	RetrievalSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auditdex",
			Name:      "retrieval_searches_total",
			Help:      "Retrieval searches by corpus and mode",
		},
		[]string{"corpus", "mode"}, // mode: "keyword" / "semantic"
	)

	IndexRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auditdex",
			Name:      "index_rebuilds_total",
			Help:      "Corpus index rebuilds",
		},
		[]string{"corpus", "status"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(RetrievalSearchesTotal)
	prometheus.MustRegister(IndexRebuildsTotal)
	pipelineMetricsRegistered = true
}
