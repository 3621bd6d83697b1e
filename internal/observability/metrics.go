package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// enrichment pipeline.
type Metrics struct {
	RecordsProcessed prometheus.Counter
	RecordsEnriched  prometheus.Counter
	RecordsRejected  *prometheus.CounterVec // labels: reason
	MatchesFound     *prometheus.CounterVec // labels: source
	PipelineRunning  prometheus.Gauge
	CheckpointsSaved prometheus.Counter

	// Chunk processing metrics.
	MatchConfidence prometheus.Histogram
	ChunkSize       prometheus.Histogram
	ChunkDuration   prometheus.Histogram

	// Economic data provider metrics.
	ProviderRequests *prometheus.CounterVec   // labels: endpoint, outcome={success,error,unavailable}
	ProviderCache    *prometheus.CounterVec   // labels: endpoint, result={hit,miss}
	ProviderDuration *prometheus.HistogramVec // labels: endpoint
	ImpactEnabled    prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RecordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_enrich",
			Name:      "records_processed_total",
			Help:      "Total primary records read from the input stream.",
		}),
		RecordsEnriched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_enrich",
			Name:      "records_enriched_total",
			Help:      "Total records that received at least one enrichment source.",
		}),
		RecordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_enrich",
			Name:      "records_rejected_total",
			Help:      "Candidate rejections by quality-flag reason.",
		}, []string{"reason"}),
		MatchesFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_enrich",
			Name:      "matches_found_total",
			Help:      "Accepted matches by reference source.",
		}, []string{"source"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_enrich",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is active, 0 otherwise.",
		}),
		CheckpointsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_enrich",
			Name:      "checkpoints_saved_total",
			Help:      "Total durable checkpoint snapshots written.",
		}),
		MatchConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_enrich",
			Name:      "match_confidence",
			Help:      "Confidence scores of accepted matches.",
			Buckets:   []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
		ChunkSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_enrich",
			Name:      "chunk_size",
			Help:      "Number of primary records per processed chunk.",
			Buckets:   []float64{100, 500, 1000, 2500, 5000, 10000},
		}),
		ChunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_enrich",
			Name:      "chunk_duration_seconds",
			Help:      "Duration of a complete chunk match-and-merge cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_enrich",
			Name:      "provider_requests_total",
			Help:      "Economic data provider requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		ProviderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_enrich",
			Name:      "provider_cache_total",
			Help:      "Economic data cache lookups by endpoint and result.",
		}, []string{"endpoint", "result"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "incident_enrich",
			Name:      "provider_request_duration_seconds",
			Help:      "Economic data provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		ImpactEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_enrich",
			Name:      "impact_enabled",
			Help:      "1 when economic impact enrichment is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.RecordsProcessed,
		m.RecordsEnriched,
		m.RecordsRejected,
		m.MatchesFound,
		m.PipelineRunning,
		m.CheckpointsSaved,
		m.MatchConfidence,
		m.ChunkSize,
		m.ChunkDuration,
		m.ProviderRequests,
		m.ProviderCache,
		m.ProviderDuration,
		m.ImpactEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RecordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "incident_enrich", Name: "records_processed_total"}),
		RecordsEnriched:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "incident_enrich", Name: "records_enriched_total"}),
		RecordsRejected:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_enrich", Name: "records_rejected_total"}, []string{"reason"}),
		MatchesFound:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_enrich", Name: "matches_found_total"}, []string{"source"}),
		PipelineRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "incident_enrich", Name: "pipeline_running"}),
		CheckpointsSaved: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "incident_enrich", Name: "checkpoints_saved_total"}),
		MatchConfidence:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "incident_enrich", Name: "match_confidence"}),
		ChunkSize:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "incident_enrich", Name: "chunk_size"}),
		ChunkDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "incident_enrich", Name: "chunk_duration_seconds"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_enrich", Name: "provider_requests_total"}, []string{"endpoint", "outcome"}),
		ProviderCache:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_enrich", Name: "provider_cache_total"}, []string{"endpoint", "result"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "incident_enrich", Name: "provider_request_duration_seconds"}, []string{"endpoint"}),
		ImpactEnabled:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "incident_enrich", Name: "impact_enabled"}),
	}
}
