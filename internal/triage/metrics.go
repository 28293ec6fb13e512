package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	TriagesTotal     *prometheus.CounterVec
	TriageDuration   *prometheus.HistogramVec
	OracleCallsTotal *prometheus.CounterVec
	OracleDuration   prometheus.Histogram
	RuleMatchesTotal *prometheus.CounterVec
	SimilarHits      prometheus.Histogram
	CorrectionsTotal *prometheus.CounterVec
	StoresTotal      *prometheus.CounterVec
	IndexErrorsTotal prometheus.Counter
	NotifiesTotal    *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_triages_total",
			Help: "Total triage runs by how the final classification was produced.",
		}, []string{"triaged_by"}),
		TriageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_triage_duration_seconds",
			Help:    "Duration of triage runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms .. ~200s
		}, []string{"triaged_by"}),
		OracleCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_oracle_calls_total",
			Help: "Total AI verification calls by outcome.",
		}, []string{"outcome"}),
		OracleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_oracle_call_duration_seconds",
			Help:    "Duration of individual AI verification calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		RuleMatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_rule_matches_total",
			Help: "Total deterministic rule matches by rule.",
		}, []string{"rule"}),
		SimilarHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_similar_hits",
			Help:    "Neighbors above the similarity cutoff per triage run.",
			Buckets: prometheus.LinearBuckets(0, 1, 6), // 0 .. 5
		}),
		CorrectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_corrections_total",
			Help: "Total user corrections by result.",
		}, []string{"result"}),
		StoresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_stores_total",
			Help: "Total item index stores by result.",
		}, []string{"result"}),
		IndexErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_index_errors_total",
			Help: "Total tolerated similarity index failures.",
		}),
		NotifiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_notifies_total",
			Help: "Total high-priority notifications by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.TriagesTotal,
		m.TriageDuration,
		m.OracleCallsTotal,
		m.OracleDuration,
		m.RuleMatchesTotal,
		m.SimilarHits,
		m.CorrectionsTotal,
		m.StoresTotal,
		m.IndexErrorsTotal,
		m.NotifiesTotal,
	)

	return m
}
