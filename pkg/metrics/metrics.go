package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry       *prometheus.Registry
	registryOnce   sync.Once
	metricsEnabled = true

	// Analysis metrics
	AnalysesTotal      prometheus.Counter
	AnalysisDuration   prometheus.Histogram
	EventsAccepted     prometheus.Counter
	EventsRejected     prometheus.Counter
	RejectionsByFilter *prometheus.CounterVec
	OffBodySessions    prometheus.Counter

	// Score metrics
	MotilityIndex    prometheus.Histogram
	RhythmicityIndex prometheus.Histogram
	VagalScores      *prometheus.CounterVec

	// Collaborator metrics
	SessionStoreErrors prometheus.Counter
	ResultsPublished   prometheus.Counter
)

// Init initializes all metrics and registers them with Prometheus
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		AnalysesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gutpulse_analyses_total",
			Help: "Total number of session analyses run",
		})

		AnalysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gutpulse_analysis_duration_seconds",
			Help:    "Wall time of one full session analysis",
			Buckets: prometheus.DefBuckets,
		})

		EventsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gutpulse_events_accepted_total",
			Help: "Acoustic events accepted by all classifiers",
		})

		EventsRejected = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gutpulse_events_rejected_total",
			Help: "Acoustic events rejected by at least one classifier",
		})

		RejectionsByFilter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gutpulse_event_rejections_total",
				Help: "Individual rejection records by classifier stage",
			},
			[]string{"filter"},
		)

		OffBodySessions = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gutpulse_off_body_sessions_total",
			Help: "Sessions judged not to be on-body contact",
		})

		MotilityIndex = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gutpulse_motility_index",
			Help:    "Distribution of computed motility index values",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		})

		RhythmicityIndex = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gutpulse_rhythmicity_index",
			Help:    "Distribution of computed rhythmicity index values",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		})

		VagalScores = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gutpulse_vagal_scores_total",
				Help: "Vagal readiness scores by category",
			},
			[]string{"category"},
		)

		SessionStoreErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gutpulse_session_store_errors_total",
			Help: "Failed reads against the session store",
		})

		ResultsPublished = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gutpulse_results_published_total",
			Help: "Analytics results published to the message broker",
		})

		registry.MustRegister(
			AnalysesTotal, AnalysisDuration,
			EventsAccepted, EventsRejected, RejectionsByFilter,
			OffBodySessions,
			MotilityIndex, RhythmicityIndex, VagalScores,
			SessionStoreErrors, ResultsPublished,
		)

		logger.Debug("Prometheus metrics initialized")
	})
}

// ObserveAnalysis records the outcome of one full analysis pass. Safe
// to call before Init; it becomes a no-op.
func ObserveAnalysis(accepted, rejected int, onBody bool, elapsed time.Duration) {
	if registry == nil || !metricsEnabled {
		return
	}
	AnalysesTotal.Inc()
	AnalysisDuration.Observe(elapsed.Seconds())
	EventsAccepted.Add(float64(accepted))
	EventsRejected.Add(float64(rejected))
	if !onBody {
		OffBodySessions.Inc()
	}
}

// EventRejected counts one rejection record for a classifier stage.
func EventRejected(filter string) {
	if registry == nil || !metricsEnabled {
		return
	}
	RejectionsByFilter.WithLabelValues(filter).Inc()
}

// ObserveScores records the computed index distributions.
func ObserveScores(motility, rhythmicity float64) {
	if registry == nil || !metricsEnabled {
		return
	}
	MotilityIndex.Observe(motility)
	RhythmicityIndex.Observe(rhythmicity)
}

// ObserveVagalScore counts a vagal readiness result by category.
func ObserveVagalScore(category string) {
	if registry == nil || !metricsEnabled {
		return
	}
	VagalScores.WithLabelValues(category).Inc()
}

// SessionStoreError counts a failed history read.
func SessionStoreError() {
	if registry == nil || !metricsEnabled {
		return
	}
	SessionStoreErrors.Inc()
}

// ResultPublished counts a successful broker publish.
func ResultPublished() {
	if registry == nil || !metricsEnabled {
		return
	}
	ResultsPublished.Inc()
}

// Handler returns the HTTP handler serving the metrics registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// SetEnabled toggles metric recording at runtime.
func SetEnabled(enabled bool) {
	metricsEnabled = enabled
}
