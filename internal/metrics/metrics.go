package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/lab-interpreter/internal/pipeline"
)

// Pipeline provides observability for pipeline runs. It implements pipeline.Observer.
type Pipeline struct {
	// Completed runs by overall risk level and extraction method
	Runs *prometheus.CounterVec

	// Safety flags by first trigger id
	SafetyFlags *prometheus.CounterVec

	// Classified values by analyte and band
	Classifications *prometheus.CounterVec

	// Unreadable fields by analyte
	Unresolved *prometheus.CounterVec

	// End-to-end run latency
	RunLatency prometheus.Histogram
}

// New registers the pipeline metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Pipeline {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Pipeline{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "labinterp_runs_total",
			Help: "Total completed pipeline runs by risk level and extraction method",
		}, []string{"risk_level", "method"}),

		SafetyFlags: f.NewCounterVec(prometheus.CounterOpts{
			Name: "labinterp_safety_flags_total",
			Help: "Total urgent safety flags raised by trigger",
		}, []string{"trigger"}),

		Classifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "labinterp_classifications_total",
			Help: "Total classified values by analyte and classification",
		}, []string{"analyte", "classification"}),

		Unresolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "labinterp_unresolved_fields_total",
			Help: "Total fields that could not be read from a document",
		}, []string{"analyte"}),

		RunLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "labinterp_run_duration_seconds",
			Help:    "Duration of a full pipeline run including extraction",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// ObserveReport records one finished run.
func (m *Pipeline) ObserveReport(r *pipeline.Report) {
	if m == nil || r == nil {
		return
	}
	m.Runs.WithLabelValues(string(r.Result.OverallRiskLevel), string(r.Extracted.Method)).Inc()
	if r.Result.SafetyFlag != nil {
		m.SafetyFlags.WithLabelValues(r.Result.SafetyFlag.Trigger).Inc()
	}
	for _, v := range r.Result.Values {
		m.Classifications.WithLabelValues(string(v.Analyte), string(v.Classification)).Inc()
	}
	for _, a := range r.Unresolved {
		m.Unresolved.WithLabelValues(string(a)).Inc()
	}
	m.RunLatency.Observe(r.Duration.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
