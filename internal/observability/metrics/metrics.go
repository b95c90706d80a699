package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics exposes counters/histograms for the rule matcher and the
// conversation pipeline.
type EngineMetrics struct {
	matchesTotal          *prometheus.CounterVec
	matchLatency          *prometheus.HistogramVec
	triggerUpdateFailures prometheus.Counter
	assistantTotal        *prometheus.CounterVec
	leadsCaptured         prometheus.Counter
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		matchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convodesk",
			Subsystem: "rules",
			Name:      "matches_total",
			Help:      "Total rule match attempts by outcome",
		}, []string{"outcome", "intent"}),
		matchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "convodesk",
			Subsystem: "rules",
			Name:      "match_latency_seconds",
			Help:      "Latency of rule matching including the rule fetch",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		triggerUpdateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "convodesk",
			Subsystem: "rules",
			Name:      "trigger_update_failures_total",
			Help:      "Trigger-count increments that failed and were swallowed",
		}),
		assistantTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convodesk",
			Subsystem: "conversation",
			Name:      "assistant_total",
			Help:      "Assistant completions by status",
		}, []string{"status"}),
		leadsCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "convodesk",
			Subsystem: "conversation",
			Name:      "leads_captured_total",
			Help:      "Leads auto-captured from matched conversations",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.matchesTotal, m.matchLatency, m.triggerUpdateFailures, m.assistantTotal, m.leadsCaptured)
	return m
}

func (m *EngineMetrics) ObserveMatch(outcome, intent string, seconds float64) {
	if m == nil {
		return
	}
	m.matchesTotal.WithLabelValues(outcome, intent).Inc()
	m.matchLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *EngineMetrics) ObserveTriggerUpdateFailure() {
	if m == nil {
		return
	}
	m.triggerUpdateFailures.Inc()
}

func (m *EngineMetrics) ObserveAssistant(status string) {
	if m == nil {
		return
	}
	m.assistantTotal.WithLabelValues(status).Inc()
}

func (m *EngineMetrics) ObserveLeadCaptured() {
	if m == nil {
		return
	}
	m.leadsCaptured.Inc()
}
