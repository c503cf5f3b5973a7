// Package metrics provides Prometheus instrumentation for the gateway core.
// A nil *Registry is valid and records nothing, so components can be built
// without metrics in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gateway"

// Admission results
const (
	ResultAllowed = "allowed"
	ResultDenied  = "denied"
	ResultError   = "error"
)

// Registry holds all metric instances for gateway components.
type Registry struct {
	// Rate limiting
	Admissions   *prometheus.CounterVec
	WindowTokens *prometheus.GaugeVec

	// Flow control
	FlowPauses    *prometheus.CounterVec
	FlowResumes   *prometheus.CounterVec
	FlowPaused    *prometheus.GaugeVec
	UnpauseChecks *prometheus.CounterVec

	// Routing
	Dispatches     *prometheus.CounterVec
	DispatchErrors *prometheus.CounterVec
	Dropped        *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		Admissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ratelimit",
				Name:      "admissions_total",
				Help:      "Admission decisions by channel and result",
			},
			[]string{"channel", "result"},
		),

		WindowTokens: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ratelimit",
				Name:      "window_tokens",
				Help:      "Live tokens observed in the channel window at the last check",
			},
			[]string{"channel"},
		),

		FlowPauses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flow",
				Name:      "pauses_total",
				Help:      "Number of times the producer was paused",
			},
			[]string{"channel"},
		),

		FlowResumes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flow",
				Name:      "resumes_total",
				Help:      "Number of times the producer was resumed",
			},
			[]string{"channel"},
		),

		FlowPaused: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "flow",
				Name:      "paused",
				Help:      "1 while the channel producer is paused",
			},
			[]string{"channel"},
		),

		UnpauseChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flow",
				Name:      "unpause_checks_total",
				Help:      "Unpause polls by outcome",
			},
			[]string{"channel", "result"},
		),

		Dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "dispatches_total",
				Help:      "Messages handed to the dispatcher",
			},
			[]string{"router", "direction", "endpoint"},
		),

		DispatchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "dispatch_errors_total",
				Help:      "Dispatcher publish failures",
			},
			[]string{"router", "direction", "endpoint"},
		),

		Dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "dropped_total",
				Help:      "Messages dropped for lack of a route",
			},
			[]string{"router", "reason"},
		),
	}
}

// ObserveAdmission records one admission decision.
func (r *Registry) ObserveAdmission(channel, result string) {
	if r == nil {
		return
	}
	r.Admissions.WithLabelValues(channel, result).Inc()
}

// ObserveWindow records the live token count of a channel.
func (r *Registry) ObserveWindow(channel string, tokens int) {
	if r == nil {
		return
	}
	r.WindowTokens.WithLabelValues(channel).Set(float64(tokens))
}

// ObservePause records a producer pause.
func (r *Registry) ObservePause(channel string) {
	if r == nil {
		return
	}
	r.FlowPauses.WithLabelValues(channel).Inc()
	r.FlowPaused.WithLabelValues(channel).Set(1)
}

// ObserveResume records a producer resume.
func (r *Registry) ObserveResume(channel string) {
	if r == nil {
		return
	}
	r.FlowResumes.WithLabelValues(channel).Inc()
	r.FlowPaused.WithLabelValues(channel).Set(0)
}

// ObserveUnpauseCheck records the outcome of one poll while paused.
func (r *Registry) ObserveUnpauseCheck(channel, result string) {
	if r == nil {
		return
	}
	r.UnpauseChecks.WithLabelValues(channel, result).Inc()
}

// ObserveDispatch records a publish attempt and whether it failed.
func (r *Registry) ObserveDispatch(router, direction, endpoint string, err error) {
	if r == nil {
		return
	}
	r.Dispatches.WithLabelValues(router, direction, endpoint).Inc()
	if err != nil {
		r.DispatchErrors.WithLabelValues(router, direction, endpoint).Inc()
	}
}

// ObserveDrop records a message dropped for reason.
func (r *Registry) ObserveDrop(router, reason string) {
	if r == nil {
		return
	}
	r.Dropped.WithLabelValues(router, reason).Inc()
}
