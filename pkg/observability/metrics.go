package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "datagpt"

// Metrics records stage activity in Prometheus collectors.
type Metrics struct {
	dispatches  *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	polls       *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	navigations *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// uses a fresh private registry.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_dispatch_total",
			Help:      "Stage calls made, by stage, mode and whether the call itself failed.",
		}, []string{"stage", "mode", "failed"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_outcome_total",
			Help:      "Committed stage outputs, by stage and origin state.",
		}, []string{"stage", "origin", "fallback"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_poll_total",
			Help:      "Result Store queries, by stage and reported status.",
		}, []string{"stage", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time from dispatch to committed output.",
			Buckets:   []float64{.05, .25, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_total",
			Help:      "Pointer moves, by action.",
		}, []string{"action"}),
		gatherer: reg,
	}
	for _, c := range []prometheus.Collector{m.dispatches, m.outcomes, m.polls, m.duration, m.navigations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.StageEvent) {
			m.dispatches.WithLabelValues(e.Name, string(e.Mode), strconv.FormatBool(e.Err != nil)).Inc()
		},
		OnPoll: func(_ context.Context, e *domain.PollEvent) {
			status := string(e.Status)
			if status == "" {
				status = "unknown"
			}
			m.polls.WithLabelValues(e.Name, status).Inc()
		},
		OnStageComplete: func(_ context.Context, e *domain.StageEvent) {
			m.outcomes.WithLabelValues(e.Name, string(e.State), strconv.FormatBool(e.Fallback)).Inc()
			m.duration.WithLabelValues(e.Name).Observe(e.Duration.Seconds())
		},
		OnNavigate: func(_ context.Context, e *domain.NavigationEvent) {
			m.navigations.WithLabelValues(string(e.Action)).Inc()
		},
	}
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
