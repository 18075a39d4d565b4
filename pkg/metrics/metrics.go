// Package metrics exposes the prometheus collectors shared by the API and the
// cron worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kinfortune"

// Jobs records scheduled job runs and the per-user reconcile outcomes.
type Jobs struct {
	duration  *prometheus.HistogramVec
	runs      *prometheus.CounterVec
	reconcile *prometheus.CounterVec
}

// NewJobs registers job collectors on reg. A nil registerer yields a no-op.
func NewJobs(reg prometheus.Registerer) *Jobs {
	if reg == nil {
		return &Jobs{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of cron job runs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Cron job runs by result.",
	}, []string{"job", "result"})
	reconcile := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscription_reconcile_users_total",
		Help:      "Users visited by the subscription reconcile job, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, runs, reconcile)
	return &Jobs{duration: duration, runs: runs, reconcile: reconcile}
}

func (j *Jobs) ObserveRun(job string, took time.Duration, err error) {
	if j == nil || j.duration == nil {
		return
	}
	job = label(job)
	j.duration.WithLabelValues(job).Observe(took.Seconds())
	result := "success"
	if err != nil {
		result = "failure"
	}
	j.runs.WithLabelValues(job, result).Inc()
}

// ObserveReconcile counts one user outcome: updated, unchanged, stale or error.
func (j *Jobs) ObserveReconcile(outcome string) {
	if j == nil || j.reconcile == nil {
		return
	}
	j.reconcile.WithLabelValues(label(outcome)).Inc()
}

// Webhooks counts provider deliveries.
type Webhooks struct {
	events *prometheus.CounterVec
}

func NewWebhooks(reg prometheus.Registerer) *Webhooks {
	if reg == nil {
		return &Webhooks{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Webhook deliveries by provider, event type and outcome.",
	}, []string{"provider", "event_type", "outcome"})
	reg.MustRegister(events)
	return &Webhooks{events: events}
}

func (w *Webhooks) ObserveWebhook(provider, eventType, outcome string) {
	if w == nil || w.events == nil {
		return
	}
	w.events.WithLabelValues(label(provider), label(eventType), label(outcome)).Inc()
}

// Handler serves the registry in the prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
