// Package metrics exports Prometheus counters for the chat and fine-tuning
// pipelines. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	providerCalls   *prometheus.CounterVec
	validatorAction *prometheus.CounterVec
	filesParsed     *prometheus.CounterVec
	jobsSubmitted   prometheus.Counter
	examplesBuilt   prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fscs_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fscs_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fscs_provider_calls_total",
			Help: "Model provider calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		validatorAction: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fscs_validator_actions_total",
			Help: "Response validator actions by rule kind and action",
		}, []string{"kind", "action"}),
		filesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fscs_files_parsed_total",
			Help: "Uploaded chat logs by formatter and outcome",
		}, []string{"formatter", "outcome"}),
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fscs_finetune_jobs_submitted_total",
			Help: "Fine-tuning jobs submitted to the provider",
		}),
		examplesBuilt: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fscs_training_examples",
			Help:    "Training examples per submission",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
	}
	m.registry.MustRegister(
		m.httpRequests,
		m.httpLatency,
		m.providerCalls,
		m.validatorAction,
		m.filesParsed,
		m.jobsSubmitted,
		m.examplesBuilt,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) ProviderCall(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.providerCalls.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ValidatorAction(kind, action string) {
	if m == nil {
		return
	}
	m.validatorAction.WithLabelValues(kind, action).Inc()
}

func (m *Metrics) FileParsed(formatter string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.filesParsed.WithLabelValues(formatter, outcome).Inc()
}

func (m *Metrics) JobSubmitted(examples int) {
	if m == nil {
		return
	}
	m.jobsSubmitted.Inc()
	m.examplesBuilt.Observe(float64(examples))
}
