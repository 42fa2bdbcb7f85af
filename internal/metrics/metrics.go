// Package metrics exposes prometheus counters of auth flows and access token checks.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bazario"

// Flow outcomes
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type Recorder interface {
	// Result of access token validation: valid, expired, malformed or unverifiable
	AccessToken(result string)

	// Finished auth flow (register, login, refresh...) with its outcome
	AuthFlow(flow string, outcome string)

	// Mail that could not be delivered or queued
	MailFailure(kind string)
}

// Recorder that drops everything
type Nop struct{}

func (Nop) AccessToken(string)      {}
func (Nop) AuthFlow(string, string) {}
func (Nop) MailFailure(string)      {}

type Prometheus struct {
	accessTokens *prometheus.CounterVec
	authFlows    *prometheus.CounterVec
	mailFailures *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// Create collectors and register them in own registry
func New() *Prometheus {
	reg := prometheus.NewRegistry()

	m := &Prometheus{
		accessTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_token_validations_total",
			Help:      "Access token validations by result",
		}, []string{"result"}),
		authFlows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_flows_total",
			Help:      "Auth flows by name and outcome",
		}, []string{"flow", "outcome"}),
		mailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_failures_total",
			Help:      "Mails not delivered by kind",
		}, []string{"kind"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route pattern and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.accessTokens,
		m.authFlows,
		m.mailFailures,
		m.httpDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Prometheus) AccessToken(result string) {
	m.accessTokens.WithLabelValues(result).Inc()
}

func (m *Prometheus) AuthFlow(flow string, outcome string) {
	m.authFlows.WithLabelValues(flow, outcome).Inc()
}

func (m *Prometheus) MailFailure(kind string) {
	m.mailFailures.WithLabelValues(kind).Inc()
}

func (m *Prometheus) ObserveHTTP(method string, route string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler to serve metrics in prometheus text format
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
