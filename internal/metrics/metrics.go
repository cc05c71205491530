// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	PermissionChecksTotal *prometheus.CounterVec

	// Invitation metrics
	InvitationsIssuedTotal     *prometheus.CounterVec
	InvitationAcceptancesTotal *prometheus.CounterVec
	InvitationsPurgedTotal     prometheus.Counter

	// Side effects (email, notifications)
	SideEffectFailuresTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ora_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ora_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ora_permission_checks_total",
				Help: "Permission decisions by permission and result",
			},
			[]string{"permission", "result"},
		),
		InvitationsIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ora_invitations_issued_total",
				Help: "Invitations issued by invited role",
			},
			[]string{"role"},
		),
		InvitationAcceptancesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ora_invitation_acceptances_total",
				Help: "Invitation acceptance attempts by outcome",
			},
			[]string{"outcome"},
		),
		InvitationsPurgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ora_invitations_purged_total",
				Help: "Expired invitation rows removed by the purge job",
			},
		),
		SideEffectFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ora_side_effect_failures_total",
				Help: "Best-effort side effects that failed, by effect",
			},
			[]string{"effect"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PermissionChecksTotal,
		m.InvitationsIssuedTotal,
		m.InvitationAcceptancesTotal,
		m.InvitationsPurgedTotal,
		m.SideEffectFailuresTotal,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) PermissionDecision(permission string, allowed bool) {
	if m == nil {
		return
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	m.PermissionChecksTotal.WithLabelValues(permission, result).Inc()
}

func (m *Metrics) InvitationIssued(role string) {
	if m == nil {
		return
	}
	m.InvitationsIssuedTotal.WithLabelValues(role).Inc()
}

func (m *Metrics) InvitationAccepted(outcome string) {
	if m == nil {
		return
	}
	m.InvitationAcceptancesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) InvitationsPurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.InvitationsPurgedTotal.Add(float64(n))
}

func (m *Metrics) SideEffectFailed(effect string) {
	if m == nil {
		return
	}
	m.SideEffectFailuresTotal.WithLabelValues(effect).Inc()
}
