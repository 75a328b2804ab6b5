package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds the Prometheus collectors of the registration service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Domain metrics.
	RegistrationsTotal *prometheus.CounterVec
	EmailsTotal        *prometheus.CounterVec

	RateLimitRejectionsTotal *prometheus.CounterVec

	ServerStartTime prometheus.Gauge
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devopsday_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devopsday_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		RegistrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devopsday_registrations_total",
			Help: "Registration attempts by outcome.",
		}, []string{"outcome"}),

		EmailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devopsday_emails_total",
			Help: "Emails by kind and delivery outcome.",
		}, []string{"kind", "outcome"}),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devopsday_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}, []string{"scope"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "devopsday_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RegistrationsTotal,
		m.EmailsTotal,
		m.RateLimitRejectionsTotal,
		m.ServerStartTime,
	)
	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request. route is the matched mux pattern.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// IncRegistration counts a registration attempt.
func (m *Metrics) IncRegistration(outcome string) {
	m.RegistrationsTotal.WithLabelValues(outcome).Inc()
}

// IncEmail counts an email delivery outcome.
func (m *Metrics) IncEmail(kind, outcome string) {
	m.EmailsTotal.WithLabelValues(kind, outcome).Inc()
}

// IncRateLimitRejection counts a request turned away by a rate limiter.
func (m *Metrics) IncRateLimitRejection(scope string) {
	m.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
}

// Totals is a small summary of the domain counters, shown on the health endpoint.
type Totals struct {
	Registrations       float64 `json:"registrations"`
	RegistrationsFull   float64 `json:"registrations_rejected_full"`
	EmailsSent          float64 `json:"emails_sent"`
	EmailsFailed        float64 `json:"emails_failed"`
	RateLimitRejections float64 `json:"rate_limit_rejections"`
}

// Totals gathers the registry and sums the domain counters.
func (m *Metrics) Totals() (Totals, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return Totals{}, err
	}
	fam := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		fam[f.GetName()] = f
	}
	return Totals{
		Registrations:       counterWithLabel(fam["devopsday_registrations_total"], "outcome", "confirmed"),
		RegistrationsFull:   counterWithLabel(fam["devopsday_registrations_total"], "outcome", "full"),
		EmailsSent:          counterWithLabel(fam["devopsday_emails_total"], "outcome", "sent"),
		EmailsFailed:        counterWithLabel(fam["devopsday_emails_total"], "outcome", "failed"),
		RateLimitRejections: sumCounter(fam["devopsday_ratelimit_rejections_total"]),
	}, nil
}

func sumCounter(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() != nil {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

// counterWithLabel sums every series of f carrying the label pair.
func counterWithLabel(f *dto.MetricFamily, labelName, labelValue string) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() == nil {
			continue
		}
		for _, lp := range m.GetLabel() {
			if lp.GetName() == labelName && lp.GetValue() == labelValue {
				total += m.GetCounter().GetValue()
				break
			}
		}
	}
	return total
}
