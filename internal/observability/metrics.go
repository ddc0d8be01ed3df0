package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the HTTP server. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	signups         *prometheus.CounterVec
	signins         *prometheus.CounterVec
	waitlistJoins   *prometheus.CounterVec
	postActions     *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "icarus_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "icarus_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	signups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "icarus_signups_total",
		Help: "Signup attempts by outcome.",
	}, []string{"outcome"})
	signins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "icarus_signins_total",
		Help: "Sign-in attempts by outcome.",
	}, []string{"outcome"})
	joins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "icarus_waitlist_joins_total",
		Help: "Waitlist submissions by outcome.",
	}, []string{"outcome"})
	posts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "icarus_post_actions_total",
		Help: "Post writes by action.",
	}, []string{"action"})
	registry.MustRegister(requests, duration, signups, signins, joins, posts)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		signups:         signups,
		signins:         signins,
		waitlistJoins:   joins,
		postActions:     posts,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// RecordSignup counts a signup attempt, e.g. "created", "duplicate", "invalid".
func (m *Metrics) RecordSignup(outcome string) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(outcome).Inc()
}

// RecordSignin counts a sign-in attempt.
func (m *Metrics) RecordSignin(ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.signins.WithLabelValues(outcome).Inc()
}

// RecordWaitlistJoin counts a waitlist submission, "joined" or "already_listed".
func (m *Metrics) RecordWaitlistJoin(outcome string) {
	if m == nil {
		return
	}
	m.waitlistJoins.WithLabelValues(outcome).Inc()
}

// RecordPostAction counts a post write such as "created", "liked" or "unbookmarked".
func (m *Metrics) RecordPostAction(action string) {
	if m == nil {
		return
	}
	m.postActions.WithLabelValues(action).Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
