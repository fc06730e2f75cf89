package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

// Metrics holds the gateway collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth

	TokensIssuedTotal *prometheus.CounterVec
	AuthFailuresTotal *prometheus.CounterVec

	// Rate limiting

	RateLimitRejectionsTotal *prometheus.CounterVec

	// Webhooks

	DeliveryAttemptsTotal    *prometheus.CounterVec
	DeliveryDuration         prometheus.Histogram
	SubscriptionsDisabled    prometheus.Counter
	DeliveriesRecoveredTotal prometheus.Counter

	// Background tasks

	TasksDroppedTotal *prometheus.CounterVec
	TasksFailedTotal  *prometheus.CounterVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partnerhub_http_requests_total",
				Help: "Total number of HTTP requests handled",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "partnerhub_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		TokensIssuedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partnerhub_tokens_issued_total",
				Help: "Token requests by outcome code",
			},
			[]string{"outcome"},
		),
		AuthFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partnerhub_auth_failures_total",
				Help: "Rejected authenticated requests by error code",
			},
			[]string{"code"},
		),
		RateLimitRejectionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partnerhub_rate_limit_rejections_total",
				Help: "Requests rejected by the rate limiter, by window",
			},
			[]string{"window", "tier"},
		),
		DeliveryAttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partnerhub_webhook_delivery_attempts_total",
				Help: "Webhook delivery attempts by outcome",
			},
			[]string{"outcome"},
		),
		DeliveryDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "partnerhub_webhook_delivery_duration_seconds",
				Help:    "Webhook HTTP round trip in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		SubscriptionsDisabled: f.NewCounter(
			prometheus.CounterOpts{
				Name: "partnerhub_webhook_subscriptions_disabled_total",
				Help: "Subscriptions disabled by the circuit breaker",
			},
		),
		DeliveriesRecoveredTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "partnerhub_webhook_deliveries_recovered_total",
				Help: "Overdue retries picked up by reconciliation",
			},
		),
		TasksDroppedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partnerhub_background_tasks_dropped_total",
				Help: "Background tasks dropped because the queue was full",
			},
			[]string{"kind"},
		),
		TasksFailedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partnerhub_background_tasks_failed_total",
				Help: "Background tasks that returned an error",
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) TokenIssued(outcome string) {
	if m == nil {
		return
	}
	m.TokensIssuedTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AuthFailed(code string) {
	if m == nil {
		return
	}
	m.AuthFailuresTotal.WithLabelValues(code).Inc()
}

func (m *Metrics) RateLimited(window, tier string) {
	if m == nil {
		return
	}
	m.RateLimitRejectionsTotal.WithLabelValues(window, tier).Inc()
}

func (m *Metrics) DeliveryAttempt(outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.DeliveryAttemptsTotal.WithLabelValues(outcome).Inc()
	m.DeliveryDuration.Observe(latency.Seconds())
}

func (m *Metrics) SubscriptionDisabled() {
	if m == nil {
		return
	}
	m.SubscriptionsDisabled.Inc()
}

func (m *Metrics) DeliveriesRecovered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DeliveriesRecoveredTotal.Add(float64(n))
}

func (m *Metrics) TaskDropped(kind string) {
	if m == nil {
		return
	}
	m.TasksDroppedTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) TaskFailed(kind string) {
	if m == nil {
		return
	}
	m.TasksFailedTotal.WithLabelValues(kind).Inc()
}

// Middleware records request count and latency labelled by the matched route pattern.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			var ae *domain.AppError
			switch {
			case errors.As(err, &ae):
				status = ae.StatusCode
			case errors.As(err, &fe):
				status = fe.Code
			}
		}

		route := c.Route().Path
		m.HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())

		return err
	}
}
