package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.TokenIssued("ok")
		m.AuthFailed("INVALID_TOKEN")
		m.RateLimited("burst", "STANDARD")
		m.DeliveryAttempt("delivered", time.Second)
		m.SubscriptionDisabled()
		m.DeliveriesRecovered(3)
		m.TaskDropped("access_log")
		m.TaskFailed("access_log")
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RateLimited("minute", "STANDARD")
	m.RateLimited("minute", "STANDARD")
	m.TaskDropped("touch")
	m.DeliveriesRecovered(2)
	m.DeliveriesRecovered(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RateLimitRejectionsTotal.WithLabelValues("minute", "STANDARD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksDroppedTotal.WithLabelValues("touch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DeliveriesRecoveredTotal))
}

func TestMetrics_Middleware(t *testing.T) {
	m := New(prometheus.NewRegistry())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(fiber.StatusTooManyRequests)
		},
	})
	app.Use(m.Middleware())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/limited", func(c *fiber.Ctx) error { return domain.ErrRateLimitExceeded })

	for _, path := range []string{"/ok", "/limited"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/ok", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/limited", "429")))
}
