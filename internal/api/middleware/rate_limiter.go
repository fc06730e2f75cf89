package middleware

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/ratelimit"
)

// RejectionRecorder counts 429s by window and tier.
type RejectionRecorder interface {
	RateLimited(window, tier string)
}

// RateLimiter enforces the caller's tier limits. It must run after Authenticator.
func RateLimiter(limiter *ratelimit.Limiter, recorder RejectionRecorder, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		partner, err := GetPartner(c)
		if err != nil {
			return err
		}

		decision := limiter.Allow(partner.ID, ratelimit.Resolve(partner))

		if !decision.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(decision.RetryAfterSeconds()))
			c.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if recorder != nil {
				recorder.RateLimited(string(decision.Window), string(partner.Tier))
			}
			logger.Debug("rate limit exceeded",
				slog.String("partner_id", partner.ID.String()),
				slog.String("window", string(decision.Window)),
				slog.Int("limit", decision.Limit),
			)

			return domain.ErrRateLimitExceeded.WithDetails(map[string]any{
				"window": string(decision.Window),
				"limit":  decision.Limit,
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		return c.Next()
	}
}
