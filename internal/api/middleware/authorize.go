package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

// RequireScope passes when the caller holds at least one of scopes.
func RequireScope(scopes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pc, err := GetPartnerContext(c)
		if err != nil {
			return err
		}
		if !pc.HasAnyScope(scopes...) {
			return domain.ErrInsufficientScope.WithDetails(map[string]any{
				"required_scopes": scopes,
			})
		}
		return c.Next()
	}
}

// RequirePartnerType passes when the caller's partner type is one of types.
func RequirePartnerType(types ...domain.PartnerType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pc, err := GetPartnerContext(c)
		if err != nil {
			return err
		}
		if !pc.IsType(types...) {
			return domain.ErrWrongPartnerType.WithDetails(map[string]any{
				"allowed_types": types,
			})
		}
		return c.Next()
	}
}
