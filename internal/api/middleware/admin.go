package middleware

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/admin"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

const (
	// LocalOperator is the key to retrieve the internal caller's subject from context
	LocalOperator = "operator"
	// LocalOperatorRole is the key to retrieve the internal caller's role from context
	LocalOperatorRole = "operator_role"
)

// AdminAuthDependencies contains dependencies for internal API authentication
type AdminAuthDependencies struct {
	JWTService *admin.JWTService
	Logger     *slog.Logger
}

// AdminAuth guards the internal API with an operator JWT holding one of roles.
func AdminAuth(deps AdminAuthDependencies, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			deps.Logger.Debug("missing authorization header for internal API")
			return domain.ErrMissingToken
		}

		claims, err := deps.JWTService.ValidateToken(token)
		if err != nil {
			deps.Logger.Warn("invalid operator token", "error", err)
			if errors.Is(err, admin.ErrExpiredToken) {
				return domain.ErrTokenExpired
			}
			return domain.ErrInvalidToken
		}

		if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
			deps.Logger.Warn("insufficient privileges", "role", claims.Role, "required", roles)
			return domain.ErrForbidden
		}

		c.Locals(LocalOperator, claims.Subject)
		c.Locals(LocalOperatorRole, claims.Role)

		return c.Next()
	}
}

// GetOperator retrieves the internal caller's subject from context
func GetOperator(c *fiber.Ctx) (string, error) {
	subject, ok := c.Locals(LocalOperator).(string)
	if !ok {
		return "", domain.ErrNotAuthenticated
	}
	return subject, nil
}
