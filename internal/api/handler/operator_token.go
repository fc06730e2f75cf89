package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

// TokenRefresher is satisfied by *admin.JWTService.
type TokenRefresher interface {
	RefreshToken(oldToken string) (string, error)
}

// OperatorTokenHandler lets internal callers extend their own token.
type OperatorTokenHandler struct {
	tokens TokenRefresher
}

func NewOperatorTokenHandler(tokens TokenRefresher) *OperatorTokenHandler {
	return &OperatorTokenHandler{tokens: tokens}
}

// Refresh handles POST /internal/token/refresh. It runs behind AdminAuth, so the presented token
// has already been validated once.
func (h *OperatorTokenHandler) Refresh(c *fiber.Ctx) error {
	old, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || old == "" {
		return domain.ErrMissingToken
	}

	token, err := h.tokens.RefreshToken(old)
	if err != nil {
		return domain.ErrInvalidToken
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "Bearer",
	})
}
