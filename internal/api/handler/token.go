package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/auth"
)

// TokenIssuer is satisfied by *auth.Service.
type TokenIssuer interface {
	IssueToken(ctx context.Context, req auth.TokenRequest) (*auth.TokenResponse, error)
}

type TokenHandler struct {
	issuer TokenIssuer
}

func NewTokenHandler(issuer TokenIssuer) *TokenHandler {
	return &TokenHandler{issuer: issuer}
}

// Issue handles POST /oauth/token. Accepts JSON or form-encoded bodies.
func (h *TokenHandler) Issue(c *fiber.Ctx) error {
	var req auth.TokenRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}

	resp, err := h.issuer.IssueToken(c.UserContext(), req)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set("Pragma", "no-cache")
	return c.JSON(resp)
}
