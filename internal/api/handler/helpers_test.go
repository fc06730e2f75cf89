package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(discardLogger())})
}

func testPartner() *domain.Partner {
	return &domain.Partner{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Name:           "Acme Supplies",
		Type:           domain.PartnerTypeSupplier,
		Status:         domain.PartnerStatusActive,
		Tier:           domain.TierStandard,
	}
}

func contextFor(p *domain.Partner, env string, scopes ...string) *domain.PartnerContext {
	return &domain.PartnerContext{
		PartnerID:      p.ID,
		PartnerType:    p.Type,
		OrganizationID: p.OrganizationID,
		Scopes:         scopes,
		CredentialID:   uuid.New(),
		Environment:    env,
	}
}

// authenticated stands in for the Authenticator.
func authenticated(p *domain.Partner, pc *domain.PartnerContext) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalPartner, p)
		c.Locals(middleware.LocalPartnerContext, pc)
		return c.Next()
	}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := decode(t, resp)
	env, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	return env["code"].(string)
}

