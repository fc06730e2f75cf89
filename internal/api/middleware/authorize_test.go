package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

func TestRequireScope(t *testing.T) {
	supplier := &domain.Partner{ID: uuid.New(), Type: domain.PartnerTypeSupplier}

	tests := []struct {
		name           string
		scopes         []string
		required       []string
		expectedStatus int
	}{
		{"holds required scope", []string{domain.ScopeOrdersWrite}, []string{domain.ScopeOrdersWrite}, http.StatusOK},
		{"holds one of several", []string{domain.ScopeOrdersRead}, []string{domain.ScopeOrdersWrite, domain.ScopeOrdersRead}, http.StatusOK},
		{"missing scope", []string{domain.ScopeOrdersRead}, []string{domain.ScopeCatalogWrite}, http.StatusForbidden},
		{"no scopes at all", nil, []string{domain.ScopeCatalogWrite}, http.StatusForbidden},
		{"nothing required", nil, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp()
			app.Get("/", withPartner(supplier, tt.scopes...), RequireScope(tt.required...), func(c *fiber.Ctx) error {
				return c.SendStatus(http.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusForbidden {
				assert.Equal(t, "INSUFFICIENT_SCOPE", decodeError(t, resp)["code"])
			}
		})
	}
}

func TestRequirePartnerType(t *testing.T) {
	tests := []struct {
		name           string
		partnerType    domain.PartnerType
		allowed        []domain.PartnerType
		expectedStatus int
	}{
		{"carrier allowed", domain.PartnerTypeCarrier, []domain.PartnerType{domain.PartnerTypeCarrier}, http.StatusOK},
		{"one of several", domain.PartnerTypeStrategic, []domain.PartnerType{domain.PartnerTypeCarrier, domain.PartnerTypeStrategic}, http.StatusOK},
		{"customer rejected", domain.PartnerTypeCustomer, []domain.PartnerType{domain.PartnerTypeCarrier}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &domain.Partner{ID: uuid.New(), Type: tt.partnerType}
			app := newTestApp()
			app.Get("/", withPartner(p), RequirePartnerType(tt.allowed...), func(c *fiber.Ctx) error {
				return c.SendStatus(http.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusForbidden {
				assert.Equal(t, "WRONG_PARTNER_TYPE", decodeError(t, resp)["code"])
			}
		})
	}
}

func TestAuthorizers_WithoutAuthentication(t *testing.T) {
	app := newTestApp()
	app.Get("/scope", RequireScope(domain.ScopeRFQRead), func(c *fiber.Ctx) error { return nil })
	app.Get("/type", RequirePartnerType(domain.PartnerTypeCarrier), func(c *fiber.Ctx) error { return nil })

	for _, path := range []string{"/scope", "/type"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "NOT_AUTHENTICATED", decodeError(t, resp)["code"])
	}
}
