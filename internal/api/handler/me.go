package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/ratelimit"
)

type MeHandler struct{}

func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

type MeResponse struct {
	PartnerID      uuid.UUID          `json:"partner_id"`
	Name           string             `json:"name"`
	PartnerType    domain.PartnerType `json:"partner_type"`
	Tier           domain.Tier        `json:"tier"`
	OrganizationID uuid.UUID          `json:"organization_id"`
	CredentialID   uuid.UUID          `json:"credential_id"`
	Environment    string             `json:"environment"`
	Scopes         []string           `json:"scopes"`
	RateLimits     domain.RateLimits  `json:"rate_limits"`
}

// Get handles GET /v1/me.
func (h *MeHandler) Get(c *fiber.Ctx) error {
	pc, err := middleware.GetPartnerContext(c)
	if err != nil {
		return err
	}
	partner, err := middleware.GetPartner(c)
	if err != nil {
		return err
	}

	return c.JSON(MeResponse{
		PartnerID:      pc.PartnerID,
		Name:           partner.Name,
		PartnerType:    pc.PartnerType,
		Tier:           partner.Tier,
		OrganizationID: pc.OrganizationID,
		CredentialID:   pc.CredentialID,
		Environment:    pc.Environment,
		Scopes:         pc.Scopes,
		RateLimits:     ratelimit.Resolve(partner),
	})
}
