package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/webhook"
)

// WebhookService is satisfied by *webhook.Service.
type WebhookService interface {
	EventTypes(pt domain.PartnerType) []string
	Create(ctx context.Context, pc *domain.PartnerContext, in webhook.CreateSubscriptionInput) (*domain.Subscription, error)
	List(ctx context.Context, partnerID uuid.UUID) ([]domain.Subscription, error)
	Get(ctx context.Context, partnerID, id uuid.UUID) (*domain.Subscription, error)
	Update(ctx context.Context, pc *domain.PartnerContext, id uuid.UUID, in webhook.UpdateSubscriptionInput) (*domain.Subscription, error)
	SetStatus(ctx context.Context, partnerID, id uuid.UUID, status domain.SubscriptionStatus) (*domain.Subscription, error)
	RotateSecret(ctx context.Context, partnerID, id uuid.UUID) (string, error)
	Delete(ctx context.Context, partnerID, id uuid.UUID) error
	Deliveries(ctx context.Context, partnerID, id uuid.UUID, limit int) ([]domain.Delivery, error)
	Test(ctx context.Context, partnerID, id uuid.UUID) (*domain.Delivery, error)
	Redeliver(ctx context.Context, partnerID, subscriptionID, deliveryID uuid.UUID) (*domain.Delivery, error)
}

type WebhooksHandler struct {
	service WebhookService
	logger  *slog.Logger
}

func NewWebhooksHandler(service WebhookService, logger *slog.Logger) *WebhooksHandler {
	return &WebhooksHandler{
		service: service,
		logger:  logger,
	}
}

type StatusRequest struct {
	Status domain.SubscriptionStatus `json:"status"`
}

func (h *WebhooksHandler) Events(c *fiber.Ctx) error {
	pc, err := middleware.GetPartnerContext(c)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"partner_type": pc.PartnerType,
		"events":       h.service.EventTypes(pc.PartnerType),
	})
}

func (h *WebhooksHandler) List(c *fiber.Ctx) error {
	pc, err := middleware.GetPartnerContext(c)
	if err != nil {
		return err
	}

	subs, err := h.service.List(c.UserContext(), pc.PartnerID)
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []domain.Subscription{}
	}

	return c.JSON(fiber.Map{
		"webhooks": subs,
	})
}

func (h *WebhooksHandler) Create(c *fiber.Ctx) error {
	pc, err := middleware.GetPartnerContext(c)
	if err != nil {
		return err
	}

	var req webhook.CreateSubscriptionInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	sub, err := h.service.Create(c.UserContext(), pc, req)
	if err != nil {
		return err
	}

	// The secret is only ever returned here and on rotation.
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"webhook": sub,
		"secret":  sub.Secret,
	})
}

func (h *WebhooksHandler) Get(c *fiber.Ctx) error {
	pc, id, err := h.target(c)
	if err != nil {
		return err
	}

	sub, err := h.service.Get(c.UserContext(), pc.PartnerID, id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"webhook": sub,
	})
}

func (h *WebhooksHandler) Update(c *fiber.Ctx) error {
	pc, id, err := h.target(c)
	if err != nil {
		return err
	}

	var req webhook.UpdateSubscriptionInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	sub, err := h.service.Update(c.UserContext(), pc, id, req)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"webhook": sub,
	})
}

func (h *WebhooksHandler) Delete(c *fiber.Ctx) error {
	pc, id, err := h.target(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), pc.PartnerID, id); err != nil {
		return err
	}

	h.logger.Info("webhook deleted",
		"webhook_id", id,
		"partner_id", pc.PartnerID,
	)

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *WebhooksHandler) SetStatus(c *fiber.Ctx) error {
	pc, id, err := h.target(c)
	if err != nil {
		return err
	}

	var req StatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	sub, err := h.service.SetStatus(c.UserContext(), pc.PartnerID, id, req.Status)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"webhook": sub,
	})
}

func (h *WebhooksHandler) RotateSecret(c *fiber.Ctx) error {
	pc, id, err := h.target(c)
	if err != nil {
		return err
	}

	secret, err := h.service.RotateSecret(c.UserContext(), pc.PartnerID, id)
	if err != nil {
		return err
	}

	h.logger.Info("webhook secret rotated",
		"webhook_id", id,
		"partner_id", pc.PartnerID,
	)

	return c.JSON(fiber.Map{
		"id":     id,
		"secret": secret,
	})
}

func (h *WebhooksHandler) Test(c *fiber.Ctx) error {
	pc, id, err := h.target(c)
	if err != nil {
		return err
	}

	d, err := h.service.Test(c.UserContext(), pc.PartnerID, id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"delivery": d,
		"success":  d.Status == domain.DeliveryStatusDelivered,
	})
}

func (h *WebhooksHandler) Deliveries(c *fiber.Ctx) error {
	pc, id, err := h.target(c)
	if err != nil {
		return err
	}

	deliveries, err := h.service.Deliveries(c.UserContext(), pc.PartnerID, id, c.QueryInt("limit"))
	if err != nil {
		return err
	}
	if deliveries == nil {
		deliveries = []domain.Delivery{}
	}

	return c.JSON(fiber.Map{
		"deliveries": deliveries,
	})
}

func (h *WebhooksHandler) Redeliver(c *fiber.Ctx) error {
	pc, id, err := h.target(c)
	if err != nil {
		return err
	}
	deliveryID, err := paramID(c, "delivery_id")
	if err != nil {
		return err
	}

	d, err := h.service.Redeliver(c.UserContext(), pc.PartnerID, id, deliveryID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"delivery": d,
	})
}

// target resolves the caller and the :id subscription parameter.
func (h *WebhooksHandler) target(c *fiber.Ctx) (*domain.PartnerContext, uuid.UUID, error) {
	pc, err := middleware.GetPartnerContext(c)
	if err != nil {
		return nil, uuid.Nil, err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return nil, uuid.Nil, err
	}
	return pc, id, nil
}
