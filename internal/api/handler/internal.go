package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/admin"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/webhook"
)

// EventDispatcher is satisfied by *webhook.Dispatcher.
type EventDispatcher interface {
	Dispatch(ctx context.Context, eventType string, data json.RawMessage, partnerIDs []uuid.UUID) (*webhook.DispatchResult, error)
}

// CredentialAdmin is satisfied by *admin.CredentialService.
type CredentialAdmin interface {
	Issue(ctx context.Context, partnerID uuid.UUID, req admin.IssueCredentialRequest) (*admin.IssuedCredential, error)
	Revoke(ctx context.Context, id uuid.UUID) (*domain.Credential, error)
	List(ctx context.Context, partnerID uuid.UUID) ([]domain.Credential, error)
}

// InternalHandler serves the operator/ERP API under /internal.
type InternalHandler struct {
	dispatcher  EventDispatcher
	credentials CredentialAdmin
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewInternalHandler(dispatcher EventDispatcher, credentials CredentialAdmin, logger *slog.Logger) *InternalHandler {
	return &InternalHandler{
		dispatcher:  dispatcher,
		credentials: credentials,
		validate:    newValidator(),
		logger:      logger,
	}
}

type PublishEventRequest struct {
	EventType  string          `json:"event_type" validate:"required"`
	Data       json.RawMessage `json:"data" validate:"required"`
	PartnerIDs []uuid.UUID     `json:"partner_ids"`
}

// PublishEvent handles POST /internal/events. An empty partner_ids list fans out to every
// subscriber of the event.
func (h *InternalHandler) PublishEvent(c *fiber.Ctx) error {
	var req PublishEventRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err)
	}
	if !domain.IsKnownEvent(req.EventType) || req.EventType == domain.EventWebhookTest {
		return domain.ErrValidation.WithMessage("Unknown event type").
			WithDetails(map[string]any{"event_type": req.EventType})
	}
	if !json.Valid(req.Data) {
		return domain.ErrValidation.WithMessage("data must be valid JSON")
	}

	result, err := h.dispatcher.Dispatch(c.UserContext(), req.EventType, req.Data, req.PartnerIDs)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	operator, _ := middleware.GetOperator(c)
	h.logger.Info("event published",
		"event_id", result.EventID,
		"event_type", req.EventType,
		"deliveries", result.Deliveries,
		"operator", operator,
	)

	return c.Status(fiber.StatusAccepted).JSON(result)
}

// IssueCredential handles POST /internal/partners/:id/credentials.
func (h *InternalHandler) IssueCredential(c *fiber.Ctx) error {
	partnerID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req admin.IssueCredentialRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	issued, err := h.credentials.Issue(c.UserContext(), partnerID, req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(issued)
}

// ListCredentials handles GET /internal/partners/:id/credentials.
func (h *InternalHandler) ListCredentials(c *fiber.Ctx) error {
	partnerID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	creds, err := h.credentials.List(c.UserContext(), partnerID)
	if err != nil {
		return err
	}
	if creds == nil {
		creds = []domain.Credential{}
	}

	return c.JSON(fiber.Map{
		"credentials": creds,
	})
}

// RevokeCredential handles POST /internal/credentials/:id/revoke.
func (h *InternalHandler) RevokeCredential(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	cred, err := h.credentials.Revoke(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"credential": cred,
	})
}
