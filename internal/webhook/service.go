package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

const (
	DefaultMaxSubscriptions = 10
	defaultDeliveryPageSize = 50
	maxDeliveryPageSize     = 200
)

type SubscriptionRepository interface {
	// Create enforces limit atomically and fails with domain.ErrLimitReached once it is reached.
	Create(ctx context.Context, s *domain.Subscription, limit int) error
	GetForPartner(ctx context.Context, partnerID, id uuid.UUID) (*domain.Subscription, error)
	ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]domain.Subscription, error)
	Update(ctx context.Context, s *domain.Subscription) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SubscriptionStatus) error
	RotateSecret(ctx context.Context, id uuid.UUID, secret string) error
	Delete(ctx context.Context, partnerID, id uuid.UUID) error
}

type DeliveryRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID, limit int) ([]domain.Delivery, error)
}

type CreateSubscriptionInput struct {
	URL         string   `json:"url" validate:"required,url,max=2048"`
	Events      []string `json:"events" validate:"required,min=1,dive,required"`
	Description string   `json:"description" validate:"max=500"`
}

type UpdateSubscriptionInput struct {
	URL         *string  `json:"url" validate:"omitempty,url,max=2048"`
	Events      []string `json:"events" validate:"omitempty,min=1,dive,required"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
}

// Service manages a partner's own subscriptions. Every lookup is scoped to the calling partner.
type Service struct {
	subs             SubscriptionRepository
	deliveries       DeliveryRepository
	dispatcher       *Dispatcher
	validate         *validator.Validate
	maxSubscriptions int
	logger           *slog.Logger
}

func NewService(subs SubscriptionRepository, deliveries DeliveryRepository, dispatcher *Dispatcher, maxSubscriptions int, logger *slog.Logger) *Service {
	if maxSubscriptions <= 0 {
		maxSubscriptions = DefaultMaxSubscriptions
	}
	return &Service{
		subs:             subs,
		deliveries:       deliveries,
		dispatcher:       dispatcher,
		validate:         validator.New(),
		maxSubscriptions: maxSubscriptions,
		logger:           logger.With("component", "webhook_service"),
	}
}

// EventTypes lists what the partner type may subscribe to.
func (s *Service) EventTypes(pt domain.PartnerType) []string {
	return domain.AllowedEvents(pt)
}

// Create validates input and stores a new ACTIVE subscription. The returned value carries the
// generated secret; it is not retrievable afterwards.
func (s *Service) Create(ctx context.Context, pc *domain.PartnerContext, in CreateSubscriptionInput) (*domain.Subscription, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if err := checkURL(in.URL, pc.Environment); err != nil {
		return nil, err
	}
	events := dedupe(in.Events)
	if err := checkEvents(pc.PartnerType, events); err != nil {
		return nil, err
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}

	sub := &domain.Subscription{
		PartnerID:   pc.PartnerID,
		URL:         in.URL,
		Secret:      secret,
		Events:      events,
		Description: in.Description,
		Status:      domain.SubscriptionStatusActive,
	}
	if err := s.subs.Create(ctx, sub, s.maxSubscriptions); err != nil {
		return nil, storeError(err)
	}

	s.logger.Info("webhook subscription created",
		slog.String("partner_id", pc.PartnerID.String()),
		slog.String("subscription_id", sub.ID.String()),
		slog.Any("events", events),
	)
	return sub, nil
}

func (s *Service) List(ctx context.Context, partnerID uuid.UUID) ([]domain.Subscription, error) {
	subs, err := s.subs.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}
	return subs, nil
}

func (s *Service) Get(ctx context.Context, partnerID, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subs.GetForPartner(ctx, partnerID, id)
	if err != nil {
		return nil, storeError(err)
	}
	return sub, nil
}

func (s *Service) Update(ctx context.Context, pc *domain.PartnerContext, id uuid.UUID, in UpdateSubscriptionInput) (*domain.Subscription, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	sub, err := s.Get(ctx, pc.PartnerID, id)
	if err != nil {
		return nil, err
	}

	if in.URL != nil {
		if err := checkURL(*in.URL, pc.Environment); err != nil {
			return nil, err
		}
		sub.URL = *in.URL
	}
	if in.Events != nil {
		events := dedupe(in.Events)
		if err := checkEvents(pc.PartnerType, events); err != nil {
			return nil, err
		}
		sub.Events = events
	}
	if in.Description != nil {
		sub.Description = *in.Description
	}

	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, storeError(err)
	}
	return sub, nil
}

// SetStatus pauses or reactivates a subscription. Reactivating clears the failure streak.
func (s *Service) SetStatus(ctx context.Context, partnerID, id uuid.UUID, status domain.SubscriptionStatus) (*domain.Subscription, error) {
	if status != domain.SubscriptionStatusActive && status != domain.SubscriptionStatusPaused {
		return nil, domain.ErrValidation.WithDetails(map[string]any{
			"fields": map[string]string{"status": "oneof ACTIVE PAUSED"},
		})
	}

	sub, err := s.Get(ctx, partnerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.subs.UpdateStatus(ctx, sub.ID, status); err != nil {
		return nil, storeError(err)
	}

	s.logger.Info("webhook subscription status changed",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("from", string(sub.Status)),
		slog.String("to", string(status)),
	)
	return s.Get(ctx, partnerID, id)
}

// RotateSecret replaces the signing secret and returns the new one.
func (s *Service) RotateSecret(ctx context.Context, partnerID, id uuid.UUID) (string, error) {
	sub, err := s.Get(ctx, partnerID, id)
	if err != nil {
		return "", err
	}

	secret, err := GenerateSecret()
	if err != nil {
		return "", domain.ErrInternal.WithError(err)
	}
	if err := s.subs.RotateSecret(ctx, sub.ID, secret); err != nil {
		return "", storeError(err)
	}
	return secret, nil
}

func (s *Service) Delete(ctx context.Context, partnerID, id uuid.UUID) error {
	if err := s.subs.Delete(ctx, partnerID, id); err != nil {
		return storeError(err)
	}
	return nil
}

// Deliveries returns the most recent deliveries of a subscription, newest first.
func (s *Service) Deliveries(ctx context.Context, partnerID, id uuid.UUID, limit int) ([]domain.Delivery, error) {
	if limit <= 0 {
		limit = defaultDeliveryPageSize
	}
	limit = min(limit, maxDeliveryPageSize)

	sub, err := s.Get(ctx, partnerID, id)
	if err != nil {
		return nil, err
	}
	deliveries, err := s.deliveries.ListBySubscription(ctx, sub.ID, limit)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}
	return deliveries, nil
}

// Test sends a webhook.test ping regardless of the subscription's event set. DISABLED
// subscriptions are rejected until reactivated.
func (s *Service) Test(ctx context.Context, partnerID, id uuid.UUID) (*domain.Delivery, error) {
	sub, err := s.Get(ctx, partnerID, id)
	if err != nil {
		return nil, err
	}
	d, err := s.dispatcher.SendTest(ctx, sub)
	if err != nil {
		return nil, storeError(err)
	}
	return d, nil
}

// Redeliver resends a past delivery's payload as a new delivery. The subscription must be ACTIVE.
func (s *Service) Redeliver(ctx context.Context, partnerID, subscriptionID, deliveryID uuid.UUID) (*domain.Delivery, error) {
	sub, err := s.Get(ctx, partnerID, subscriptionID)
	if err != nil {
		return nil, err
	}

	original, err := s.deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, storeError(err)
	}
	if original.SubscriptionID != sub.ID {
		return nil, domain.ErrDeliveryNotFound
	}

	d, err := s.dispatcher.Redeliver(ctx, original, sub)
	if err != nil {
		return nil, storeError(err)
	}
	return d, nil
}

func checkURL(raw, environment string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.ErrValidation.WithMessage("Webhook URL must be an absolute http(s) URL").
			WithDetails(map[string]any{"fields": map[string]string{"url": "url"}})
	}
	if environment == domain.EnvProduction && u.Scheme != "https" {
		return domain.ErrValidation.WithMessage("Webhook URL must use HTTPS in production").
			WithDetails(map[string]any{"fields": map[string]string{"url": "https"}})
	}
	return nil
}

func checkEvents(pt domain.PartnerType, events []string) error {
	if len(events) == 0 {
		return domain.ErrValidation.WithDetails(map[string]any{"fields": map[string]string{"events": "min=1"}})
	}
	if bad := domain.DisallowedEvents(pt, events); len(bad) > 0 {
		return domain.ErrValidation.WithMessage("One or more events are not available for your partner type").
			WithDetails(map[string]any{
				"invalid_events": bad,
				"allowed_events": domain.AllowedEvents(pt),
			})
	}
	return nil
}

func dedupe(events []string) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		e = strings.TrimSpace(e)
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.ErrValidation.WithError(err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		tag := fe.Tag()
		if fe.Param() != "" {
			tag = fmt.Sprintf("%s=%s", tag, fe.Param())
		}
		fields[strings.ToLower(fe.Field())] = tag
	}
	return domain.ErrValidation.WithDetails(map[string]any{"fields": fields})
}

// storeError passes domain errors through and wraps the rest as internal.
func storeError(err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return domain.ErrInternal.WithError(err)
}
