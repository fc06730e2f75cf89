package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

const (
	DefaultMaxAttempts      = 5
	DefaultDisableThreshold = 5
)

// Outcome of a single Deliver call.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeRetrying  Outcome = "retrying"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

type SubscriptionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	ListActiveByEvent(ctx context.Context, eventType string, partnerIDs []uuid.UUID) ([]domain.Subscription, error)
	RecordSuccess(ctx context.Context, id uuid.UUID) error
	RecordFailure(ctx context.Context, id uuid.UUID, threshold int, reason string) (int, bool, error)
}

type DeliveryStore interface {
	Create(ctx context.Context, d *domain.Delivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
	Update(ctx context.Context, d *domain.Delivery) error
}

type Recorder interface {
	DeliveryAttempt(outcome string, latency time.Duration)
	SubscriptionDisabled()
}

type Config struct {
	MaxAttempts      int
	DisableThreshold int
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:      DefaultMaxAttempts,
		DisableThreshold: DefaultDisableThreshold,
	}
}

// DispatchResult summarizes one fan-out.
type DispatchResult struct {
	EventID    uuid.UUID `json:"event_id"`
	Deliveries int       `json:"deliveries"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
}

// Dispatcher fans events out to subscriptions and drives each delivery through retries.
type Dispatcher struct {
	subs       SubscriptionStore
	deliveries DeliveryStore
	sender     *Sender
	queue      *Queue
	recorder   Recorder
	logger     *slog.Logger
	cfg        Config
	now        func() time.Time

	inflight sync.Map
}

type DispatcherOption func(*Dispatcher)

func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(subs SubscriptionStore, deliveries DeliveryStore, sender *Sender, queue *Queue, logger *slog.Logger, cfg Config, opts ...DispatcherOption) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.DisableThreshold <= 0 {
		cfg.DisableThreshold = DefaultDisableThreshold
	}

	d := &Dispatcher{
		subs:       subs,
		deliveries: deliveries,
		sender:     sender,
		queue:      queue,
		logger:     logger.With("component", "webhook_dispatcher"),
		cfg:        cfg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch creates one PENDING delivery per matching ACTIVE subscription, all sharing one event id,
// and attempts each concurrently. It returns once every attempt has settled.
// A non-empty partnerIDs restricts the fan-out to those partners.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, data json.RawMessage, partnerIDs []uuid.UUID) (*DispatchResult, error) {
	subs, err := d.subs.ListActiveByEvent(ctx, eventType, partnerIDs)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for %s: %w", eventType, err)
	}

	eventID := uuid.New()
	createdAt := d.now().UTC()
	result := &DispatchResult{EventID: eventID}

	type job struct {
		delivery *domain.Delivery
		sub      *domain.Subscription
	}
	jobs := make([]job, 0, len(subs))

	for i := range subs {
		sub := &subs[i]

		payload, err := json.Marshal(domain.EventEnvelope{
			ID:        eventID,
			Type:      eventType,
			CreatedAt: createdAt,
			Data:      data,
			PartnerID: sub.PartnerID,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal event envelope: %w", err)
		}

		delivery := &domain.Delivery{
			SubscriptionID: sub.ID,
			PartnerID:      sub.PartnerID,
			EventID:        eventID,
			EventType:      eventType,
			Payload:        payload,
			MaxAttempts:    d.cfg.MaxAttempts,
			Status:         domain.DeliveryStatusPending,
		}
		if err := d.deliveries.Create(ctx, delivery); err != nil {
			d.logger.Error("failed to create delivery",
				slog.String("subscription_id", sub.ID.String()),
				slog.String("event_type", eventType),
				slog.Any("error", err),
			)
			result.Failed++
			continue
		}
		jobs = append(jobs, job{delivery: delivery, sub: sub})
	}

	result.Deliveries = len(jobs)

	outcomes := make([]Outcome, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := d.Deliver(ctx, j.delivery, j.sub)
			if err != nil {
				d.logger.Error("delivery attempt not persisted",
					slog.String("delivery_id", j.delivery.ID.String()),
					slog.Any("error", err),
				)
			}
			outcomes[i] = outcome
		}()
	}
	wg.Wait()

	for _, o := range outcomes {
		if o == OutcomeDelivered {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	d.logger.Info("event dispatched",
		slog.String("event_id", eventID.String()),
		slog.String("event_type", eventType),
		slog.Int("deliveries", result.Deliveries),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
	)

	return result, nil
}

// Deliver makes one attempt and records its outcome. Delivered records are a no-op, and a
// delivery already being attempted elsewhere in this process is skipped.
// The HTTP call is detached from ctx cancellation and bounded by the sender timeout.
func (d *Dispatcher) Deliver(ctx context.Context, delivery *domain.Delivery, sub *domain.Subscription) (Outcome, error) {
	if delivery.Status == domain.DeliveryStatusDelivered {
		return OutcomeSkipped, nil
	}
	if _, busy := d.inflight.LoadOrStore(delivery.ID, struct{}{}); busy {
		return OutcomeSkipped, nil
	}
	defer d.inflight.Delete(delivery.ID)

	ctx = context.WithoutCancel(ctx)

	delivery.Attempts++
	res := d.sender.Send(ctx, sub, delivery)
	now := d.now()

	delivery.LastStatusCode = res.StatusCode
	delivery.LastResponse = res.Response
	delivery.LastError = res.Error
	delivery.LastLatencyMs = res.Latency.Milliseconds()

	logger := d.logger.With(
		slog.String("delivery_id", delivery.ID.String()),
		slog.String("subscription_id", sub.ID.String()),
		slog.String("event_type", delivery.EventType),
		slog.Int("attempt", delivery.Attempts),
	)

	if res.Success() {
		delivery.Status = domain.DeliveryStatusDelivered
		delivery.DeliveredAt = &now
		delivery.NextRetryAt = nil
		delivery.LastError = ""

		d.record(OutcomeDelivered, res.Latency)
		if err := d.deliveries.Update(ctx, delivery); err != nil {
			return OutcomeDelivered, err
		}
		if tracksHealth(delivery) {
			if err := d.subs.RecordSuccess(ctx, sub.ID); err != nil {
				return OutcomeDelivered, err
			}
		}
		logger.Debug("webhook delivered", slog.Int("status", res.StatusCode))
		return OutcomeDelivered, nil
	}

	if res.Error == "" {
		delivery.LastError = fmt.Sprintf("HTTP %d", res.StatusCode)
	}

	if delivery.Attempts >= delivery.MaxAttempts {
		delivery.Status = domain.DeliveryStatusFailed
		delivery.NextRetryAt = nil

		d.record(OutcomeFailed, res.Latency)
		if err := d.deliveries.Update(ctx, delivery); err != nil {
			return OutcomeFailed, err
		}
		logger.Warn("webhook delivery failed", slog.String("error", delivery.LastError))

		if tracksHealth(delivery) {
			if err := d.breakCircuit(ctx, sub, delivery, logger); err != nil {
				return OutcomeFailed, err
			}
		}
		return OutcomeFailed, nil
	}

	next := now.Add(Backoff(delivery.Attempts))
	delivery.Status = domain.DeliveryStatusRetrying
	delivery.NextRetryAt = &next

	d.record(OutcomeRetrying, res.Latency)
	if err := d.deliveries.Update(ctx, delivery); err != nil {
		return OutcomeRetrying, err
	}

	id := delivery.ID
	d.queue.Schedule(id, next, func() { d.retry(id) })

	logger.Info("webhook delivery scheduled for retry",
		slog.String("error", delivery.LastError),
		slog.Time("next_retry_at", next),
	)
	return OutcomeRetrying, nil
}

func (d *Dispatcher) breakCircuit(ctx context.Context, sub *domain.Subscription, delivery *domain.Delivery, logger *slog.Logger) error {
	reason := fmt.Sprintf("disabled after %d consecutive failed deliveries (last error: %s)", d.cfg.DisableThreshold, delivery.LastError)

	failures, disabled, err := d.subs.RecordFailure(ctx, sub.ID, d.cfg.DisableThreshold, reason)
	if err != nil {
		return err
	}
	if disabled {
		if d.recorder != nil {
			d.recorder.SubscriptionDisabled()
		}
		logger.Warn("webhook subscription disabled", slog.Int("consecutive_failures", failures))
	}
	return nil
}

// retry is the timer callback. It re-reads both records and only proceeds for an ACTIVE subscription.
func (d *Dispatcher) retry(id uuid.UUID) {
	ctx := context.Background()

	delivery, err := d.deliveries.GetByID(ctx, id)
	if err != nil {
		d.logger.Error("failed to load delivery for retry", slog.String("delivery_id", id.String()), slog.Any("error", err))
		return
	}
	if delivery.IsTerminal() {
		return
	}

	sub, err := d.subs.GetByID(ctx, delivery.SubscriptionID)
	if err != nil {
		d.logger.Error("failed to load subscription for retry", slog.String("delivery_id", id.String()), slog.Any("error", err))
		return
	}
	if !sub.IsActive() {
		d.logger.Debug("retry skipped, subscription not active",
			slog.String("delivery_id", id.String()),
			slog.String("status", string(sub.Status)),
		)
		return
	}

	if _, err := d.Deliver(ctx, delivery, sub); err != nil {
		d.logger.Error("retry attempt not persisted", slog.String("delivery_id", id.String()), slog.Any("error", err))
	}
}

// SendTest delivers a single webhook.test event to sub without retries.
// Test pings do not affect the subscription's failure streak. A PAUSED subscription can be pinged.
func (d *Dispatcher) SendTest(ctx context.Context, sub *domain.Subscription) (*domain.Delivery, error) {
	if sub.Status == domain.SubscriptionStatusDisabled {
		return nil, notDeliverable(sub)
	}

	eventID := uuid.New()
	payload, err := json.Marshal(domain.EventEnvelope{
		ID:        eventID,
		Type:      domain.EventWebhookTest,
		CreatedAt: d.now().UTC(),
		Data:      json.RawMessage(`{"message":"This is a test event"}`),
		PartnerID: sub.PartnerID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal test event: %w", err)
	}

	delivery := &domain.Delivery{
		SubscriptionID: sub.ID,
		PartnerID:      sub.PartnerID,
		EventID:        eventID,
		EventType:      domain.EventWebhookTest,
		Payload:        payload,
		MaxAttempts:    1,
	}
	if err := d.deliveries.Create(ctx, delivery); err != nil {
		return nil, err
	}
	if _, err := d.Deliver(ctx, delivery, sub); err != nil {
		return nil, err
	}
	return delivery, nil
}

// Redeliver creates a fresh delivery reusing the payload snapshot and event id of original,
// then attempts it immediately. Only an ACTIVE subscription accepts redeliveries.
func (d *Dispatcher) Redeliver(ctx context.Context, original *domain.Delivery, sub *domain.Subscription) (*domain.Delivery, error) {
	if !sub.IsActive() {
		return nil, notDeliverable(sub)
	}

	delivery := &domain.Delivery{
		SubscriptionID: sub.ID,
		PartnerID:      sub.PartnerID,
		EventID:        original.EventID,
		EventType:      original.EventType,
		Payload:        original.Payload,
		MaxAttempts:    d.cfg.MaxAttempts,
	}
	if err := d.deliveries.Create(ctx, delivery); err != nil {
		return nil, err
	}
	if _, err := d.Deliver(ctx, delivery, sub); err != nil {
		return nil, err
	}
	return delivery, nil
}

// Wait blocks until retry callbacks already running have finished. Stop the queue first.
func (d *Dispatcher) Wait() {
	d.queue.Wait()
}

func (d *Dispatcher) record(o Outcome, latency time.Duration) {
	if d.recorder != nil {
		d.recorder.DeliveryAttempt(string(o), latency)
	}
}

func tracksHealth(d *domain.Delivery) bool {
	return d.EventType != domain.EventWebhookTest
}

func notDeliverable(sub *domain.Subscription) error {
	return domain.ErrValidation.WithMessage("Webhook subscription is not accepting deliveries").
		WithDetails(map[string]any{"subscription_status": sub.Status})
}
