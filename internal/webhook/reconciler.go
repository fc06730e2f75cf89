package webhook

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

const reconcileBatchSize = 100

type DueRetryLister interface {
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]domain.Delivery, error)
}

type RecoveryRecorder interface {
	DeliveriesRecovered(n int)
}

// Reconciler resumes RETRYING deliveries whose timer was lost, e.g. across a restart.
type Reconciler struct {
	deliveries DueRetryLister
	subs       SubscriptionStore
	dispatcher *Dispatcher
	queue      *Queue
	recorder   RecoveryRecorder
	logger     *slog.Logger
	interval   time.Duration
	now        func() time.Time
}

func NewReconciler(deliveries DueRetryLister, subs SubscriptionStore, dispatcher *Dispatcher, queue *Queue, interval time.Duration, logger *slog.Logger) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{
		deliveries: deliveries,
		subs:       subs,
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger.With("component", "webhook_reconciler"),
		interval:   interval,
		now:        time.Now,
	}
}

func (r *Reconciler) WithRecorder(rec RecoveryRecorder) *Reconciler {
	r.recorder = rec
	return r
}

// RunOnce redelivers every due retry not already scheduled in this process and returns how many
// were attempted.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	due, err := r.deliveries.ListDueRetries(ctx, r.now(), reconcileBatchSize)
	if err != nil {
		return 0, err
	}

	subs := make(map[uuid.UUID]*domain.Subscription)
	var wg sync.WaitGroup
	attempted := 0

	for i := range due {
		delivery := &due[i]
		if r.queue.Scheduled(delivery.ID) {
			continue
		}

		sub, ok := subs[delivery.SubscriptionID]
		if !ok {
			sub, err = r.subs.GetByID(ctx, delivery.SubscriptionID)
			if err != nil {
				r.logger.Error("failed to load subscription",
					slog.String("subscription_id", delivery.SubscriptionID.String()),
					slog.Any("error", err),
				)
				continue
			}
			subs[delivery.SubscriptionID] = sub
		}
		if !sub.IsActive() {
			continue
		}

		attempted++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.dispatcher.Deliver(ctx, delivery, sub); err != nil {
				r.logger.Error("recovered delivery not persisted",
					slog.String("delivery_id", delivery.ID.String()),
					slog.Any("error", err),
				)
			}
		}()
	}
	wg.Wait()

	if attempted > 0 {
		r.logger.Info("recovered webhook deliveries", slog.Int("count", attempted))
		if r.recorder != nil {
			r.recorder.DeliveriesRecovered(attempted)
		}
	}
	return attempted, nil
}

// Run repeats RunOnce on the configured interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("webhook reconciler started", slog.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("webhook reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("failed to reconcile webhook deliveries", slog.Any("error", err))
			}
		}
	}
}
