package webhook

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memSubscriptions mirrors SubscriptionRepository semantics in memory.
type memSubscriptions struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*domain.Subscription
}

func newMemSubscriptions(subs ...*domain.Subscription) *memSubscriptions {
	m := &memSubscriptions{subs: make(map[uuid.UUID]*domain.Subscription)}
	for _, s := range subs {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if s.Status == "" {
			s.Status = domain.SubscriptionStatusActive
		}
		m.subs[s.ID] = s
	}
	return m
}

func (m *memSubscriptions) get(id uuid.UUID) domain.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.subs[id]
}

func (m *memSubscriptions) GetByID(_ context.Context, id uuid.UUID) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptions) ListActiveByEvent(_ context.Context, eventType string, partnerIDs []uuid.UUID) ([]domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Subscription
	for _, s := range m.subs {
		if !s.IsActive() || !s.Subscribes(eventType) {
			continue
		}
		if len(partnerIDs) > 0 && !slices.Contains(partnerIDs, s.PartnerID) {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *memSubscriptions) RecordSuccess(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.subs[id]
	now := time.Now()
	s.ConsecutiveFailures = 0
	s.LastSuccessAt = &now
	return nil
}

func (m *memSubscriptions) RecordFailure(_ context.Context, id uuid.UUID, threshold int, reason string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return 0, false, domain.ErrSubscriptionNotFound
	}
	now := time.Now()
	s.ConsecutiveFailures++
	s.LastFailureAt = &now
	if s.Status == domain.SubscriptionStatusActive && s.ConsecutiveFailures >= threshold {
		s.Status = domain.SubscriptionStatusDisabled
		s.DisabledReason = reason
		s.DisabledAt = &now
		return s.ConsecutiveFailures, true, nil
	}
	return s.ConsecutiveFailures, false, nil
}

func (m *memSubscriptions) setStatus(id uuid.UUID, status domain.SubscriptionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[id].Status = status
}

// memDeliveries mirrors DeliveryRepository semantics in memory.
type memDeliveries struct {
	mu         sync.Mutex
	deliveries map[uuid.UUID]*domain.Delivery
	subs       *memSubscriptions
}

func newMemDeliveries(subs *memSubscriptions) *memDeliveries {
	return &memDeliveries{deliveries: make(map[uuid.UUID]*domain.Delivery), subs: subs}
}

func (m *memDeliveries) Create(_ context.Context, d *domain.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = domain.DeliveryStatusPending
	}
	d.CreatedAt = time.Now()
	cp := *d
	m.deliveries[d.ID] = &cp
	return nil
}

func (m *memDeliveries) GetByID(_ context.Context, id uuid.UUID) (*domain.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return nil, domain.ErrDeliveryNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDeliveries) Update(_ context.Context, d *domain.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deliveries[d.ID]; !ok {
		return domain.ErrDeliveryNotFound
	}
	cp := *d
	m.deliveries[d.ID] = &cp
	return nil
}

func (m *memDeliveries) ListDueRetries(_ context.Context, now time.Time, limit int) ([]domain.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Delivery
	for _, d := range m.deliveries {
		if d.Status != domain.DeliveryStatusRetrying || d.NextRetryAt == nil || d.NextRetryAt.After(now) {
			continue
		}
		if m.subs != nil && m.subs.get(d.SubscriptionID).Status != domain.SubscriptionStatusActive {
			continue
		}
		out = append(out, *d)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memDeliveries) ListBySubscription(_ context.Context, subscriptionID uuid.UUID, limit int) ([]domain.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Delivery
	for _, d := range m.deliveries {
		if d.SubscriptionID == subscriptionID {
			out = append(out, *d)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memDeliveries) all() []domain.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Delivery, 0, len(m.deliveries))
	for _, d := range m.deliveries {
		out = append(out, *d)
	}
	return out
}

type countingRecorder struct {
	mu        sync.Mutex
	outcomes  map[string]int
	disabled  int
	recovered int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{outcomes: make(map[string]int)}
}

func (r *countingRecorder) DeliveryAttempt(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
}

func (r *countingRecorder) SubscriptionDisabled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled++
}

func (r *countingRecorder) DeliveriesRecovered(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recovered += n
}
