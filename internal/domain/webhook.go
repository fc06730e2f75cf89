package domain

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPaused   SubscriptionStatus = "PAUSED"
	SubscriptionStatusDisabled SubscriptionStatus = "DISABLED"
)

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusRetrying  DeliveryStatus = "RETRYING"
	DeliveryStatusFailed    DeliveryStatus = "FAILED"
)

// Subscription is a partner-owned registration of a URL, secret and event set.
type Subscription struct {
	ID                  uuid.UUID          `json:"id"`
	PartnerID           uuid.UUID          `json:"partner_id"`
	URL                 string             `json:"url"`
	Secret              string             `json:"-"`
	Events              []string           `json:"events"`
	Description         string             `json:"description,omitempty"`
	Status              SubscriptionStatus `json:"status"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
	LastSuccessAt       *time.Time         `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time         `json:"last_failure_at,omitempty"`
	DisabledReason      string             `json:"disabled_reason,omitempty"`
	DisabledAt          *time.Time         `json:"disabled_at,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

// Subscribes reports whether the subscription receives eventType.
func (s *Subscription) Subscribes(eventType string) bool {
	return slices.Contains(s.Events, eventType)
}

// Delivery is one event sent to one subscription. Payload is an immutable snapshot.
type Delivery struct {
	ID             uuid.UUID      `json:"id"`
	SubscriptionID uuid.UUID      `json:"subscription_id"`
	PartnerID      uuid.UUID      `json:"partner_id"`
	EventID        uuid.UUID      `json:"event_id"`
	EventType      string         `json:"event_type"`
	Payload        []byte         `json:"-"`
	Attempts       int            `json:"attempts"`
	MaxAttempts    int            `json:"max_attempts"`
	Status         DeliveryStatus `json:"status"`
	LastStatusCode int            `json:"last_status_code,omitempty"`
	LastResponse   string         `json:"last_response,omitempty"`
	LastError      string         `json:"last_error,omitempty"`
	LastLatencyMs  int64          `json:"last_latency_ms,omitempty"`
	NextRetryAt    *time.Time     `json:"next_retry_at,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (d *Delivery) IsTerminal() bool {
	return d.Status == DeliveryStatusDelivered || d.Status == DeliveryStatusFailed
}

// EventEnvelope is the JSON body POSTed to subscribers.
type EventEnvelope struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
	PartnerID uuid.UUID       `json:"partner_id"`
}
