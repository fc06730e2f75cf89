package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

type DeliveryRepository struct {
	pool PgxPool
}

func NewDeliveryRepository(pool PgxPool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

const deliveryColumns = `id, subscription_id, partner_id, event_id, event_type, payload, attempts, max_attempts, status, last_status_code, last_response, last_error, last_latency_ms, next_retry_at, delivered_at, created_at, updated_at`

func scanDelivery(row rowScanner) (*domain.Delivery, error) {
	var d domain.Delivery
	err := row.Scan(
		&d.ID,
		&d.SubscriptionID,
		&d.PartnerID,
		&d.EventID,
		&d.EventType,
		&d.Payload,
		&d.Attempts,
		&d.MaxAttempts,
		&d.Status,
		&d.LastStatusCode,
		&d.LastResponse,
		&d.LastError,
		&d.LastLatencyMs,
		&d.NextRetryAt,
		&d.DeliveredAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeliveryRepository) collect(rows pgx.Rows) ([]domain.Delivery, error) {
	defer rows.Close()

	var deliveries []domain.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		deliveries = append(deliveries, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return deliveries, nil
}

func (r *DeliveryRepository) Create(ctx context.Context, d *domain.Delivery) error {
	query := `
		INSERT INTO webhook_deliveries (id, subscription_id, partner_id, event_id, event_type, payload, attempts, max_attempts, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = domain.DeliveryStatusPending
	}

	err := r.pool.QueryRow(ctx, query,
		d.ID,
		d.SubscriptionID,
		d.PartnerID,
		d.EventID,
		d.EventType,
		d.Payload,
		d.Attempts,
		d.MaxAttempts,
		d.Status,
	).Scan(&d.CreatedAt, &d.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create delivery: %w", err)
	}

	return nil
}

func (r *DeliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries WHERE id = $1`

	d, err := scanDelivery(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDeliveryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery by id: %w", err)
	}

	return d, nil
}

// Update persists the outcome of an attempt.
func (r *DeliveryRepository) Update(ctx context.Context, d *domain.Delivery) error {
	query := `
		UPDATE webhook_deliveries
		SET attempts = $2,
			status = $3,
			last_status_code = $4,
			last_response = $5,
			last_error = $6,
			last_latency_ms = $7,
			next_retry_at = $8,
			delivered_at = $9,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		d.ID,
		d.Attempts,
		d.Status,
		d.LastStatusCode,
		d.LastResponse,
		d.LastError,
		d.LastLatencyMs,
		d.NextRetryAt,
		d.DeliveredAt,
	).Scan(&d.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrDeliveryNotFound
	}
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}

	return nil
}

// ListDueRetries returns RETRYING deliveries whose retry time has passed and whose
// subscription is still ACTIVE, oldest first.
func (r *DeliveryRepository) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]domain.Delivery, error) {
	query := `
		SELECT d.id, d.subscription_id, d.partner_id, d.event_id, d.event_type, d.payload, d.attempts, d.max_attempts, d.status,
			d.last_status_code, d.last_response, d.last_error, d.last_latency_ms, d.next_retry_at, d.delivered_at, d.created_at, d.updated_at
		FROM webhook_deliveries d
		INNER JOIN webhook_subscriptions s ON s.id = d.subscription_id
		WHERE d.status = 'RETRYING' AND d.next_retry_at <= $1 AND s.status = 'ACTIVE'
		ORDER BY d.next_retry_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due retries: %w", err)
	}

	return r.collect(rows)
}

func (r *DeliveryRepository) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID, limit int) ([]domain.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries WHERE subscription_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, subscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries by subscription: %w", err)
	}

	return r.collect(rows)
}
