package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

type SubscriptionRepository struct {
	pool PgxPool
}

func NewSubscriptionRepository(pool PgxPool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

const subscriptionColumns = `id, partner_id, url, secret, events, description, status, consecutive_failures, last_success_at, last_failure_at, disabled_reason, disabled_at, created_at, updated_at`

func scanSubscription(row rowScanner) (*domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(
		&s.ID,
		&s.PartnerID,
		&s.URL,
		&s.Secret,
		&s.Events,
		&s.Description,
		&s.Status,
		&s.ConsecutiveFailures,
		&s.LastSuccessAt,
		&s.LastFailureAt,
		&s.DisabledReason,
		&s.DisabledAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) collect(rows pgx.Rows) ([]domain.Subscription, error) {
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return subs, nil
}

// Create stores s unless its partner already owns limit subscriptions. The partner row is locked
// for the transaction, so concurrent creates for one partner are counted one after another.
func (r *SubscriptionRepository) Create(ctx context.Context, s *domain.Subscription, limit int) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = domain.SubscriptionStatusActive
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create subscription: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var owner uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM partners WHERE id = $1 FOR UPDATE`, s.PartnerID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrPartnerNotFound
	}
	if err != nil {
		return fmt.Errorf("lock partner: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM webhook_subscriptions WHERE partner_id = $1`, s.PartnerID).Scan(&count)
	if err != nil {
		return fmt.Errorf("count subscriptions: %w", err)
	}
	if count >= limit {
		return domain.ErrLimitReached.WithDetails(map[string]any{"limit": limit})
	}

	query := `
		INSERT INTO webhook_subscriptions (id, partner_id, url, secret, events, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		s.ID,
		s.PartnerID,
		s.URL,
		s.Secret,
		s.Events,
		s.Description,
		s.Status,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM webhook_subscriptions WHERE id = $1`

	s, err := scanSubscription(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription by id: %w", err)
	}

	return s, nil
}

// GetForPartner loads a subscription only if partnerID owns it.
func (r *SubscriptionRepository) GetForPartner(ctx context.Context, partnerID, id uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM webhook_subscriptions WHERE id = $1 AND partner_id = $2`

	s, err := scanSubscription(r.pool.QueryRow(ctx, query, id, partnerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription for partner: %w", err)
	}

	return s, nil
}

func (r *SubscriptionRepository) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM webhook_subscriptions WHERE partner_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions by partner: %w", err)
	}

	return r.collect(rows)
}

// ListActiveByEvent returns ACTIVE subscriptions listening for eventType.
// An empty partnerIDs matches every partner.
func (r *SubscriptionRepository) ListActiveByEvent(ctx context.Context, eventType string, partnerIDs []uuid.UUID) ([]domain.Subscription, error) {
	// pgx encodes an empty non-nil slice as '{}', which would match no partner at all.
	if len(partnerIDs) == 0 {
		partnerIDs = nil
	}

	query := `SELECT ` + subscriptionColumns + ` FROM webhook_subscriptions
		WHERE status = 'ACTIVE' AND $1 = ANY(events) AND ($2::uuid[] IS NULL OR partner_id = ANY($2))
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, eventType, partnerIDs)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions by event: %w", err)
	}

	return r.collect(rows)
}

func (r *SubscriptionRepository) Update(ctx context.Context, s *domain.Subscription) error {
	query := `
		UPDATE webhook_subscriptions
		SET url = $2, events = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query, s.ID, s.URL, s.Events, s.Description).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	return nil
}

// UpdateStatus sets the status. Moving back to ACTIVE clears the failure streak and disable reason.
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SubscriptionStatus) error {
	query := `
		UPDATE webhook_subscriptions
		SET status = $2,
			consecutive_failures = CASE WHEN $2 = 'ACTIVE' THEN 0 ELSE consecutive_failures END,
			disabled_reason = CASE WHEN $2 = 'ACTIVE' THEN '' ELSE disabled_reason END,
			disabled_at = CASE WHEN $2 = 'ACTIVE' THEN NULL ELSE disabled_at END,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}

	return nil
}

func (r *SubscriptionRepository) RotateSecret(ctx context.Context, id uuid.UUID, secret string) error {
	query := `
		UPDATE webhook_subscriptions
		SET secret = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, secret)
	if err != nil {
		return fmt.Errorf("rotate subscription secret: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}

	return nil
}

// RecordSuccess resets the failure streak.
func (r *SubscriptionRepository) RecordSuccess(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE webhook_subscriptions
		SET consecutive_failures = 0, last_success_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("record subscription success: %w", err)
	}

	return nil
}

// RecordFailure increments the failure streak and disables an ACTIVE subscription once the
// streak reaches threshold. disabled is true only for the update that performed the transition.
func (r *SubscriptionRepository) RecordFailure(ctx context.Context, id uuid.UUID, threshold int, reason string) (failures int, disabled bool, err error) {
	query := `
		WITH prev AS (
			SELECT status FROM webhook_subscriptions WHERE id = $1 FOR UPDATE
		)
		UPDATE webhook_subscriptions s
		SET consecutive_failures = s.consecutive_failures + 1,
			last_failure_at = NOW(),
			status = CASE WHEN s.status = 'ACTIVE' AND s.consecutive_failures + 1 >= $2 THEN 'DISABLED' ELSE s.status END,
			disabled_reason = CASE WHEN s.status = 'ACTIVE' AND s.consecutive_failures + 1 >= $2 THEN $3 ELSE s.disabled_reason END,
			disabled_at = CASE WHEN s.status = 'ACTIVE' AND s.consecutive_failures + 1 >= $2 THEN NOW() ELSE s.disabled_at END,
			updated_at = NOW()
		FROM prev
		WHERE s.id = $1
		RETURNING s.consecutive_failures, s.status, prev.status AS prev_status
	`

	var newStatus, prevStatus domain.SubscriptionStatus
	err = r.pool.QueryRow(ctx, query, id, threshold, reason).Scan(&failures, &newStatus, &prevStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("record subscription failure: %w", err)
	}

	return failures, newStatus == domain.SubscriptionStatusDisabled && prevStatus != domain.SubscriptionStatusDisabled, nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, partnerID, id uuid.UUID) error {
	query := `
		DELETE FROM webhook_subscriptions
		WHERE id = $1 AND partner_id = $2
	`

	result, err := r.pool.Exec(ctx, query, id, partnerID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}

	return nil
}
