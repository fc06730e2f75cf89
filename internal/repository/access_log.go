package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

type AccessLogRepository struct {
	pool PgxPool
}

func NewAccessLogRepository(pool PgxPool) *AccessLogRepository {
	return &AccessLogRepository{pool: pool}
}

func (r *AccessLogRepository) Insert(ctx context.Context, e *domain.AccessLogEntry) error {
	query := `
		INSERT INTO partner_access_logs (id, partner_id, credential_id, method, path, status_code, ip_address, user_agent, request_id, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.PartnerID,
		e.CredentialID,
		e.Method,
		e.Path,
		e.StatusCode,
		e.IPAddress,
		e.UserAgent,
		e.RequestID,
		e.LatencyMs,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert access log: %w", err)
	}

	return nil
}
