package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

type PartnerRepository struct {
	pool PgxPool
}

func NewPartnerRepository(pool PgxPool) *PartnerRepository {
	return &PartnerRepository{pool: pool}
}

const partnerColumns = `id, organization_id, name, type, status, tier, rate_limits, allowed_ips, last_active_at, created_at, updated_at`

func scanPartner(row rowScanner) (*domain.Partner, error) {
	var p domain.Partner
	var rateLimits []byte

	err := row.Scan(
		&p.ID,
		&p.OrganizationID,
		&p.Name,
		&p.Type,
		&p.Status,
		&p.Tier,
		&rateLimits,
		&p.AllowedIPs,
		&p.LastActiveAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(rateLimits) > 0 && string(rateLimits) != "null" {
		var rl domain.RateLimits
		if err := json.Unmarshal(rateLimits, &rl); err != nil {
			return nil, fmt.Errorf("decode rate limits: %w", err)
		}
		p.RateLimits = &rl
	}

	return &p, nil
}

func (r *PartnerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE id = $1`

	p, err := scanPartner(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPartnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get partner by id: %w", err)
	}

	return p, nil
}

func (r *PartnerRepository) Create(ctx context.Context, p *domain.Partner) error {
	query := `
		INSERT INTO partners (id, organization_id, name, type, status, tier, rate_limits, allowed_ips, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.AllowedIPs == nil {
		p.AllowedIPs = []string{}
	}

	var rateLimits []byte
	if p.RateLimits != nil {
		b, err := json.Marshal(p.RateLimits)
		if err != nil {
			return fmt.Errorf("encode rate limits: %w", err)
		}
		rateLimits = b
	}

	err := r.pool.QueryRow(ctx, query,
		p.ID,
		p.OrganizationID,
		p.Name,
		p.Type,
		p.Status,
		p.Tier,
		rateLimits,
		p.AllowedIPs,
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return &domain.AppError{
				Code:       "PARTNER_ALREADY_EXISTS",
				Message:    "Partner already exists",
				StatusCode: 409,
			}
		}
		return fmt.Errorf("create partner: %w", err)
	}

	return nil
}

// TouchLastActive records that the partner obtained a token or called the API.
func (r *PartnerRepository) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE partners
		SET last_active_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("touch partner last active: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrPartnerNotFound
	}

	return nil
}
