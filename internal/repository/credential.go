package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

type CredentialRepository struct {
	pool PgxPool
}

func NewCredentialRepository(pool PgxPool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

const credentialColumns = `id, partner_id, name, secret_hash, secret_prefix, scopes, status, environment, expires_at, last_used_at, revoked_at, created_at, updated_at`

func scanCredential(row rowScanner) (*domain.Credential, error) {
	var c domain.Credential
	err := row.Scan(
		&c.ID,
		&c.PartnerID,
		&c.Name,
		&c.SecretHash,
		&c.SecretPrefix,
		&c.Scopes,
		&c.Status,
		&c.Environment,
		&c.ExpiresAt,
		&c.LastUsedAt,
		&c.RevokedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CredentialRepository) Create(ctx context.Context, c *domain.Credential) error {
	query := `
		INSERT INTO partner_credentials (id, partner_id, name, secret_hash, secret_prefix, scopes, status, environment, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = domain.CredentialStatusActive
	}

	err := r.pool.QueryRow(ctx, query,
		c.ID,
		c.PartnerID,
		c.Name,
		c.SecretHash,
		c.SecretPrefix,
		c.Scopes,
		c.Status,
		c.Environment,
		c.ExpiresAt,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return &domain.AppError{
				Code:       "CREDENTIAL_ALREADY_EXISTS",
				Message:    "Credential already exists",
				StatusCode: 409,
			}
		}
		return fmt.Errorf("create credential: %w", err)
	}

	return nil
}

func (r *CredentialRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM partner_credentials WHERE id = $1`

	c, err := scanCredential(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential by id: %w", err)
	}

	return c, nil
}

func (r *CredentialRepository) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM partner_credentials WHERE partner_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list credentials by partner: %w", err)
	}
	defer rows.Close()

	var creds []domain.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return creds, nil
}

// MarkExpired moves an ACTIVE credential to EXPIRED. Already expired rows are left untouched.
func (r *CredentialRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE partner_credentials
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE id = $1 AND status = 'ACTIVE'
	`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark credential expired: %w", err)
	}

	return nil
}

func (r *CredentialRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE partner_credentials
		SET last_used_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("touch credential last used: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrCredentialNotFound
	}

	return nil
}

func (r *CredentialRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE partner_credentials
		SET status = 'REVOKED', revoked_at = COALESCE(revoked_at, NOW()), updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrCredentialNotFound
	}

	return nil
}
