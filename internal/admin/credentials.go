package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

type PartnerReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error)
}

type CredentialRepository interface {
	Create(ctx context.Context, c *domain.Credential) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Credential, error)
	ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]domain.Credential, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

type IssueCredentialRequest struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Scopes      []string   `json:"scopes" validate:"required,min=1,dive,required"`
	Environment string     `json:"environment" validate:"required,oneof=sandbox production"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// IssuedCredential is returned once at issuance; ClientSecret is never retrievable again.
type IssuedCredential struct {
	Credential   *domain.Credential `json:"credential"`
	ClientID     string             `json:"client_id"`
	ClientSecret string             `json:"client_secret"`
}

// CredentialService issues and revokes partner credentials for operators.
type CredentialService struct {
	partners    PartnerReader
	credentials CredentialRepository
	validate    *validator.Validate
	logger      *slog.Logger
	now         func() time.Time
}

func NewCredentialService(partners PartnerReader, credentials CredentialRepository, logger *slog.Logger) *CredentialService {
	return &CredentialService{
		partners:    partners,
		credentials: credentials,
		validate:    validator.New(),
		logger:      logger.With("component", "credential_admin"),
		now:         time.Now,
	}
}

func (s *CredentialService) Issue(ctx context.Context, partnerID uuid.UUID, req IssueCredentialRequest) (*IssuedCredential, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation.WithError(err)
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, domain.ErrValidation.WithMessage("expires_at must be in the future")
	}

	partner, err := s.partners.GetByID(ctx, partnerID)
	if err != nil {
		return nil, passThrough(err)
	}

	plain, hash, prefix, err := domain.GenerateClientSecret(req.Environment)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}

	cred := &domain.Credential{
		ID:           uuid.New(),
		PartnerID:    partner.ID,
		Name:         strings.TrimSpace(req.Name),
		SecretHash:   hash,
		SecretPrefix: prefix,
		Scopes:       req.Scopes,
		Status:       domain.CredentialStatusActive,
		Environment:  req.Environment,
		ExpiresAt:    req.ExpiresAt,
	}

	if err := cred.Validate(partner.Type); err != nil {
		var scopeErr *domain.ScopeError
		if errors.As(err, &scopeErr) {
			return nil, domain.ErrValidation.WithMessage(err.Error()).WithDetails(map[string]any{
				"invalid_scopes": scopeErr.Scopes,
				"allowed_scopes": domain.AllowedScopes(partner.Type),
			})
		}
		return nil, domain.ErrValidation.WithMessage(err.Error())
	}

	if err := s.credentials.Create(ctx, cred); err != nil {
		return nil, passThrough(err)
	}

	s.logger.Info("credential issued",
		slog.String("partner_id", partner.ID.String()),
		slog.String("credential_id", cred.ID.String()),
		slog.String("environment", cred.Environment),
		slog.Any("scopes", cred.Scopes),
	)

	return &IssuedCredential{
		Credential:   cred,
		ClientID:     cred.ID.String(),
		ClientSecret: plain,
	}, nil
}

// Revoke is idempotent; revoking a revoked credential succeeds.
func (s *CredentialService) Revoke(ctx context.Context, id uuid.UUID) (*domain.Credential, error) {
	if err := s.credentials.Revoke(ctx, id); err != nil {
		return nil, passThrough(err)
	}

	cred, err := s.credentials.GetByID(ctx, id)
	if err != nil {
		return nil, passThrough(err)
	}

	s.logger.Info("credential revoked",
		slog.String("partner_id", cred.PartnerID.String()),
		slog.String("credential_id", cred.ID.String()),
	)
	return cred, nil
}

func (s *CredentialService) List(ctx context.Context, partnerID uuid.UUID) ([]domain.Credential, error) {
	if _, err := s.partners.GetByID(ctx, partnerID); err != nil {
		return nil, passThrough(err)
	}
	creds, err := s.credentials.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}
	return creds, nil
}

func passThrough(err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return domain.ErrInternal.WithError(err)
}
