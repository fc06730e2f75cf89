package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/worker"
)

const GrantTypeClientCredentials = "client_credentials"

// CredentialStore is the credential side of the storage adapter.
type CredentialStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Credential, error)
	MarkExpired(ctx context.Context, id uuid.UUID) error
	TouchLastUsed(ctx context.Context, id uuid.UUID) error
}

// PartnerStore is the partner side of the storage adapter.
type PartnerStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error)
	TouchLastActive(ctx context.Context, id uuid.UUID) error
}

// Enqueuer is satisfied by *worker.TaskQueue.
type Enqueuer interface {
	Enqueue(kind, key string, fn worker.TaskFunc) bool
}

// Recorder counts token outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	TokenIssued(outcome string)
}

type TokenRequest struct {
	ClientID     string `json:"client_id" form:"client_id"`
	ClientSecret string `json:"client_secret" form:"client_secret"`
	GrantType    string `json:"grant_type" form:"grant_type"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Service exchanges client credentials for access tokens.
type Service struct {
	credentials CredentialStore
	partners    PartnerStore
	tokens      *TokenManager
	queue       Enqueuer
	recorder    Recorder
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Service)

// WithQueue routes last-used/last-active touches through a background queue.
// Without one the touches are skipped.
func WithQueue(q Enqueuer) Option {
	return func(s *Service) { s.queue = q }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(credentials CredentialStore, partners PartnerStore, tokens *TokenManager, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		credentials: credentials,
		partners:    partners,
		tokens:      tokens,
		logger:      logger.With("component", "token_issuer"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueToken runs the client-credentials grant.
func (s *Service) IssueToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	resp, err := s.issue(ctx, req)
	s.record(err)
	return resp, err
}

func (s *Service) issue(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	if req.GrantType != GrantTypeClientCredentials {
		return nil, domain.ErrUnsupportedGrantType
	}
	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, domain.ErrMissingCredentials
	}

	credentialID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	cred, err := s.credentials.GetByID(ctx, credentialID)
	if errors.Is(err, domain.ErrCredentialNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "credential lookup failed", "credential_id", credentialID, "error", err)
		return nil, domain.ErrInternal.WithError(err)
	}

	switch cred.Status {
	case domain.CredentialStatusActive:
	case domain.CredentialStatusExpired:
		return nil, domain.ErrCredentialExpired
	default:
		return nil, domain.ErrAuthenticationFailed.WithDetails(map[string]any{
			"credential_status": string(cred.Status),
		})
	}

	if cred.IsExpiredAt(s.now()) {
		if err := s.credentials.MarkExpired(ctx, cred.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to mark credential expired", "credential_id", cred.ID, "error", err)
			return nil, domain.ErrInternal.WithError(err)
		}
		s.logger.InfoContext(ctx, "credential expired", "credential_id", cred.ID, "partner_id", cred.PartnerID)
		return nil, domain.ErrCredentialExpired
	}

	partner, err := s.partners.GetByID(ctx, cred.PartnerID)
	if errors.Is(err, domain.ErrPartnerNotFound) {
		return nil, domain.ErrPartnerInactive
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "partner lookup failed", "partner_id", cred.PartnerID, "error", err)
		return nil, domain.ErrInternal.WithError(err)
	}
	if !partner.IsActive() {
		return nil, domain.ErrPartnerInactive.WithDetails(map[string]any{
			"partner_status": string(partner.Status),
		})
	}

	if !cred.VerifySecret(req.ClientSecret) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Sign(cred, partner)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to sign token", "credential_id", cred.ID, "error", err)
		return nil, domain.ErrInternal.WithError(err)
	}

	s.touch(cred.ID, partner.ID)

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
		Scope:       strings.Join(cred.Scopes, " "),
	}, nil
}

func (s *Service) touch(credentialID, partnerID uuid.UUID) {
	if s.queue == nil {
		return
	}

	s.queue.Enqueue("credential_last_used", "credential:"+credentialID.String(), func(ctx context.Context) error {
		return s.credentials.TouchLastUsed(ctx, credentialID)
	})
	s.queue.Enqueue("partner_last_active", "partner:"+partnerID.String(), func(ctx context.Context) error {
		return s.partners.TouchLastActive(ctx, partnerID)
	})
}

func (s *Service) record(err error) {
	if s.recorder == nil {
		return
	}
	if err == nil {
		s.recorder.TokenIssued("issued")
		return
	}

	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		s.recorder.TokenIssued(strings.ToLower(appErr.Code))
		return
	}
	s.recorder.TokenIssued("internal_error")
}
