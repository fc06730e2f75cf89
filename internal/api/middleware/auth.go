package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/audit"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/auth"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

const (
	// LocalPartnerContext is the key to retrieve the *domain.PartnerContext from context
	LocalPartnerContext = "partner_context"
	// LocalPartner is the key to retrieve the *domain.Partner fetched during authentication
	LocalPartner = "partner"
)

// TokenVerifier validates partner access tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// PartnerRepository is used to re-read the partner on every request.
type PartnerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error)
}

// FailureRecorder counts rejected authentications by error code.
type FailureRecorder interface {
	AuthFailed(code string)
}

// Authenticator verifies bearer tokens, loads the partner, and records access.
type Authenticator struct {
	tokens    TokenVerifier
	partners  PartnerRepository
	accessLog audit.Logger
	recorder  FailureRecorder
	logger    *slog.Logger
}

func NewAuthenticator(tokens TokenVerifier, partners PartnerRepository, accessLog audit.Logger, recorder FailureRecorder, logger *slog.Logger) *Authenticator {
	if accessLog == nil {
		accessLog = &audit.NoOpLogger{}
	}
	return &Authenticator{
		tokens:    tokens,
		partners:  partners,
		accessLog: accessLog,
		recorder:  recorder,
		logger:    logger.With("component", "authenticator"),
	}
}

// Handler authenticates the request. When requiredScopes is non-empty the token must hold at least one.
func (a *Authenticator) Handler(requiredScopes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pc, partner, err := a.authenticate(c, requiredScopes)
		if err != nil {
			a.recordFailure(err)
			return err
		}

		c.Locals(LocalPartnerContext, pc)
		c.Locals(LocalPartner, partner)

		start := time.Now()
		err = c.Next()

		entry := domain.AccessLogEntry{
			PartnerID:    pc.PartnerID,
			CredentialID: pc.CredentialID,
			Method:       c.Method(),
			Path:         c.Path(),
			StatusCode:   statusFromError(c, err),
			IPAddress:    c.IP(),
			UserAgent:    c.Get(fiber.HeaderUserAgent),
			RequestID:    requestID(c),
			LatencyMs:    time.Since(start).Milliseconds(),
		}
		if logErr := a.accessLog.Log(c.UserContext(), entry); logErr != nil {
			a.logger.Warn("access log write failed", slog.Any("error", logErr))
		}

		return err
	}
}

func (a *Authenticator) authenticate(c *fiber.Ctx, requiredScopes []string) (*domain.PartnerContext, *domain.Partner, error) {
	token := extractBearerToken(c)
	if token == "" {
		return nil, nil, domain.ErrMissingToken
	}

	claims, err := a.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, nil, domain.ErrTokenExpired
		}
		return nil, nil, domain.ErrInvalidToken
	}

	pc, err := claims.PartnerContext()
	if err != nil {
		return nil, nil, domain.ErrInvalidToken
	}

	partner, err := a.partners.GetByID(c.UserContext(), pc.PartnerID)
	if err != nil {
		if errors.Is(err, domain.ErrPartnerNotFound) {
			return nil, nil, domain.ErrPartnerInactive
		}
		a.logger.Error("partner lookup failed",
			slog.String("partner_id", pc.PartnerID.String()),
			slog.Any("error", err),
		)
		return nil, nil, domain.ErrAuth.WithError(err)
	}
	if !partner.IsActive() {
		return nil, nil, domain.ErrPartnerInactive.WithDetails(map[string]any{
			"partner_status": partner.Status,
		})
	}

	if !partner.AllowsIP(c.IP()) {
		a.logger.Warn("request from address outside allow-list",
			slog.String("partner_id", partner.ID.String()),
			slog.String("ip", c.IP()),
		)
		return nil, nil, domain.ErrIPBlocked
	}

	if !pc.HasAnyScope(requiredScopes...) {
		return nil, nil, domain.ErrInsufficientScope.WithDetails(map[string]any{
			"required_scopes": requiredScopes,
		})
	}

	return pc, partner, nil
}

func (a *Authenticator) recordFailure(err error) {
	if a.recorder == nil {
		return
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		a.recorder.AuthFailed(appErr.Code)
	}
}

// extractBearerToken extracts token from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// GetPartnerContext retrieves the authenticated identity from Fiber context
func GetPartnerContext(c *fiber.Ctx) (*domain.PartnerContext, error) {
	pc, ok := c.Locals(LocalPartnerContext).(*domain.PartnerContext)
	if !ok || pc == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return pc, nil
}

// GetPartner retrieves the partner loaded by the Authenticator
func GetPartner(c *fiber.Ctx) (*domain.Partner, error) {
	p, ok := c.Locals(LocalPartner).(*domain.Partner)
	if !ok || p == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return p, nil
}
