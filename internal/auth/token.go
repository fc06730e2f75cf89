package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

const (
	// DefaultIssuer is the iss claim of partner access tokens.
	DefaultIssuer = "partnerhub-gateway"
	// TokenTTL is the lifetime of an access token.
	TokenTTL = time.Hour
)

var (
	// ErrInvalidToken is returned when signature, format, algorithm or issuer checks fail
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when token is expired
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidClaims is returned when required claims are missing or malformed
	ErrInvalidClaims = errors.New("invalid claims")
)

// Claims is the payload of a partner access token. The subject is the credential id.
type Claims struct {
	PartnerID      uuid.UUID          `json:"partner_id"`
	PartnerType    domain.PartnerType `json:"partner_type"`
	OrganizationID uuid.UUID          `json:"organization_id"`
	Scopes         []string           `json:"scopes"`
	Environment    string             `json:"environment"`
	jwt.RegisteredClaims
}

// PartnerContext converts verified claims into the request identity.
func (c *Claims) PartnerContext() (*domain.PartnerContext, error) {
	credentialID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, ErrInvalidClaims
	}
	if c.PartnerID == uuid.Nil {
		return nil, ErrInvalidClaims
	}

	return &domain.PartnerContext{
		PartnerID:      c.PartnerID,
		PartnerType:    c.PartnerType,
		OrganizationID: c.OrganizationID,
		Scopes:         c.Scopes,
		CredentialID:   credentialID,
		Environment:    c.Environment,
	}, nil
}

// TokenManager signs and verifies HS256 partner access tokens.
type TokenManager struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenManager(secretKey, issuer string) *TokenManager {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &TokenManager{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		ttl:       TokenTTL,
		now:       time.Now,
	}
}

// TTL returns the configured token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Sign mints a token for the credential and partner.
func (m *TokenManager) Sign(cred *domain.Credential, partner *domain.Partner) (string, error) {
	now := m.now()
	claims := Claims{
		PartnerID:      partner.ID,
		PartnerType:    partner.Type,
		OrganizationID: partner.OrganizationID,
		Scopes:         cred.Scopes,
		Environment:    cred.Environment,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   cred.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify validates signature, algorithm, expiry and issuer.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}
