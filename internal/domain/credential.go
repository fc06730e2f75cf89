package domain

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type CredentialStatus string

const (
	CredentialStatusActive  CredentialStatus = "ACTIVE"
	CredentialStatusExpired CredentialStatus = "EXPIRED"
	CredentialStatusRevoked CredentialStatus = "REVOKED"
)

// Environment constants
const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"
)

const (
	clientSecretLength = 40
	secretPrefixLength = 8
	base62Chars        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

var validEnvironments = map[string]bool{
	EnvSandbox:    true,
	EnvProduction: true,
}

// Credential is a client id/secret pair bound to one partner. The ID doubles as client_id.
type Credential struct {
	ID           uuid.UUID        `json:"id"`
	PartnerID    uuid.UUID        `json:"partner_id"`
	Name         string           `json:"name"`
	SecretHash   string           `json:"-"`
	SecretPrefix string           `json:"secret_prefix"`
	Scopes       []string         `json:"scopes"`
	Status       CredentialStatus `json:"status"`
	Environment  string           `json:"environment"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	LastUsedAt   *time.Time       `json:"last_used_at,omitempty"`
	RevokedAt    *time.Time       `json:"revoked_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (c *Credential) IsActive() bool {
	return c.Status == CredentialStatusActive
}

// IsExpiredAt reports whether an expiry is set and has passed at now.
func (c *Credential) IsExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// VerifySecret compares secret against the stored bcrypt hash in constant time.
func (c *Credential) VerifySecret(secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)) == nil
}

// Validate checks the credential against the partner type it is issued for.
func (c *Credential) Validate(partnerType PartnerType) error {
	if c.PartnerID == uuid.Nil {
		return errors.New("partner_id cannot be empty")
	}

	if c.Name == "" {
		return errors.New("name cannot be empty")
	}

	if c.SecretHash == "" {
		return errors.New("secret_hash cannot be empty")
	}

	if !validEnvironments[c.Environment] {
		return errors.New("invalid environment: must be 'sandbox' or 'production'")
	}

	if len(c.Scopes) == 0 {
		return errors.New("at least one scope is required")
	}

	if bad := DisallowedScopes(partnerType, c.Scopes); len(bad) > 0 {
		return &ScopeError{PartnerType: partnerType, Scopes: bad}
	}

	return nil
}

// ScopeError reports scopes that are not grantable to a partner type.
type ScopeError struct {
	PartnerType PartnerType
	Scopes      []string
}

func (e *ScopeError) Error() string {
	return "scopes not allowed for partner type " + string(e.PartnerType)
}

// GenerateClientSecret returns a new plain secret, its bcrypt hash and a display prefix.
// The plain secret is shown once and never stored.
func GenerateClientSecret(env string) (string, string, string, error) {
	if !validEnvironments[env] {
		return "", "", "", errors.New("invalid environment: must be 'sandbox' or 'production'")
	}

	randomPart, err := generateSecureRandomString(clientSecretLength)
	if err != nil {
		return "", "", "", err
	}

	// Format: phs_sandbox_<random> or phs_production_<random>
	prefix := "phs_" + env + "_"
	plain := prefix + randomPart

	hash, err := HashSecret(plain)
	if err != nil {
		return "", "", "", err
	}

	return plain, hash, plain[:len(prefix)+secretPrefixLength], nil
}

// HashSecret hashes a client secret with bcrypt.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func generateSecureRandomString(length int) (string, error) {
	result := make([]byte, length)
	base62Len := big.NewInt(int64(len(base62Chars)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, base62Len)
		if err != nil {
			return "", err
		}
		result[i] = base62Chars[num.Int64()]
	}

	return string(result), nil
}
