package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateClientSecret(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		wantErr bool
	}{
		{"sandbox secret", EnvSandbox, false},
		{"production secret", EnvProduction, false},
		{"invalid environment", "staging", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plain, hash, prefix, err := GenerateClientSecret(tt.env)

			if tt.wantErr {
				if err == nil {
					t.Errorf("GenerateClientSecret() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateClientSecret() unexpected error: %v", err)
			}

			expectedPrefix := "phs_" + tt.env + "_"
			if !strings.HasPrefix(plain, expectedPrefix) {
				t.Errorf("plain = %s, want prefix %s", plain, expectedPrefix)
			}
			if len(plain) != len(expectedPrefix)+clientSecretLength {
				t.Errorf("plain length = %d, want %d", len(plain), len(expectedPrefix)+clientSecretLength)
			}
			if !strings.HasPrefix(plain, prefix) || len(prefix) != len(expectedPrefix)+secretPrefixLength {
				t.Errorf("display prefix = %q", prefix)
			}

			c := &Credential{SecretHash: hash}
			if !c.VerifySecret(plain) {
				t.Errorf("VerifySecret() should accept the generated secret")
			}
			if c.VerifySecret(plain + "x") {
				t.Errorf("VerifySecret() should reject a different secret")
			}
		})
	}
}

func TestCredential_IsExpiredAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{"no expiry", nil, false},
		{"past expiry", &past, true},
		{"future expiry", &future, false},
		{"expiry exactly now", &now, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credential{ExpiresAt: tt.expiresAt}
			if got := c.IsExpiredAt(now); got != tt.want {
				t.Errorf("IsExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredential_Validate(t *testing.T) {
	valid := func() *Credential {
		return &Credential{
			PartnerID:   uuid.New(),
			Name:        "erp integration",
			SecretHash:  "$2a$10$hash",
			Environment: EnvSandbox,
			Scopes:      []string{ScopeRFQRead},
		}
	}

	if err := valid().Validate(PartnerTypeCustomer); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}

	c := valid()
	c.Scopes = []string{ScopeRFQRead, ScopeShipmentsWrite}
	err := c.Validate(PartnerTypeCustomer)
	var scopeErr *ScopeError
	if !errors.As(err, &scopeErr) {
		t.Fatalf("Validate() = %v, want ScopeError", err)
	}
	if len(scopeErr.Scopes) != 1 || scopeErr.Scopes[0] != ScopeShipmentsWrite {
		t.Errorf("ScopeError.Scopes = %v", scopeErr.Scopes)
	}

	c = valid()
	c.Environment = "live"
	if err := c.Validate(PartnerTypeCustomer); err == nil {
		t.Errorf("Validate() should reject unknown environment")
	}

	c = valid()
	c.Scopes = nil
	if err := c.Validate(PartnerTypeCustomer); err == nil {
		t.Errorf("Validate() should require scopes")
	}
}
