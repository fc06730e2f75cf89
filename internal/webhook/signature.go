package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	SignatureHeader = "X-Partnerhub-Signature"
	EventHeader     = "X-Partnerhub-Event"
	DeliveryHeader  = "X-Partnerhub-Delivery"
	UserAgent       = "Partnerhub-Webhook/1.0"

	secretPrefix = "whsec_"
)

// Sign returns "sha256=<hex>" over the exact payload bytes.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify is what a subscriber runs against the raw request body.
func Verify(secret string, payload []byte, signature string) bool {
	expectedSignature := Sign(secret, payload)
	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}

// GenerateSecret returns "whsec_" followed by 32 random bytes in hex.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	return secretPrefix + hex.EncodeToString(b), nil
}
