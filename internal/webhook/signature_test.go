package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	secret := "my-secret-key"
	payload := []byte(`{"type":"order.created","data":"hello"}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	signature := Sign(secret, payload)
	assert.Equal(t, expected, signature)
	assert.Len(t, signature, len("sha256=")+64)
	assert.True(t, Verify(secret, payload, signature), "signature should be valid")
}

func TestVerify(t *testing.T) {
	secret := "test-secret"
	payload := []byte(`{"test":"data"}`)
	validSignature := Sign(secret, payload)

	tests := []struct {
		name      string
		secret    string
		payload   []byte
		signature string
		expected  bool
	}{
		{
			name:      "valid signature",
			secret:    secret,
			payload:   payload,
			signature: validSignature,
			expected:  true,
		},
		{
			name:      "invalid signature",
			secret:    secret,
			payload:   payload,
			signature: "sha256=invalid",
			expected:  false,
		},
		{
			name:      "missing prefix",
			secret:    secret,
			payload:   payload,
			signature: strings.TrimPrefix(validSignature, "sha256="),
			expected:  false,
		},
		{
			name:      "wrong secret",
			secret:    "wrong-secret",
			payload:   payload,
			signature: validSignature,
			expected:  false,
		},
		{
			name:      "modified payload",
			secret:    secret,
			payload:   []byte(`{"test":"modified"}`),
			signature: validSignature,
			expected:  false,
		},
		{
			name:      "whitespace changes payload",
			secret:    secret,
			payload:   []byte(`{"test": "data"}`),
			signature: validSignature,
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Verify(tt.secret, tt.payload, tt.signature)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "whsec_"))
	assert.Len(t, a, 70)
	_, err = hex.DecodeString(strings.TrimPrefix(a, "whsec_"))
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}
