package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccessLogEntry records one authenticated request.
type AccessLogEntry struct {
	ID           uuid.UUID `json:"id"`
	PartnerID    uuid.UUID `json:"partner_id"`
	CredentialID uuid.UUID `json:"credential_id"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	StatusCode   int       `json:"status_code"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
