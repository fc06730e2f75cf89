package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(discardLogger())})
}

type errorBody struct {
	Error map[string]any `json:"error"`
}

func decodeError(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

// MockPartnerRepository is a mock implementation of PartnerRepository
type MockPartnerRepository struct {
	mock.Mock
}

func (m *MockPartnerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Partner), args.Error(1)
}

// recordingAccessLog captures access log entries.
type recordingAccessLog struct {
	mu      sync.Mutex
	entries []domain.AccessLogEntry
}

func (l *recordingAccessLog) Log(_ context.Context, e domain.AccessLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *recordingAccessLog) all() []domain.AccessLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.AccessLogEntry(nil), l.entries...)
}

type codeRecorder struct {
	codes []string
}

func (r *codeRecorder) AuthFailed(code string) {
	r.codes = append(r.codes, code)
}

// withPartner attaches identity the way Authenticator does, for tests of later middleware.
func withPartner(p *domain.Partner, scopes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(LocalPartnerContext, &domain.PartnerContext{
			PartnerID:   p.ID,
			PartnerType: p.Type,
			Scopes:      scopes,
		})
		c.Locals(LocalPartner, p)
		return c.Next()
	}
}
