package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/worker"
)

// Logger records partner API access. Implementations must not block the request path.
type Logger interface {
	Log(ctx context.Context, entry domain.AccessLogEntry) error
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "access_log"),
	}
}

func (l *SlogLogger) Log(ctx context.Context, entry domain.AccessLogEntry) error {
	normalize(&entry)

	l.logger.InfoContext(ctx, "partner_access",
		slog.String("entry_id", entry.ID.String()),
		slog.String("partner_id", entry.PartnerID.String()),
		slog.String("credential_id", entry.CredentialID.String()),
		slog.String("method", entry.Method),
		slog.String("path", entry.Path),
		slog.Int("status", entry.StatusCode),
		slog.String("ip", entry.IPAddress),
		slog.Int64("latency_ms", entry.LatencyMs),
		slog.String("request_id", entry.RequestID),
	)

	return nil
}

// Store persists access log entries.
type Store interface {
	Insert(ctx context.Context, entry *domain.AccessLogEntry) error
}

// Enqueuer is satisfied by *worker.TaskQueue.
type Enqueuer interface {
	Enqueue(kind, key string, fn worker.TaskFunc) bool
}

const taskKind = "access_log"

// StoreLogger hands each entry to the background queue, which writes it to the store.
// A full queue drops the entry; the request is never delayed or failed.
type StoreLogger struct {
	store Store
	queue Enqueuer
}

func NewStoreLogger(store Store, queue Enqueuer) *StoreLogger {
	return &StoreLogger{store: store, queue: queue}
}

func (l *StoreLogger) Log(_ context.Context, entry domain.AccessLogEntry) error {
	normalize(&entry)

	l.queue.Enqueue(taskKind, "", func(ctx context.Context) error {
		return l.store.Insert(ctx, &entry)
	})

	return nil
}

// MultiLogger fans an entry out to several loggers. The first error is returned.
type MultiLogger []Logger

func (m MultiLogger) Log(ctx context.Context, entry domain.AccessLogEntry) error {
	normalize(&entry)

	var first error
	for _, l := range m {
		if err := l.Log(ctx, entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NoOpLogger is a logger that does nothing (for testing or when access logging is disabled)
type NoOpLogger struct{}

func (l *NoOpLogger) Log(_ context.Context, _ domain.AccessLogEntry) error {
	return nil
}

func normalize(entry *domain.AccessLogEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
}
