package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

var (
	partnerCols      = []string{"id", "organization_id", "name", "type", "status", "tier", "rate_limits", "allowed_ips", "last_active_at", "created_at", "updated_at"}
	credentialCols   = []string{"id", "partner_id", "name", "secret_hash", "secret_prefix", "scopes", "status", "environment", "expires_at", "last_used_at", "revoked_at", "created_at", "updated_at"}
	subscriptionCols = []string{"id", "partner_id", "url", "secret", "events", "description", "status", "consecutive_failures", "last_success_at", "last_failure_at", "disabled_reason", "disabled_at", "created_at", "updated_at"}
	deliveryCols     = []string{"id", "subscription_id", "partner_id", "event_id", "event_type", "payload", "attempts", "max_attempts", "status", "last_status_code", "last_response", "last_error", "last_latency_ms", "next_retry_at", "delivered_at", "created_at", "updated_at"}
)

// PartnerRepository Tests

func TestPartnerRepository_GetByID(t *testing.T) {
	partnerID := uuid.New()
	orgID := uuid.New()
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		want      *domain.Partner
		wantErr   error
	}{
		{
			name: "partner with rate limit overrides",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(partnerCols).AddRow(
					partnerID, orgID, "Acme Freight",
					domain.PartnerTypeCarrier, domain.PartnerStatusActive, domain.TierStrategic,
					[]byte(`{"per_minute":120}`), []string{"10.0.0.0/8"}, &now, now, now,
				)

				mock.ExpectQuery(`SELECT id, organization_id, name, type, status, tier, rate_limits, allowed_ips, last_active_at, created_at, updated_at FROM partners WHERE id = \$1`).
					WithArgs(partnerID).
					WillReturnRows(rows)
			},
			want: &domain.Partner{
				ID:             partnerID,
				OrganizationID: orgID,
				Name:           "Acme Freight",
				Type:           domain.PartnerTypeCarrier,
				Status:         domain.PartnerStatusActive,
				Tier:           domain.TierStrategic,
				RateLimits:     &domain.RateLimits{PerMinute: 120},
				AllowedIPs:     []string{"10.0.0.0/8"},
			},
		},
		{
			name: "partner without overrides",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(partnerCols).AddRow(
					partnerID, orgID, "Globex",
					domain.PartnerTypeCustomer, domain.PartnerStatusSuspended, domain.TierStandard,
					[]byte(nil), []string{}, (*time.Time)(nil), now, now,
				)

				mock.ExpectQuery(`SELECT (.+) FROM partners WHERE id = \$1`).
					WithArgs(partnerID).
					WillReturnRows(rows)
			},
			want: &domain.Partner{
				ID:             partnerID,
				OrganizationID: orgID,
				Name:           "Globex",
				Type:           domain.PartnerTypeCustomer,
				Status:         domain.PartnerStatusSuspended,
				Tier:           domain.TierStandard,
				AllowedIPs:     []string{},
			},
		},
		{
			name: "partner not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT (.+) FROM partners WHERE id = \$1`).
					WithArgs(partnerID).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrPartnerNotFound,
		},
		{
			name: "database error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT (.+) FROM partners WHERE id = \$1`).
					WithArgs(partnerID).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: errors.New("get partner by id: connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewPartnerRepository(mock)
			got, err := repo.GetByID(context.Background(), partnerID)

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrPartnerNotFound) {
					assert.ErrorIs(t, err, domain.ErrPartnerNotFound)
				} else {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want.ID, got.ID)
				assert.Equal(t, tt.want.Name, got.Name)
				assert.Equal(t, tt.want.Type, got.Type)
				assert.Equal(t, tt.want.Status, got.Status)
				assert.Equal(t, tt.want.Tier, got.Tier)
				assert.Equal(t, tt.want.RateLimits, got.RateLimits)
				assert.Equal(t, tt.want.AllowedIPs, got.AllowedIPs)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPartnerRepository_TouchLastActive(t *testing.T) {
	partnerID := uuid.New()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE partners SET last_active_at = NOW\(\) WHERE id = \$1`).
		WithArgs(partnerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE partners SET last_active_at = NOW\(\) WHERE id = \$1`).
		WithArgs(partnerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPartnerRepository(mock)
	assert.NoError(t, repo.TouchLastActive(context.Background(), partnerID))
	assert.ErrorIs(t, repo.TouchLastActive(context.Background(), partnerID), domain.ErrPartnerNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// CredentialRepository Tests

func TestCredentialRepository_GetByID(t *testing.T) {
	credID := uuid.New()
	partnerID := uuid.New()
	now := time.Now()
	expires := now.Add(24 * time.Hour)

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "successful retrieval",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(credentialCols).AddRow(
					credID, partnerID, "erp", "$2a$10$hash", "phs_sandbox_abcd1234",
					[]string{domain.ScopeRFQRead}, domain.CredentialStatusActive, domain.EnvSandbox,
					&expires, (*time.Time)(nil), (*time.Time)(nil), now, now,
				)
				mock.ExpectQuery(`SELECT (.+) FROM partner_credentials WHERE id = \$1`).
					WithArgs(credID).
					WillReturnRows(rows)
			},
		},
		{
			name: "credential not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT (.+) FROM partner_credentials WHERE id = \$1`).
					WithArgs(credID).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrCredentialNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			got, err := NewCredentialRepository(mock).GetByID(context.Background(), credID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, credID, got.ID)
				assert.Equal(t, partnerID, got.PartnerID)
				assert.Equal(t, []string{domain.ScopeRFQRead}, got.Scopes)
				require.NotNil(t, got.ExpiresAt)
				assert.True(t, got.ExpiresAt.Equal(expires))
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCredentialRepository_Create(t *testing.T) {
	now := time.Now()
	cred := &domain.Credential{
		ID:           uuid.New(),
		PartnerID:    uuid.New(),
		Name:         "erp",
		SecretHash:   "$2a$10$hash",
		SecretPrefix: "phs_production_abcd1234",
		Scopes:       []string{domain.ScopeOrdersRead},
		Environment:  domain.EnvProduction,
	}

	t.Run("defaults status to ACTIVE", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`INSERT INTO partner_credentials`).
			WithArgs(cred.ID, cred.PartnerID, "erp", "$2a$10$hash", "phs_production_abcd1234",
				[]string{domain.ScopeOrdersRead}, domain.CredentialStatusActive, domain.EnvProduction, (*time.Time)(nil)).
			WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		c := *cred
		require.NoError(t, NewCredentialRepository(mock).Create(context.Background(), &c))
		assert.Equal(t, domain.CredentialStatusActive, c.Status)
		assert.Equal(t, now, c.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`INSERT INTO partner_credentials`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		c := *cred
		err = NewCredentialRepository(mock).Create(context.Background(), &c)
		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "CREDENTIAL_ALREADY_EXISTS", appErr.Code)
	})
}

func TestCredentialRepository_MarkExpired(t *testing.T) {
	credID := uuid.New()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE partner_credentials SET status = 'EXPIRED', updated_at = NOW\(\) WHERE id = \$1 AND status = 'ACTIVE'`).
		WithArgs(credID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, NewCredentialRepository(mock).MarkExpired(context.Background(), credID), "already expired is not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository_Revoke(t *testing.T) {
	credID := uuid.New()

	tests := []struct {
		name     string
		affected int64
		dbErr    error
		wantErr  string
	}{
		{name: "revoked", affected: 1},
		{name: "not found", affected: 0, wantErr: domain.ErrCredentialNotFound.Message},
		{name: "database error", dbErr: errors.New("timeout"), wantErr: "revoke credential: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			exp := mock.ExpectExec(`UPDATE partner_credentials SET status = 'REVOKED'`).WithArgs(credID)
			if tt.dbErr != nil {
				exp.WillReturnError(tt.dbErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))
			}

			err = NewCredentialRepository(mock).Revoke(context.Background(), credID)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// SubscriptionRepository Tests

func subscriptionRow(id, partnerID uuid.UUID, status domain.SubscriptionStatus, now time.Time) []any {
	return []any{
		id, partnerID, "https://partner.example.com/hooks", "whsec_abc", []string{domain.EventOrderCreated},
		"", status, 0, (*time.Time)(nil), (*time.Time)(nil), "", (*time.Time)(nil), now, now,
	}
}

func TestSubscriptionRepository_Create(t *testing.T) {
	now := time.Now()
	partnerID := uuid.New()
	newSub := func() *domain.Subscription {
		return &domain.Subscription{
			ID:        uuid.New(),
			PartnerID: partnerID,
			URL:       "https://example.com/hook",
			Secret:    "whsec_x",
			Events:    []string{domain.EventOrderCreated},
		}
	}

	t.Run("inserts under the cap", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		sub := newSub()
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM partners WHERE id = \$1 FOR UPDATE`).
			WithArgs(partnerID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(partnerID))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM webhook_subscriptions`).
			WithArgs(partnerID).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(9))
		mock.ExpectQuery(`INSERT INTO webhook_subscriptions`).
			WithArgs(sub.ID, partnerID, sub.URL, sub.Secret, sub.Events, sub.Description, domain.SubscriptionStatusActive).
			WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectCommit()

		require.NoError(t, NewSubscriptionRepository(mock).Create(context.Background(), sub, 10))
		assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
		assert.Equal(t, now, sub.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("limit reached rolls back without inserting", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM partners WHERE id = \$1 FOR UPDATE`).
			WithArgs(partnerID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(partnerID))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM webhook_subscriptions`).
			WithArgs(partnerID).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(10))
		mock.ExpectRollback()

		err = NewSubscriptionRepository(mock).Create(context.Background(), newSub(), 10)
		assert.ErrorIs(t, err, domain.ErrLimitReached)
		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 10, appErr.Details["limit"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown partner", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM partners WHERE id = \$1 FOR UPDATE`).
			WithArgs(partnerID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		err = NewSubscriptionRepository(mock).Create(context.Background(), newSub(), 10)
		assert.ErrorIs(t, err, domain.ErrPartnerNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSubscriptionRepository_ListActiveByEvent(t *testing.T) {
	partnerID := uuid.New()
	now := time.Now()

	tests := []struct {
		name       string
		partnerIDs []uuid.UUID
		wantArg    []uuid.UUID
	}{
		{name: "all partners", partnerIDs: nil, wantArg: nil},
		{name: "empty list means all partners", partnerIDs: []uuid.UUID{}, wantArg: nil},
		{name: "restricted to partners", partnerIDs: []uuid.UUID{partnerID}, wantArg: []uuid.UUID{partnerID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			rows := pgxmock.NewRows(subscriptionCols).
				AddRow(subscriptionRow(uuid.New(), partnerID, domain.SubscriptionStatusActive, now)...).
				AddRow(subscriptionRow(uuid.New(), partnerID, domain.SubscriptionStatusActive, now)...)

			mock.ExpectQuery(`SELECT (.+) FROM webhook_subscriptions WHERE status = 'ACTIVE' AND \$1 = ANY\(events\)`).
				WithArgs(domain.EventOrderCreated, tt.wantArg).
				WillReturnRows(rows)

			subs, err := NewSubscriptionRepository(mock).ListActiveByEvent(context.Background(), domain.EventOrderCreated, tt.partnerIDs)
			require.NoError(t, err)
			assert.Len(t, subs, 2)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSubscriptionRepository_GetForPartner(t *testing.T) {
	subID := uuid.New()
	otherPartner := uuid.New()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT (.+) FROM webhook_subscriptions WHERE id = \$1 AND partner_id = \$2`).
		WithArgs(subID, otherPartner).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewSubscriptionRepository(mock).GetForPartner(context.Background(), otherPartner, subID)
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepository_RecordFailure(t *testing.T) {
	subID := uuid.New()

	tests := []struct {
		name         string
		newStatus    domain.SubscriptionStatus
		prevStatus   domain.SubscriptionStatus
		failures     int
		wantDisabled bool
	}{
		{
			name:       "below threshold",
			newStatus:  domain.SubscriptionStatusActive,
			prevStatus: domain.SubscriptionStatusActive,
			failures:   2,
		},
		{
			name:         "reaches threshold",
			newStatus:    domain.SubscriptionStatusDisabled,
			prevStatus:   domain.SubscriptionStatusActive,
			failures:     5,
			wantDisabled: true,
		},
		{
			name:       "already disabled",
			newStatus:  domain.SubscriptionStatusDisabled,
			prevStatus: domain.SubscriptionStatusDisabled,
			failures:   6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery(`WITH prev AS`).
				WithArgs(subID, 5, "too many failures").
				WillReturnRows(pgxmock.NewRows([]string{"consecutive_failures", "status", "prev_status"}).
					AddRow(tt.failures, tt.newStatus, tt.prevStatus))

			failures, disabled, err := NewSubscriptionRepository(mock).RecordFailure(context.Background(), subID, 5, "too many failures")
			require.NoError(t, err)
			assert.Equal(t, tt.failures, failures)
			assert.Equal(t, tt.wantDisabled, disabled)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSubscriptionRepository_Delete(t *testing.T) {
	subID := uuid.New()
	partnerID := uuid.New()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM webhook_subscriptions WHERE id = \$1 AND partner_id = \$2`).
		WithArgs(subID, partnerID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = NewSubscriptionRepository(mock).Delete(context.Background(), partnerID, subID)
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// DeliveryRepository Tests

func TestDeliveryRepository_ListDueRetries(t *testing.T) {
	now := time.Now()
	next := now.Add(-time.Minute)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(deliveryCols).AddRow(
		uuid.New(), uuid.New(), uuid.New(), uuid.New(), domain.EventOrderCreated, []byte(`{"id":"x"}`),
		2, 5, domain.DeliveryStatusRetrying, 503, "unavailable", "", int64(120), &next, (*time.Time)(nil), now, now,
	)

	mock.ExpectQuery(`FROM webhook_deliveries d INNER JOIN webhook_subscriptions s ON s.id = d.subscription_id WHERE d.status = 'RETRYING' AND d.next_retry_at <= \$1 AND s.status = 'ACTIVE'`).
		WithArgs(now, 100).
		WillReturnRows(rows)

	deliveries, err := NewDeliveryRepository(mock).ListDueRetries(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, 2, deliveries[0].Attempts)
	assert.Equal(t, domain.DeliveryStatusRetrying, deliveries[0].Status)
	assert.Equal(t, 503, deliveries[0].LastStatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepository_Update(t *testing.T) {
	now := time.Now()
	d := &domain.Delivery{
		ID:             uuid.New(),
		Attempts:       1,
		Status:         domain.DeliveryStatusDelivered,
		LastStatusCode: 200,
		LastResponse:   "ok",
		LastLatencyMs:  42,
		DeliveredAt:    &now,
	}

	t.Run("persists attempt outcome", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`UPDATE webhook_deliveries`).
			WithArgs(d.ID, 1, domain.DeliveryStatusDelivered, 200, "ok", "", int64(42), (*time.Time)(nil), &now).
			WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))

		require.NoError(t, NewDeliveryRepository(mock).Update(context.Background(), d))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing delivery", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`UPDATE webhook_deliveries`).WillReturnError(pgx.ErrNoRows)

		assert.ErrorIs(t, NewDeliveryRepository(mock).Update(context.Background(), d), domain.ErrDeliveryNotFound)
	})
}

// AccessLogRepository Tests

func TestAccessLogRepository_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	entry := &domain.AccessLogEntry{
		PartnerID:    uuid.New(),
		CredentialID: uuid.New(),
		Method:       "GET",
		Path:         "/v1/me",
		StatusCode:   200,
		IPAddress:    "203.0.113.7",
		LatencyMs:    3,
		CreatedAt:    time.Now(),
	}

	mock.ExpectExec(`INSERT INTO partner_access_logs`).
		WithArgs(pgxmock.AnyArg(), entry.PartnerID, entry.CredentialID, "GET", "/v1/me", 200,
			"203.0.113.7", "", "", int64(3), entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewAccessLogRepository(mock).Insert(context.Background(), entry))
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "pg error code 23505",
			err:  fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}),
			want: true,
		},
		{
			name: "pg error with other code",
			err:  &pgconn.PgError{Code: "23503"},
			want: false,
		},
		{
			name: "error contains duplicate key",
			err:  fmt.Errorf("duplicate key value"),
			want: true,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "different error",
			err:  fmt.Errorf("connection timeout"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
