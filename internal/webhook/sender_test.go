package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

func TestSender_Send(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantSuccess bool
		wantLen     int
	}{
		{name: "200", status: http.StatusOK, body: "ok", wantSuccess: true, wantLen: 2},
		{name: "202", status: http.StatusAccepted, body: "", wantSuccess: true, wantLen: 0},
		{name: "301 is a failure", status: http.StatusMovedPermanently, body: "moved", wantSuccess: false, wantLen: 5},
		{name: "404", status: http.StatusNotFound, body: "nope", wantSuccess: false, wantLen: 4},
		{name: "large body truncated", status: http.StatusInternalServerError, body: strings.Repeat("x", 5000), wantSuccess: false, wantLen: 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			sender := NewSenderWithClient(&http.Client{
				Timeout: time.Second,
				CheckRedirect: func(*http.Request, []*http.Request) error {
					return http.ErrUseLastResponse
				},
			})
			sub := &domain.Subscription{URL: srv.URL, Secret: "s"}
			d := &domain.Delivery{ID: uuid.New(), EventType: domain.EventOrderCreated, Payload: []byte(`{}`)}

			res := sender.Send(context.Background(), sub, d)
			assert.Equal(t, tt.status, res.StatusCode)
			assert.Equal(t, tt.wantSuccess, res.Success())
			assert.Len(t, res.Response, tt.wantLen)
			assert.Empty(t, res.Error)
		})
	}
}

func TestSender_Send_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	sender := NewSender(50 * time.Millisecond)
	res := sender.Send(context.Background(), &domain.Subscription{URL: srv.URL}, &domain.Delivery{ID: uuid.New(), Payload: []byte(`{}`)})

	assert.False(t, res.Success())
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, 0, res.StatusCode)
	assert.GreaterOrEqual(t, res.Latency, 50*time.Millisecond)
}

func TestSender_Send_InvalidURL(t *testing.T) {
	res := NewSender(0).Send(context.Background(), &domain.Subscription{URL: "://bad"}, &domain.Delivery{ID: uuid.New()})
	assert.False(t, res.Success())
	assert.Contains(t, res.Error, "create request")
}
