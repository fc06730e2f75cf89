package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

const (
	DefaultTimeout  = 30 * time.Second
	maxResponseBody = 1024
)

// Result is the outcome of one HTTP attempt.
type Result struct {
	StatusCode int
	Response   string
	Error      string
	Latency    time.Duration
}

func (r Result) Success() bool {
	return r.Error == "" && r.StatusCode >= 200 && r.StatusCode < 300
}

// Sender POSTs signed payloads to subscriber URLs.
type Sender struct {
	client *http.Client
}

func NewSender(timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sender{
		client: &http.Client{Timeout: timeout},
	}
}

// NewSenderWithClient is used by tests to point at an httptest server client.
func NewSenderWithClient(client *http.Client) *Sender {
	return &Sender{client: client}
}

// Send never returns an error; transport failures are reported in Result.Error.
func (s *Sender) Send(ctx context.Context, sub *domain.Subscription, d *domain.Delivery) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(SignatureHeader, Sign(sub.Secret, d.Payload))
	req.Header.Set(EventHeader, d.EventType)
	req.Header.Set(DeliveryHeader, d.ID.String())

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	if err != nil {
		return Result{Error: err.Error(), Latency: latency}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	res := Result{
		StatusCode: resp.StatusCode,
		Response:   string(body),
		Latency:    latency,
	}
	if readErr != nil {
		res.Error = fmt.Sprintf("read response: %v", readErr)
	}
	return res
}
