// Package backend is the HTTP client for the retailer backend that owns the
// Meta integration: code exchange, PIN verification, config and webhook ping.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-wa-onboarding/internal/domain"
)

const (
	exchangePath   = "/whatsapp/exchange-code"
	verifyPinPath  = "/whatsapp/verify-pin"
	configPath     = "/whatsapp/config"
	pingPath       = "/whatsapp/webhook-ping"
	disconnectPath = "/whatsapp/disconnect"

	tenantHeader   = "X-Tenant-ID"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

// APIError is a non-2xx backend answer that is not an exchange discriminator.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Status < 300:
		return "backend reported failure"
	default:
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
}

func (e *APIError) Unwrap() error { return domain.ErrUpstream }

// Client talks to the backend on behalf of any tenant.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient returns a client for baseURL. A zero timeout uses the default.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// ForTenant binds the client to one tenant.
func (c *Client) ForTenant(tenantID string) *TenantClient {
	return &TenantClient{client: c, tenantID: tenantID}
}

// TenantClient issues backend calls scoped to one tenant.
type TenantClient struct {
	client   *Client
	tenantID string
}

// replyStatus is the envelope's "status" field. The backend sends either a
// boolean or a string such as "success" or "error".
type replyStatus struct {
	set bool
	ok  bool
}

func (s *replyStatus) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*s = replyStatus{}
	case bool:
		*s = replyStatus{set: true, ok: t}
	case string:
		t = strings.ToLower(strings.TrimSpace(t))
		*s = replyStatus{set: true, ok: t == "success" || t == "ok" || t == "true"}
	default:
		*s = replyStatus{set: true}
	}
	return nil
}

type envelope struct {
	Status        replyStatus     `json:"status"`
	Message       string          `json:"message"`
	PhoneNumberID string          `json:"phoneNumberId"`
	Data          json.RawMessage `json:"data"`
	Webhook       string          `json:"webhook"`
	TokenExpiry   *time.Time      `json:"tokenExpiry"`
}

// failed reports whether the reply is a failure, by HTTP status or by an
// explicit failure in the body. A missing body status means success on 2xx.
func (e envelope) failed(httpStatus int) bool {
	return httpStatus >= 300 || (e.Status.set && !e.Status.ok)
}

// ExchangeCode posts the reconciled code and hints. Discriminator messages
// are honoured whatever the HTTP status.
func (t *TenantClient) ExchangeCode(ctx context.Context, req domain.ExchangeRequest) (domain.ExchangeResult, error) {
	status, env, err := t.do(ctx, http.MethodPost, exchangePath, req)
	if err != nil {
		return domain.ExchangeResult{}, fmt.Errorf("exchange code: %w", err)
	}
	if domain.IsDiscriminator(env.Message) || !env.failed(status) {
		return domain.ExchangeResult{
			Outcome:       domain.OutcomeForMessage(env.Message),
			PhoneNumberID: env.PhoneNumberID,
			Message:       env.Message,
		}, nil
	}
	return domain.ExchangeResult{}, &APIError{Status: status, Message: env.Message}
}

// VerifyPin submits the two-step verification PIN for phoneNumberID.
func (t *TenantClient) VerifyPin(ctx context.Context, pin, phoneNumberID string) error {
	body := struct {
		Pin           string `json:"pin"`
		PhoneNumberID string `json:"phoneNumberId"`
	}{pin, phoneNumberID}
	status, env, err := t.do(ctx, http.MethodPost, verifyPinPath, body)
	if err != nil {
		return fmt.Errorf("verify pin: %w", err)
	}
	if env.failed(status) {
		return &APIError{Status: status, Message: env.Message}
	}
	return nil
}

// GetConfig fetches the tenant's onboarding config.
func (t *TenantClient) GetConfig(ctx context.Context) (domain.Snapshot, error) {
	status, env, err := t.do(ctx, http.MethodGet, configPath, nil)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("get config: %w", err)
	}
	if env.failed(status) {
		return domain.Snapshot{}, &APIError{Status: status, Message: env.Message}
	}
	var cfg domain.OnboardingConfig
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &cfg); err != nil {
			return domain.Snapshot{}, fmt.Errorf("get config: decode data: %w", err)
		}
	}
	return domain.Snapshot{
		TenantID:    t.tenantID,
		Config:      cfg,
		Webhook:     env.Webhook,
		TokenExpiry: env.TokenExpiry,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// PingWebhook asks the backend to send a test message to the tenant's webhook.
func (t *TenantClient) PingWebhook(ctx context.Context) error {
	return t.post(ctx, pingPath, "webhook ping")
}

// Disconnect removes the tenant's WhatsApp integration on the backend.
func (t *TenantClient) Disconnect(ctx context.Context) error {
	return t.post(ctx, disconnectPath, "disconnect")
}

func (t *TenantClient) post(ctx context.Context, path, op string) error {
	status, env, err := t.do(ctx, http.MethodPost, path, struct{}{})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if env.failed(status) {
		return &APIError{Status: status, Message: env.Message}
	}
	return nil
}

// do sends the request and decodes the JSON envelope. Transport errors are
// returned; HTTP error statuses are left to the caller.
func (t *TenantClient) do(ctx context.Context, method, path string, body any) (int, envelope, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, envelope{}, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.client.baseURL+path, reader)
	if err != nil {
		return 0, envelope{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.client.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.client.apiKey)
	}
	req.Header.Set(tenantHeader, t.tenantID)

	resp, err := t.client.http.Do(req)
	if err != nil {
		return 0, envelope{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, envelope{}, fmt.Errorf("%w: read body: %v", domain.ErrUpstream, err)
	}
	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 300 {
				return resp.StatusCode, envelope{Message: errorText(raw)}, nil
			}
			return resp.StatusCode, envelope{}, fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
		}
	}
	return resp.StatusCode, env, nil
}

// errorText trims a non-JSON error body to something a notice can show.
func errorText(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBody {
		s = strings.ToValidUTF8(s[:maxErrorBody], "")
	}
	return s
}

