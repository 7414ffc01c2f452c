package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-wa-onboarding/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *TenantClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "secret", time.Second).ForTenant("tenant-1")
}

func TestExchangeCode_SendsBodyAndHeaders(t *testing.T) {
	tc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, exchangePath, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "tenant-1", r.Header.Get(tenantHeader))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"code":"codeABC","wabaId":"111","phoneNumberId":"222"}`, string(b))
		_, _ = w.Write([]byte(`{"status":"success"}`))
	})

	res, err := tc.ExchangeCode(context.Background(), domain.ExchangeRequest{Code: "codeABC", WabaID: "111", PhoneNumberID: "222"})
	require.NoError(t, err)
	assert.Equal(t, domain.ExchangeConnected, res.Outcome)
}

func TestExchangeCode_Discriminators(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		outcome domain.ExchangeOutcome
		phoneID string
	}{
		{"already connected", http.StatusOK, `{"status":"success","message":"ALREADY_CONNECTED"}`, domain.ExchangeAlreadyConnected, ""},
		{"pin required on 400", http.StatusBadRequest, `{"status":"error","message":"PIN_REQUIRED","phoneNumberId":"555"}`, domain.ExchangePinRequired, "555"},
		{"billing required on 402", http.StatusPaymentRequired, `{"status":"error","message":"BILLING_REQUIRED"}`, domain.ExchangeBillingRequired, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			res, err := c.ExchangeCode(context.Background(), domain.ExchangeRequest{Code: "c"})
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, res.Outcome)
			assert.Equal(t, tc.phoneID, res.PhoneNumberID)
		})
	}
}

func TestExchangeCode_FailureCarriesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"Code expired"}`))
	})

	_, err := c.ExchangeCode(context.Background(), domain.ExchangeRequest{Code: "c"})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Code expired", err.Error())
	assert.True(t, errors.Is(err, domain.ErrUpstream))
}

func TestExchangeCode_FailureInSuccessfulReply(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"boolean status", `{"status":false,"message":"Invalid authorization code"}`},
		{"string status", `{"status":"error","message":"Invalid authorization code"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})

			res, err := c.ExchangeCode(context.Background(), domain.ExchangeRequest{Code: "c"})
			require.Error(t, err)
			assert.Empty(t, res.Outcome)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusOK, apiErr.Status)
			assert.Equal(t, "Invalid authorization code", err.Error())
			assert.True(t, errors.Is(err, domain.ErrUpstream))
		})
	}
}

func TestExchangeCode_BooleanSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"message":"PIN_REQUIRED","phoneNumberId":"555"}`))
	})

	res, err := c.ExchangeCode(context.Background(), domain.ExchangeRequest{Code: "c"})
	require.NoError(t, err)
	assert.Equal(t, domain.ExchangePinRequired, res.Outcome)
}

func TestVerifyPinAndPost_FailureInSuccessfulReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":false}`))
	})

	err := c.VerifyPin(context.Background(), "123456", "555")
	require.Error(t, err)
	assert.Equal(t, "backend reported failure", err.Error())
	assert.Error(t, c.PingWebhook(context.Background()))
	assert.Error(t, c.Disconnect(context.Background()))
	_, err = c.GetConfig(context.Background())
	assert.Error(t, err)
}

func TestErrorText_KeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("a", maxErrorBody-1) + "é tail"
	got := errorText([]byte(body))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", maxErrorBody-1), got)
}

func TestExchangeCode_NonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.ExchangeCode(context.Background(), domain.ExchangeRequest{Code: "c"})
	require.Error(t, err)
	assert.Equal(t, "bad gateway", err.Error())
}

func TestTransportError_IsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL, "", time.Second).ForTenant("t")

	err := c.PingWebhook(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
}

func TestVerifyPin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, verifyPinPath, r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["pin"] != "123456" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"error","message":"Incorrect PIN"}`))
			return
		}
		assert.Equal(t, "555", body["phoneNumberId"])
		_, _ = w.Write([]byte(`{"status":"success"}`))
	})

	require.NoError(t, c.VerifyPin(context.Background(), "123456", "555"))
	err := c.VerifyPin(context.Background(), "000000", "555")
	require.Error(t, err)
	assert.Equal(t, "Incorrect PIN", err.Error())
}

func TestGetConfig(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, configPath, r.URL.Path)
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {
				"whatsappStatus": "connected",
				"whatsappOnboardingStatus": "pin_required",
				"isUsingOwnWhatsapp": true,
				"isWebhookVerified": false,
				"whatsappWabaId": "111",
				"whatsappPhoneNumberId": "222"
			},
			"webhook": "https://hooks.example.com/wa",
			"tokenExpiry": "2026-12-01T00:00:00Z"
		}`))
	})

	snap, err := c.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", snap.TenantID)
	assert.Equal(t, domain.OnboardingConfig{
		WhatsAppStatus:           domain.WhatsAppConnected,
		WhatsAppOnboardingStatus: domain.OnboardingPinRequired,
		IsUsingOwnWhatsApp:       true,
		WhatsAppWabaID:           "111",
		WhatsAppPhoneNumberID:    "222",
	}, snap.Config)
	assert.Equal(t, "https://hooks.example.com/wa", snap.Webhook)
	require.NotNil(t, snap.TokenExpiry)
	assert.Equal(t, 2026, snap.TokenExpiry.Year())
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestGetConfig_ErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.GetConfig(context.Background())
	require.Error(t, err)
	assert.Equal(t, "backend returned status 500", err.Error())
}

func TestPingAndDisconnect(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, c.PingWebhook(context.Background()))
	require.NoError(t, c.Disconnect(context.Background()))
	assert.Equal(t, []string{pingPath, disconnectPath}, paths)
}
