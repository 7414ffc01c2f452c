package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-wa-onboarding/internal/application/onboarding"
	"github.com/go-wa-onboarding/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ViewEnvelope wraps a workspace view. Error is set when the operation was
// refused or failed; Data still reflects the current state.
type ViewEnvelope struct {
	Data    *onboarding.View `json:"data,omitempty"`
	Message string           `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// MessageAck answers a forwarded bridge message.
type MessageAck struct {
	Accepted bool `json:"accepted"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeView answers with the view, or with the error mapped to a status code
// and the view attached.
func writeView(w http.ResponseWriter, v onboarding.View, err error) {
	if err != nil {
		env := ViewEnvelope{Error: err.Error()}
		if v.TenantID != "" {
			env.Data = &v
		}
		writeJSON(w, statusFor(err), env)
		return
	}
	writeJSON(w, http.StatusOK, ViewEnvelope{Data: &v})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidPin):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrExchangeInFlight),
		errors.Is(err, domain.ErrPinNotPending):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		slog.Error("unhandled error", "err", err)
		return http.StatusInternalServerError
	}
}
