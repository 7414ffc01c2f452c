package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-wa-onboarding/internal/application/onboarding"
	"github.com/go-wa-onboarding/internal/pkg/validate"
	"github.com/go-wa-onboarding/internal/transport/http/middleware"
)

// MessageRequest is a cross-document message forwarded by the dashboard.
type MessageRequest struct {
	Origin string          `json:"origin" validate:"required,origin"`
	Data   json.RawMessage `json:"data" validate:"required"`
}

// WhatsAppHandler handles the embedded signup and onboarding endpoints.
type WhatsAppHandler struct {
	svc onboarding.Service
}

func NewWhatsAppHandler(svc onboarding.Service) *WhatsAppHandler {
	return &WhatsAppHandler{svc: svc}
}

func tenantOr401(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return tenantID, ok
}

func (h *WhatsAppHandler) Status(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOr401(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Status(r.Context(), tenantID)
	writeView(w, v, err)
}

func (h *WhatsAppHandler) Start(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOr401(w, r)
	if !ok {
		return
	}
	v, err := h.svc.StartSignup(r.Context(), tenantID)
	writeView(w, v, err)
}

func (h *WhatsAppHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOr401(w, r)
	if !ok {
		return
	}
	var req onboarding.AuthorizationInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	v, err := h.svc.Authorize(r.Context(), tenantID, req)
	writeView(w, v, err)
}

// Message forwards a bridge message. Bodies that do not decode, messages that
// fail validation and messages dropped by the decoder are all acknowledged
// with 202.
func (h *WhatsAppHandler) Message(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOr401(w, r)
	if !ok {
		return
	}
	var req MessageRequest
	accepted := false
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && validate.Struct(&req) == nil {
		accepted = h.svc.HandleMessage(r.Context(), tenantID, req.Origin, req.Data)
	}
	writeJSON(w, http.StatusAccepted, MessageAck{Accepted: accepted})
}

func (h *WhatsAppHandler) Retry(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOr401(w, r)
	if !ok {
		return
	}
	v, err := h.svc.RetrySignup(r.Context(), tenantID)
	writeView(w, v, err)
}

func (h *WhatsAppHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOr401(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Refresh(r.Context(), tenantID)
	writeView(w, v, err)
}

func (h *WhatsAppHandler) PingWebhook(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOr401(w, r)
	if !ok {
		return
	}
	v, err := h.svc.PingWebhook(r.Context(), tenantID)
	writeView(w, v, err)
}

func (h *WhatsAppHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOr401(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Disconnect(r.Context(), tenantID)
	writeView(w, v, err)
}

// EndSession tears the tenant's workspace down.
func (h *WhatsAppHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOr401(w, r)
	if !ok {
		return
	}
	if err := h.svc.Unmount(tenantID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "session closed"})
}
