package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-wa-onboarding/internal/application/onboarding"
	"github.com/go-wa-onboarding/internal/pkg/validate"
)

// OpenPinRequest optionally names the phone number; otherwise the pending one is used.
type OpenPinRequest struct {
	PhoneNumberID string `json:"phone_number_id"`
}

type SubmitPinRequest struct {
	Pin string `json:"pin" validate:"required"`
}

// PinHandler handles the two-step verification PIN prompt.
type PinHandler struct {
	svc onboarding.Service
}

func NewPinHandler(svc onboarding.Service) *PinHandler { return &PinHandler{svc: svc} }

func (h *PinHandler) Open(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOr401(w, r)
	if !ok {
		return
	}
	var req OpenPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.svc.OpenPin(r.Context(), tenantID, req.PhoneNumberID)
	writeView(w, v, err)
}

func (h *PinHandler) Close(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOr401(w, r)
	if !ok {
		return
	}
	v, err := h.svc.ClosePin(r.Context(), tenantID)
	writeView(w, v, err)
}

func (h *PinHandler) Submit(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOr401(w, r)
	if !ok {
		return
	}
	var req SubmitPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	v, err := h.svc.SubmitPin(r.Context(), tenantID, req.Pin)
	writeView(w, v, err)
}
