// Package bridge filters and decodes cross-document messages emitted by the
// embedded signup popup before they reach the signup coordinator.
package bridge

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/go-wa-onboarding/internal/domain"
)

// Wire constants of the embedded signup message.
const (
	TypeEmbeddedSignup = "WA_EMBEDDED_SIGNUP"

	EventFinish                   = "FINISH"
	EventFinishOnlyWaba           = "FINISH_ONLY_WABA"
	EventFinishBusinessAppOnboard = "FINISH_WHATSAPP_BUSINESS_APP_ONBOARDING"
	EventCancel                   = "CANCEL"
)

type wireMessage struct {
	Type  string   `json:"type"`
	Event string   `json:"event"`
	Data  wireData `json:"data"`
}

type wireData struct {
	WabaID        string `json:"waba_id"`
	PhoneNumberID string `json:"phone_number_id"`
	BusinessID    string `json:"business_id"`
	CurrentStep   string `json:"current_step"`
	ErrorMessage  string `json:"error_message"`
}

// Decoder turns raw message events into signup events.
type Decoder struct {
	allow Allowlist
}

func NewDecoder(allow Allowlist) *Decoder {
	return &Decoder{allow: allow}
}

// Decode returns the signup event carried by a message, or false when the
// message must be ignored. Ignoring is never an error: other scripts on the
// dashboard page post unrelated messages through the same channel.
func (d *Decoder) Decode(origin string, raw json.RawMessage) (domain.SignupEvent, bool) {
	if !d.allow.Allows(origin) {
		slog.Debug("bridge: dropped message from untrusted origin", "origin", origin)
		return domain.SignupEvent{}, false
	}
	msg, ok := parse(raw)
	if !ok {
		slog.Debug("bridge: dropped undecodable message", "origin", origin)
		return domain.SignupEvent{}, false
	}
	if msg.Type != TypeEmbeddedSignup {
		return domain.SignupEvent{}, false
	}

	ev := domain.SignupEvent{
		Event:        msg.Event,
		CurrentStep:  msg.Data.CurrentStep,
		ErrorMessage: msg.Data.ErrorMessage,
	}
	switch msg.Event {
	case EventFinish, EventFinishOnlyWaba, EventFinishBusinessAppOnboard:
		ev.Kind = domain.SignupEventFinish
		ev.Hints = domain.Hints{
			WabaID:        strings.TrimSpace(msg.Data.WabaID),
			PhoneNumberID: strings.TrimSpace(msg.Data.PhoneNumberID),
			BusinessID:    strings.TrimSpace(msg.Data.BusinessID),
		}
	case EventCancel:
		ev.Kind = domain.SignupEventCancel
	default:
		slog.Debug("bridge: ignored unknown signup event", "event", msg.Event)
		return domain.SignupEvent{}, false
	}
	return ev, true
}

// parse accepts either a JSON object or a JSON string holding an object.
func parse(raw json.RawMessage) (wireMessage, bool) {
	var msg wireMessage
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return msg, false
	}
	switch raw[0] {
	case '{':
		if err := json.Unmarshal(raw, &msg); err != nil {
			return msg, false
		}
		return msg, true
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return msg, false
		}
		s = strings.TrimSpace(s)
		if !strings.HasPrefix(s, "{") {
			return msg, false
		}
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			return msg, false
		}
		return msg, true
	default:
		return msg, false
	}
}
