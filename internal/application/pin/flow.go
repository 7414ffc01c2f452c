// Package pin runs the two-step verification PIN sub-flow entered when the
// exchange reports that a phone number is already registered on WhatsApp.
package pin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-wa-onboarding/internal/domain"
)

// State of the PIN sub-flow.
type State string

const (
	StateIdle       State = "idle"
	StateShown      State = "shown"
	StateSubmitting State = "submitting"
	StateResolved   State = "resolved"
)

// Verifier is the backend PIN verification operation.
type Verifier interface {
	VerifyPin(ctx context.Context, pin, phoneNumberID string) error
}

// View is the read-only projection of the flow.
type View struct {
	State          State  `json:"state"`
	PendingPhoneID string `json:"pending_phone_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Flow holds the PIN prompt for one workspace.
type Flow struct {
	verifier   Verifier
	onResolved func(ctx context.Context)

	mu      sync.Mutex
	state   State
	phoneID string
	lastErr string
}

// NewFlow returns an idle flow. onResolved runs after a successful
// verification, outside the flow lock.
func NewFlow(verifier Verifier, onResolved func(ctx context.Context)) *Flow {
	return &Flow{verifier: verifier, onResolved: onResolved, state: StateIdle}
}

// Open shows the prompt for phoneNumberID. Reopening while shown keeps the
// last error; opening during a submission is refused.
func (f *Flow) Open(phoneNumberID string) error {
	if phoneNumberID == "" {
		return fmt.Errorf("open pin prompt: %w", domain.ErrPinNotPending)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return fmt.Errorf("open pin prompt: %w", domain.ErrConflict)
	}
	if f.state != StateShown || f.phoneID != phoneNumberID {
		f.lastErr = ""
	}
	f.state = StateShown
	f.phoneID = phoneNumberID
	return nil
}

// Close hides the prompt. The pending phone id is kept so the prompt can be
// reopened without restarting the signup.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateShown {
		f.state = StateIdle
	}
}

// Submit sanitizes raw and verifies it with the backend. Input that is not
// exactly six digits after sanitizing is rejected without a network call.
func (f *Flow) Submit(ctx context.Context, raw string) error {
	pin := domain.SanitizePin(raw)
	if !domain.ValidPin(pin) {
		return fmt.Errorf("submit pin: %w", domain.ErrInvalidPin)
	}

	f.mu.Lock()
	switch f.state {
	case StateShown:
	case StateSubmitting:
		f.mu.Unlock()
		return fmt.Errorf("submit pin: %w", domain.ErrConflict)
	default:
		f.mu.Unlock()
		return fmt.Errorf("submit pin: %w", domain.ErrPinNotPending)
	}
	f.state = StateSubmitting
	f.lastErr = ""
	phoneID := f.phoneID
	f.mu.Unlock()

	err := f.verifier.VerifyPin(ctx, pin, phoneID)

	f.mu.Lock()
	if err != nil {
		f.state = StateShown
		f.lastErr = err.Error()
		f.mu.Unlock()
		slog.Warn("pin: verification failed", "phone_number_id", phoneID, "err", err)
		return fmt.Errorf("submit pin: %w", err)
	}
	f.state = StateResolved
	f.phoneID = ""
	f.mu.Unlock()

	slog.Info("pin: verified", "phone_number_id", phoneID)
	if f.onResolved != nil {
		f.onResolved(ctx)
	}
	return nil
}

// View returns the current projection.
func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{State: f.state, PendingPhoneID: f.phoneID, Error: f.lastErr}
}
