package domain

import (
	"time"

	"github.com/go-wa-onboarding/internal/pkg/id"
)

// Hints are the identifiers the signup popup may deliver out-of-band.
// Empty string means absent.
type Hints struct {
	WabaID        string `json:"waba_id,omitempty"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
	BusinessID    string `json:"business_id,omitempty"`
}

// SignupAttempt is the coordinator's working memory for one embedded signup.
// It is never persisted. All changes go through the transition methods below,
// which return a new value instead of mutating the receiver.
type SignupAttempt struct {
	ID                string    `json:"id"`
	AuthorizationCode string    `json:"-"`
	Hints             Hints     `json:"hints"`
	AuthorizedAt      time.Time `json:"authorized_at,omitzero"`
	Exchanging        bool      `json:"exchanging"`
}

// NewSignupAttempt returns an empty attempt with a fresh id.
func NewSignupAttempt() SignupAttempt {
	return SignupAttempt{ID: id.New()}
}

// HasCode reports whether the authorization code has been captured.
func (a SignupAttempt) HasCode() bool { return a.AuthorizationCode != "" }

// Touched reports whether any signal has reached this attempt.
func (a SignupAttempt) Touched() bool {
	return a.HasCode() || a.Hints != (Hints{})
}

// WithAuthorization records code and at if no code was captured yet.
// The second return value is false when the code was ignored.
func (a SignupAttempt) WithAuthorization(code string, at time.Time) (SignupAttempt, bool) {
	if code == "" || a.HasCode() {
		return a, false
	}
	a.AuthorizationCode = code
	a.AuthorizedAt = at
	return a, true
}

// WithHints merges h into the attempt. Fields already set keep their first value.
func (a SignupAttempt) WithHints(h Hints) SignupAttempt {
	if a.Hints.WabaID == "" {
		a.Hints.WabaID = h.WabaID
	}
	if a.Hints.PhoneNumberID == "" {
		a.Hints.PhoneNumberID = h.PhoneNumberID
	}
	if a.Hints.BusinessID == "" {
		a.Hints.BusinessID = h.BusinessID
	}
	return a
}

// Decision is what the coordinator should do with an attempt right now.
type Decision int

const (
	// DecisionWait - no authorization code yet.
	DecisionWait Decision = iota
	// DecisionDefer - code present, neither WABA nor phone hint; give the hint message a grace period.
	DecisionDefer
	// DecisionExchange - enough signals to exchange immediately.
	DecisionExchange
	// DecisionNone - the exchange latch is already closed.
	DecisionNone
)

func (d Decision) String() string {
	switch d {
	case DecisionWait:
		return "wait"
	case DecisionDefer:
		return "defer"
	case DecisionExchange:
		return "exchange"
	case DecisionNone:
		return "none"
	default:
		return "unknown"
	}
}

// Decide evaluates the completion rule for the attempt.
func (a SignupAttempt) Decide() Decision {
	switch {
	case a.Exchanging:
		return DecisionNone
	case !a.HasCode():
		return DecisionWait
	case a.Hints.WabaID == "" && a.Hints.PhoneNumberID == "":
		return DecisionDefer
	default:
		return DecisionExchange
	}
}

// BeginExchange closes the exchange latch. It returns false, and the
// unchanged attempt, when there is no code or the latch is already closed.
func (a SignupAttempt) BeginExchange() (SignupAttempt, bool) {
	if a.Exchanging || !a.HasCode() {
		return a, false
	}
	a.Exchanging = true
	return a, true
}

// ReleaseExchange reopens the latch after a failed exchange, keeping code and hints.
func (a SignupAttempt) ReleaseExchange() SignupAttempt {
	a.Exchanging = false
	return a
}

// ExchangeRequest builds the backend payload from the attempt.
func (a SignupAttempt) ExchangeRequest() ExchangeRequest {
	return ExchangeRequest{
		Code:          a.AuthorizationCode,
		WabaID:        a.Hints.WabaID,
		PhoneNumberID: a.Hints.PhoneNumberID,
		BusinessID:    a.Hints.BusinessID,
	}
}

// SignupEventKind discriminates decoded bridge messages.
type SignupEventKind string

const (
	SignupEventFinish SignupEventKind = "finish"
	SignupEventCancel SignupEventKind = "cancel"
)

// SignupEvent is a bridge message that passed origin and shape checks.
type SignupEvent struct {
	Kind         SignupEventKind
	Event        string
	Hints        Hints
	CurrentStep  string
	ErrorMessage string
}
