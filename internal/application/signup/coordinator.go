// Package signup reconciles the embedded-signup authorization code with the
// hint identifiers posted by the signup popup and drives the single backend
// exchange for each attempt.
package signup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-wa-onboarding/internal/domain"
)

// Phase is the coordinator state shown to the dashboard.
type Phase string

const (
	// PhaseIdle - no signal received for the current attempt.
	PhaseIdle Phase = "idle"
	// PhaseAwaitingSignals - code or hints received, not enough to exchange yet.
	PhaseAwaitingSignals Phase = "awaiting_signals"
	// PhaseExchanging - exchange call in flight.
	PhaseExchanging Phase = "exchanging"
	// PhasePinRequired - backend asked for the two-step verification PIN.
	PhasePinRequired Phase = "pin_required"
	// PhaseCompleted - last attempt reached a terminal success outcome.
	PhaseCompleted Phase = "completed"
	// PhaseFailed - last exchange failed; Retry or a new code may follow.
	PhaseFailed Phase = "failed"
)

// Exchanger is the backend exchange operation.
type Exchanger interface {
	ExchangeCode(ctx context.Context, req domain.ExchangeRequest) (domain.ExchangeResult, error)
}

// Listener receives the coordinator's side effects. Calls happen outside the
// coordinator lock.
type Listener interface {
	// SignupSettled is called after a terminal non-failure outcome; the owner re-fetches config.
	SignupSettled(ctx context.Context, outcome domain.ExchangeOutcome)
	// PinRequired is called when the backend needs a PIN for phoneNumberID (possibly empty).
	PinRequired(ctx context.Context, phoneNumberID string)
	Notify(level domain.NoticeLevel, message string)
}

// Options tune the coordinator. Zero values fall back to defaults.
type Options struct {
	FallbackDelay   time.Duration
	ExchangeTimeout time.Duration
	Clock           Clock
}

// Status is the read-only projection of the coordinator.
type Status struct {
	Phase           Phase                  `json:"phase"`
	AttemptID       string                 `json:"attempt_id"`
	HasCode         bool                   `json:"has_code"`
	AuthorizedAt    *time.Time             `json:"authorized_at,omitempty"`
	Hints           domain.Hints           `json:"hints"`
	Exchanging      bool                   `json:"exchanging"`
	FallbackArmed   bool                   `json:"fallback_armed"`
	PendingPhoneID  string                 `json:"pending_phone_id,omitempty"`
	LastOutcome     domain.ExchangeOutcome `json:"last_outcome,omitempty"`
	LastError       string                 `json:"last_error,omitempty"`
	CancelledAtStep string                 `json:"cancelled_at_step,omitempty"`
}

// Coordinator owns one SignupAttempt at a time.
type Coordinator struct {
	exchanger       Exchanger
	listener        Listener
	clock           Clock
	fallbackDelay   time.Duration
	exchangeTimeout time.Duration

	mu             sync.Mutex
	attempt        domain.SignupAttempt
	phase          Phase
	inFlight       bool
	pendingPhoneID string
	lastOutcome    domain.ExchangeOutcome
	lastError      string
	cancelledStep  string
	join           *deadlineJoin
	closed         bool
}

func NewCoordinator(exchanger Exchanger, listener Listener, opts Options) *Coordinator {
	if opts.FallbackDelay <= 0 {
		opts.FallbackDelay = 2 * time.Second
	}
	if opts.ExchangeTimeout <= 0 {
		opts.ExchangeTimeout = 30 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	return &Coordinator{
		exchanger:       exchanger,
		listener:        listener,
		clock:           opts.Clock,
		fallbackDelay:   opts.FallbackDelay,
		exchangeTimeout: opts.ExchangeTimeout,
		attempt:         domain.NewSignupAttempt(),
		phase:           PhaseIdle,
	}
}

// Start discards the current attempt and begins a fresh one. It refuses while
// an exchange call is in flight.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return fmt.Errorf("start signup: %w", domain.ErrExchangeInFlight)
	}
	c.resetLocked()
	c.phase = PhaseIdle
	c.pendingPhoneID = ""
	c.lastError = ""
	c.cancelledStep = ""
	return nil
}

// OnAuthorizationReceived records the authorization code. Within an attempt
// the first code wins; a different code after a failed exchange starts a
// fresh attempt because the popup was relaunched.
func (c *Coordinator) OnAuthorizationReceived(ctx context.Context, code string) {
	c.mu.Lock()
	if c.phase == PhaseFailed && !c.inFlight && c.attempt.HasCode() && code != "" && code != c.attempt.AuthorizationCode {
		slog.Info("signup: new authorization after failure, starting fresh attempt", "previous_attempt_id", c.attempt.ID)
		c.resetLocked()
		c.lastError = ""
	}
	next, accepted := c.attempt.WithAuthorization(code, c.clock.Now())
	if !accepted {
		slog.Info("signup: ignored authorization code", "attempt_id", c.attempt.ID, "has_code", c.attempt.HasCode())
	}
	c.attempt = next
	run := c.tryCompleteLocked()
	c.mu.Unlock()
	run(ctx)
}

// OnHintMessage applies a decoded bridge event. Finish events merge hints;
// cancel events surface the popup's error and leave the attempt as it is.
func (c *Coordinator) OnHintMessage(ctx context.Context, ev domain.SignupEvent) {
	switch ev.Kind {
	case domain.SignupEventCancel:
		c.mu.Lock()
		c.cancelledStep = ev.CurrentStep
		c.mu.Unlock()
		if ev.ErrorMessage != "" {
			c.listener.Notify(domain.NoticeError, ev.ErrorMessage)
		}
	case domain.SignupEventFinish:
		c.mu.Lock()
		c.attempt = c.attempt.WithHints(ev.Hints)
		run := c.tryCompleteLocked()
		c.mu.Unlock()
		run(ctx)
	}
}

// Retry re-enters the exchange for a failed attempt with the same code and hints.
func (c *Coordinator) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseFailed {
		c.mu.Unlock()
		return fmt.Errorf("retry signup in phase %s: %w", c.phase, domain.ErrConflict)
	}
	run := c.beginExchangeLocked()
	c.mu.Unlock()
	run(ctx)
	return nil
}

// ResolvePin completes the attempt after the PIN sub-flow succeeded. It also
// applies when the PIN flow was reopened from a persisted snapshot and the
// coordinator never saw the PIN_REQUIRED answer itself. An attempt that is
// collecting signals for a new exchange is left alone.
func (c *Coordinator) ResolvePin(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.inFlight {
		c.mu.Unlock()
		return
	}
	if c.phase == PhasePinRequired || !c.attempt.Touched() {
		c.lastOutcome = domain.ExchangeConnected
		c.completeLocked()
	} else {
		slog.Info("signup: pin resolved, keeping pending attempt", "attempt_id", c.attempt.ID, "phase", c.phase)
	}
	c.mu.Unlock()
	c.listener.SignupSettled(ctx, domain.ExchangeConnected)
}

// Close stops the fallback timer; later signals are ignored.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.join.disarm()
	c.join = nil
}

// Status returns the current projection.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		Phase:           c.phase,
		AttemptID:       c.attempt.ID,
		HasCode:         c.attempt.HasCode(),
		Hints:           c.attempt.Hints,
		Exchanging:      c.attempt.Exchanging,
		FallbackArmed:   c.join.armedFor(c.attempt.ID),
		PendingPhoneID:  c.pendingPhoneID,
		LastOutcome:     c.lastOutcome,
		LastError:       c.lastError,
		CancelledAtStep: c.cancelledStep,
	}
	if !c.attempt.AuthorizedAt.IsZero() {
		at := c.attempt.AuthorizedAt
		st.AuthorizedAt = &at
	}
	return st
}

func noop(context.Context) {}

// tryCompleteLocked applies the completion rule and returns the exchange to
// run once the lock is released.
func (c *Coordinator) tryCompleteLocked() func(context.Context) {
	if c.closed || c.phase == PhaseFailed {
		return noop
	}
	switch c.attempt.Decide() {
	case domain.DecisionWait:
		if c.attempt.Touched() {
			c.phase = PhaseAwaitingSignals
		}
		return noop
	case domain.DecisionDefer:
		c.phase = PhaseAwaitingSignals
		if !c.join.armedFor(c.attempt.ID) {
			c.join.disarm()
			c.join = armJoin(c.clock, c.fallbackDelay, c.attempt.ID, c.fallbackFired)
		}
		return noop
	case domain.DecisionExchange:
		return c.beginExchangeLocked()
	default:
		return noop
	}
}

// fallbackFired runs on the timer goroutine when no hint arrived in time.
func (c *Coordinator) fallbackFired(attemptID string) {
	c.mu.Lock()
	if c.closed || c.attempt.ID != attemptID || c.phase == PhaseFailed {
		c.mu.Unlock()
		return
	}
	c.join = nil
	run := c.beginExchangeLocked()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.exchangeTimeout)
	defer cancel()
	run(ctx)
}

// beginExchangeLocked closes the latch and returns the exchange call. It
// returns noop when the latch is already closed.
func (c *Coordinator) beginExchangeLocked() func(context.Context) {
	next, ok := c.attempt.BeginExchange()
	if !ok {
		return noop
	}
	c.attempt = next
	c.join.disarm()
	c.join = nil
	c.phase = PhaseExchanging
	c.inFlight = true
	c.lastError = ""
	attemptID, req := next.ID, next.ExchangeRequest()
	return func(ctx context.Context) { c.performExchange(ctx, attemptID, req) }
}

func (c *Coordinator) performExchange(ctx context.Context, attemptID string, req domain.ExchangeRequest) {
	slog.Info("signup: exchanging authorization code", "attempt_id", attemptID,
		"has_waba_id", req.WabaID != "", "has_phone_number_id", req.PhoneNumberID != "")
	res, err := c.exchanger.ExchangeCode(ctx, req)

	c.mu.Lock()
	c.inFlight = false
	if c.closed || c.attempt.ID != attemptID {
		c.mu.Unlock()
		slog.Warn("signup: exchange finished for a discarded attempt", "attempt_id", attemptID, "err", err)
		return
	}

	if err != nil {
		c.attempt = c.attempt.ReleaseExchange()
		c.phase = PhaseFailed
		c.lastError = err.Error()
		c.mu.Unlock()
		slog.Warn("signup: exchange failed", "attempt_id", attemptID, "err", err)
		c.listener.Notify(domain.NoticeError, "WhatsApp connection failed: "+err.Error())
		return
	}

	c.lastOutcome = res.Outcome
	if res.Outcome == domain.ExchangePinRequired {
		phoneID := res.PhoneNumberID
		if phoneID == "" {
			phoneID = req.PhoneNumberID
		}
		c.pendingPhoneID = phoneID
		c.phase = PhasePinRequired
		c.mu.Unlock()
		slog.Info("signup: pin required", "attempt_id", attemptID, "phone_number_id", phoneID)
		c.listener.PinRequired(ctx, phoneID)
		return
	}

	c.completeLocked()
	c.mu.Unlock()
	slog.Info("signup: exchange settled", "attempt_id", attemptID, "outcome", res.Outcome)

	switch res.Outcome {
	case domain.ExchangeAlreadyConnected:
		c.listener.Notify(domain.NoticeInfo, "WhatsApp is already connected")
	case domain.ExchangeBillingRequired:
		c.listener.Notify(domain.NoticeWarning, "WhatsApp connected; add a payment method in Meta Business Manager to start sending messages")
	default:
		c.listener.Notify(domain.NoticeSuccess, "WhatsApp connected")
	}
	c.listener.SignupSettled(ctx, res.Outcome)
}

// completeLocked marks the attempt terminal and clears its working memory.
func (c *Coordinator) completeLocked() {
	c.resetLocked()
	c.phase = PhaseCompleted
	c.pendingPhoneID = ""
	c.lastError = ""
}

func (c *Coordinator) resetLocked() {
	c.join.disarm()
	c.join = nil
	c.attempt = domain.NewSignupAttempt()
}
