// Package onboarding owns the per-tenant WhatsApp onboarding workspace: the
// config snapshot, the signup coordinator, the status poller, the PIN prompt
// and the recent notices.
package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-wa-onboarding/internal/application/bridge"
	"github.com/go-wa-onboarding/internal/application/pin"
	"github.com/go-wa-onboarding/internal/application/signup"
	"github.com/go-wa-onboarding/internal/domain"
	"github.com/go-wa-onboarding/internal/pkg/signedrequest"
)

// Backend is the tenant-scoped backend exchange service.
type Backend interface {
	signup.Exchanger
	pin.Verifier
	GetConfig(ctx context.Context) (domain.Snapshot, error)
	PingWebhook(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// BackendFactory returns the backend bound to tenantID.
type BackendFactory func(tenantID string) Backend

// SnapshotRepo persists the last fetched snapshot per tenant.
type SnapshotRepo interface {
	Put(ctx context.Context, s *domain.Snapshot) error
	Get(ctx context.Context, tenantID string) (*domain.Snapshot, error)
}

// Notifier fans notices out to other consumers.
type Notifier interface {
	Publish(ctx context.Context, n domain.Notice) error
}

// Options tune every workspace. Zero values fall back to defaults.
type Options struct {
	FallbackDelay       time.Duration
	ExchangeTimeout     time.Duration
	PollInterval        time.Duration
	WebhookPingAttempts int
	WebhookPingInterval time.Duration
	NoticeLimit         int
	Clock               signup.Clock
}

// View is the dashboard's read model of a workspace.
type View struct {
	TenantID         string           `json:"tenant_id"`
	Snapshot         *domain.Snapshot `json:"snapshot,omitempty"`
	LastFetchError   string           `json:"last_fetch_error,omitempty"`
	Signup           signup.Status    `json:"signup"`
	Pin              pin.View         `json:"pin"`
	Polling          bool             `json:"polling"`
	WebhookPingsLeft int              `json:"webhook_pings_left"`
	Notices          []domain.Notice  `json:"notices"`
}

// AuthorizationInput carries the authorization code, either directly or
// inside a login SDK signed request.
type AuthorizationInput struct {
	Code          string `json:"code" validate:"required_without=SignedRequest"`
	SignedRequest string `json:"signed_request" validate:"required_without=Code"`
}

type Service interface {
	Mount(ctx context.Context, tenantID string) (View, error)
	Unmount(tenantID string) error
	StartSignup(ctx context.Context, tenantID string) (View, error)
	Authorize(ctx context.Context, tenantID string, in AuthorizationInput) (View, error)
	HandleMessage(ctx context.Context, tenantID, origin string, data json.RawMessage) bool
	RetrySignup(ctx context.Context, tenantID string) (View, error)
	Refresh(ctx context.Context, tenantID string) (View, error)
	Status(ctx context.Context, tenantID string) (View, error)
	OpenPin(ctx context.Context, tenantID, phoneNumberID string) (View, error)
	ClosePin(ctx context.Context, tenantID string) (View, error)
	SubmitPin(ctx context.Context, tenantID, rawPin string) (View, error)
	PingWebhook(ctx context.Context, tenantID string) (View, error)
	Disconnect(ctx context.Context, tenantID string) (View, error)
	Shutdown()
}

type service struct {
	backends BackendFactory
	decoder  *bridge.Decoder
	repo     SnapshotRepo
	notifier Notifier
	opts     Options

	mu         sync.Mutex
	workspaces map[string]*workspace
	shutdown   bool
}

// NewService wires the workspace service. repo and notifier may be nil.
func NewService(backends BackendFactory, decoder *bridge.Decoder, repo SnapshotRepo, notifier Notifier, opts Options) Service {
	if opts.ExchangeTimeout <= 0 {
		opts.ExchangeTimeout = 30 * time.Second
	}
	if opts.WebhookPingAttempts <= 0 {
		opts.WebhookPingAttempts = 5
	}
	if opts.WebhookPingInterval <= 0 {
		opts.WebhookPingInterval = 3 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = signup.RealClock()
	}
	return &service{
		backends:   backends,
		decoder:    decoder,
		repo:       repo,
		notifier:   notifier,
		opts:       opts,
		workspaces: make(map[string]*workspace),
	}
}

// workspace returns the tenant's workspace, mounting it on first use.
func (s *service) workspace(ctx context.Context, tenantID string) (*workspace, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required: %w", domain.ErrBadRequest)
	}
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil, fmt.Errorf("service is shutting down: %w", domain.ErrConflict)
	}
	w, ok := s.workspaces[tenantID]
	if !ok {
		w = newWorkspace(tenantID, s.backends(tenantID), s.repo, s.notifier, s.opts)
		s.workspaces[tenantID] = w
	}
	s.mu.Unlock()

	w.load(ctx)
	return w, nil
}

// detach keeps user-initiated exchanges alive when the HTTP request that
// carried the signal goes away.
func (s *service) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opts.ExchangeTimeout)
}

func (s *service) Mount(ctx context.Context, tenantID string) (View, error) {
	w, err := s.workspace(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	return w.view(), nil
}

func (s *service) Unmount(tenantID string) error {
	s.mu.Lock()
	w, ok := s.workspaces[tenantID]
	delete(s.workspaces, tenantID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("workspace %s: %w", tenantID, domain.ErrNotFound)
	}
	w.close()
	return nil
}

func (s *service) StartSignup(ctx context.Context, tenantID string) (View, error) {
	w, err := s.workspace(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	if err := w.coordinator.Start(); err != nil {
		return w.view(), err
	}
	return w.view(), nil
}

func (s *service) Authorize(ctx context.Context, tenantID string, in AuthorizationInput) (View, error) {
	code := in.Code
	if code == "" && in.SignedRequest != "" {
		c, err := signedrequest.Code(in.SignedRequest)
		if err != nil {
			return View{}, fmt.Errorf("authorize: %v: %w", err, domain.ErrBadRequest)
		}
		code = c
	}
	if code == "" {
		return View{}, fmt.Errorf("authorize: missing authorization code: %w", domain.ErrBadRequest)
	}
	w, err := s.workspace(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	exCtx, cancel := s.detach(ctx)
	defer cancel()
	w.coordinator.OnAuthorizationReceived(exCtx, code)
	return w.view(), nil
}

// HandleMessage forwards a bridge message to the tenant's coordinator. It
// reports whether the message was accepted; dropped messages are not errors.
func (s *service) HandleMessage(ctx context.Context, tenantID, origin string, data json.RawMessage) bool {
	ev, ok := s.decoder.Decode(origin, data)
	if !ok {
		return false
	}
	w, err := s.workspace(ctx, tenantID)
	if err != nil {
		return false
	}
	exCtx, cancel := s.detach(ctx)
	defer cancel()
	w.coordinator.OnHintMessage(exCtx, ev)
	return true
}

func (s *service) RetrySignup(ctx context.Context, tenantID string) (View, error) {
	w, err := s.workspace(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	exCtx, cancel := s.detach(ctx)
	defer cancel()
	if err := w.coordinator.Retry(exCtx); err != nil {
		return w.view(), err
	}
	return w.view(), nil
}

// Refresh re-fetches the config. A failed fetch is reported in the view,
// never as an error.
func (s *service) Refresh(ctx context.Context, tenantID string) (View, error) {
	w, err := s.workspace(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	_ = w.refresh(ctx)
	return w.view(), nil
}

func (s *service) Status(ctx context.Context, tenantID string) (View, error) {
	w, err := s.workspace(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	return w.view(), nil
}

func (s *service) OpenPin(ctx context.Context, tenantID, phoneNumberID string) (View, error) {
	w, err := s.workspace(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	if err := w.openPin(phoneNumberID); err != nil {
		return w.view(), err
	}
	return w.view(), nil
}

func (s *service) ClosePin(ctx context.Context, tenantID string) (View, error) {
	w, err := s.workspace(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	w.pin.Close()
	return w.view(), nil
}

func (s *service) SubmitPin(ctx context.Context, tenantID, rawPin string) (View, error) {
	w, err := s.workspace(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	exCtx, cancel := s.detach(ctx)
	defer cancel()
	if err := w.pin.Submit(exCtx, rawPin); err != nil {
		return w.view(), err
	}
	return w.view(), nil
}

func (s *service) PingWebhook(ctx context.Context, tenantID string) (View, error) {
	w, err := s.workspace(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	if err := w.pingWebhook(ctx); err != nil {
		return w.view(), err
	}
	return w.view(), nil
}

func (s *service) Disconnect(ctx context.Context, tenantID string) (View, error) {
	w, err := s.workspace(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	exCtx, cancel := s.detach(ctx)
	defer cancel()
	if err := w.disconnect(exCtx); err != nil {
		return w.view(), err
	}
	return w.view(), nil
}

// Shutdown tears down every workspace. Later calls are refused.
func (s *service) Shutdown() {
	s.mu.Lock()
	s.shutdown = true
	all := s.workspaces
	s.workspaces = make(map[string]*workspace)
	s.mu.Unlock()

	for _, w := range all {
		w.close()
	}
}
