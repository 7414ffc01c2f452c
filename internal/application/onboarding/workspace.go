package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-wa-onboarding/internal/application/pin"
	"github.com/go-wa-onboarding/internal/application/signup"
	"github.com/go-wa-onboarding/internal/domain"
	"github.com/go-wa-onboarding/internal/pkg/id"
)

const publishTimeout = 5 * time.Second

// workspace is everything the dashboard page owns for one tenant.
type workspace struct {
	tenantID string
	backend  Backend
	repo     SnapshotRepo
	notifier Notifier
	clock    signup.Clock
	opts     Options

	store       *Store
	coordinator *signup.Coordinator
	poller      *Poller
	pin         *pin.Flow
	notices     *noticeRing

	loadOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	closed   atomic.Bool

	mu         sync.Mutex
	fetchErr   string
	pingCancel context.CancelFunc
	pingLeft   int
}

func newWorkspace(tenantID string, backend Backend, repo SnapshotRepo, notifier Notifier, opts Options) *workspace {
	ctx, cancel := context.WithCancel(context.Background())
	w := &workspace{
		tenantID: tenantID,
		backend:  backend,
		repo:     repo,
		notifier: notifier,
		clock:    opts.Clock,
		opts:     opts,
		store:    &Store{},
		notices:  newNoticeRing(opts.NoticeLimit),
		ctx:      ctx,
		cancel:   cancel,
	}
	w.coordinator = signup.NewCoordinator(backend, w, signup.Options{
		FallbackDelay:   opts.FallbackDelay,
		ExchangeTimeout: opts.ExchangeTimeout,
		Clock:           opts.Clock,
	})
	w.poller = NewPoller(tenantID, opts.PollInterval, func(ctx context.Context) { _ = w.refresh(ctx) })
	w.pin = pin.NewFlow(backend, w.pinResolved)
	return w
}

// load fetches the initial snapshot once. When the backend is unreachable the
// last persisted snapshot is used instead.
func (w *workspace) load(ctx context.Context) {
	w.loadOnce.Do(func() {
		err := w.refresh(ctx)
		if err == nil || w.repo == nil {
			return
		}
		snap, rerr := w.repo.Get(ctx, w.tenantID)
		if rerr != nil {
			if !errors.Is(rerr, domain.ErrNotFound) {
				slog.Warn("onboarding: could not load persisted snapshot", "tenant_id", w.tenantID, "err", rerr)
			}
			return
		}
		slog.Info("onboarding: using persisted snapshot", "tenant_id", w.tenantID, "fetched_at", snap.FetchedAt)
		w.store.Set(*snap)
		w.poller.Sync(snap.Config)
	})
}

// refresh fetches the config and replaces the snapshot. A failed fetch keeps
// the last-known snapshot.
func (w *workspace) refresh(ctx context.Context) error {
	snap, err := w.backend.GetConfig(ctx)
	if err != nil {
		w.setFetchErr(err.Error())
		slog.Warn("onboarding: config fetch failed", "tenant_id", w.tenantID, "err", err)
		return err
	}
	w.setFetchErr("")
	w.apply(ctx, snap)
	return nil
}

func (w *workspace) apply(ctx context.Context, snap domain.Snapshot) {
	if w.closed.Load() {
		return
	}
	snap.TenantID = w.tenantID
	w.store.Set(snap)
	if w.repo != nil {
		if err := w.repo.Put(ctx, &snap); err != nil {
			slog.Warn("onboarding: could not persist snapshot", "tenant_id", w.tenantID, "err", err)
		}
	}
	w.poller.Sync(snap.Config)
}

func (w *workspace) setFetchErr(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fetchErr = msg
}

// SignupSettled implements signup.Listener.
func (w *workspace) SignupSettled(ctx context.Context, outcome domain.ExchangeOutcome) {
	_ = w.refresh(ctx)
}

// PinRequired implements signup.Listener. Without a phone id from the
// exchange, the pending one is recovered from a fresh snapshot.
func (w *workspace) PinRequired(ctx context.Context, phoneNumberID string) {
	if phoneNumberID == "" {
		_ = w.refresh(ctx)
		if snap, ok := w.store.Get(); ok {
			phoneNumberID = snap.Config.PendingPinPhoneID()
		}
	}
	if err := w.pin.Open(phoneNumberID); err != nil {
		slog.Warn("onboarding: could not open pin prompt", "tenant_id", w.tenantID, "err", err)
		w.Notify(domain.NoticeError, "WhatsApp needs your two-step verification PIN, but the phone number is unknown. Refresh and try again.")
		return
	}
	w.Notify(domain.NoticeInfo, "Enter the 6-digit two-step verification PIN for your WhatsApp number")
}

// Notify implements signup.Listener.
func (w *workspace) Notify(level domain.NoticeLevel, message string) {
	n := domain.Notice{
		NoticeID:  id.NewAt(w.clock.Now()),
		TenantID:  w.tenantID,
		Level:     level,
		Message:   message,
		CreatedAt: w.clock.Now().UTC(),
	}
	w.notices.add(n)
	if w.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(w.ctx, publishTimeout)
		defer cancel()
		if err := w.notifier.Publish(ctx, n); err != nil {
			slog.Warn("onboarding: notice fan-out failed", "tenant_id", w.tenantID, "err", err)
		}
	}()
}

func (w *workspace) pinResolved(ctx context.Context) {
	w.Notify(domain.NoticeSuccess, "WhatsApp number verified")
	w.coordinator.ResolvePin(ctx)
}

// openPin shows the PIN prompt for phoneNumberID, or for the phone the
// coordinator or the snapshot still has pending.
func (w *workspace) openPin(phoneNumberID string) error {
	if phoneNumberID == "" {
		phoneNumberID = w.coordinator.Status().PendingPhoneID
	}
	if phoneNumberID == "" {
		if snap, ok := w.store.Get(); ok {
			phoneNumberID = snap.Config.PendingPinPhoneID()
		}
	}
	if phoneNumberID == "" {
		phoneNumberID = w.pin.View().PendingPhoneID
	}
	return w.pin.Open(phoneNumberID)
}

// pingWebhook triggers the backend test message, then re-fetches the config
// until the webhook reports verified or the attempts run out.
func (w *workspace) pingWebhook(ctx context.Context) error {
	if err := w.backend.PingWebhook(ctx); err != nil {
		w.Notify(domain.NoticeError, "Webhook test failed: "+err.Error())
		return fmt.Errorf("ping webhook: %w", err)
	}

	w.mu.Lock()
	if w.pingCancel != nil {
		w.pingCancel()
	}
	pingCtx, cancel := context.WithCancel(w.ctx)
	w.pingCancel = cancel
	w.pingLeft = w.opts.WebhookPingAttempts
	w.mu.Unlock()

	w.Notify(domain.NoticeInfo, "Test message sent; waiting for the webhook to confirm")
	go w.awaitWebhook(pingCtx, cancel)
	return nil
}

func (w *workspace) awaitWebhook(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	ticker := time.NewTicker(w.opts.WebhookPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		w.mu.Lock()
		if w.pingLeft <= 0 {
			w.mu.Unlock()
			slog.Info("onboarding: webhook not verified after ping", "tenant_id", w.tenantID)
			return
		}
		w.pingLeft--
		w.mu.Unlock()

		if err := w.refresh(ctx); err != nil {
			continue
		}
		if snap, ok := w.store.Get(); ok && snap.Config.IsWebhookVerified {
			w.mu.Lock()
			w.pingLeft = 0
			w.mu.Unlock()
			w.Notify(domain.NoticeSuccess, "Webhook verified")
			return
		}
	}
}

// disconnect shows the disconnected state before the backend confirms it and
// restores the real state when the backend refuses.
func (w *workspace) disconnect(ctx context.Context) error {
	prev, hadPrev := w.store.Get()
	optimistic := prev
	optimistic.TenantID = w.tenantID
	optimistic.Config = prev.Config.Disconnected()
	optimistic.FetchedAt = w.clock.Now().UTC()
	w.apply(ctx, optimistic)

	if err := w.backend.Disconnect(ctx); err != nil {
		slog.Warn("onboarding: disconnect failed", "tenant_id", w.tenantID, "err", err)
		if rerr := w.refresh(ctx); rerr != nil && hadPrev {
			w.apply(ctx, prev)
		}
		w.Notify(domain.NoticeError, "Could not disconnect WhatsApp: "+err.Error())
		return fmt.Errorf("disconnect: %w", err)
	}

	w.pin.Close()
	if err := w.coordinator.Start(); err != nil {
		slog.Warn("onboarding: signup left running after disconnect", "tenant_id", w.tenantID, "err", err)
	}
	w.Notify(domain.NoticeSuccess, "WhatsApp disconnected")
	return nil
}

func (w *workspace) close() {
	if !w.closed.CompareAndSwap(false, true) {
		return
	}
	w.coordinator.Close()
	w.poller.Close()
	w.cancel()
}

func (w *workspace) view() View {
	v := View{
		TenantID: w.tenantID,
		Signup:   w.coordinator.Status(),
		Pin:      w.pin.View(),
		Polling:  w.poller.Active(),
		Notices:  w.notices.list(),
	}
	if snap, ok := w.store.Get(); ok {
		v.Snapshot = &snap
	}
	w.mu.Lock()
	v.LastFetchError = w.fetchErr
	v.WebhookPingsLeft = w.pingLeft
	w.mu.Unlock()
	return v
}
