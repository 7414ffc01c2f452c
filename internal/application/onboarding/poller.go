package onboarding

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-wa-onboarding/internal/domain"
)

// Poller re-fetches the onboarding config on a fixed interval while the
// backend is still provisioning. A tick is skipped while the previous fetch
// is still in flight.
type Poller struct {
	interval time.Duration
	fetch    func(ctx context.Context)
	tenantID string

	mu      sync.Mutex
	running bool
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	cancel  context.CancelFunc

	inFlight atomic.Bool
}

// NewPoller returns a stopped poller that calls fetch on every tick.
func NewPoller(tenantID string, interval time.Duration, fetch func(ctx context.Context)) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{tenantID: tenantID, interval: interval, fetch: fetch}
}

// Sync starts or stops the poller according to cfg.
func (p *Poller) Sync(cfg domain.OnboardingConfig) {
	if cfg.ShouldPoll() {
		p.start()
		return
	}
	p.Stop()
}

// Active reports whether the ticker loop is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running || p.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.running = true
	p.cancel = cancel
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	slog.Info("onboarding: status polling started", "tenant_id", p.tenantID, "interval", p.interval)
	go p.loop(ctx, p.stopCh, p.doneCh)
}

// Stop halts the loop and cancels an in-flight fetch. It is safe to call
// from inside a fetch.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopCh, doneCh, cancel := p.stopCh, p.doneCh, p.cancel
	p.mu.Unlock()

	close(stopCh)
	<-doneCh
	cancel()
	slog.Info("onboarding: status polling stopped", "tenant_id", p.tenantID)
}

// Close stops the poller for good; later Sync calls never restart it.
func (p *Poller) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.Stop()
}

func (p *Poller) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		slog.Debug("onboarding: previous fetch still in flight, skipping tick", "tenant_id", p.tenantID)
		return
	}
	go func() {
		defer p.inFlight.Store(false)
		p.fetch(ctx)
	}()
}
