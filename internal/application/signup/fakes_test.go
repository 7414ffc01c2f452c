package signup

import (
	"context"
	"sync"
	"time"

	"github.com/go-wa-onboarding/internal/domain"
	"github.com/stretchr/testify/mock"
)

// --- fake clock ---

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

// Pending counts timers that are armed and not yet fired.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// --- mocks ---

type mockExchanger struct{ mock.Mock }

func (m *mockExchanger) ExchangeCode(ctx context.Context, req domain.ExchangeRequest) (domain.ExchangeResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(domain.ExchangeResult)
	return res, args.Error(1)
}

type recordingListener struct {
	mu      sync.Mutex
	settled []domain.ExchangeOutcome
	pins    []string
	notices []domain.Notice
}

func (l *recordingListener) SignupSettled(_ context.Context, outcome domain.ExchangeOutcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settled = append(l.settled, outcome)
}

func (l *recordingListener) PinRequired(_ context.Context, phoneNumberID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pins = append(l.pins, phoneNumberID)
}

func (l *recordingListener) Notify(level domain.NoticeLevel, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, domain.Notice{Level: level, Message: message})
}

func (l *recordingListener) Settled() []domain.ExchangeOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ExchangeOutcome(nil), l.settled...)
}

func (l *recordingListener) Notices() []domain.Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Notice(nil), l.notices...)
}

func (l *recordingListener) Pins() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.pins...)
}
