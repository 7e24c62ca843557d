package presence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/presence/internal/model"
)

var errFake = errors.New("fake failure")

// fakeTransport records calls and fails on demand.
type fakeTransport struct {
	mu sync.Mutex

	loginFailures   int // number of logins that fail before one succeeds
	publishFailures int // number of upcoming SetActivity calls that fail
	clearErr        error
	username        string

	registered []string
	logins     int
	activities []model.Activity
	clears     int
	closes     int
}

func (f *fakeTransport) Register(clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, clientID)
	return nil
}

func (f *fakeTransport) Login(ctx context.Context, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.loginFailures > 0 {
		f.loginFailures--
		return errFake
	}
	return nil
}

func (f *fakeTransport) SetActivity(ctx context.Context, activity model.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishFailures > 0 {
		f.publishFailures--
		return errFake
	}
	f.activities = append(f.activities, activity)
	return nil
}

func (f *fakeTransport) ClearActivity(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return f.clearErr
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeTransport) Username() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.username
}

func (f *fakeTransport) published() []model.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Activity(nil), f.activities...)
}

func (f *fakeTransport) failNextPublishes(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishFailures = n
}

func (f *fakeTransport) counts() (logins, clears, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins, f.clears, f.closes
}

// manualTicker only fires when the test sends on it.
type manualTicker struct {
	ch       chan time.Time
	interval time.Duration
	stopped  atomic.Bool
}

func (t *manualTicker) C() <-chan time.Time {
	return t.ch
}

func (t *manualTicker) Stop() {
	t.stopped.Store(true)
}

// harness wires a Publisher to fake transports and manual tickers.
type harness struct {
	mu         sync.Mutex
	transports []*fakeTransport
	tickers    []*manualTicker
	statuses   []model.Status

	// prepare configures each new transport before it is returned.
	prepare func(*fakeTransport)

	publisher *Publisher
	now       time.Time
}

func newHarness() *harness {
	h := &harness{now: time.Unix(1700000000, 0)}

	h.publisher = NewPublisher(func() Transport {
		h.mu.Lock()
		defer h.mu.Unlock()
		f := &fakeTransport{}
		if h.prepare != nil {
			h.prepare(f)
		}
		h.transports = append(h.transports, f)
		return f
	}, nil)
	h.publisher.now = func() time.Time { return h.now }
	h.publisher.newTicker = func(d time.Duration) Ticker {
		h.mu.Lock()
		defer h.mu.Unlock()
		t := &manualTicker{ch: make(chan time.Time), interval: d}
		h.tickers = append(h.tickers, t)
		return t
	}
	h.publisher.SetRetryPolicy(RetryPolicy{Attempts: 3, Delay: 0})
	h.publisher.SetStatusHandler(func(s model.Status) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.statuses = append(h.statuses, s)
	})
	return h
}

func (h *harness) transport(i int) *fakeTransport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transports[i]
}

func (h *harness) dials() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.transports)
}

func (h *harness) ticker(i int) *manualTicker {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tickers[i]
}

func (h *harness) tickerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tickers)
}

func (h *harness) lastStatus() model.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statuses[len(h.statuses)-1]
}

func (h *harness) statusCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.statuses)
}
