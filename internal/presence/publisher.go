package presence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/repeater/v2"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/model"
)

// RetryPolicy bounds the login loop.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy returns the login policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 30, Delay: time.Second}
}

// StatusHandler receives a status after every set/clear attempt.
type StatusHandler func(status model.Status)

// Publisher owns a transport handle and the rotation task for one session.
type Publisher struct {
	// mu serializes SetPresence, ClearPresence and Shutdown.
	mu     sync.Mutex
	logger *slog.Logger

	dial        Dialer
	retry       RetryPolicy
	minInterval time.Duration
	now         func() time.Time
	newTicker   func(time.Duration) Ticker

	transport Transport

	// stateMu guards the fields read by State and Snapshot so status
	// queries never wait behind a login.
	stateMu       sync.RWMutex
	state         State
	clientID      string
	user          string
	rot           *rotation
	last          *model.Status
	statusHandler StatusHandler
}

// NewPublisher creates a Publisher that creates handles with dial.
func NewPublisher(dial Dialer, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		logger:      logger,
		dial:        dial,
		retry:       DefaultRetryPolicy(),
		minInterval: config.MinRotateInterval,
		now:         time.Now,
		newTicker:   newTimeTicker,
		state:       StateDisconnected,
	}
}

// SetRetryPolicy sets the login retry policy. Attempts below 1 are raised to 1.
func (p *Publisher) SetRetryPolicy(policy RetryPolicy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if policy.Delay < 0 {
		policy.Delay = 0
	}
	p.retry = policy
}

// SetMinInterval sets the rotation floor. Values below 15s are ignored.
func (p *Publisher) SetMinInterval(interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if interval < config.MinRotateInterval {
		interval = config.MinRotateInterval
	}
	p.minInterval = interval
}

// SetStatusHandler sets the handler called after every set/clear attempt.
func (p *Publisher) SetStatusHandler(handler StatusHandler) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.statusHandler = handler
}

// State returns the current connection state.
func (p *Publisher) State() State {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

// Snapshot describes the current session.
func (p *Publisher) Snapshot() model.Snapshot {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()

	s := model.Snapshot{
		State:    p.state.String(),
		ClientID: p.clientID,
		User:     p.user,
	}
	if p.rot != nil {
		p.rot.fill(&s)
	}
	if p.last != nil {
		last := *p.last
		s.Last = &last
	}
	return s
}

// SetPresence logs in when needed, publishes the first phrase and starts
// rotating. It returns a message naming the effective interval.
func (p *Publisher) SetPresence(ctx context.Context, cfg *config.Presence) (string, error) {
	msg, err := p.setPresence(ctx, cfg)
	if err != nil {
		p.logger.Warn("set presence failed", "error", err)
		p.emit(model.NewStatus(false, err.Error()))
		return "", err
	}
	p.logger.Info("presence set", "message", msg)
	p.emit(model.NewStatus(true, msg))
	return msg, nil
}

func (p *Publisher) setPresence(ctx context.Context, cfg *config.Presence) (string, error) {
	if cfg == nil {
		return "", config.ErrClientIDRequired
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	clientID := strings.TrimSpace(cfg.ClientID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureReady(ctx, clientID); err != nil {
		return "", err
	}

	details := Phrases(cfg.Details, FallbackDetails)
	states := Phrases(cfg.State, FallbackState)
	start, end := Timestamps(p.now(), cfg)
	interval := Interval(cfg.RotateSec, p.minInterval)

	base := model.Activity{
		StartTimestamp: start,
		EndTimestamp:   end,
		LargeImageKey:  cfg.LargeImageKey,
		LargeImageText: cfg.LargeImageText,
		SmallImageKey:  cfg.SmallImageKey,
		SmallImageText: cfg.SmallImageText,
	}

	p.stopRotation()

	rot := newRotation(p.transport, base, details, states, interval, p.now, p.logger)
	if err := rot.publish(ctx); err != nil {
		rot.Stop()
		return "", &PublishError{Err: err}
	}
	rot.start(p.newTicker(interval))

	p.stateMu.Lock()
	p.rot = rot
	p.stateMu.Unlock()

	p.logger.Debug("rotation started",
		"interval", interval,
		"details", len(details),
		"states", len(states),
		"timer", start > 0,
		"countdown", end > 0,
	)

	return fmt.Sprintf("Presence rotating every %ds", int(interval/time.Second)), nil
}

// ensureReady makes sure a logged in handle for clientID exists.
// Must be called with p.mu held.
func (p *Publisher) ensureReady(ctx context.Context, clientID string) error {
	p.stateMu.RLock()
	ready := p.transport != nil && p.state == StateReady && p.clientID == clientID
	p.stateMu.RUnlock()
	if ready {
		return nil
	}

	if p.transport != nil {
		p.logger.Debug("replacing transport handle", "client_id", clientID)
		p.stopRotation()
		p.closeTransport()
	}

	p.setState(StateConnecting)
	transport := p.dial()
	p.transport = transport

	if err := transport.Register(clientID); err != nil {
		p.logger.Debug("failed to register application", "client_id", clientID, "error", err)
	}

	attempts := 0
	retrier := repeater.NewFixed(p.retry.Attempts, p.retry.Delay)
	err := retrier.Do(ctx, func() error {
		attempts++
		p.setState(StateAuthenticating)
		p.logger.Debug("login attempt", "attempt", attempts, "client_id", clientID)
		if err := transport.Login(ctx, clientID); err != nil {
			p.logger.Debug("login failed", "attempt", attempts, "error", err)
			p.setState(StateRetrying)
			return err
		}
		return nil
	})
	if err != nil {
		p.closeTransport()
		return &AuthError{ClientID: clientID, Attempts: attempts, Err: err}
	}

	var user string
	if account, ok := transport.(Account); ok {
		user = account.Username()
	}

	p.stateMu.Lock()
	p.state = StateReady
	p.clientID = clientID
	p.user = user
	p.stateMu.Unlock()

	p.logger.Info("logged in", "client_id", clientID, "user", user, "attempts", attempts)
	return nil
}

// ClearPresence stops rotating and clears the published activity.
// Transport failures are logged and otherwise ignored.
func (p *Publisher) ClearPresence(ctx context.Context) {
	p.mu.Lock()
	p.stopRotation()

	p.stateMu.RLock()
	connected := p.transport != nil && p.state == StateReady
	p.stateMu.RUnlock()

	if connected {
		if err := p.transport.ClearActivity(ctx); err != nil {
			p.logger.Debug("clear activity failed", "error", err)
		}
	}
	p.mu.Unlock()

	p.logger.Info("presence cleared", "connected", connected)
	p.emit(model.NewStatus(true, "Presence cleared"))
}

// Shutdown stops rotating and releases the transport handle.
// Safe to call when nothing is connected.
func (p *Publisher) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopRotation()
	p.closeTransport()
	p.logger.Debug("publisher shut down")
}

// stopRotation cancels the running rotation, if any. Must be called with p.mu held.
func (p *Publisher) stopRotation() {
	p.stateMu.Lock()
	rot := p.rot
	p.rot = nil
	p.stateMu.Unlock()

	if rot != nil {
		rot.Stop()
	}
}

// closeTransport destroys the handle, if any. Must be called with p.mu held.
func (p *Publisher) closeTransport() {
	if p.transport != nil {
		if err := p.transport.Close(); err != nil {
			p.logger.Debug("failed to close transport", "error", err)
		}
		p.transport = nil
	}

	p.stateMu.Lock()
	p.state = StateDisconnected
	p.clientID = ""
	p.user = ""
	p.stateMu.Unlock()
}

func (p *Publisher) setState(state State) {
	p.stateMu.Lock()
	p.state = state
	p.stateMu.Unlock()
}

func (p *Publisher) emit(status model.Status) {
	p.stateMu.Lock()
	p.last = &status
	handler := p.statusHandler
	p.stateMu.Unlock()

	if handler != nil {
		handler(status)
	}
}
