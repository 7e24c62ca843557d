package presence

import (
	"context"
	"time"

	"github.com/jmylchreest/presence/internal/model"
)

// Transport is a connected session with the local chat client.
type Transport interface {
	// Register associates the application id with the OS URL handler.
	// Failures are not fatal.
	Register(clientID string) error

	// Login connects and performs the handshake for clientID.
	Login(ctx context.Context, clientID string) error

	// SetActivity publishes an activity.
	SetActivity(ctx context.Context, activity model.Activity) error

	// ClearActivity removes the published activity.
	ClearActivity(ctx context.Context) error

	// Close releases the handle. Safe to call more than once.
	Close() error
}

// Account is implemented by transports that learn the logged in user name
// during the handshake.
type Account interface {
	Username() string
}

// Dialer creates a new, not yet logged in, Transport.
type Dialer func() Transport

// Ticker is the subset of time.Ticker used by the rotation task.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

func (t timeTicker) C() <-chan time.Time {
	return t.t.C
}

func (t timeTicker) Stop() {
	t.t.Stop()
}
