package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/presence/internal/model"
)

// rotation re-publishes the activity on every tick, cycling through the
// details and state phrase lists with a shared counter.
type rotation struct {
	mu     sync.Mutex
	logger *slog.Logger

	transport Transport
	base      model.Activity
	details   []string
	states    []string
	interval  time.Duration
	now       func() time.Time

	// Counter of successful publishes; the next publish uses this index.
	tick      uint64
	current   model.Activity
	startedAt time.Time
	lastTick  time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	running  bool
}

func newRotation(transport Transport, base model.Activity, details, states []string,
	interval time.Duration, now func() time.Time, logger *slog.Logger) *rotation {
	ctx, cancel := context.WithCancel(context.Background())
	return &rotation{
		logger:    logger,
		transport: transport,
		base:      base,
		details:   details,
		states:    states,
		interval:  interval,
		now:       now,
		startedAt: now(),
		ctx:       ctx,
		cancel:    cancel,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// activityAt returns the activity published for tick i.
func (r *rotation) activityAt(i uint64) model.Activity {
	a := r.base
	a.Details = r.details[i%uint64(len(r.details))]
	a.State = r.states[i%uint64(len(r.states))]
	a.Instance = false
	return a
}

// publish sends the activity for the current tick and advances the
// counter on success.
func (r *rotation) publish(ctx context.Context) error {
	r.mu.Lock()
	i := r.tick
	r.mu.Unlock()

	a := r.activityAt(i)
	if err := a.Validate(); err != nil {
		return err
	}
	if err := r.transport.SetActivity(ctx, a); err != nil {
		return err
	}

	r.mu.Lock()
	r.tick = i + 1
	r.current = a
	r.lastTick = r.now()
	r.mu.Unlock()
	return nil
}

// start runs the repeating task until Stop is called.
func (r *rotation) start(ticker Ticker) {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	go r.loop(ticker)
}

func (r *rotation) loop(ticker Ticker) {
	defer close(r.doneCh)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C():
			if err := r.publish(r.ctx); err != nil {
				r.logger.Debug("rotation tick failed", "tick", r.Tick(), "error", err)
			}
		}
	}
}

// Stop cancels the task and waits for it to exit. Safe to call on a
// rotation that was never started or already stopped.
func (r *rotation) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		close(r.stopCh)

		r.mu.Lock()
		running := r.running
		r.running = false
		r.mu.Unlock()

		if running {
			<-r.doneCh
		}
	})
}

// Tick returns the number of successful publishes so far.
func (r *rotation) Tick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tick
}

// fill copies the rotation progress into a snapshot.
func (r *rotation) fill(s *model.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.Rotating = r.running
	s.Interval = r.interval
	s.Tick = r.tick
	s.StartedAt = r.startedAt
	s.LastTick = r.lastTick
	if r.tick > 0 {
		current := r.current
		s.Activity = &current
	}
}
