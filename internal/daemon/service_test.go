package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/model"
	"github.com/jmylchreest/presence/internal/presence"
	"github.com/jmylchreest/presence/internal/store"
)

type fakeTransport struct {
	mu         sync.Mutex
	logins     []string
	activities []model.Activity
	clears     int
	closed     int
	loginErr   error
}

func (f *fakeTransport) Register(clientID string) error { return nil }

func (f *fakeTransport) Login(ctx context.Context, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, clientID)
	return f.loginErr
}

func (f *fakeTransport) SetActivity(ctx context.Context, a model.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, a)
	return nil
}

func (f *fakeTransport) ClearActivity(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeTransport) snapshot() (logins []string, activities []model.Activity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.logins...), append([]model.Activity(nil), f.activities...)
}

type fakeEmitter struct {
	mu       sync.Mutex
	statuses []model.Status
}

func (e *fakeEmitter) EmitStatus(status model.Status) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statuses = append(e.statuses, status)
	return nil
}

func (e *fakeEmitter) all() []model.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Status(nil), e.statuses...)
}

type fakeAutostart struct {
	calls     []bool
	installed bool
	err       error
}

func (a *fakeAutostart) Set(enabled bool) error {
	a.calls = append(a.calls, enabled)
	if a.err != nil {
		return a.err
	}
	a.installed = enabled
	return nil
}

func (a *fakeAutostart) Enabled() bool {
	return a.installed
}

type serviceHarness struct {
	svc       *Service
	transport *fakeTransport
	emitter   *fakeEmitter
	autostart *fakeAutostart
	path      string
}

func newServiceHarness(t *testing.T, current *config.Presence) *serviceHarness {
	t.Helper()
	h := &serviceHarness{
		transport: &fakeTransport{},
		emitter:   &fakeEmitter{},
		autostart: &fakeAutostart{},
		path:      filepath.Join(t.TempDir(), "config.json"),
	}
	pub := presence.NewPublisher(func() presence.Transport { return h.transport }, nil)
	pub.SetRetryPolicy(presence.RetryPolicy{Attempts: 1})

	h.svc = NewService(h.path, current, pub, nil)
	h.svc.SetEmitter(h.emitter)
	h.svc.SetAutostart(h.autostart)
	t.Cleanup(h.svc.Shutdown)
	return h
}

func withClientID(id string) *config.Presence {
	cfg := config.Defaults()
	cfg.ClientID = id
	return cfg
}

func TestServiceLoadConfigReturnsCopy(t *testing.T) {
	h := newServiceHarness(t, withClientID("42"))

	cfg := h.svc.LoadConfig()
	assert.Equal(t, "42", cfg.ClientID)

	cfg.ClientID = "changed"
	assert.Equal(t, "42", h.svc.LoadConfig().ClientID)
}

func TestServiceNilCurrentUsesDefaults(t *testing.T) {
	h := newServiceHarness(t, nil)
	assert.True(t, h.svc.LoadConfig().Equal(config.Defaults()))
}

func TestServiceSaveConfig(t *testing.T) {
	h := newServiceHarness(t, nil)

	cfg := withClientID("42")
	cfg.RunAtLogin = true
	require.NoError(t, h.svc.SaveConfig(cfg))

	loaded, err := config.Load(h.path)
	require.NoError(t, err)
	assert.True(t, cfg.Equal(loaded))
	assert.Equal(t, "42", h.svc.LoadConfig().ClientID)
	assert.Equal(t, []bool{true}, h.autostart.calls)
	assert.Empty(t, h.emitter.all())
}

func TestServiceSaveConfigAutostartFailureIsNotFatal(t *testing.T) {
	h := newServiceHarness(t, nil)
	h.autostart.err = errors.New("read-only")

	require.NoError(t, h.svc.SaveConfig(withClientID("42")))
	assert.Equal(t, "42", h.svc.LoadConfig().ClientID)
}

func TestServiceSaveConfigFailure(t *testing.T) {
	h := newServiceHarness(t, withClientID("old"))

	// A regular file where the parent directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	h.svc.path = filepath.Join(blocker, "config.json")

	err := h.svc.SaveConfig(withClientID("new"))
	require.Error(t, err)

	assert.Equal(t, "old", h.svc.LoadConfig().ClientID)
	assert.Empty(t, h.autostart.calls)

	statuses := h.emitter.all()
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].OK)
	assert.Contains(t, statuses[0].Msg, "Failed to save config")
}

func TestServiceSetPresenceUsesCurrentWhenNil(t *testing.T) {
	current := withClientID("42")
	current.Details = "only"
	h := newServiceHarness(t, current)

	msg, err := h.svc.SetPresence(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Presence rotating every 15s", msg)

	logins, activities := h.transport.snapshot()
	assert.Equal(t, []string{"42"}, logins)
	require.Len(t, activities, 1)
	assert.Equal(t, "only", activities[0].Details)

	statuses := h.emitter.all()
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].OK)
}

func TestServiceSetPresenceDoesNotChangeCurrent(t *testing.T) {
	h := newServiceHarness(t, withClientID("42"))

	_, err := h.svc.SetPresence(context.Background(), withClientID("99"))
	require.NoError(t, err)
	assert.Equal(t, "42", h.svc.LoadConfig().ClientID)
}

func TestServiceSetPresenceRequiresClientID(t *testing.T) {
	h := newServiceHarness(t, nil)

	_, err := h.svc.SetPresence(context.Background(), nil)
	assert.ErrorIs(t, err, config.ErrClientIDRequired)

	logins, _ := h.transport.snapshot()
	assert.Empty(t, logins)

	statuses := h.emitter.all()
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].OK)
	assert.Equal(t, "Client ID required", statuses[0].Msg)
}

func TestServiceClearPresence(t *testing.T) {
	h := newServiceHarness(t, withClientID("42"))
	_, err := h.svc.SetPresence(context.Background(), nil)
	require.NoError(t, err)

	msg := h.svc.ClearPresence(context.Background())
	assert.Equal(t, ClearedMessage, msg)
	assert.False(t, h.svc.Snapshot().Rotating)
	assert.Equal(t, 1, h.transport.clears)
}

func TestServiceAutoPublish(t *testing.T) {
	t.Run("skips without client id", func(t *testing.T) {
		h := newServiceHarness(t, nil)
		h.svc.AutoPublish(context.Background())

		logins, _ := h.transport.snapshot()
		assert.Empty(t, logins)
		assert.Empty(t, h.emitter.all())
	})

	t.Run("publishes current config", func(t *testing.T) {
		h := newServiceHarness(t, withClientID("42"))
		h.svc.AutoPublish(context.Background())

		assert.True(t, h.svc.Snapshot().Rotating)
		logins, _ := h.transport.snapshot()
		assert.Equal(t, []string{"42"}, logins)
	})

	t.Run("login failure is not fatal", func(t *testing.T) {
		h := newServiceHarness(t, withClientID("42"))
		h.transport.loginErr = errors.New("no socket")
		h.svc.AutoPublish(context.Background())

		assert.False(t, h.svc.Snapshot().Rotating)
		statuses := h.emitter.all()
		require.Len(t, statuses, 1)
		assert.False(t, statuses[0].OK)
	})
}

func TestServiceReload(t *testing.T) {
	t.Run("unchanged document is ignored", func(t *testing.T) {
		h := newServiceHarness(t, withClientID("42"))
		_, err := h.svc.SetPresence(context.Background(), nil)
		require.NoError(t, err)

		h.svc.Reload(context.Background(), withClientID("42"))
		_, activities := h.transport.snapshot()
		assert.Len(t, activities, 1)
	})

	t.Run("changed document becomes current without publishing when idle", func(t *testing.T) {
		h := newServiceHarness(t, withClientID("42"))

		updated := withClientID("42")
		updated.Details = "edited"
		h.svc.Reload(context.Background(), updated)

		assert.Equal(t, "edited", h.svc.LoadConfig().Details)
		logins, _ := h.transport.snapshot()
		assert.Empty(t, logins)
	})

	t.Run("changed document is re-applied while rotating", func(t *testing.T) {
		h := newServiceHarness(t, withClientID("42"))
		_, err := h.svc.SetPresence(context.Background(), nil)
		require.NoError(t, err)

		updated := withClientID("42")
		updated.Details = "edited"
		h.svc.Reload(context.Background(), updated)

		_, activities := h.transport.snapshot()
		require.Len(t, activities, 2)
		assert.Equal(t, "edited", activities[1].Details)
	})
}

func TestServiceApplySettings(t *testing.T) {
	h := newServiceHarness(t, withClientID("42"))
	n, sent, _ := newTestNotifier()
	h.svc.SetNotifier(n)

	settings := config.DefaultDaemonConfig()
	settings.Rotation.MinInterval = config.Duration(30 * time.Second)
	settings.Notifications.Enabled = false
	h.svc.ApplySettings(settings)

	msg, err := h.svc.SetPresence(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Presence rotating every 30s", msg)
	assert.Empty(t, sent.items)
}

func TestServiceStatusFansOut(t *testing.T) {
	h := newServiceHarness(t, withClientID("42"))
	n, sent, _ := newTestNotifier()
	h.svc.SetNotifier(n)

	_, err := h.svc.SetPresence(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, h.emitter.all(), 1)
	require.Len(t, sent.items, 1)
	assert.Equal(t, "Presence rotating every 15s", sent.items[0].Body)
}

func TestServiceRecordsHistory(t *testing.T) {
	h := newServiceHarness(t, config.Defaults())
	history := store.NewHistory(nil, 10)
	h.svc.SetRecorder(history)

	_, err := h.svc.SetPresence(context.Background(), nil)
	require.ErrorIs(t, err, config.ErrClientIDRequired)
	h.svc.ClearPresence(context.Background())

	events := history.Recent(0)
	require.Len(t, events, 2)
	assert.Equal(t, ClearedMessage, events[0].Msg)
	assert.False(t, events[1].OK)
	assert.Equal(t, "Client ID required", events[1].Msg)
}

func TestServiceSyncAutostart(t *testing.T) {
	tests := []struct {
		name       string
		runAtLogin bool
		installed  bool
		wantCalls  []bool
	}{
		{"in sync disabled", false, false, nil},
		{"in sync enabled", true, true, nil},
		{"missing entry", true, false, []bool{true}},
		{"stale entry", false, true, []bool{false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := withClientID("42")
			cfg.RunAtLogin = tt.runAtLogin
			h := newServiceHarness(t, cfg)
			h.autostart.installed = tt.installed

			h.svc.SyncAutostart()
			assert.Equal(t, tt.wantCalls, h.autostart.calls)
			assert.Equal(t, tt.runAtLogin, h.autostart.Enabled())
		})
	}
}

func TestServiceReloadSyncsAutostart(t *testing.T) {
	h := newServiceHarness(t, withClientID("42"))

	updated := withClientID("42")
	updated.RunAtLogin = true
	h.svc.Reload(context.Background(), updated)

	assert.Equal(t, []bool{true}, h.autostart.calls)
}
