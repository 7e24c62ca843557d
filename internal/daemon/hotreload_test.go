package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/presence/internal/config"
)

const waitFor = 3 * time.Second

type reloads[T any] struct {
	mu     sync.Mutex
	values []T
	errs   []error
}

func (r *reloads[T]) onReload(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *reloads[T]) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *reloads[T]) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values), len(r.errs)
}

func (r *reloads[T]) last() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[len(r.values)-1]
}

func startConfigWatcher(t *testing.T, path string, initial *config.Presence) (*ConfigWatcher, *reloads[*config.Presence]) {
	t.Helper()
	got := &reloads[*config.Presence]{}
	w := NewConfigWatcher(path, nil)
	w.SetDebounce(20 * time.Millisecond)
	w.SetReloadCallback(got.onReload)
	w.SetErrorCallback(got.onError)
	require.NoError(t, w.Start(context.Background(), initial))
	t.Cleanup(w.Stop)
	return w, got
}

func TestConfigWatcherReloadsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presence", "config.json")
	w, got := startConfigWatcher(t, path, config.Defaults())

	updated := config.Defaults()
	updated.ClientID = "42"
	require.NoError(t, updated.Save(path))

	require.Eventually(t, func() bool {
		n, _ := got.counts()
		return n == 1
	}, waitFor, 10*time.Millisecond)

	assert.Equal(t, "42", got.last().ClientID)
	assert.Equal(t, "42", w.Current().ClientID)
}

func TestConfigWatcherSkipsUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	initial := config.Defaults()
	initial.ClientID = "42"
	require.NoError(t, initial.Save(path))

	_, got := startConfigWatcher(t, path, initial)

	// Rewriting identical content is not a change
	require.NoError(t, initial.Save(path))

	// Followed by a real change, which must be the only reload
	updated := initial.Clone()
	updated.Details = "edited"
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, updated.Save(path))

	require.Eventually(t, func() bool {
		n, _ := got.counts()
		return n >= 1
	}, waitFor, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	n, _ := got.counts()
	assert.Equal(t, 1, n)
	assert.Equal(t, "edited", got.last().Details)
}

func TestConfigWatcherReportsInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	_, got := startConfigWatcher(t, path, config.Defaults())

	require.NoError(t, os.WriteFile(path, []byte(`{"clientId":`), 0644))

	require.Eventually(t, func() bool {
		_, errs := got.counts()
		return errs >= 1
	}, waitFor, 10*time.Millisecond)

	n, _ := got.counts()
	assert.Zero(t, n)
}

func TestConfigWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	_, got := startConfigWatcher(t, path, config.Defaults())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0644))
	time.Sleep(150 * time.Millisecond)

	n, errs := got.counts()
	assert.Zero(t, n)
	assert.Zero(t, errs)
}

func TestConfigWatcherStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	w := NewConfigWatcher(path, nil)
	require.NoError(t, w.Start(context.Background(), config.Defaults()))

	w.Stop()
	w.Stop()
}

func TestSettingsWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presenced.toml")
	got := &reloads[*config.DaemonConfig]{}

	w := NewSettingsWatcher(path, nil)
	w.SetDebounce(20 * time.Millisecond)
	w.SetReloadCallback(got.onReload)
	w.SetErrorCallback(got.onError)
	require.NoError(t, w.Start(context.Background(), config.DefaultDaemonConfig()))
	t.Cleanup(w.Stop)

	require.NoError(t, os.WriteFile(path, []byte("[login]\nattempts = 5\n"), 0644))
	require.Eventually(t, func() bool {
		n, _ := got.counts()
		return n == 1
	}, waitFor, 10*time.Millisecond)
	assert.Equal(t, 5, got.last().Login.Attempts)
	assert.Equal(t, 5, w.Current().Login.Attempts)

	require.NoError(t, os.WriteFile(path, []byte("[rotation]\nmin_interval = \"5s\"\n"), 0644))
	require.Eventually(t, func() bool {
		_, errs := got.counts()
		return errs == 1
	}, waitFor, 10*time.Millisecond)
	assert.Equal(t, 5, w.Current().Login.Attempts)
}
