package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/presence/internal/model"
)

func newEvent(t *testing.T, ok bool, msg string, at time.Time) model.Event {
	t.Helper()
	e, err := model.NewEvent(model.Status{OK: ok, Msg: msg, Time: at})
	require.NoError(t, err)
	return e
}

func TestJSONLPersistence_AppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")
	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)

	events, err := p.Load()
	require.NoError(t, err)
	assert.Empty(t, events, "missing file is empty")

	now := time.Now()
	require.NoError(t, p.Append(newEvent(t, true, "Presence rotating every 15s", now)))
	require.NoError(t, p.Append(newEvent(t, false, "Client ID required", now.Add(time.Second))))

	events, err = p.Load()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Presence rotating every 15s", events[0].Msg)
	assert.False(t, events[1].OK)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"presence_schema_version":1`)
}

func TestJSONLPersistence_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	content := `{"presence_schema_version":1,"created_at":1}
not json
{"id":"","ok":true,"msg":"no id"}
{"id":"01J0000000000000000000000","ok":true,"msg":"kept","time":"2025-01-01T00:00:00Z"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	events, err := p.Load()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "kept", events[0].Msg)
}

func TestJSONLPersistence_NewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"presence_schema_version":99}`+"\n"), 0600))

	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	_, err = p.Load()
	assert.ErrorContains(t, err, "unsupported schema version")
}

func TestJSONLPersistence_Rewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)

	now := time.Now()
	for i := range 3 {
		require.NoError(t, p.Append(newEvent(t, true, "event", now.Add(time.Duration(i)*time.Second))))
	}

	keep := newEvent(t, true, "only", now)
	require.NoError(t, p.Rewrite([]model.Event{keep}))

	events, err := p.Load()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, keep.ID, events[0].ID)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestJSONLPersistence_Closed(t *testing.T) {
	p, err := NewJSONLPersistence(filepath.Join(t.TempDir(), "history.jsonl"))
	require.NoError(t, err)
	require.NoError(t, p.Close())

	assert.ErrorIs(t, p.Append(newEvent(t, true, "x", time.Now())), ErrPersistenceClosed)
	_, err = p.Load()
	assert.ErrorIs(t, err, ErrPersistenceClosed)
}
