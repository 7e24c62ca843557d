package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/presence/internal/config"
)

type fakeBackend struct {
	loaded   *config.Presence
	loadErr  error
	saved    *config.Presence
	set      *config.Presence
	cleared  int
	setErr   error
	setReply string
}

func (f *fakeBackend) Load(ctx context.Context) (*config.Presence, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.loaded.Clone(), nil
}

func (f *fakeBackend) Save(ctx context.Context, cfg *config.Presence) (string, error) {
	f.saved = cfg
	return "Saved", nil
}

func (f *fakeBackend) Set(ctx context.Context, cfg *config.Presence) (string, error) {
	f.set = cfg
	return f.setReply, f.setErr
}

func (f *fakeBackend) Clear(ctx context.Context) (string, error) {
	f.cleared++
	return "Presence cleared", nil
}

func testPresence() *config.Presence {
	return &config.Presence{
		ClientID:      "123456789",
		Details:       "Coding | Reviewing",
		State:         "in Go",
		LargeImageKey: "gopher",
		ShowTimer:     true,
		DurationSec:   0,
		RotateSec:     30,
	}
}

// loadedModel returns a model with the backend document applied.
func loadedModel(t *testing.T, backend *fakeBackend) Model {
	t.Helper()
	m := New(backend)
	msg := m.load()()
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestModel_Load(t *testing.T) {
	backend := &fakeBackend{loaded: testPresence()}
	m := loadedModel(t, backend)

	assert.True(t, m.loaded)
	assert.Equal(t, "123456789", m.value(fieldClientID))
	assert.Equal(t, "Coding | Reviewing", m.value(fieldDetails))
	assert.Equal(t, "30", m.value(fieldRotateSec))
	assert.True(t, m.fields[fieldShowTimer].checked)

	cfg, err := m.toConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Equal(testPresence()))
}

func TestModel_LoadFailure(t *testing.T) {
	backend := &fakeBackend{loadErr: errors.New("boom")}
	m := New(backend)
	_, cmd := m.Update(m.load()())
	require.NotNil(t, cmd)

	msg := cmd().(statusMsg)
	assert.True(t, msg.isErr)
	assert.Contains(t, msg.text, "boom")
}

func TestModel_NewlinePhrases(t *testing.T) {
	p := testPresence()
	p.Details = "one\ntwo\n\nthree"
	m := loadedModel(t, &fakeBackend{loaded: p})

	assert.Equal(t, "one | two | three", m.value(fieldDetails))
}

func TestModel_PreservesExtraKeys(t *testing.T) {
	loaded, err := config.Parse([]byte(`{"clientId":"1","theme":"dark"}`))
	require.NoError(t, err)

	m := loadedModel(t, &fakeBackend{loaded: loaded})
	cfg, err := m.toConfig()
	require.NoError(t, err)
	assert.Contains(t, cfg.Extra, "theme")
}

func TestModel_Focus(t *testing.T) {
	m := loadedModel(t, &fakeBackend{loaded: testPresence()})
	assert.Equal(t, fieldClientID, m.focus)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldDetails, m.focus)
	assert.True(t, m.fields[fieldDetails].input.Focused())
	assert.False(t, m.fields[fieldClientID].input.Focused())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, fieldRunAtLogin, m.focus, "focus wraps around")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, fieldClientID, m.focus)
}

func TestModel_EnterAdvancesTextField(t *testing.T) {
	m := loadedModel(t, &fakeBackend{loaded: testPresence()})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, fieldDetails, m.focus)
}

func TestModel_Toggle(t *testing.T) {
	m := loadedModel(t, &fakeBackend{loaded: testPresence()})
	m.setFocus(fieldShowTimer)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.False(t, m.fields[fieldShowTimer].checked)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.fields[fieldShowTimer].checked)

	m = typeText(t, m, "abc")
	assert.Empty(t, m.fields[fieldShowTimer].input.Value(), "toggles ignore text")
}

func TestModel_TypingEditsFocusedField(t *testing.T) {
	m := loadedModel(t, &fakeBackend{loaded: testPresence()})
	m.setFocus(fieldState)
	m.fields[fieldState].input.SetValue("")

	m = typeText(t, m, "deep work")
	assert.Equal(t, "deep work", m.value(fieldState))
}

func TestModel_Save(t *testing.T) {
	backend := &fakeBackend{loaded: testPresence()}
	m := loadedModel(t, backend)
	m.fields[fieldRunAtLogin].checked = true

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	assert.Equal(t, "Saving...", m.busy)

	msg := cmd()
	require.IsType(t, resultMsg{}, msg)
	require.NotNil(t, backend.saved)
	assert.True(t, backend.saved.RunAtLogin)
	assert.Equal(t, "123456789", backend.saved.ClientID)

	m, cmd = press(t, m, msg)
	assert.Empty(t, m.busy)
	status := cmd().(statusMsg)
	assert.Equal(t, "Saved", status.text)
	assert.False(t, status.isErr)
}

func TestModel_SetPresence(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		err     error
		wantMsg string
		wantErr bool
	}{
		{name: "ok", reply: "Presence rotating every 30s", wantMsg: "Presence rotating every 30s"},
		{name: "failure", err: errors.New("Client ID required"), wantMsg: "Client ID required", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{loaded: testPresence(), setReply: tt.reply, setErr: tt.err}
			m := loadedModel(t, backend)

			m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
			require.NotNil(t, cmd)
			_, cmd = press(t, m, cmd())
			status := cmd().(statusMsg)

			require.NotNil(t, backend.set)
			assert.Equal(t, 30, backend.set.RotateSec)
			assert.Equal(t, tt.wantMsg, status.text)
			assert.Equal(t, tt.wantErr, status.isErr)
		})
	}
}

func TestModel_InvalidNumber(t *testing.T) {
	backend := &fakeBackend{loaded: testPresence()}
	m := loadedModel(t, backend)
	m.fields[fieldDurationSec].input.SetValue("ten")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	require.NotNil(t, cmd)
	assert.Empty(t, m.busy)

	status := cmd().(statusMsg)
	assert.True(t, status.isErr)
	assert.Contains(t, status.text, "Duration")
	assert.Nil(t, backend.set)
}

func TestModel_NegativeNumber(t *testing.T) {
	m := loadedModel(t, &fakeBackend{loaded: testPresence()})
	m.fields[fieldRotateSec].input.SetValue("-5")

	_, err := m.toConfig()
	assert.Error(t, err)
}

func TestModel_EmptyNumberIsZero(t *testing.T) {
	m := loadedModel(t, &fakeBackend{loaded: testPresence()})
	m.fields[fieldDurationSec].input.SetValue("")

	cfg, err := m.toConfig()
	require.NoError(t, err)
	assert.Zero(t, cfg.DurationSec)
}

func TestModel_Clear(t *testing.T) {
	backend := &fakeBackend{loaded: testPresence()}
	m := loadedModel(t, backend)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	require.NotNil(t, cmd)
	assert.Equal(t, "Clearing presence...", m.busy)

	msg := cmd().(resultMsg)
	assert.Equal(t, "Presence cleared", msg.text)
	assert.Equal(t, 1, backend.cleared)
}

func TestModel_BusyIgnoresActions(t *testing.T) {
	backend := &fakeBackend{loaded: testPresence()}
	m := loadedModel(t, backend)
	m.busy = "Setting presence..."

	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Nil(t, cmd)
	assert.Zero(t, backend.cleared)
}

func TestModel_Reload(t *testing.T) {
	backend := &fakeBackend{loaded: testPresence()}
	m := loadedModel(t, backend)
	m.fields[fieldClientID].input.SetValue("changed")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	m, _ = press(t, m, cmd())
	assert.Equal(t, "123456789", m.value(fieldClientID))
}

func TestModel_Quit(t *testing.T) {
	m := New(&fakeBackend{loaded: testPresence()})
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_StatusClears(t *testing.T) {
	m := New(&fakeBackend{loaded: testPresence()})
	m, cmd := press(t, m, statusMsg{text: "Saved"})
	require.NotNil(t, cmd)
	assert.Equal(t, "Saved", m.statusMsg)

	m, _ = press(t, m, clearStatusMsg{})
	assert.Empty(t, m.statusMsg)
}

func TestModel_View(t *testing.T) {
	m := loadedModel(t, &fakeBackend{loaded: testPresence()})
	m.setFocus(fieldDetails)
	m.statusMsg = "Saved"

	view := m.View()
	assert.Contains(t, view, "Discord Rich Presence")
	assert.Contains(t, view, "Client ID")
	assert.Contains(t, view, "Run at login")
	assert.Contains(t, view, "[x]")
	assert.Contains(t, view, "2 phrase(s)")
	assert.Contains(t, view, "Saved")
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a | b", oneLine("a\nb\n"))
	assert.Equal(t, "a|b", oneLine("a|b"))
	assert.Equal(t, "", oneLine(""))
}
