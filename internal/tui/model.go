// Package tui provides the BubbleTea-based presence editor.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/presence"
)

// DefaultActionTimeout bounds a single backend call. Setting a presence
// includes the login retries, so it is generous.
const DefaultActionTimeout = 2 * time.Minute

// Backend performs the actions offered by the editor.
type Backend interface {
	Load(ctx context.Context) (*config.Presence, error)
	Save(ctx context.Context, cfg *config.Presence) (string, error)
	Set(ctx context.Context, cfg *config.Presence) (string, error)
	Clear(ctx context.Context) (string, error)
}

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldNumber
	fieldToggle
)

// Field indexes, in display order.
const (
	fieldClientID = iota
	fieldDetails
	fieldState
	fieldLargeImageKey
	fieldLargeImageText
	fieldSmallImageKey
	fieldSmallImageText
	fieldShowTimer
	fieldDurationSec
	fieldRotateSec
	fieldRunAtLogin
	fieldCount
)

type field struct {
	label   string
	hint    string
	kind    fieldKind
	input   textinput.Model
	checked bool
}

// Model is the presence editor model.
type Model struct {
	backend Backend
	timeout time.Duration

	// base carries the loaded document so unknown keys survive a save
	base   *config.Presence
	fields []field
	focus  int

	help help.Model
	keys KeyMap

	width  int
	loaded bool
	busy   string

	// Status message
	statusMsg string
	statusErr bool
}

// New creates an editor backed by backend.
func New(backend Backend) Model {
	m := Model{
		backend: backend,
		timeout: DefaultActionTimeout,
		base:    config.Defaults(),
		help:    help.New(),
		keys:    DefaultKeyMap(),
	}

	m.fields = make([]field, fieldCount)
	m.fields[fieldClientID] = newField("Client ID", "Discord application id", fieldText)
	m.fields[fieldDetails] = newField("Details", "separate phrases with |", fieldText)
	m.fields[fieldState] = newField("State", "separate phrases with |", fieldText)
	m.fields[fieldLargeImageKey] = newField("Large image", "asset key", fieldText)
	m.fields[fieldLargeImageText] = newField("Large text", "", fieldText)
	m.fields[fieldSmallImageKey] = newField("Small image", "asset key", fieldText)
	m.fields[fieldSmallImageText] = newField("Small text", "", fieldText)
	m.fields[fieldShowTimer] = newField("Show timer", "", fieldToggle)
	m.fields[fieldDurationSec] = newField("Duration (s)", "0 = elapsed time", fieldNumber)
	m.fields[fieldRotateSec] = newField("Rotate (s)", fmt.Sprintf("minimum %d", int(config.MinRotateInterval/time.Second)), fieldNumber)
	m.fields[fieldRunAtLogin] = newField("Run at login", "", fieldToggle)

	m.fill(m.base)
	m.fields[0].input.Focus()
	return m
}

func newField(label, hint string, kind fieldKind) field {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = hint
	in.CharLimit = 256
	if kind == fieldNumber {
		in.CharLimit = 7
	}
	return field{label: label, hint: hint, kind: kind, input: in}
}

// Init loads the current document.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.load())
}

type loadedMsg struct {
	cfg *config.Presence
	err error
}

type resultMsg struct {
	text string
	err  error
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		for i := range m.fields {
			m.fields[i].input.Width = max(msg.Width-20, 10)
		}
		return m, nil

	case loadedMsg:
		m.busy = ""
		if msg.err != nil {
			return m, status("Load failed: "+msg.err.Error(), true)
		}
		m.base = msg.cfg
		m.fill(msg.cfg)
		m.loaded = true
		return m, nil

	case resultMsg:
		m.busy = ""
		if msg.err != nil {
			return m, status(msg.err.Error(), true)
		}
		return m, status(msg.text, false)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(4*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, status("Copy failed: "+msg.err.Error(), true)
		}
		return m, status("Copied to clipboard", false)
	}

	return m.updateFocused(msg)
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Next):
		cmd := m.setFocus(m.focus + 1)
		return m, cmd
	case key.Matches(msg, m.keys.Prev):
		cmd := m.setFocus(m.focus - 1)
		return m, cmd
	}

	if m.busy == "" {
		switch {
		case key.Matches(msg, m.keys.Save):
			return m.withConfig("Saving...", m.backend.Save)
		case key.Matches(msg, m.keys.Set):
			return m.withConfig("Setting presence...", m.backend.Set)
		case key.Matches(msg, m.keys.Clear):
			m.busy = "Clearing presence..."
			return m, m.run(m.backend.Clear)
		case key.Matches(msg, m.keys.Reload):
			m.busy = "Loading..."
			return m, m.load()
		}
	}

	if key.Matches(msg, m.keys.Copy) {
		cfg, err := m.toConfig()
		if err != nil {
			return m, status(err.Error(), true)
		}
		return m, copyConfig(cfg)
	}

	f := &m.fields[m.focus]
	if key.Matches(msg, m.keys.Toggle) {
		if f.kind == fieldToggle {
			f.checked = !f.checked
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			cmd := m.setFocus(m.focus + 1)
			return m, cmd
		}
	}
	if f.kind == fieldToggle {
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	f := &m.fields[m.focus]
	if f.kind == fieldToggle {
		return m, nil
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return m, cmd
}

// setFocus moves the focus to index i, wrapping around.
func (m *Model) setFocus(i int) tea.Cmd {
	m.fields[m.focus].input.Blur()
	m.focus = (i + fieldCount) % fieldCount
	if m.fields[m.focus].kind == fieldToggle {
		return nil
	}
	return m.fields[m.focus].input.Focus()
}

// withConfig validates the form and runs action with the resulting document.
func (m Model) withConfig(busy string, action func(context.Context, *config.Presence) (string, error)) (tea.Model, tea.Cmd) {
	cfg, err := m.toConfig()
	if err != nil {
		return m, status(err.Error(), true)
	}
	m.busy = busy
	return m, m.run(func(ctx context.Context) (string, error) {
		return action(ctx, cfg)
	})
}

func (m Model) run(action func(context.Context) (string, error)) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		text, err := action(ctx)
		return resultMsg{text: text, err: err}
	}
}

func (m Model) load() tea.Cmd {
	backend := m.backend
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		cfg, err := backend.Load(ctx)
		return loadedMsg{cfg: cfg, err: err}
	}
}

func copyConfig(cfg *config.Presence) tea.Cmd {
	return func() tea.Msg {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return copyResultMsg{err: err}
		}
		return copyResultMsg{err: copyText(string(data))}
	}
}

// fill copies cfg into the form.
func (m *Model) fill(cfg *config.Presence) {
	m.fields[fieldClientID].input.SetValue(cfg.ClientID)
	m.fields[fieldDetails].input.SetValue(oneLine(cfg.Details))
	m.fields[fieldState].input.SetValue(oneLine(cfg.State))
	m.fields[fieldLargeImageKey].input.SetValue(cfg.LargeImageKey)
	m.fields[fieldLargeImageText].input.SetValue(cfg.LargeImageText)
	m.fields[fieldSmallImageKey].input.SetValue(cfg.SmallImageKey)
	m.fields[fieldSmallImageText].input.SetValue(cfg.SmallImageText)
	m.fields[fieldShowTimer].checked = cfg.ShowTimer
	m.fields[fieldDurationSec].input.SetValue(strconv.Itoa(cfg.DurationSec))
	m.fields[fieldRotateSec].input.SetValue(strconv.Itoa(cfg.RotateSec))
	m.fields[fieldRunAtLogin].checked = cfg.RunAtLogin
}

// toConfig builds a document from the form on top of the loaded one.
func (m Model) toConfig() (*config.Presence, error) {
	cfg := m.base.Clone()
	cfg.ClientID = strings.TrimSpace(m.value(fieldClientID))
	cfg.Details = m.value(fieldDetails)
	cfg.State = m.value(fieldState)
	cfg.LargeImageKey = strings.TrimSpace(m.value(fieldLargeImageKey))
	cfg.LargeImageText = m.value(fieldLargeImageText)
	cfg.SmallImageKey = strings.TrimSpace(m.value(fieldSmallImageKey))
	cfg.SmallImageText = m.value(fieldSmallImageText)
	cfg.ShowTimer = m.fields[fieldShowTimer].checked
	cfg.RunAtLogin = m.fields[fieldRunAtLogin].checked

	var err error
	if cfg.DurationSec, err = m.number(fieldDurationSec); err != nil {
		return nil, err
	}
	if cfg.RotateSec, err = m.number(fieldRotateSec); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (m Model) value(i int) string {
	return m.fields[i].input.Value()
}

func (m Model) number(i int) (int, error) {
	v := strings.TrimSpace(m.value(i))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a whole number of seconds", m.fields[i].label)
	}
	return n, nil
}

// oneLine turns newline separated phrases into the | form used by the
// single-line inputs. Both split into the same list.
func oneLine(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	return strings.Join(presence.ParseList(s), " | ")
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Width(14)
	focusedLabelStyle = labelStyle.
				Foreground(lipgloss.Color("10"))
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Italic(true)
)

// View renders the TUI.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Discord Rich Presence"))
	sb.WriteString("\n\n")

	for i, f := range m.fields {
		cursor := "  "
		style := labelStyle
		if i == m.focus {
			cursor = "› "
			style = focusedLabelStyle
		}
		sb.WriteString(cursor)
		sb.WriteString(style.Render(f.label))

		switch f.kind {
		case fieldToggle:
			if f.checked {
				sb.WriteString("[x]")
			} else {
				sb.WriteString("[ ]")
			}
		default:
			sb.WriteString(f.input.View())
		}
		sb.WriteString("\n")

		if i == m.focus && (i == fieldDetails || i == fieldState) {
			sb.WriteString("  " + labelStyle.Render("") + hintStyle.Render(fmt.Sprintf("%d phrase(s)", len(presence.Phrases(f.input.Value(), "-")))) + "\n")
		}
	}

	sb.WriteString("\n")
	switch {
	case m.busy != "":
		sb.WriteString(hintStyle.Render(m.busy))
	case m.statusMsg != "":
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		sb.WriteString(statusStyle.Render(m.statusMsg))
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))

	return sb.String()
}

// Run starts the editor and blocks until it exits.
func Run(backend Backend) error {
	p := tea.NewProgram(New(backend), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
