package presence

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/presence/internal/config"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", []string{}},
		{"single line", "Listening ...", []string{"Listening ..."}},
		{"pipes", "a|b|c", []string{"a", "b", "c"}},
		{"newlines", "a\nb\r\nc", []string{"a", "b", "c"}},
		{"mixed and trimmed", "  a | b\n  c  ", []string{"a", "b", "c"}},
		{"only delimiters", "|\n| |\n", []string{}},
		{"empty segments dropped", "a||b\n\nc", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseList(tt.input))
		})
	}
}

func TestPhrasesFallback(t *testing.T) {
	for _, input := range []string{"", "|", "\n\n", " | \n "} {
		assert.Equal(t, []string{"Listening ..."}, Phrases(input, FallbackDetails), "input %q", input)
		assert.Equal(t, []string{"🎧"}, Phrases(input, FallbackState), "input %q", input)
	}
	assert.Equal(t, []string{"x", "y"}, Phrases("x|y", FallbackDetails))
}

func TestInterval(t *testing.T) {
	tests := []struct {
		rotateSec int
		floor     time.Duration
		expected  time.Duration
	}{
		{0, 15 * time.Second, 15 * time.Second},
		{-5, 15 * time.Second, 15 * time.Second},
		{1, 15 * time.Second, 15 * time.Second},
		{15, 15 * time.Second, 15 * time.Second},
		{16, 15 * time.Second, 16 * time.Second},
		{120, 15 * time.Second, 2 * time.Minute},
		{20, 30 * time.Second, 30 * time.Second},
		{5, time.Second, 15 * time.Second}, // floor never drops below 15s
		{int(maxRotateSec), 15 * time.Second, time.Duration(maxRotateSec) * time.Second},
		{math.MaxInt, 15 * time.Second, time.Duration(maxRotateSec) * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Interval(tt.rotateSec, tt.floor),
			"rotateSec=%d floor=%s", tt.rotateSec, tt.floor)
	}
}

func TestTimestamps(t *testing.T) {
	now := time.Unix(1700000000, 999_000_000)

	tests := []struct {
		name      string
		showTimer bool
		duration  int
		wantStart int64
		wantEnd   int64
	}{
		{"timer off", false, 0, 0, 0},
		{"timer off ignores duration", false, 300, 0, 0},
		{"elapsed", true, 0, 1700000000, 0},
		{"countdown", true, 90, 1700000000, 1700000090},
		{"negative duration is open-ended", true, -10, 1700000000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &config.Presence{ShowTimer: tt.showTimer, DurationSec: tt.duration}
			start, end := Timestamps(now, p)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateAuthenticating, "authenticating"},
		{StateRetrying, "retrying"},
		{StateReady, "ready"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.state.String())
	}
}
