package presence

import (
	"math"
	"strings"
	"time"

	"github.com/jmylchreest/presence/internal/config"
)

// Fallback phrases used when a list parses to nothing.
const (
	FallbackDetails = "Listening ..."
	FallbackState   = "🎧"
)

// ParseList splits input on newlines and pipes, trimming each phrase and
// dropping empty ones.
func ParseList(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == '\n' || r == '|'
	})

	phrases := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			phrases = append(phrases, f)
		}
	}
	return phrases
}

// Phrases returns ParseList(input), or a single fallback phrase when the
// list is empty.
func Phrases(input, fallback string) []string {
	phrases := ParseList(input)
	if len(phrases) == 0 {
		return []string{fallback}
	}
	return phrases
}

// Interval returns the rotation interval for rotateSec, never below floor
// and never below config.MinRotateInterval.
func Interval(rotateSec int, floor time.Duration) time.Duration {
	if floor < config.MinRotateInterval {
		floor = config.MinRotateInterval
	}
	if rotateSec <= int(floor/time.Second) {
		return floor
	}
	if int64(rotateSec) > maxRotateSec {
		return time.Duration(maxRotateSec) * time.Second
	}
	return time.Duration(rotateSec) * time.Second
}

// maxRotateSec is the largest second count a time.Duration can hold.
const maxRotateSec = math.MaxInt64 / int64(time.Second)

// Timestamps computes the activity timer bounds in unix seconds.
// Zero means the bound is not attached.
func Timestamps(now time.Time, p *config.Presence) (start, end int64) {
	if !p.ShowTimer {
		return 0, 0
	}
	start = now.Unix()
	if p.DurationSec > 0 {
		end = now.Add(time.Duration(p.DurationSec) * time.Second).Unix()
	}
	return start, end
}
