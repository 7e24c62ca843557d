package model

import (
	"time"
)

// Status is the event sent towards the display surface after every
// set/clear attempt.
type Status struct {
	OK   bool      `json:"ok"`
	Msg  string    `json:"msg"`
	Time time.Time `json:"time"`
}

// NewStatus creates a Status stamped with the current time.
func NewStatus(ok bool, msg string) Status {
	return Status{OK: ok, Msg: msg, Time: time.Now()}
}

// Snapshot describes what the daemon is currently publishing.
type Snapshot struct {
	State     string        `json:"state"`
	ClientID  string        `json:"client_id,omitempty"`
	User      string        `json:"user,omitempty"`
	Rotating  bool          `json:"rotating"`
	Interval  time.Duration `json:"interval,omitempty"`
	Tick      uint64        `json:"tick"`
	Activity  *Activity     `json:"activity,omitempty"`
	StartedAt time.Time     `json:"started_at,omitzero"`
	LastTick  time.Time     `json:"last_tick,omitzero"`
	Last      *Status       `json:"last_status,omitempty"`
}

// IntervalSeconds returns the rotation interval in whole seconds.
func (s *Snapshot) IntervalSeconds() int {
	return int(s.Interval / time.Second)
}
