// Package model defines the core data structures for presence.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Activity is the structured payload published to the chat client.
// Timestamps are unix seconds; zero means "not attached".
type Activity struct {
	Details        string `json:"details"`
	State          string `json:"state"`
	StartTimestamp int64  `json:"start_timestamp,omitempty"`
	EndTimestamp   int64  `json:"end_timestamp,omitempty"`
	LargeImageKey  string `json:"large_image_key,omitempty"`
	LargeImageText string `json:"large_image_text,omitempty"`
	SmallImageKey  string `json:"small_image_key,omitempty"`
	SmallImageText string `json:"small_image_text,omitempty"`
	Instance       bool   `json:"instance"`
}

// Validation errors.
var (
	ErrEmptyDetails     = errors.New("details cannot be empty")
	ErrEmptyState       = errors.New("state cannot be empty")
	ErrInvalidTimeRange = errors.New("end timestamp must be after start timestamp")
)

// Validate checks that the activity can be published.
func (a *Activity) Validate() error {
	if a.Details == "" {
		return ErrEmptyDetails
	}
	if a.State == "" {
		return ErrEmptyState
	}
	if a.EndTimestamp > 0 && a.EndTimestamp <= a.StartTimestamp {
		return ErrInvalidTimeRange
	}
	return nil
}

// HasTimer reports whether any timestamp is attached.
func (a *Activity) HasTimer() bool {
	return a.StartTimestamp > 0 || a.EndTimestamp > 0
}

// HasAssets reports whether any image key or text is set.
func (a *Activity) HasAssets() bool {
	return a.LargeImageKey != "" || a.LargeImageText != "" ||
		a.SmallImageKey != "" || a.SmallImageText != ""
}

// StartTime returns the start timestamp as a time.Time.
func (a *Activity) StartTime() time.Time {
	if a.StartTimestamp == 0 {
		return time.Time{}
	}
	return time.Unix(a.StartTimestamp, 0)
}

// EndTime returns the end timestamp as a time.Time.
func (a *Activity) EndTime() time.Time {
	if a.EndTimestamp == 0 {
		return time.Time{}
	}
	return time.Unix(a.EndTimestamp, 0)
}

// NewNonce returns a fresh ULID used to correlate IPC requests and replies.
func NewNonce() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}
