package model

import (
	"crypto/rand"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// Event is a status recorded in the history log.
type Event struct {
	ID string `json:"id"` // ULID, sortable by time
	Status
}

// NewEvent wraps status with an id derived from its time.
func NewEvent(status Status) (Event, error) {
	id, err := ulid.New(ulid.Timestamp(status.Time), rand.Reader)
	if err != nil {
		return Event{}, fmt.Errorf("failed to generate ULID: %w", err)
	}
	return Event{ID: id.String(), Status: status}, nil
}
