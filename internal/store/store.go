// Package store keeps the history of status events published by presenced.
package store

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/presence/internal/model"
)

// ErrStoreClosed is returned when the history has been closed.
var ErrStoreClosed = errors.New("store is closed")

// DefaultMaxEntries is the number of events kept when none is configured.
const DefaultMaxEntries = 500

// History manages the status event log with thread-safe operations.
type History struct {
	mu          sync.RWMutex
	events      []model.Event // oldest first
	maxEntries  int
	persistence Persistence
	closed      bool
}

// NewHistory creates a History keeping at most maxEntries events.
// If persistence is not nil, it will be used to persist events.
func NewHistory(persistence Persistence, maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{
		events:      make([]model.Event, 0),
		maxEntries:  maxEntries,
		persistence: persistence,
	}
}

// Open loads the history log at path.
func Open(path string, maxEntries int) (*History, error) {
	persistence, err := NewJSONLPersistence(path)
	if err != nil {
		return nil, err
	}
	h := NewHistory(persistence, maxEntries)
	if err := h.Hydrate(); err != nil {
		return nil, err
	}
	return h, nil
}

// Hydrate loads events from persistence.
func (h *History) Hydrate() error {
	if h.persistence == nil {
		return nil
	}

	events, err := h.persistence.Load()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = events
	h.trimLocked()
	return nil
}

// Record appends a status event. The file is compacted once it holds
// twice the configured number of entries.
func (h *History) Record(status model.Status) error {
	e, err := model.NewEvent(status)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrStoreClosed
	}

	h.events = append(h.events, e)
	if h.persistence == nil {
		h.trimLocked()
		return nil
	}

	if len(h.events) >= 2*h.maxEntries {
		h.trimLocked()
		return h.persistence.Rewrite(h.events)
	}
	return h.persistence.Append(e)
}

// trimLocked drops the oldest events beyond maxEntries.
func (h *History) trimLocked() {
	if over := len(h.events) - h.maxEntries; over > 0 {
		h.events = slices.Clone(h.events[over:])
	}
}

// Count returns the number of events held in memory.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}

// Recent returns up to limit events, newest first. A limit of 0 returns all.
func (h *History) Recent(limit int) []model.Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := slices.Clone(h.events)
	slices.Reverse(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// PruneOptions selects events to remove.
type PruneOptions struct {
	OlderThan time.Duration // Remove events older than now-OlderThan (0 = no age limit)
	Keep      int           // Keep only the N most recent (0 = unlimited)
	DryRun    bool          // Report without removing
}

// Prune removes events matching opts and returns the removed events,
// oldest first.
func (h *History) Prune(opts PruneOptions, now time.Time) ([]model.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrStoreClosed
	}

	start := 0
	if opts.OlderThan > 0 {
		cutoff := now.Add(-opts.OlderThan)
		for start < len(h.events) && h.events[start].Time.Before(cutoff) {
			start++
		}
	}
	if opts.Keep > 0 && len(h.events)-start > opts.Keep {
		start = len(h.events) - opts.Keep
	}

	removed := slices.Clone(h.events[:start])
	if len(removed) == 0 || opts.DryRun {
		return removed, nil
	}

	h.events = slices.Clone(h.events[start:])
	if h.persistence != nil {
		if err := h.persistence.Rewrite(h.events); err != nil {
			return nil, err
		}
	}
	return removed, nil
}

// Close closes the history and its persistence.
func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.persistence != nil {
		return h.persistence.Close()
	}
	return nil
}

// ParseDuration parses a duration string, accepting d and w suffixes
// in addition to the units time.ParseDuration understands.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" {
		return 0, nil
	}

	// Handle day suffix (7d -> 168h)
	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	// Handle week suffix (1w -> 168h)
	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}
