package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/presence/internal/model"
)

// SchemaVersion is the current persistence schema version.
const SchemaVersion = 1

// Persistence defines the interface for history storage.
type Persistence interface {
	// Load reads all events from storage.
	Load() ([]model.Event, error)

	// Append adds an event to storage.
	Append(e model.Event) error

	// Rewrite replaces the entire storage file (used after prune).
	Rewrite(es []model.Event) error

	// Close releases resources.
	Close() error
}

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	PresenceSchemaVersion int   `json:"presence_schema_version"`
	CreatedAt             int64 `json:"created_at"`
}

// ErrPersistenceClosed is returned when operations are attempted on a closed persistence.
var ErrPersistenceClosed = errors.New("persistence is closed")

// JSONLPersistence implements Persistence using a JSONL file. The file is
// opened per operation so the daemon and the CLI can share it; rewrites
// replace it atomically.
type JSONLPersistence struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewJSONLPersistence creates a new JSONLPersistence.
// Creates the parent directory if it doesn't exist.
func NewJSONLPersistence(path string) (*JSONLPersistence, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &JSONLPersistence{path: path}, nil
}

// Load reads all events from storage. A missing file is empty.
func (p *JSONLPersistence) Load() ([]model.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPersistenceClosed
	}

	file, err := os.Open(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", p.path, err)
	}
	defer file.Close()

	var events []model.Event
	scanner := bufio.NewScanner(file)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		// First line is the header
		if lineNum == 1 {
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err == nil && header.PresenceSchemaVersion > 0 {
				if header.PresenceSchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.PresenceSchemaVersion, SchemaVersion)
				}
				continue
			}
		}

		// Skip malformed lines
		var e model.Event
		if err := json.Unmarshal(line, &e); err != nil || e.ID == "" {
			continue
		}
		events = append(events, e)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading file: %w", err)
	}
	return events, nil
}

// Append adds an event to storage, writing the header to a new file.
func (p *JSONLPersistence) Append(e model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}

	file, err := os.OpenFile(p.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", p.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		if err := writeHeader(file); err != nil {
			return err
		}
	}

	if err := writeEvent(file, e); err != nil {
		return err
	}
	return file.Sync()
}

// Rewrite replaces the entire storage file (used after prune).
func (p *JSONLPersistence) Rewrite(es []model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}

	tmpPath := p.path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create new file: %w", err)
	}

	if err := writeAll(file, es); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, p.path)
}

// Close marks the persistence closed.
func (p *JSONLPersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func writeAll(file *os.File, es []model.Event) error {
	if err := writeHeader(file); err != nil {
		return err
	}
	for _, e := range es {
		if err := writeEvent(file, e); err != nil {
			return err
		}
	}
	return file.Sync()
}

// writeHeader writes the schema version header to the file.
func writeHeader(file *os.File) error {
	data, err := json.Marshal(schemaHeader{
		PresenceSchemaVersion: SchemaVersion,
		CreatedAt:             time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	_, err = file.Write(append(data, '\n'))
	return err
}

func writeEvent(file *os.File, e model.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = file.Write(append(data, '\n'))
	return err
}
