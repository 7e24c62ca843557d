package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Default presence values.
const (
	DefaultDetails   = "Listening ..."
	DefaultState     = "chill vibes 🎧"
	DefaultRotateSec = 15
)

// Errors returned by the presence store.
var (
	ErrClientIDRequired = errors.New("Client ID required")
	ErrInvalidClientID  = errors.New("Client ID must be a numeric Discord application id")
	ErrParse            = errors.New("failed to parse presence config")
)

// knownKeys lists the JSON keys owned by Presence. Anything else in the
// document is carried in Extra.
var knownKeys = []string{
	"clientId",
	"details",
	"state",
	"largeImageKey",
	"largeImageText",
	"smallImageKey",
	"smallImageText",
	"showTimer",
	"durationSec",
	"rotateSec",
	"runAtLogin",
}

// Presence is the user-editable presence document.
// details and state hold either a single line or a list separated by
// newlines or pipes.
type Presence struct {
	ClientID       string `json:"clientId"`
	Details        string `json:"details"`
	State          string `json:"state"`
	LargeImageKey  string `json:"largeImageKey"`
	LargeImageText string `json:"largeImageText"`
	SmallImageKey  string `json:"smallImageKey"`
	SmallImageText string `json:"smallImageText"`
	ShowTimer      bool   `json:"showTimer"`
	DurationSec    int    `json:"durationSec"`
	RotateSec      int    `json:"rotateSec"`
	RunAtLogin     bool   `json:"runAtLogin"`

	// Extra holds unknown keys, compacted, so they survive a save.
	Extra map[string]json.RawMessage `json:"-"`
}

// Defaults returns the presence used when no document exists.
// ClientID is empty so nothing is published automatically.
func Defaults() *Presence {
	return &Presence{
		ClientID:   "",
		Details:    DefaultDetails,
		State:      DefaultState,
		ShowTimer:  true,
		RotateSec:  DefaultRotateSec,
		RunAtLogin: false,
	}
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
// clientId may be a JSON number and durationSec/rotateSec may be numeric
// strings, as hand-edited files often carry them that way.
func (p *Presence) UnmarshalJSON(data []byte) error {
	type plain Presence
	var decoded struct {
		plain
		ClientID    json.RawMessage `json:"clientId"`
		DurationSec json.RawMessage `json:"durationSec"`
		RotateSec   json.RawMessage `json:"rotateSec"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	clientID, err := looseString(decoded.ClientID)
	if err != nil {
		return fmt.Errorf("clientId: %w", err)
	}
	durationSec, err := looseInt(decoded.DurationSec)
	if err != nil {
		return fmt.Errorf("durationSec: %w", err)
	}
	rotateSec, err := looseInt(decoded.RotateSec)
	if err != nil {
		return fmt.Errorf("rotateSec: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownKeys {
		delete(raw, k)
	}
	// Save re-indents the document, so unknown values are kept compact
	// to compare equal across a save.
	for k, v := range raw {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return err
		}
		raw[k] = buf.Bytes()
	}

	*p = Presence(decoded.plain)
	p.ClientID = clientID
	p.DurationSec = durationSec
	p.RotateSec = rotateSec
	if len(raw) > 0 {
		p.Extra = raw
	} else {
		p.Extra = nil
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// looseString accepts a JSON string or a JSON number kept as written.
func looseString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
	return n.String(), nil
}

// looseInt accepts a JSON integer or a string holding one.
func looseInt(raw json.RawMessage) (int, error) {
	if isNull(raw) {
		return 0, nil
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", s)
		}
		return n, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("expected integer, got %s", raw)
	}
	v, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, fmt.Errorf("expected integer, got %s", raw)
	}
	return v, nil
}

// MarshalJSON encodes the known fields merged with Extra.
func (p Presence) MarshalJSON() ([]byte, error) {
	type plain Presence
	known, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(knownKeys)+len(p.Extra))
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, owned := merged[k]; !owned {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Validate checks the fields required before publishing.
func (p *Presence) Validate() error {
	if strings.TrimSpace(p.ClientID) == "" {
		return ErrClientIDRequired
	}
	return ValidateClientID(p.ClientID)
}

// ValidateClientID reports whether id is a Discord snowflake: ASCII digits
// only. The id ends up in file names and desktop entries.
func ValidateClientID(id string) error {
	if id == "" {
		return ErrClientIDRequired
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return ErrInvalidClientID
		}
	}
	return nil
}

// Clone returns a deep copy.
func (p *Presence) Clone() *Presence {
	clone := *p
	if p.Extra != nil {
		clone.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			clone.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &clone
}

// Equal reports whether both documents carry the same content.
func (p *Presence) Equal(other *Presence) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.ClientID != other.ClientID ||
		p.Details != other.Details ||
		p.State != other.State ||
		p.LargeImageKey != other.LargeImageKey ||
		p.LargeImageText != other.LargeImageText ||
		p.SmallImageKey != other.SmallImageKey ||
		p.SmallImageText != other.SmallImageText ||
		p.ShowTimer != other.ShowTimer ||
		p.DurationSec != other.DurationSec ||
		p.RotateSec != other.RotateSec ||
		p.RunAtLogin != other.RunAtLogin {
		return false
	}
	return maps.EqualFunc(p.Extra, other.Extra, func(x, y json.RawMessage) bool {
		return bytes.Equal(x, y)
	})
}

// Load reads the presence document at path.
// A missing file yields Defaults(); any other failure is returned so the
// caller decides the fallback.
func Load(path string) (*Presence, error) {
	if path == "" {
		path = PresencePath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return nil, fmt.Errorf("failed to read presence config: %w", err)
	}

	return Parse(data)
}

// Parse decodes a presence document. Keys absent from data stay zero.
func Parse(data []byte) (*Presence, error) {
	p := &Presence{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return p, nil
}

// LoadOrDefault loads the presence document, degrading to Defaults() on
// any error.
func LoadOrDefault(path string, logger *slog.Logger) *Presence {
	if logger == nil {
		logger = slog.Default()
	}
	p, err := Load(path)
	if err != nil {
		logger.Warn("using default presence config", "path", path, "error", err)
		return Defaults()
	}
	logger.Debug("loaded presence config", "path", path, "client_id", p.ClientID)
	return p
}

// Save writes the presence document to path atomically.
// Creates parent directories if needed.
func (p *Presence) Save(path string) error {
	if path == "" {
		path = PresencePath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal presence config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write presence config: %w", err)
	}

	return os.Rename(tmpPath, path)
}
