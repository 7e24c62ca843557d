// Package output renders presence documents and daemon status for the CLI.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/model"
)

// Formatter renders documents and status snapshots.
type Formatter interface {
	// FormatConfig writes a presence document.
	FormatConfig(w io.Writer, cfg *config.Presence) error
	// FormatStatus writes a daemon status snapshot.
	FormatStatus(w io.Writer, snap model.Snapshot) error
	// FormatHistory writes status history events, newest first.
	FormatHistory(w io.Writer, events []model.Event) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatPlain FormatType = "plain"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (FormatType, error) {
	switch FormatType(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatPlain, "":
		return FormatPlain, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected json, yaml or plain)", s)
	}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template   string // Custom template for plain format
	MaxLen     int    // Maximum phrase length in plain format (0 = unlimited)
	ShowEmpty  bool   // Include empty fields in plain format
	ShowPhrase bool   // Expand phrase lists one per line in plain format
}

// DefaultFormatterOptions returns sensible defaults for terminal output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		MaxLen:     80,
		ShowPhrase: true,
	}
}
