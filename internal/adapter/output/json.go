package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/model"
)

// JSONFormatter writes indented JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// FormatConfig writes the document exactly as it is stored on disk.
func (f *JSONFormatter) FormatConfig(w io.Writer, cfg *config.Presence) error {
	return encodeJSON(w, cfg)
}

// FormatStatus writes the snapshot as JSON.
func (f *JSONFormatter) FormatStatus(w io.Writer, snap model.Snapshot) error {
	return encodeJSON(w, snap)
}

// FormatHistory writes the events as a JSON array.
func (f *JSONFormatter) FormatHistory(w io.Writer, events []model.Event) error {
	if events == nil {
		events = []model.Event{}
	}
	return encodeJSON(w, events)
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
