package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/model"
)

// YAMLFormatter writes YAML with the same keys and order as the JSON form.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// FormatConfig writes the document as YAML.
func (f *YAMLFormatter) FormatConfig(w io.Writer, cfg *config.Presence) error {
	return encodeYAML(w, cfg)
}

// FormatStatus writes the snapshot as YAML.
func (f *YAMLFormatter) FormatStatus(w io.Writer, snap model.Snapshot) error {
	return encodeYAML(w, snap)
}

// FormatHistory writes the events as a YAML sequence.
func (f *YAMLFormatter) FormatHistory(w io.Writer, events []model.Event) error {
	if events == nil {
		events = []model.Event{}
	}
	return encodeYAML(w, events)
}

// encodeYAML goes through JSON so key names and unknown fields match the
// stored document, then re-emits the tree in block style.
func encodeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("failed to convert to yaml: %w", err)
	}
	blockStyle(&node)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&node); err != nil {
		return err
	}
	return encoder.Close()
}

// blockStyle clears the flow and quoting styles inherited from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}
