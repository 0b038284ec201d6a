// Package serializer provides the wire encoding used for export payloads.
package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bubblehouse/connector/internal/domain/export"
)

// JSONSerializer encodes values as compact JSON.
// HTML characters are left unescaped. The Bubblehouse client encodes request
// bodies with the same serializer, so a stored body is the body that was sent.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSON serializer
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Serialize encodes v as JSON
func (s *JSONSerializer) Serialize(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to serialize: %w", err)
	}
	// Encoder always terminates with a newline
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unserialize decodes JSON data into v
func (s *JSONSerializer) Unserialize(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unserialize: %w", err)
	}
	return nil
}

var _ export.Serializer = (*JSONSerializer)(nil)
