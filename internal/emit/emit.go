// Package emit writes normalized events to the downstream boundary as
// newline-delimited JSON.
package emit

import (
	"encoding/json"
	"fmt"
	"io"

	"metroharvest/internal/civic"
)

// Writer streams events as NDJSON.
type Writer struct {
	enc   *json.Encoder
	count int
}

// NewWriter constructs a Writer over the given destination.
func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{enc: enc}
}

// Write emits one event.
func (w *Writer) Write(ev *civic.Event) error {
	if err := w.enc.Encode(ev); err != nil {
		return fmt.Errorf("emit: encode event %s: %w", ev.ID, err)
	}
	w.count++
	return nil
}

// Count returns how many events have been written.
func (w *Writer) Count() int { return w.count }
