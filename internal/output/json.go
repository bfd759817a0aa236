package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/jmylchreest/chartscrape/internal/records"
)

// JSONWriter writes all records as one JSON array on Close.
type JSONWriter struct {
	w      io.Writer
	indent string
	recs   []records.Record
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, indent string) *JSONWriter {
	return &JSONWriter{w: w, indent: indent, recs: make([]records.Record, 0)}
}

// Write buffers a record.
func (w *JSONWriter) Write(rec records.Record) error {
	w.recs = append(w.recs, rec)
	return nil
}

// Close writes the buffered records.
func (w *JSONWriter) Close() error {
	enc := json.NewEncoder(w.w)
	enc.SetEscapeHTML(false)
	if w.indent != "" {
		enc.SetIndent("", w.indent)
	}
	return enc.Encode(w.recs)
}

// JSONLWriter writes one JSON object per line.
type JSONLWriter struct {
	w *bufio.Writer
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{w: bufio.NewWriter(w)}
}

// Write writes a record as a JSON line.
func (w *JSONLWriter) Write(rec records.Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(line); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes the buffer.
func (w *JSONLWriter) Close() error {
	return w.w.Flush()
}
