package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/chartscrape/internal/records"
)

// YAMLWriter writes all records as one YAML sequence on Close.
type YAMLWriter struct {
	w    io.Writer
	recs []records.Record
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{w: w, recs: make([]records.Record, 0)}
}

// Write buffers a record.
func (w *YAMLWriter) Write(rec records.Record) error {
	w.recs = append(w.recs, rec)
	return nil
}

// Close encodes the buffered records.
func (w *YAMLWriter) Close() error {
	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)
	if err := enc.Encode(w.recs); err != nil {
		return err
	}
	return enc.Close()
}
