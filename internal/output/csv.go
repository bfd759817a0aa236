package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/jmylchreest/chartscrape/internal/records"
)

var csvHeader = []string{"country", "date", "count", "kind"}

// CSVWriter writes comma-separated records with a header row.
type CSVWriter struct {
	w      *csv.Writer
	header bool
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write writes a record, preceded by the header on first use.
func (w *CSVWriter) Write(rec records.Record) error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	return w.w.Write([]string{rec.Country, rec.Date, strconv.Itoa(rec.Count), string(rec.Kind)})
}

func (w *CSVWriter) writeHeader() error {
	if w.header {
		return nil
	}
	w.header = true
	return w.w.Write(csvHeader)
}

// Close flushes the writer. An empty export still gets a header.
func (w *CSVWriter) Close() error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}
