// Package export writes detected pulses as Parquet rows for downstream
// analysis, one row per pulse across every recording in a run.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	parquet "github.com/parquet-go/parquet-go"

	"github.com/linuxmatters/jadepulse/internal/processor"
)

// PulseRow is one detected pulse. IntervalMs is null for the first pulse
// of a recording.
type PulseRow struct {
	File       string   `parquet:"file,dict"`
	Pulse      int32    `parquet:"pulse"`
	Sample     int64    `parquet:"sample"`
	TimeS      float64  `parquet:"time_s"`
	Amplitude  float64  `parquet:"amplitude"`
	IntervalMs *float64 `parquet:"interval_ms,optional"`
	Multiplier float64  `parquet:"threshold_multiplier"`
	MinLengthS float64  `parquet:"min_length_s"`
}

// PulseRows flattens a processing result into rows. file is the name
// recorded in every row.
func PulseRows(file string, r *processor.ProcessingResult) []PulseRow {
	amps := r.PeakAmplitudes()
	rows := make([]PulseRow, len(r.Peaks))
	for i, peak := range r.Peaks {
		rows[i] = PulseRow{
			File:       file,
			Pulse:      int32(i + 1),
			Sample:     int64(peak),
			TimeS:      r.Buffer.TimeAt(peak),
			Amplitude:  amps[i],
			Multiplier: r.Config.ThresholdMultiplier,
			MinLengthS: r.Config.MinLength,
		}
		if i > 0 && i-1 < len(r.Intervals) {
			iv := r.Intervals[i-1]
			rows[i].IntervalMs = &iv
		}
	}
	return rows
}

// Compression maps a codec name to a writer option. Unknown names fall
// back to Snappy.
func Compression(name string) parquet.WriterOption {
	switch strings.ToLower(name) {
	case "zstd":
		return parquet.Compression(&parquet.Zstd)
	case "gzip", "gz":
		return parquet.Compression(&parquet.Gzip)
	case "none", "uncompressed":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Snappy)
	}
}

// PulseWriter accumulates rows from several recordings into one Parquet
// stream. It is safe for concurrent use.
type PulseWriter struct {
	mu     sync.Mutex
	pw     *parquet.GenericWriter[PulseRow]
	closer io.Closer // non-nil when the writer owns the file
	rows   int
}

// NewPulseWriter writes to w with the named compression codec
func NewPulseWriter(w io.Writer, compression string) *PulseWriter {
	return &PulseWriter{pw: parquet.NewGenericWriter[PulseRow](w, Compression(compression))}
}

// CreatePulseFile creates path and returns a writer that closes it
func CreatePulseFile(path, compression string) (*PulseWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}
	w := NewPulseWriter(f, compression)
	w.closer = f
	return w, nil
}

// Append adds the pulses of one recording
func (w *PulseWriter) Append(file string, r *processor.ProcessingResult) error {
	return w.Write(PulseRows(file, r))
}

// Write adds rows
func (w *PulseWriter) Write(rows []PulseRow) error {
	if len(rows) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.pw.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	w.rows += len(rows)
	return nil
}

// Rows returns the number of rows written so far
func (w *PulseWriter) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Close flushes the footer and closes the file if the writer owns one
func (w *PulseWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.pw.Close()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// WritePulses writes rows to w as a complete Snappy-compressed file
func WritePulses(w io.Writer, rows []PulseRow) error {
	pw := NewPulseWriter(w, "snappy")
	if err := pw.Write(rows); err != nil {
		return err
	}
	return pw.Close()
}

// ReadPulses reads every row back from a Parquet file
func ReadPulses(ra io.ReaderAt) ([]PulseRow, error) {
	gr := parquet.NewGenericReader[PulseRow](ra)
	defer gr.Close()

	out := make([]PulseRow, 0, gr.NumRows())
	for {
		// fresh batch each time: decoded pointers may be reused otherwise
		batch := make([]PulseRow, 256)
		n, err := gr.Read(batch)
		out = append(out, batch[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return out, nil
}
