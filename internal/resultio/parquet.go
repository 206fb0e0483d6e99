package resultio

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

const flushInterval = 50_000

// ParquetWriter writes Result rows to one Parquet file and RunSummary
// rows to a sibling "<path>.summary.parquet" file (spec.md §4.K).
type ParquetWriter struct {
	file        *os.File
	resultW     *parquet.GenericWriter[ResultRow]
	summaryPath string
	summaries   []SummaryRow
	count       int
}

// NewParquetWriter creates path and prepares it to receive Result rows.
// Summaries are buffered in memory and flushed to a sibling
// "<path>.summary.parquet" file on Close, since parquet-go's
// GenericWriter is single-schema and the engine favors two small files
// over hand-rolling a union schema.
func NewParquetWriter(path string) (*ParquetWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create result parquet %s: %w", path, err)
	}
	writer := parquet.NewGenericWriter[ResultRow](file, parquet.Compression(&parquet.Snappy))
	return &ParquetWriter{
		file:        file,
		resultW:     writer,
		summaryPath: path + ".summary.parquet",
	}, nil
}

// WriteResult appends one row.
func (w *ParquetWriter) WriteResult(row ResultRow) error {
	if _, err := w.resultW.Write([]ResultRow{row}); err != nil {
		return fmt.Errorf("write result row: %w", err)
	}
	w.count++
	if w.count%flushInterval == 0 {
		if err := w.resultW.Flush(); err != nil {
			return fmt.Errorf("flush results: %w", err)
		}
	}
	return nil
}

// WriteSummary buffers one RunSummary row for the sibling summary file.
func (w *ParquetWriter) WriteSummary(row SummaryRow) {
	w.summaries = append(w.summaries, row)
}

// Count returns the number of Result rows written so far.
func (w *ParquetWriter) Count() int { return w.count }

// Close flushes and closes the result file, then writes the buffered
// summary rows to the sibling summary file.
func (w *ParquetWriter) Close() error {
	if err := w.resultW.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close result writer: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close result file: %w", err)
	}

	if len(w.summaries) == 0 {
		return nil
	}

	sf, err := os.Create(w.summaryPath)
	if err != nil {
		return fmt.Errorf("create summary parquet %s: %w", w.summaryPath, err)
	}
	defer sf.Close()

	sw := parquet.NewGenericWriter[SummaryRow](sf, parquet.Compression(&parquet.Snappy))
	if _, err := sw.Write(w.summaries); err != nil {
		return fmt.Errorf("write summary rows: %w", err)
	}
	if err := sw.Close(); err != nil {
		return fmt.Errorf("close summary writer: %w", err)
	}
	return nil
}
