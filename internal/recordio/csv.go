// Package recordio streams encounter rows from CSV/JSON into the raw
// maps the engine's normalizer consumes (spec.md §4.I). Appendix code
// tables are read by package appendixio.
package recordio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"psiengine/internal/encounter"
)

// CSVRecordReader streams one encounter RawRecord per CSV data row.
// Header presence, not position, determines which fields exist for a
// row (spec.md §4.I).
type CSVRecordReader struct {
	file    *os.File
	csv     *csv.Reader
	headers []string
	rowNum  int64
}

// NewCSVRecordReader opens path and reads its header row.
func NewCSVRecordReader(path string) (*CSVRecordReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	bufReader := bufio.NewReaderSize(file, 256*1024)
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	r := &CSVRecordReader{file: file, csv: reader}
	headers, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read header row of %s: %w", path, err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\xef\xbb\xbf")
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}
	r.headers = headers
	r.rowNum = 1
	return r, nil
}

// Next returns the next row as a RawRecord, or io.EOF when the file is
// exhausted. Unknown/extra columns are carried through untouched; the
// normalizer decides what it needs.
func (r *CSVRecordReader) Next() (encounter.RawRecord, error) {
	for {
		row, err := r.csv.Read()
		if err != nil {
			return nil, err
		}
		r.rowNum++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		rec := make(encounter.RawRecord, len(r.headers))
		for i, h := range r.headers {
			if i >= len(row) {
				break
			}
			rec[h] = strings.TrimSpace(row[i])
		}
		return rec, nil
	}
}

// RowNum returns the current 1-based CSV row number, header included.
func (r *CSVRecordReader) RowNum() int64 { return r.rowNum }

func (r *CSVRecordReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ReadAllCSVRecords drains a CSVRecordReader into a slice, used by the
// batch driver which needs all encounters resident for worker-pool
// fan-out.
func ReadAllCSVRecords(path string) ([]encounter.RawRecord, error) {
	r, err := NewCSVRecordReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []encounter.RawRecord
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s at row %d: %w", path, r.RowNum(), err)
		}
		out = append(out, rec)
	}
	return out, nil
}
