// Package appendixio loads the AHRQ appendix code tables that seed the
// code-set registry, from CSV or JSON (spec.md §4.J).
package appendixio

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// InputSchemaError is the batch's one fatal load-time error (spec.md
// §7): a JSON appendix payload lacking a top-level "data" array.
type InputSchemaError struct {
	Path string
}

func (e *InputSchemaError) Error() string {
	return fmt.Sprintf("appendix %s: JSON payload has no top-level \"data\" array", e.Path)
}

// ReadCSV loads a CSV appendix table into header -> column values,
// ready for codeset.NewRegistry. Columns are read by position; short
// rows leave trailing columns for that row empty.
func ReadCSV(path string) (map[string][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	bufReader := bufio.NewReaderSize(file, 256*1024)
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header row of %s: %w", path, err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	columns := make(map[string][]string, len(headers))
	for {
		row, err := reader.Read()
		if err != nil {
			break
		}
		for i, h := range headers {
			if i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			columns[h] = append(columns[h], v)
		}
	}
	return columns, nil
}

// ReadJSON loads a JSON appendix payload shaped `{"data": [...]}`, one
// object per row, column-name-as-key, into header -> column values.
// A payload lacking "data" is the batch's fatal InputSchemaError.
func ReadJSON(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if envelope.Data == nil {
		return nil, &InputSchemaError{Path: path}
	}

	columns := make(map[string][]string)
	for _, row := range envelope.Data {
		for k, v := range row {
			s := stringify(v)
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			columns[k] = append(columns[k], s)
		}
	}
	return columns, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
