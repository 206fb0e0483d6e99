package recordio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"psiengine/internal/encounter"
)

// JSONRecordReader streams one encounter per item from a JSON file
// shaped as a bare array or as `{"data": [...]}` (spec.md §4.I), using
// token-by-token decoding so the whole file is never materialized.
type JSONRecordReader struct {
	file    *os.File
	decoder *json.Decoder
	itemNum int64
	done    bool
}

// NewJSONRecordReader opens path and positions the decoder at the
// first array element, accepting either envelope shape.
func NewJSONRecordReader(path string) (*JSONRecordReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	decoder := json.NewDecoder(bufio.NewReaderSize(file, 256*1024))
	r := &JSONRecordReader{file: file, decoder: decoder}

	if err := r.seekArray(); err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

func (r *JSONRecordReader) seekArray() error {
	tok, err := r.decoder.Token()
	if err != nil {
		return fmt.Errorf("read opening token: %w", err)
	}

	if d, ok := tok.(json.Delim); ok && d == '[' {
		return nil
	}
	if d, ok := tok.(json.Delim); ok && d == '{' {
		for r.decoder.More() {
			keyTok, err := r.decoder.Token()
			if err != nil {
				return fmt.Errorf("read field name: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return fmt.Errorf("expected string key, got %T", keyTok)
			}
			if key == "data" {
				arrTok, err := r.decoder.Token()
				if err != nil {
					return fmt.Errorf("read data '[': %w", err)
				}
				if d, ok := arrTok.(json.Delim); !ok || d != '[' {
					return fmt.Errorf("expected '[' for data, got %v", arrTok)
				}
				return nil
			}
			var skip json.RawMessage
			if err := r.decoder.Decode(&skip); err != nil {
				return fmt.Errorf("skip field %q: %w", key, err)
			}
		}
		r.done = true
		return nil
	}
	return fmt.Errorf("expected '[' or '{', got %v", tok)
}

// Next returns the next item as a RawRecord, or io.EOF when exhausted.
func (r *JSONRecordReader) Next() (encounter.RawRecord, error) {
	if r.done {
		return nil, io.EOF
	}
	if !r.decoder.More() {
		r.decoder.Token() // closing ']'
		r.done = true
		return nil, io.EOF
	}

	var item map[string]any
	if err := r.decoder.Decode(&item); err != nil {
		return nil, fmt.Errorf("decode item %d: %w", r.itemNum+1, err)
	}
	r.itemNum++

	rec := make(encounter.RawRecord, len(item))
	for k, v := range item {
		rec[k] = stringifyJSONValue(v)
	}
	return rec, nil
}

func stringifyJSONValue(v any) string {
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

func (r *JSONRecordReader) ItemNum() int64 { return r.itemNum }

func (r *JSONRecordReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ReadAllJSONRecords drains a JSONRecordReader into a slice.
func ReadAllJSONRecords(path string) ([]encounter.RawRecord, error) {
	r, err := NewJSONRecordReader(path)
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
			return nil, fmt.Errorf("reading %s at item %d: %w", path, r.ItemNum(), err)
		}
		out = append(out, rec)
	}
	return out, nil
}
