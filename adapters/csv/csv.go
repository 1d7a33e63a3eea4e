// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package csv loads delimited text into a datatable.DataSource, inferring a
// type for every column.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/magpierre/widgetjson/adapters/slice"
	"github.com/magpierre/widgetjson/datatable"
)

// ErrNoHeader is returned when HasHeaders is set and the input is empty.
var ErrNoHeader = errors.New("csv input has no header row")

// Config controls how CSV input is parsed.
type Config struct {
	// Delimiter separates fields. Defaults to ','.
	Delimiter rune

	// HasHeaders treats the first record as column names.
	HasHeaders bool

	// TrimSpace trims surrounding whitespace from every field.
	TrimSpace bool

	// NullValues are field values read as null. An empty field is always null.
	NullValues []string
}

// DefaultConfig returns the configuration used for typical CSV files.
func DefaultConfig() Config {
	return Config{
		Delimiter:  ',',
		HasHeaders: true,
		TrimSpace:  false,
		NullValues: []string{"NULL", "null", "NA"},
	}
}

// NewFromFile reads the CSV file at path.
func NewFromFile(path string, config Config) (*slice.DataSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	return NewFromReader(f, config)
}

// NewFromReader reads CSV input from r.
func NewFromReader(r io.Reader, config Config) (*slice.DataSource, error) {
	reader := csv.NewReader(r)
	if config.Delimiter != 0 {
		reader.Comma = config.Delimiter
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = config.TrimSpace

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	var header []string
	if config.HasHeaders {
		if len(records) == 0 {
			return nil, ErrNoHeader
		}
		header, records = records[0], records[1:]
	}

	width := len(header)
	for _, rec := range records {
		width = max(width, len(rec))
	}
	columns := make([]string, width)
	for i := range columns {
		if i < len(header) {
			columns[i] = clean(header[i], config)
		}
		if columns[i] == "" {
			columns[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	nulls := make(map[string]bool, len(config.NullValues))
	for _, v := range config.NullValues {
		nulls[v] = true
	}

	fields := make([][]string, len(records))
	for i, rec := range records {
		fields[i] = make([]string, len(rec))
		for j, f := range rec {
			fields[i][j] = clean(f, config)
		}
	}

	types := make([]datatable.DataType, width)
	for c := range types {
		types[c] = inferColumn(fields, c, nulls)
	}

	rows := make([][]interface{}, len(fields))
	for i, rec := range fields {
		rows[i] = make([]interface{}, width)
		for c := 0; c < width && c < len(rec); c++ {
			if rec[c] == "" || nulls[rec[c]] {
				continue
			}
			rows[i][c] = parse(rec[c], types[c])
		}
	}

	return slice.NewFromRows(columns, types, rows)
}

func clean(field string, config Config) string {
	if config.TrimSpace {
		return strings.TrimSpace(field)
	}
	return field
}

// inferColumn picks the narrowest type every non-null field of column c
// parses as, trying bool, int, float, date and timestamp before string.
func inferColumn(fields [][]string, c int, nulls map[string]bool) datatable.DataType {
	candidates := []datatable.DataType{
		datatable.TypeBool,
		datatable.TypeInt,
		datatable.TypeFloat,
		datatable.TypeDate,
		datatable.TypeTimestamp,
	}
	seen := false
	for _, rec := range fields {
		if c >= len(rec) || rec[c] == "" || nulls[rec[c]] {
			continue
		}
		seen = true
		kept := candidates[:0]
		for _, dt := range candidates {
			if parse(rec[c], dt) != nil {
				kept = append(kept, dt)
			}
		}
		candidates = kept
		if len(candidates) == 0 {
			return datatable.TypeString
		}
	}
	if !seen {
		return datatable.TypeString
	}
	return candidates[0]
}

// parse converts field to the Go value of dt, or returns nil if it does not
// parse.
func parse(field string, dt datatable.DataType) interface{} {
	switch dt {
	case datatable.TypeBool:
		if b, err := strconv.ParseBool(field); err == nil && !isNumeric(field) {
			return b
		}
	case datatable.TypeInt:
		if i, err := strconv.ParseInt(field, 10, 64); err == nil {
			return i
		}
	case datatable.TypeFloat:
		if f, err := strconv.ParseFloat(field, 64); err == nil {
			return f
		}
	case datatable.TypeDate:
		if t, err := time.Parse(time.DateOnly, field); err == nil {
			return t
		}
	case datatable.TypeTimestamp:
		for _, layout := range []string{time.RFC3339Nano, time.DateTime} {
			if t, err := time.Parse(layout, field); err == nil {
				return t
			}
		}
	case datatable.TypeString:
		return field
	}
	return nil
}

// isNumeric reports whether field is one of the numeric spellings that
// strconv.ParseBool accepts.
func isNumeric(field string) bool {
	return field == "0" || field == "1"
}
