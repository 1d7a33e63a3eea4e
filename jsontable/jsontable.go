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

// Package jsontable defines the row-oriented JSON document exchanged with
// the table widget, and the row shaping the widget applies to it.
package jsontable

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// ErrMalformed is returned by Check and Decode for documents that break
// the table invariants.
var ErrMalformed = errors.New("malformed json table")

// Table is the exported form of a tabular source.
type Table struct {
	// Columns holds the column names in source order.
	Columns []string `json:"columns"`

	// ColumnTypes holds one label per column: Date, Number, String,
	// Boolean or Unknown.
	ColumnTypes []string `json:"columnTypes"`

	// Index holds the stringified row positions "0".."n-1".
	Index []string `json:"index"`

	// Data holds the rows, each with one serialized value per column.
	Data [][]any `json:"data"`
}

// New returns an empty table with the given columns and type labels.
func New(columns, columnTypes []string) *Table {
	return &Table{
		Columns:     columns,
		ColumnTypes: columnTypes,
		Index:       []string{},
		Data:        [][]any{},
	}
}

// Append adds a row and its positional index entry.
func (t *Table) Append(row []any) {
	t.Index = append(t.Index, strconv.Itoa(len(t.Data)))
	t.Data = append(t.Data, row)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Data) }

// Check verifies the shape invariants of the document.
func (t *Table) Check() error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrMalformed)
	}
	if len(t.Columns) != len(t.ColumnTypes) {
		return fmt.Errorf("%w: %d columns but %d column types", ErrMalformed, len(t.Columns), len(t.ColumnTypes))
	}
	if len(t.Index) != len(t.Data) {
		return fmt.Errorf("%w: %d index entries but %d rows", ErrMalformed, len(t.Index), len(t.Data))
	}
	for i, row := range t.Data {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrMalformed, i, len(row), len(t.Columns))
		}
		if t.Index[i] != strconv.Itoa(i) {
			return fmt.Errorf("%w: index %d is %q", ErrMalformed, i, t.Index[i])
		}
	}
	return nil
}

// Decode parses a table document. Numbers are kept as json.Number so that
// large integers and decimals survive unchanged.
func Decode(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var t Table
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if t.Index == nil {
		t.Index = []string{}
	}
	if t.Data == nil {
		t.Data = [][]any{}
	}
	return &t, nil
}
