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

package arrow

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/magpierre/widgetjson/datatable"
)

// Stream is a forward-only source over an Arrow record reader. Record
// batches are pulled only as rows are requested, so a bounded export of a
// large stream reads no more batches than it needs.
type Stream struct {
	reader array.RecordReader
	schema *arrow.Schema
}

// NewFromRecordReader creates a streaming source over reader. The stream
// does not take ownership of reader.
func NewFromRecordReader(reader array.RecordReader) (*Stream, error) {
	if reader == nil {
		return nil, ErrNilTable
	}
	return &Stream{reader: reader, schema: reader.Schema()}, nil
}

// Schema returns the Arrow schema of the stream.
func (s *Stream) Schema() *arrow.Schema { return s.schema }

// ColumnCount returns the number of columns.
func (s *Stream) ColumnCount() int { return s.schema.NumFields() }

// ColumnName returns the field name of the column at col.
func (s *Stream) ColumnName(col int) (string, error) {
	if col < 0 || col >= s.schema.NumFields() {
		return "", datatable.ErrInvalidColumn
	}
	return s.schema.Field(col).Name, nil
}

// ColumnType returns the datatable type of the column at col.
func (s *Stream) ColumnType(col int) (datatable.DataType, error) {
	if col < 0 || col >= s.schema.NumFields() {
		return datatable.TypeUnknown, datatable.ErrInvalidColumn
	}
	return DataTypeOf(s.schema.Field(col).Type), nil
}

// StreamRows implements datatable.RowStreamer. The next record batch is
// requested only when fn has accepted every row of the current one.
func (s *Stream) StreamRows(fn func(row []datatable.Value) bool) error {
	for s.reader.Next() {
		rec := s.reader.Record()
		cols := rec.Columns()
		for r := 0; r < int(rec.NumRows()); r++ {
			row := make([]datatable.Value, len(cols))
			for c, col := range cols {
				row[c] = cellValue(col, r)
			}
			if !fn(row) {
				return nil
			}
		}
	}
	if err := s.reader.Err(); err != nil {
		return fmt.Errorf("read record batch: %w", err)
	}
	return nil
}
