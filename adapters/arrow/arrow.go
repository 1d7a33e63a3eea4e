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

// Package arrow adapts Apache Arrow tables and record streams to the
// datatable interfaces.
package arrow

import (
	"errors"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/magpierre/widgetjson/datatable"
)

// ErrNilTable is returned when a nil Arrow table or record is adapted.
var ErrNilTable = errors.New("arrow table is nil")

// chunkedColumn gives random access to a column split into chunks.
type chunkedColumn struct {
	chunks []arrow.Array
	// starts holds the first row of every chunk.
	starts []int
}

func newChunkedColumn(chunked *arrow.Chunked) chunkedColumn {
	col := chunkedColumn{}
	row := 0
	for _, chunk := range chunked.Chunks() {
		if chunk.Len() == 0 {
			continue
		}
		col.chunks = append(col.chunks, chunk)
		col.starts = append(col.starts, row)
		row += chunk.Len()
	}
	return col
}

// locate returns the chunk holding row and the row's position inside it.
func (c chunkedColumn) locate(row int) (arrow.Array, int) {
	i := sort.Search(len(c.starts), func(i int) bool { return c.starts[i] > row }) - 1
	if i < 0 {
		return nil, 0
	}
	return c.chunks[i], row - c.starts[i]
}

// DataSource is a random-access view of an Arrow table. It keeps a
// reference to the table until Release is called.
type DataSource struct {
	table   arrow.Table
	schema  *arrow.Schema
	columns []chunkedColumn
	rows    int
}

// NewFromArrowTable creates a data source over table.
func NewFromArrowTable(table arrow.Table) (*DataSource, error) {
	if table == nil {
		return nil, ErrNilTable
	}
	table.Retain()

	ds := &DataSource{
		table:   table,
		schema:  table.Schema(),
		columns: make([]chunkedColumn, table.NumCols()),
		rows:    int(table.NumRows()),
	}
	for i := range ds.columns {
		ds.columns[i] = newChunkedColumn(table.Column(i).Data())
	}
	return ds, nil
}

// NewFromRecord creates a data source over a single record batch.
func NewFromRecord(rec arrow.Record) (*DataSource, error) {
	if rec == nil {
		return nil, ErrNilTable
	}
	table := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
	defer table.Release()
	return NewFromArrowTable(table)
}

// Release drops the reference to the underlying table.
func (ds *DataSource) Release() {
	if ds.table != nil {
		ds.table.Release()
		ds.table = nil
	}
}

// Schema returns the Arrow schema of the table.
func (ds *DataSource) Schema() *arrow.Schema { return ds.schema }

// RowCount returns the number of rows.
func (ds *DataSource) RowCount() int { return ds.rows }

// ColumnCount returns the number of columns.
func (ds *DataSource) ColumnCount() int { return ds.schema.NumFields() }

// ColumnName returns the field name of the column at col.
func (ds *DataSource) ColumnName(col int) (string, error) {
	if col < 0 || col >= ds.schema.NumFields() {
		return "", datatable.ErrInvalidColumn
	}
	return ds.schema.Field(col).Name, nil
}

// ColumnType returns the datatable type of the column at col.
func (ds *DataSource) ColumnType(col int) (datatable.DataType, error) {
	if col < 0 || col >= ds.schema.NumFields() {
		return datatable.TypeUnknown, datatable.ErrInvalidColumn
	}
	return DataTypeOf(ds.schema.Field(col).Type), nil
}

// Cell returns the value at row and col.
func (ds *DataSource) Cell(row, col int) (datatable.Value, error) {
	if row < 0 || row >= ds.rows {
		return datatable.Value{}, datatable.ErrInvalidRow
	}
	if col < 0 || col >= len(ds.columns) {
		return datatable.Value{}, datatable.ErrInvalidColumn
	}
	chunk, pos := ds.columns[col].locate(row)
	if chunk == nil {
		return datatable.Value{}, datatable.ErrInvalidRow
	}
	return cellValue(chunk, pos), nil
}

// Row returns all values of row in column order.
func (ds *DataSource) Row(row int) ([]datatable.Value, error) {
	values := make([]datatable.Value, len(ds.columns))
	for c := range ds.columns {
		v, err := ds.Cell(row, c)
		if err != nil {
			return nil, err
		}
		values[c] = v
	}
	return values, nil
}

// Metadata returns the schema metadata as key/value pairs.
func (ds *DataSource) Metadata() datatable.Metadata {
	md := datatable.Metadata{"source": "arrow"}
	meta := ds.schema.Metadata()
	for i, key := range meta.Keys() {
		md[key] = meta.Values()[i]
	}
	return md
}
