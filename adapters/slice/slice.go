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

// Package slice adapts in-memory rows to datatable.DataSource.
package slice

import (
	"fmt"
	"sort"

	"github.com/magpierre/widgetjson/datatable"
)

// DataSource holds rows in memory, either positionally or as records keyed
// by column name.
type DataSource struct {
	columns []string
	types   []datatable.DataType
	rows    [][]interface{}
	records []map[string]interface{}
	index   map[string]int
}

// NewFromRows creates a data source from positional rows. types may be nil,
// in which case each column's type is inferred from its first non-nil
// value. Rows shorter than columns are padded with nulls.
func NewFromRows(columns []string, types []datatable.DataType, rows [][]interface{}) (*DataSource, error) {
	if types != nil && len(types) != len(columns) {
		return nil, fmt.Errorf("%d column types for %d columns", len(types), len(columns))
	}
	for i, row := range rows {
		if len(row) > len(columns) {
			return nil, fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(columns))
		}
	}

	ds := &DataSource{
		columns: columns,
		types:   types,
		rows:    rows,
		index:   indexColumns(columns),
	}
	if ds.types == nil {
		ds.types = make([]datatable.DataType, len(columns))
		for c := range columns {
			ds.types[c] = ds.inferColumn(func(r int) interface{} {
				if c < len(rows[r]) {
					return rows[r][c]
				}
				return nil
			})
		}
	}
	return ds, nil
}

// NewFromMaps creates a data source from records. The columns are the keys
// of the first record in sorted order, followed by keys first seen in later
// records, each batch sorted. A record without a key holds null there.
func NewFromMaps(records []map[string]interface{}) (*DataSource, error) {
	seen := make(map[string]bool)
	columns := make([]string, 0)
	for _, rec := range records {
		fresh := make([]string, 0)
		for key := range rec {
			if !seen[key] {
				seen[key] = true
				fresh = append(fresh, key)
			}
		}
		sort.Strings(fresh)
		columns = append(columns, fresh...)
	}

	if records == nil {
		records = []map[string]interface{}{}
	}
	ds := &DataSource{
		columns: columns,
		records: records,
		types:   make([]datatable.DataType, len(columns)),
		index:   indexColumns(columns),
	}
	for c, name := range columns {
		ds.types[c] = ds.inferColumn(func(r int) interface{} {
			return records[r][name]
		})
	}
	return ds, nil
}

// indexColumns maps each name to its first position.
func indexColumns(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}
	return index
}

func (ds *DataSource) inferColumn(at func(row int) interface{}) datatable.DataType {
	for r := 0; r < ds.RowCount(); r++ {
		if v := at(r); v != nil {
			return datatable.TypeOf(v)
		}
	}
	return datatable.TypeUnknown
}

// RowCount returns the number of rows.
func (ds *DataSource) RowCount() int {
	if ds.records != nil {
		return len(ds.records)
	}
	return len(ds.rows)
}

// ColumnCount returns the number of columns.
func (ds *DataSource) ColumnCount() int { return len(ds.columns) }

// ColumnName returns the name of the column at col.
func (ds *DataSource) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(ds.columns) {
		return "", datatable.ErrInvalidColumn
	}
	return ds.columns[col], nil
}

// ColumnType returns the type of the column at col.
func (ds *DataSource) ColumnType(col int) (datatable.DataType, error) {
	if col < 0 || col >= len(ds.types) {
		return datatable.TypeUnknown, datatable.ErrInvalidColumn
	}
	return ds.types[col], nil
}

// Cell returns the value at row and col.
func (ds *DataSource) Cell(row, col int) (datatable.Value, error) {
	if row < 0 || row >= ds.RowCount() {
		return datatable.Value{}, datatable.ErrInvalidRow
	}
	if col < 0 || col >= len(ds.columns) {
		return datatable.Value{}, datatable.ErrInvalidColumn
	}
	if ds.records != nil {
		return datatable.NewValue(ds.records[row][ds.columns[col]], ds.types[col]), nil
	}
	if col >= len(ds.rows[row]) {
		return datatable.NewNullValue(ds.types[col]), nil
	}
	return datatable.NewValue(ds.rows[row][col], ds.types[col]), nil
}

// CellByName returns the value of the named column at row. For records a
// missing key is reported as datatable.ErrColumnNotFound.
func (ds *DataSource) CellByName(row int, column string) (datatable.Value, error) {
	if row < 0 || row >= ds.RowCount() {
		return datatable.Value{}, datatable.ErrInvalidRow
	}
	col, ok := ds.index[column]
	if !ok {
		return datatable.Value{}, fmt.Errorf("%w: %q", datatable.ErrColumnNotFound, column)
	}
	if ds.records != nil {
		raw, ok := ds.records[row][column]
		if !ok {
			return datatable.Value{}, fmt.Errorf("%w: row %d has no %q", datatable.ErrColumnNotFound, row, column)
		}
		return datatable.NewValue(raw, ds.types[col]), nil
	}
	return ds.Cell(row, col)
}

// Row returns all values of row in column order.
func (ds *DataSource) Row(row int) ([]datatable.Value, error) {
	if row < 0 || row >= ds.RowCount() {
		return nil, datatable.ErrInvalidRow
	}
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

// Metadata returns the source description.
func (ds *DataSource) Metadata() datatable.Metadata {
	kind := "rows"
	if ds.records != nil {
		kind = "records"
	}
	return datatable.Metadata{"source": "slice", "layout": kind}
}
