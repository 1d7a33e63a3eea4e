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

package datatable

import "fmt"

// Tabular describes the columns of a tabular source. Every source the
// exporter accepts implements it.
type Tabular interface {
	// ColumnCount returns the total number of columns in the data source.
	ColumnCount() int

	// ColumnName returns the name of the column at the given index.
	// Returns ErrInvalidColumn if col is out of range.
	ColumnName(col int) (string, error)

	// ColumnType returns the data type of the column at the given index.
	// Returns ErrInvalidColumn if col is out of range.
	ColumnType(col int) (DataType, error)
}

// DataSource provides read-only random access to tabular data.
// Implementations must be thread-safe for concurrent reads.
// All methods should return errors rather than panic.
type DataSource interface {
	Tabular

	// RowCount returns the total number of rows in the data source.
	RowCount() int

	// Cell returns the value at the specified row and column.
	// Returns ErrInvalidRow if row is out of range.
	// Returns ErrInvalidColumn if col is out of range.
	Cell(row, col int) (Value, error)

	// Row returns all values for the specified row.
	// Returns ErrInvalidRow if row is out of range.
	Row(row int) ([]Value, error)

	// Metadata returns optional metadata about the data source.
	// Returns an empty Metadata map if no metadata is available.
	Metadata() Metadata
}

// NamedCellSource is implemented by sources whose rows are keyed by column
// name rather than position, such as sparse records.
type NamedCellSource interface {
	// CellByName returns the value of the named column in the given row.
	// Returns ErrColumnNotFound if the row has no such field.
	CellByName(row int, column string) (Value, error)
}

// RowStreamer is implemented by forward-only sources that cannot report a
// row count up front. StreamRows calls fn with each row, cells in column
// order, until fn returns false or the source is exhausted. Rows after the
// one for which fn returned false are never read.
type RowStreamer interface {
	Tabular

	StreamRows(fn func(row []Value) bool) error
}

// ColumnNames returns the column names of t in order. Columns whose name
// cannot be read are returned as empty strings.
func ColumnNames(t Tabular) []string {
	names := make([]string, t.ColumnCount())
	for i := range names {
		name, err := t.ColumnName(i)
		if err != nil {
			continue
		}
		names[i] = name
	}
	return names
}

// ColumnIndex returns the position of the named column.
func ColumnIndex(t Tabular, name string) (int, error) {
	for i := 0; i < t.ColumnCount(); i++ {
		n, err := t.ColumnName(i)
		if err != nil {
			return -1, err
		}
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// CellByName returns the value of the named column in the given row,
// preferring the source's own name lookup when it has one.
func CellByName(src DataSource, row int, column string) (Value, error) {
	if named, ok := src.(NamedCellSource); ok {
		return named.CellByName(row, column)
	}
	col, err := ColumnIndex(src, column)
	if err != nil {
		return Value{}, err
	}
	return src.Cell(row, col)
}
