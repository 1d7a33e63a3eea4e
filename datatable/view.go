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

// projection exposes a subset of the columns of a source, in the order
// they were selected.
type projection struct {
	src     DataSource
	columns []int
}

// Select returns a view of src holding only the named columns, in the
// given order. Rows are read through to src lazily.
func Select(src DataSource, columns ...string) (DataSource, error) {
	if src == nil {
		return nil, ErrNoDataSource
	}
	if len(columns) == 0 {
		return src, nil
	}

	indices := make([]int, len(columns))
	for i, name := range columns {
		idx, err := ColumnIndex(src, name)
		if err != nil {
			return nil, fmt.Errorf("select columns: %w", err)
		}
		indices[i] = idx
	}
	return &projection{src: src, columns: indices}, nil
}

func (p *projection) RowCount() int    { return p.src.RowCount() }
func (p *projection) ColumnCount() int { return len(p.columns) }

func (p *projection) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(p.columns) {
		return "", ErrInvalidColumn
	}
	return p.src.ColumnName(p.columns[col])
}

func (p *projection) ColumnType(col int) (DataType, error) {
	if col < 0 || col >= len(p.columns) {
		return TypeUnknown, ErrInvalidColumn
	}
	return p.src.ColumnType(p.columns[col])
}

func (p *projection) Cell(row, col int) (Value, error) {
	if col < 0 || col >= len(p.columns) {
		return Value{}, ErrInvalidColumn
	}
	return p.src.Cell(row, p.columns[col])
}

func (p *projection) Row(row int) ([]Value, error) {
	values := make([]Value, len(p.columns))
	for i, col := range p.columns {
		v, err := p.src.Cell(row, col)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (p *projection) Metadata() Metadata { return p.src.Metadata() }

// selection exposes the rows of a source that passed a filter.
type selection struct {
	DataSource
	rows []int
}

// Where returns a view of src holding the rows for which filter passes.
// Unlike Select it reads every row of src once, up front.
func Where(src DataSource, filter Filter) (DataSource, error) {
	if src == nil {
		return nil, ErrNoDataSource
	}
	if filter == nil {
		return src, nil
	}

	names := ColumnNames(src)
	rows := make([]int, 0)
	for i := 0; i < src.RowCount(); i++ {
		row, err := src.Row(i)
		if err != nil {
			return nil, fmt.Errorf("filter row %d: %w", i, err)
		}
		keep, err := filter.Evaluate(row, names)
		if err != nil {
			return nil, err
		}
		if keep {
			rows = append(rows, i)
		}
	}
	return &selection{DataSource: src, rows: rows}, nil
}

func (s *selection) RowCount() int { return len(s.rows) }

func (s *selection) Cell(row, col int) (Value, error) {
	if row < 0 || row >= len(s.rows) {
		return Value{}, ErrInvalidRow
	}
	return s.DataSource.Cell(s.rows[row], col)
}

func (s *selection) Row(row int) ([]Value, error) {
	if row < 0 || row >= len(s.rows) {
		return nil, ErrInvalidRow
	}
	return s.DataSource.Row(s.rows[row])
}

func (s *selection) CellByName(row int, column string) (Value, error) {
	if row < 0 || row >= len(s.rows) {
		return Value{}, ErrInvalidRow
	}
	return CellByName(s.DataSource, s.rows[row], column)
}

// Validate rejects sources the widget cannot address unambiguously:
// columns without a name and duplicated column names. The exporter itself
// accepts such sources; Validate is for callers that want strictness.
func Validate(t Tabular) error {
	if t == nil {
		return ErrNoDataSource
	}
	seen := make(map[string]int, t.ColumnCount())
	for i := 0; i < t.ColumnCount(); i++ {
		name, err := t.ColumnName(i)
		if err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
		if name == "" {
			return fmt.Errorf("column %d: %w", i, ErrEmptyColumnName)
		}
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%w: %q at columns %d and %d", ErrDuplicateColumn, name, prev, i)
		}
		seen[name] = i
	}
	return nil
}
