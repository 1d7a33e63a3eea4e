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

package serialize_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/magpierre/widgetjson/adapters/slice"
	"github.com/magpierre/widgetjson/datatable"
	"github.com/magpierre/widgetjson/jsontable"
	"github.com/magpierre/widgetjson/serialize"
)

// recordingSource is a positional source that remembers the highest row it
// was asked for.
type recordingSource struct {
	columns []string
	types   []datatable.DataType
	rows    int

	mu      sync.Mutex
	maxRow  int
	reads   int
	badCell [2]int
}

func newRecordingSource(rows int, columns ...string) *recordingSource {
	types := make([]datatable.DataType, len(columns))
	for i := range types {
		types[i] = datatable.TypeInt
	}
	return &recordingSource{columns: columns, types: types, rows: rows, maxRow: -1, badCell: [2]int{-1, -1}}
}

func (s *recordingSource) RowCount() int    { return s.rows }
func (s *recordingSource) ColumnCount() int { return len(s.columns) }

func (s *recordingSource) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(s.columns) {
		return "", datatable.ErrInvalidColumn
	}
	return s.columns[col], nil
}

func (s *recordingSource) ColumnType(col int) (datatable.DataType, error) {
	if col < 0 || col >= len(s.types) {
		return datatable.TypeUnknown, datatable.ErrInvalidColumn
	}
	return s.types[col], nil
}

func (s *recordingSource) Cell(row, col int) (datatable.Value, error) {
	s.mu.Lock()
	s.reads++
	s.maxRow = max(s.maxRow, row)
	s.mu.Unlock()

	if row < 0 || row >= s.rows {
		return datatable.Value{}, datatable.ErrInvalidRow
	}
	if row == s.badCell[0] && col == s.badCell[1] {
		return datatable.Value{}, errors.New("unreadable cell")
	}
	return datatable.NewValue(row*len(s.columns)+col, datatable.TypeInt), nil
}

func (s *recordingSource) Row(row int) ([]datatable.Value, error) {
	values := make([]datatable.Value, len(s.columns))
	for c := range values {
		v, err := s.Cell(row, c)
		if err != nil {
			return nil, err
		}
		values[c] = v
	}
	return values, nil
}

func (s *recordingSource) Metadata() datatable.Metadata { return nil }

// rowStream is a forward-only source that counts delivered rows.
type rowStream struct {
	columns   []string
	rows      [][]datatable.Value
	err       error
	delivered int
}

func (s *rowStream) ColumnCount() int { return len(s.columns) }

func (s *rowStream) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(s.columns) {
		return "", datatable.ErrInvalidColumn
	}
	return s.columns[col], nil
}

func (s *rowStream) ColumnType(col int) (datatable.DataType, error) {
	return datatable.TypeUnknown, errors.New("no schema")
}

func (s *rowStream) StreamRows(fn func(row []datatable.Value) bool) error {
	for _, row := range s.rows {
		s.delivered++
		if !fn(row) {
			return nil
		}
	}
	return s.err
}

func numbers(t *testing.T) *slice.DataSource {
	t.Helper()
	ds, err := slice.NewFromRows(
		[]string{"a", "b", "c"},
		nil,
		[][]interface{}{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
	)
	require.NoError(t, err)
	return ds
}

func TestExportTableRoundTrip(t *testing.T) {
	got := serialize.ExportTable(numbers(t), 10)

	want := &jsontable.Table{
		Columns:     []string{"a", "b", "c"},
		ColumnTypes: []string{"Number", "Number", "Number"},
		Index:       []string{"0", "1", "2"},
		Data: [][]any{
			{int64(1), int64(2), int64(3)},
			{int64(4), int64(5), int64(6)},
			{int64(7), int64(8), int64(9)},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExportTable() mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, got.Check())

	out, err := serialize.Marshal(got, 10)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"columns": ["a", "b", "c"],
		"columnTypes": ["Number", "Number", "Number"],
		"index": ["0", "1", "2"],
		"data": [[1, 2, 3], [4, 5, 6], [7, 8, 9]]
	}`, string(out))
}

func TestExportTableLimit(t *testing.T) {
	tests := []struct {
		name  string
		rows  int
		limit int
		want  int
	}{
		{"limit below row count", 5, 2, 2},
		{"limit above row count", 3, 10, 3},
		{"limit equals row count", 4, 4, 4},
		{"zero limit", 3, 0, 0},
		{"negative limit", 3, -1, 0},
		{"empty source", 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newRecordingSource(tt.rows, "x", "y")
			got := serialize.ExportTable(src, tt.limit)

			require.NoError(t, got.Check())
			assert.Len(t, got.Data, tt.want)
			assert.Equal(t, []string{"x", "y"}, got.Columns)
			assert.Equal(t, []string{"Number", "Number"}, got.ColumnTypes)
			for i, idx := range got.Index {
				assert.Equal(t, fmt.Sprint(i), idx)
			}
			assert.Less(t, src.maxRow, max(tt.limit, 0), "read a row at or beyond the limit")
			assert.Equal(t, tt.want*2, src.reads)
		})
	}
}

func TestExportTableEmptyDataIsArray(t *testing.T) {
	out, err := serialize.Marshal(newRecordingSource(0, "x"), 10)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["x"],"columnTypes":["Number"],"index":[],"data":[]}`, string(out))
}

func TestExportTableUnreadableCell(t *testing.T) {
	src := newRecordingSource(2, "x", "y")
	src.badCell = [2]int{1, 0}

	got := serialize.ExportTable(src, 10)
	assert.Equal(t, [][]any{{int64(0), int64(1)}, {nil, int64(3)}}, got.Data)
}

func TestExportTableRecords(t *testing.T) {
	ds, err := slice.NewFromMaps([]map[string]interface{}{
		{"name": "ada", "age": 36},
		{"name": "alan"},
	})
	require.NoError(t, err)

	got := serialize.ExportTable(ds, 10)
	assert.Equal(t, []string{"age", "name"}, got.Columns)
	assert.Equal(t, []string{"Number", "String"}, got.ColumnTypes)
	assert.Equal(t, [][]any{{int64(36), "ada"}, {nil, "alan"}}, got.Data)
}

func TestExportTableStream(t *testing.T) {
	row := func(vals ...any) []datatable.Value {
		out := make([]datatable.Value, len(vals))
		for i, v := range vals {
			if v == nil {
				out[i] = datatable.NewNullValue(datatable.TypeUnknown)
				continue
			}
			out[i] = datatable.NewValue(v, datatable.TypeOf(v))
		}
		return out
	}

	t.Run("stops at the limit", func(t *testing.T) {
		src := &rowStream{
			columns: []string{"a", "b"},
			rows:    [][]datatable.Value{row(1, "x"), row(2, nil), row(3, "z"), row(4, "w")},
		}
		got := serialize.ExportTable(src, 2)

		assert.Equal(t, 2, src.delivered)
		assert.Equal(t, []string{"Unknown", "Unknown"}, got.ColumnTypes)
		assert.Equal(t, []string{"0", "1"}, got.Index)
		assert.Equal(t, [][]any{{int64(1), "x"}, {int64(2), nil}}, got.Data)
	})

	t.Run("ragged rows", func(t *testing.T) {
		src := &rowStream{
			columns: []string{"a", "b"},
			rows:    [][]datatable.Value{row(1), row(2, 3, 4)},
		}
		got := serialize.ExportTable(src, 10)

		require.NoError(t, got.Check())
		assert.Equal(t, [][]any{{int64(1), nil}, {int64(2), int64(3)}}, got.Data)
	})

	t.Run("error keeps rows read so far", func(t *testing.T) {
		src := &rowStream{
			columns: []string{"a"},
			rows:    [][]datatable.Value{row(1)},
			err:     errors.New("connection reset"),
		}
		got := serialize.ExportTable(src, 10)
		assert.Equal(t, [][]any{{int64(1)}}, got.Data)
	})

	t.Run("zero limit reads nothing", func(t *testing.T) {
		src := &rowStream{columns: []string{"a"}, rows: [][]datatable.Value{row(1)}}
		got := serialize.ExportTable(src, 0)
		assert.Zero(t, src.delivered)
		assert.Empty(t, got.Data)
	})
}

func TestSerializeNestedTables(t *testing.T) {
	got := serialize.Serialize(map[string]any{
		"first":  newRecordingSource(5, "x"),
		"others": []any{numbers(t)},
	}, 1)

	m, ok := got.(map[string]any)
	require.True(t, ok)

	first, ok := m["first"].(*jsontable.Table)
	require.True(t, ok)
	assert.Equal(t, 1, first.Len())

	others := m["others"].([]any)
	nested, ok := others[0].(*jsontable.Table)
	require.True(t, ok)
	assert.Equal(t, [][]any{{int64(1), int64(2), int64(3)}}, nested.Data)
}

func TestTableCellsAreSerialized(t *testing.T) {
	ds, err := slice.NewFromRows(
		[]string{"list", "map"},
		nil,
		[][]interface{}{{[]int{1, 2}, map[string]bool{"ok": true}}},
	)
	require.NoError(t, err)

	got := serialize.ExportTable(ds, 10)
	assert.Equal(t, []string{"Unknown", "Unknown"}, got.ColumnTypes)
	assert.Equal(t, [][]any{{[]any{int64(1), int64(2)}, map[string]any{"ok": true}}}, got.Data)
}

func TestConcurrentSerializers(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := serialize.New()
	ds := numbers(t)
	want := s.ExportTable(ds, 10)

	var g errgroup.Group
	results := make([]*jsontable.Table, 16)
	for i := range results {
		g.Go(func() error {
			results[i] = s.ExportTable(ds, 10)
			_, err := s.Marshal(map[string]any{"table": ds, "n": i}, 10)
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, got := range results {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("concurrent export differs (-want +got):\n%s", diff)
		}
	}
}
