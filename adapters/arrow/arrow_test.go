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
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/widgetjson/datatable"
	"github.com/magpierre/widgetjson/serialize"
)

var day = time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)

func productSchema() *arrow.Schema {
	md := arrow.NewMetadata([]string{"origin"}, []string{"test"})
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "price", Type: &arrow.Decimal128Type{Precision: 10, Scale: 2}},
		{Name: "day", Type: arrow.FixedWidthTypes.Date32},
		{Name: "tags", Type: arrow.ListOf(arrow.BinaryTypes.String)},
	}, &md)
}

// productRecord builds a record of n rows whose ids start at first. Every
// second name is null.
func productRecord(t *testing.T, first, n int) arrow.Record {
	t.Helper()
	b := array.NewRecordBuilder(memory.NewGoAllocator(), productSchema())
	defer b.Release()

	tags := b.Field(4).(*array.ListBuilder)
	tagValues := tags.ValueBuilder().(*array.StringBuilder)
	for i := 0; i < n; i++ {
		id := int64(first + i)
		b.Field(0).(*array.Int64Builder).Append(id)
		if id%2 == 0 {
			b.Field(1).(*array.StringBuilder).AppendNull()
		} else {
			b.Field(1).(*array.StringBuilder).Append("item")
		}
		b.Field(2).(*array.Decimal128Builder).Append(decimal128.FromI64(1999 + id))
		b.Field(3).(*array.Date32Builder).Append(arrow.Date32FromTime(day))
		tags.Append(true)
		tagValues.AppendValues([]string{"a", "b"}, nil)
	}
	return b.NewRecord()
}

func TestDataTypeOf(t *testing.T) {
	tests := []struct {
		in   arrow.DataType
		want datatable.DataType
	}{
		{arrow.PrimitiveTypes.Int8, datatable.TypeInt},
		{arrow.PrimitiveTypes.Uint64, datatable.TypeInt},
		{arrow.PrimitiveTypes.Float32, datatable.TypeFloat},
		{arrow.FixedWidthTypes.Float16, datatable.TypeFloat},
		{&arrow.Decimal128Type{Precision: 5, Scale: 1}, datatable.TypeDecimal},
		{arrow.BinaryTypes.String, datatable.TypeString},
		{arrow.BinaryTypes.LargeString, datatable.TypeString},
		{arrow.FixedWidthTypes.Boolean, datatable.TypeBool},
		{arrow.FixedWidthTypes.Date32, datatable.TypeDate},
		{arrow.FixedWidthTypes.Timestamp_ms, datatable.TypeTimestamp},
		{arrow.BinaryTypes.Binary, datatable.TypeBinary},
		{arrow.StructOf(arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int32}), datatable.TypeStruct},
		{arrow.ListOf(arrow.PrimitiveTypes.Int32), datatable.TypeList},
		{arrow.Null, datatable.TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, DataTypeOf(tt.in))
		})
	}
}

func TestDataSource(t *testing.T) {
	rec := productRecord(t, 1, 3)
	defer rec.Release()

	ds, err := NewFromRecord(rec)
	require.NoError(t, err)
	defer ds.Release()

	assert.Equal(t, 3, ds.RowCount())
	assert.Equal(t, 5, ds.ColumnCount())
	assert.Equal(t, []string{"id", "name", "price", "day", "tags"}, datatable.ColumnNames(ds))

	dt, err := ds.ColumnType(2)
	require.NoError(t, err)
	assert.Equal(t, datatable.TypeDecimal, dt)

	row, err := ds.Row(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row[0].Raw)
	assert.Equal(t, "item", row[1].Raw)
	assert.True(t, decimal.RequireFromString("20.00").Equal(row[2].Raw.(decimal.Decimal)))
	assert.Equal(t, day, row[3].Raw)
	assert.Equal(t, []interface{}{"a", "b"}, row[4].Raw)

	null, err := ds.Cell(1, 1)
	require.NoError(t, err)
	assert.True(t, null.IsNull)

	_, err = ds.Cell(3, 0)
	assert.ErrorIs(t, err, datatable.ErrInvalidRow)
	_, err = ds.Cell(0, 5)
	assert.ErrorIs(t, err, datatable.ErrInvalidColumn)

	assert.Equal(t, "test", ds.Metadata()["origin"])
}

func TestChunkedTable(t *testing.T) {
	first := productRecord(t, 0, 2)
	defer first.Release()
	empty := productRecord(t, 0, 0)
	defer empty.Release()
	second := productRecord(t, 2, 3)
	defer second.Release()

	table := array.NewTableFromRecords(productSchema(), []arrow.Record{first, empty, second})
	defer table.Release()

	ds, err := NewFromArrowTable(table)
	require.NoError(t, err)
	defer ds.Release()

	require.Equal(t, 5, ds.RowCount())
	for r := 0; r < 5; r++ {
		v, err := ds.Cell(r, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(r), v.Raw)
	}
}

func TestNilTable(t *testing.T) {
	_, err := NewFromArrowTable(nil)
	assert.ErrorIs(t, err, ErrNilTable)
	_, err = NewFromRecord(nil)
	assert.ErrorIs(t, err, ErrNilTable)
	_, err = NewFromRecordReader(nil)
	assert.ErrorIs(t, err, ErrNilTable)
}

func TestExportArrowTable(t *testing.T) {
	rec := productRecord(t, 1, 2)
	defer rec.Release()
	ds, err := NewFromRecord(rec)
	require.NoError(t, err)
	defer ds.Release()

	got := serialize.ExportTable(ds, 10)

	require.NoError(t, got.Check())
	assert.Equal(t, []string{"Number", "String", "Number", "Date", "Unknown"}, got.ColumnTypes)
	assert.Equal(t, []any{int64(1), "item", json.Number("20"), day, []any{"a", "b"}}, got.Data[0])
	assert.Nil(t, got.Data[1][1])
}

// countingReader counts how many record batches were requested.
type countingReader struct {
	array.RecordReader
	nexts int
}

func (r *countingReader) Next() bool {
	r.nexts++
	return r.RecordReader.Next()
}

func newCountingReader(t *testing.T, batches ...arrow.Record) *countingReader {
	t.Helper()
	reader, err := array.NewRecordReader(productSchema(), batches)
	require.NoError(t, err)
	t.Cleanup(reader.Release)
	return &countingReader{RecordReader: reader}
}

func TestStreamStopsAtLimit(t *testing.T) {
	first := productRecord(t, 0, 2)
	defer first.Release()
	second := productRecord(t, 2, 2)
	defer second.Release()

	reader := newCountingReader(t, first, second)
	stream, err := NewFromRecordReader(reader)
	require.NoError(t, err)

	got := serialize.ExportTable(stream, 2)

	assert.Equal(t, 1, reader.nexts, "second batch should not be read")
	assert.Equal(t, []string{"0", "1"}, got.Index)
	assert.Equal(t, int64(1), got.Data[1][0])
}

func TestStreamReadsAcrossBatches(t *testing.T) {
	first := productRecord(t, 0, 2)
	defer first.Release()
	second := productRecord(t, 2, 2)
	defer second.Release()

	stream, err := NewFromRecordReader(newCountingReader(t, first, second))
	require.NoError(t, err)

	got := serialize.ExportTable(stream, 10)
	require.Equal(t, 4, got.Len())
	assert.Equal(t, int64(3), got.Data[3][0])
	assert.Equal(t, []string{"Number", "String", "Number", "Date", "Unknown"}, got.ColumnTypes)
}

type failingReader struct {
	*countingReader
}

func (r failingReader) Err() error { return errors.New("truncated stream") }

func TestStreamError(t *testing.T) {
	rec := productRecord(t, 0, 1)
	defer rec.Release()

	stream, err := NewFromRecordReader(failingReader{newCountingReader(t, rec)})
	require.NoError(t, err)

	rows := 0
	err = stream.StreamRows(func(row []datatable.Value) bool {
		rows++
		return true
	})
	assert.ErrorContains(t, err, "truncated stream")
	assert.Equal(t, 1, rows)
}
