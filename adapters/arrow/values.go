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
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/shopspring/decimal"

	"github.com/magpierre/widgetjson/datatable"
)

// listLike covers the list arrays whose elements are addressed through
// offsets into a child array.
type listLike interface {
	ListValues() arrow.Array
	ValueOffsets(i int) (start, end int64)
}

// DataTypeOf maps an Arrow type onto a datatable type.
func DataTypeOf(dt arrow.DataType) datatable.DataType {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return datatable.TypeInt
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return datatable.TypeFloat
	case arrow.DECIMAL128, arrow.DECIMAL256:
		return datatable.TypeDecimal
	case arrow.STRING, arrow.LARGE_STRING:
		return datatable.TypeString
	case arrow.BOOL:
		return datatable.TypeBool
	case arrow.DATE32, arrow.DATE64:
		return datatable.TypeDate
	case arrow.TIMESTAMP:
		return datatable.TypeTimestamp
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return datatable.TypeBinary
	case arrow.STRUCT:
		return datatable.TypeStruct
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST:
		return datatable.TypeList
	default:
		return datatable.TypeUnknown
	}
}

// cellValue wraps the value at pos of col.
func cellValue(col arrow.Array, pos int) datatable.Value {
	dt := DataTypeOf(col.DataType())
	if col.IsNull(pos) {
		return datatable.NewNullValue(dt)
	}
	return datatable.NewValue(goValue(col, pos), dt)
}

// goValue returns the value at pos as a plain Go value: numbers keep their
// width, dates and timestamps become time.Time, decimals become
// decimal.Decimal, structs become maps and lists become slices. Types
// without a dedicated case fall back to Arrow's string rendering.
func goValue(col arrow.Array, pos int) interface{} {
	if col.IsNull(pos) {
		return nil
	}

	switch a := col.(type) {
	case *array.String:
		return a.Value(pos)
	case *array.LargeString:
		return a.Value(pos)
	case *array.Binary:
		return a.Value(pos)
	case *array.LargeBinary:
		return a.Value(pos)
	case *array.FixedSizeBinary:
		return a.Value(pos)
	case *array.Boolean:
		return a.Value(pos)
	case *array.Int8:
		return a.Value(pos)
	case *array.Int16:
		return a.Value(pos)
	case *array.Int32:
		return a.Value(pos)
	case *array.Int64:
		return a.Value(pos)
	case *array.Uint8:
		return a.Value(pos)
	case *array.Uint16:
		return a.Value(pos)
	case *array.Uint32:
		return a.Value(pos)
	case *array.Uint64:
		return a.Value(pos)
	case *array.Float16:
		return a.Value(pos).Float32()
	case *array.Float32:
		return a.Value(pos)
	case *array.Float64:
		return a.Value(pos)
	case *array.Date32:
		return a.Value(pos).ToTime().UTC()
	case *array.Date64:
		return a.Value(pos).ToTime().UTC()
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(pos).ToTime(unit).UTC()
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		return decimal.NewFromBigInt(a.Value(pos).BigInt(), -scale)
	case *array.Decimal256:
		scale := a.DataType().(*arrow.Decimal256Type).Scale
		return decimal.NewFromBigInt(a.Value(pos).BigInt(), -scale)
	case *array.Struct:
		st := a.DataType().(*arrow.StructType)
		fields := make(map[string]interface{}, a.NumField())
		for i := 0; i < a.NumField(); i++ {
			fields[st.Field(i).Name] = goValue(a.Field(i), pos)
		}
		return fields
	case listLike:
		start, end := a.ValueOffsets(pos)
		values := a.ListValues()
		items := make([]interface{}, 0, end-start)
		for j := start; j < end; j++ {
			items = append(items, goValue(values, int(j)))
		}
		return items
	default:
		return col.ValueStr(pos)
	}
}
