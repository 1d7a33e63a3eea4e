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

import (
	"encoding/json"
	"math/big"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// TypeOf infers the DataType of a Go value. nil and values outside the
// known families are TypeUnknown.
func TypeOf(v interface{}) DataType {
	switch v.(type) {
	case nil:
		return TypeUnknown
	case time.Time, *time.Time:
		return TypeTimestamp
	case decimal.Decimal, *big.Int, *big.Float, *big.Rat:
		return TypeDecimal
	case json.Number:
		return TypeFloat
	case []byte:
		return TypeBinary
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInt
	case reflect.Float32, reflect.Float64:
		return TypeFloat
	case reflect.Slice, reflect.Array:
		return TypeList
	case reflect.Struct, reflect.Map:
		return TypeStruct
	default:
		return TypeUnknown
	}
}
