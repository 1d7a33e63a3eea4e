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

package serialize

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/magpierre/widgetjson/datatable"
	"github.com/magpierre/widgetjson/jsontable"
)

// ratDigits is the number of fractional digits kept for a *big.Rat whose
// decimal expansion does not terminate.
const ratDigits = 34

// maxIndirections bounds pointer chasing so that self-referencing pointer
// types terminate.
const maxIndirections = 32

var (
	marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	tabularType   = reflect.TypeOf((*datatable.Tabular)(nil)).Elem()
)

// Classify determines the variant of v. The first matching rule wins:
//
//  1. tabular sources
//  2. floating point numbers
//  3. integers
//  4. booleans
//  5. arbitrary precision numbers
//  6. slices and arrays
//  7. structs, as positional records
//  8. maps
//  9. values that are already JSON
//  10. anything else, by its string form
//
// nil and nil pointers are Null, non-nil pointers are followed, and a
// datatable.Value cell is unwrapped to its raw value. Errors are reported
// by their message. Types that implement json.Marshaler define their own
// JSON form and are never taken apart as sequences or records.
func Classify(v any) Value {
	for i := 0; i < maxIndirections; i++ {
		next, val := classifyOnce(v)
		if val != nil {
			return val
		}
		v = next
	}
	return Other{Text: fmt.Sprintf("%T", v)}
}

// classifyOnce either classifies v or returns the value it points to.
func classifyOnce(v any) (any, Value) {
	switch x := v.(type) {
	case nil:
		return nil, Null{}
	case Table:
		if isNilSource(x.Source) {
			return nil, Null{}
		}
		return nil, x
	case Value:
		return nil, x
	case datatable.Value:
		if x.IsNull {
			return nil, Null{}
		}
		return x.Raw, nil
	case *jsontable.Table:
		if x == nil {
			return nil, Null{}
		}
		return nil, JSON{Raw: x}
	case float64:
		return nil, Float(x)
	case float32:
		return nil, Float(float64(x))
	case int:
		return nil, Int(int64(x))
	case int64:
		return nil, Int(x)
	case int32:
		return nil, Int(int64(x))
	case uint64:
		return nil, Uint(x)
	case bool:
		return nil, Bool(x)
	case string:
		return nil, Other{Text: x}
	case decimal.Decimal:
		return nil, Decimal{Text: x.String()}
	case decimal.NullDecimal:
		if !x.Valid {
			return nil, Null{}
		}
		return nil, Decimal{Text: x.Decimal.String()}
	case *big.Int:
		if x == nil {
			return nil, Null{}
		}
		return nil, Decimal{Text: x.String()}
	case *big.Float:
		if x == nil || x.IsInf() {
			return nil, Null{}
		}
		return nil, Decimal{Text: x.Text('g', -1)}
	case *big.Rat:
		if x == nil {
			return nil, Null{}
		}
		return nil, Decimal{Text: ratText(x)}
	case json.RawMessage:
		return nil, JSON{Raw: x}
	case json.Number:
		return nil, JSON{Raw: x}
	case error:
		return nil, Other{Text: x.Error()}
	}

	rv := reflect.ValueOf(v)
	typ := rv.Type()

	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, Null{}
	}
	if typ.Implements(tabularType) {
		return nil, Table{Source: v.(datatable.Tabular)}
	}

	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return nil, Float(rv.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return nil, Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return nil, Uint(rv.Uint())
	case reflect.Bool:
		return nil, Bool(rv.Bool())
	}

	if typ.Implements(marshalerType) {
		return nil, JSON{Raw: v}
	}

	switch rv.Kind() {
	case reflect.Pointer:
		return rv.Elem().Interface(), nil
	case reflect.Slice:
		if typ.Elem().Kind() == reflect.Uint8 {
			return nil, Other{Text: byteText(rv.Bytes())}
		}
		return nil, Sequence{items: rv}
	case reflect.Array:
		return nil, Sequence{items: rv}
	case reflect.Struct:
		return nil, Tuple{fields: exportedFields(rv)}
	case reflect.Map:
		return nil, Mapping{m: rv}
	}

	return nil, Other{Text: stringForm(v)}
}

// exportedFields returns the exported fields of a struct in declaration
// order. Unexported fields cannot be read and are skipped. Embedded structs
// are flattened so their promoted fields take the embedding's place.
func exportedFields(rv reflect.Value) []any {
	return appendFields(make([]any, 0, rv.NumField()), rv, 0)
}

func appendFields(fields []any, rv reflect.Value, depth int) []any {
	typ := rv.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		fv := rv.Field(i)
		if f.Anonymous && depth < maxIndirections && flattens(f.Type) {
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			fields = appendFields(fields, fv, depth+1)
			continue
		}
		if f.IsExported() {
			fields = append(fields, fv.Interface())
		}
	}
	return fields
}

// flattens reports whether an embedded field of type t contributes its own
// fields rather than a single value.
func flattens(t reflect.Type) bool {
	if t.Implements(marshalerType) {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// byteText returns b as text when it is valid UTF-8 and as standard base64
// otherwise, so binary payloads survive the trip through a JSON string.
func byteText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// isNilSource reports whether t is nil or a nil pointer behind the interface.
func isNilSource(t datatable.Tabular) bool {
	if t == nil {
		return true
	}
	rv := reflect.ValueOf(t)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// stringForm renders v the way the fallback arm reports it.
func stringForm(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// keyString converts a map key to the string used as its JSON object key.
func keyString(k reflect.Value) string {
	if k.Kind() == reflect.Interface {
		if k.IsNil() {
			return "null"
		}
		k = k.Elem()
	}
	if k.CanInterface() {
		if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
			if text, err := tm.MarshalText(); err == nil {
				return string(text)
			}
		}
	}
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(k.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(k.Float(), 'g', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(k.Bool())
	}
	if k.CanInterface() {
		return stringForm(k.Interface())
	}
	return k.String()
}

// ratText returns the decimal expansion of r, exact when it terminates and
// cut to ratDigits fractional digits otherwise.
func ratText(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	text := r.FloatString(ratDigits)
	text = strings.TrimRight(text, "0")
	return strings.TrimSuffix(text, ".")
}
