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
	"fmt"
	"reflect"

	"github.com/magpierre/widgetjson/datatable"
)

// Kind identifies the variant of a Value.
type Kind int

// The variants, in dispatch order.
const (
	KindNull Kind = iota
	KindTable
	KindFloat
	KindInt
	KindUint
	KindBool
	KindDecimal
	KindSequence
	KindTuple
	KindMapping
	KindJSON
	KindOther
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindTable:
		return "Table"
	case KindFloat:
		return "Float"
	case KindInt:
		return "Int"
	case KindUint:
		return "Uint"
	case KindBool:
		return "Bool"
	case KindDecimal:
		return "Decimal"
	case KindSequence:
		return "Sequence"
	case KindTuple:
		return "Tuple"
	case KindMapping:
		return "Mapping"
	case KindJSON:
		return "JSON"
	case KindOther:
		return "Other"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Value is a classified runtime value. The set of variants is closed: only
// the types in this file implement it.
type Value interface {
	Kind() Kind
	isValue()
}

// Null is the absent value.
type Null struct{}

// Table is a tabular source, exported as a JSON table.
type Table struct {
	Source datatable.Tabular
}

// Float is any floating point number, widened to float64.
type Float float64

// Int is any signed integer.
type Int int64

// Uint is any unsigned integer.
type Uint uint64

// Bool is a boolean.
type Bool bool

// Decimal is an arbitrary precision number held as its exact decimal text.
type Decimal struct {
	Text string
}

// Sequence is an ordered list-like value: a slice or an array.
type Sequence struct {
	items reflect.Value
}

// Len returns the number of elements. The zero Sequence is empty.
func (s Sequence) Len() int {
	if !s.items.IsValid() {
		return 0
	}
	return s.items.Len()
}

// At returns the i-th element.
func (s Sequence) At(i int) any { return s.items.Index(i).Interface() }

// Tuple is a fixed-arity record: a struct whose exported fields are
// emitted positionally.
type Tuple struct {
	fields []any
}

// Len returns the number of fields.
func (t Tuple) Len() int { return len(t.fields) }

// At returns the i-th exported field.
func (t Tuple) At(i int) any { return t.fields[i] }

// Mapping is a keyed collection. Keys are emitted in their string form.
type Mapping struct {
	m reflect.Value
}

// Len returns the number of entries. The zero Mapping is empty.
func (m Mapping) Len() int {
	if !m.m.IsValid() {
		return 0
	}
	return m.m.Len()
}

// Range calls fn for every entry with the key in its string form.
func (m Mapping) Range(fn func(key string, value any)) {
	if !m.m.IsValid() {
		return
	}
	iter := m.m.MapRange()
	for iter.Next() {
		fn(keyString(iter.Key()), iter.Value().Interface())
	}
}

// JSON is a value that already has a JSON form of its own; it is passed
// through unchanged.
type JSON struct {
	Raw any
}

// Other is anything the serializer does not recognize, carried as its
// string form.
type Other struct {
	Text string
}

func (Null) Kind() Kind     { return KindNull }
func (Table) Kind() Kind    { return KindTable }
func (Float) Kind() Kind    { return KindFloat }
func (Int) Kind() Kind      { return KindInt }
func (Uint) Kind() Kind     { return KindUint }
func (Bool) Kind() Kind     { return KindBool }
func (Decimal) Kind() Kind  { return KindDecimal }
func (Sequence) Kind() Kind { return KindSequence }
func (Tuple) Kind() Kind    { return KindTuple }
func (Mapping) Kind() Kind  { return KindMapping }
func (JSON) Kind() Kind     { return KindJSON }
func (Other) Kind() Kind    { return KindOther }

func (Null) isValue()     {}
func (Table) isValue()    {}
func (Float) isValue()    {}
func (Int) isValue()      {}
func (Uint) isValue()     {}
func (Bool) isValue()     {}
func (Decimal) isValue()  {}
func (Sequence) isValue() {}
func (Tuple) isValue()    {}
func (Mapping) isValue()  {}
func (JSON) isValue()     {}
func (Other) isValue()    {}
