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
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/magpierre/widgetjson/adapters/slice"
	"github.com/magpierre/widgetjson/jsontable"
	"github.com/magpierre/widgetjson/serialize"
)

type point struct {
	X, Y   int
	hidden string
}

type celsius float64

type coords struct {
	Lat, Lon float64
}

type place struct {
	coords
	Name string
}

type route struct {
	*coords
	Stops int
}

type label string

func TestSerializeScalars(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 42

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"float", 1.5, 1.5},
		{"float32", float32(0.5), 0.5},
		{"named float", celsius(21.5), 21.5},
		{"int", 3, int64(3)},
		{"int8", int8(-4), int64(-4)},
		{"uint8", uint8(7), uint64(7)},
		{"bool", true, true},
		{"string", "hello", "hello"},
		{"named string", label("tag"), "tag"},
		{"bytes", []byte("raw"), "raw"},
		{"binary bytes", []byte{1, 2, 0xff}, "AQL/"},
		{"zero sequence", serialize.Sequence{}, []any{}},
		{"zero mapping", serialize.Mapping{}, map[string]any{}},
		{"zero tuple", serialize.Tuple{}, []any{}},
		{"zero table", serialize.Table{}, nil},
		{"table over nil pointer", serialize.Table{Source: (*slice.DataSource)(nil)}, nil},
		{"pointer", &n, int64(42)},
		{"nil pointer", (*int)(nil), nil},
		{"NaN", math.NaN(), nil},
		{"infinity", math.Inf(1), nil},
		{"decimal", decimal.RequireFromString("12.345"), json.Number("12.345")},
		{"null decimal", decimal.NullDecimal{}, nil},
		{"big int", new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil), json.Number("1000000000000000000000000000000")},
		{"big rat", big.NewRat(1, 4), json.Number("0.25")},
		{"json number", json.Number("1e400"), json.Number("1e400")},
		{"error", errors.New("boom"), "boom"},
		{"time", when, when},
		{"duration", 2 * time.Second, int64(2 * time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serialize.Serialize(tt.in, 10)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSerializeComposites(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{
			name: "slice",
			in:   []int{1, 2, 3},
			want: []any{int64(1), int64(2), int64(3)},
		},
		{
			name: "array",
			in:   [2]string{"a", "b"},
			want: []any{"a", "b"},
		},
		{
			name: "byte array",
			in:   [3]uint8{1, 2, 3},
			want: []any{uint64(1), uint64(2), uint64(3)},
		},
		{
			name: "embedded struct is flattened",
			in:   place{coords: coords{Lat: 1.5, Lon: 2.5}, Name: "pier"},
			want: []any{1.5, 2.5, "pier"},
		},
		{
			name: "embedded pointer",
			in:   route{coords: &coords{Lat: 1, Lon: 2}, Stops: 3},
			want: []any{1.0, 2.0, int64(3)},
		},
		{
			name: "nil embedded pointer",
			in:   route{Stops: 3},
			want: []any{int64(3)},
		},
		{
			name: "nil slice",
			in:   []int(nil),
			want: []any{},
		},
		{
			name: "struct is positional",
			in:   point{X: 1, Y: 2, hidden: "x"},
			want: []any{int64(1), int64(2)},
		},
		{
			name: "string keys",
			in:   map[string]int{"a": 1, "b": 2},
			want: map[string]any{"a": int64(1), "b": int64(2)},
		},
		{
			name: "integer keys",
			in:   map[int]string{1: "one"},
			want: map[string]any{"1": "one"},
		},
		{
			name: "nested",
			in: map[string]any{
				"values": []any{1.5, nil, "x", []bool{true}},
				"point":  &point{X: 3, Y: 4},
			},
			want: map[string]any{
				"values": []any{1.5, nil, "x", []any{true}},
				"point":  []any{int64(3), int64(4)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serialize.Serialize(tt.in, 10)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Serialize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassifyOrder(t *testing.T) {
	ds, err := slice.NewFromRows([]string{"a"}, nil, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   any
		want serialize.Kind
	}{
		{"table before sequence", ds, serialize.KindTable},
		{"float", 2.5, serialize.KindFloat},
		{"int", 1, serialize.KindInt},
		{"uint", uint(1), serialize.KindUint},
		{"bool", false, serialize.KindBool},
		{"decimal", decimal.NewFromInt(1), serialize.KindDecimal},
		{"sequence", []string{"a"}, serialize.KindSequence},
		{"tuple", point{}, serialize.KindTuple},
		{"mapping", map[string]bool{}, serialize.KindMapping},
		{"already json", json.RawMessage(`{"a":1}`), serialize.KindJSON},
		{"marshaler before tuple", time.Time{}, serialize.KindJSON},
		{"string", "s", serialize.KindOther},
		{"channel", make(chan int), serialize.KindOther},
		{"null", nil, serialize.KindNull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serialize.Classify(tt.in).Kind())
		})
	}
}

func TestSerializeIdempotent(t *testing.T) {
	in := map[string]any{
		"a": []any{1, 2.5, "s", nil, true},
		"b": map[string]any{"c": decimal.RequireFromString("0.1")},
		"d": json.RawMessage(`[1,2]`),
	}

	once := serialize.Serialize(in, 10)
	twice := serialize.Serialize(once, 10)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second pass changed the tree (-once +twice):\n%s", diff)
	}

	a, err := serialize.Marshal(in, 10)
	require.NoError(t, err)
	b, err := serialize.Marshal(once, 10)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestSerializeTablePassesThrough(t *testing.T) {
	table := jsontable.New([]string{"a"}, []string{"Number"})
	table.Append([]any{int64(1)})

	assert.Same(t, table, serialize.Serialize(table, 0))
}

func TestMarshal(t *testing.T) {
	out, err := serialize.Marshal(map[string]any{
		"price": decimal.RequireFromString("19.99"),
		"ratio": math.NaN(),
		"tags":  []string{"x", "y"},
	}, 10)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":19.99,"ratio":null,"tags":["x","y"]}`, string(out))
}

func TestMarshalIndent(t *testing.T) {
	out, err := serialize.New().MarshalIndent([]int{1}, 10)
	require.NoError(t, err)
	assert.Equal(t, "[\n  1\n]", string(out))
}

func TestMaxDepth(t *testing.T) {
	var nested any = "leaf"
	for i := 0; i < 10; i++ {
		nested = []any{nested}
	}

	s := serialize.New(serialize.WithMaxDepth(3))
	got := s.Serialize(nested, 10)

	want := []any{[]any{[]any{"[]interface {}"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Serialize() mismatch (-want +got):\n%s", diff)
	}
}

func TestSelfReferenceTerminates(t *testing.T) {
	m := map[string]any{}
	m["self"] = m

	got := serialize.New(serialize.WithMaxDepth(5)).Serialize(m, 10)
	require.IsType(t, map[string]any{}, got)

	out, err := serialize.Marshal(m, 10)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"self"`)
}

func TestDebugLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := serialize.New(serialize.WithLogger(zap.New(core)))

	s.Serialize([]int{1, 2}, 10)

	entries := logs.FilterMessage("serialize value").All()
	require.Len(t, entries, 3)
	assert.Equal(t, "Sequence", entries[0].ContextMap()["kind"])
	assert.Equal(t, int64(1), entries[1].ContextMap()["depth"])
}
