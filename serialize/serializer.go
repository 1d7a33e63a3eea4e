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

// Package serialize converts runtime values into JSON for the table widget.
//
// Serialize never fails: values it does not recognize are reported by their
// string form, tabular sources are exported as a jsontable.Table bounded by
// the row limit, and everything else maps onto JSON numbers, booleans,
// strings, arrays and objects. The result is a tree of nil, bool, int64,
// uint64, float64, string, json.Number, []any, map[string]any,
// *jsontable.Table and pass-through JSON values, ready for Marshal.
package serialize

import (
	"encoding/json"
	"fmt"
	"math"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// DefaultMaxDepth is the nesting depth beyond which composite values are
// reported by their type name instead of their contents.
const DefaultMaxDepth = 64

// Serializer converts values to JSON trees. A Serializer holds no mutable
// state and is safe for concurrent use.
type Serializer struct {
	logger   *zap.Logger
	maxDepth int
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithLogger sets the logger that receives a debug entry per serialized
// value.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Serializer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxDepth bounds the nesting depth. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(s *Serializer) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// New returns a Serializer configured by opts.
func New(opts ...Option) *Serializer {
	s := &Serializer{
		logger:   zap.NewNop(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultSerializer = New()

// Serialize converts v with the default Serializer.
func Serialize(v any, limit int) any {
	return defaultSerializer.Serialize(v, limit)
}

// Marshal converts v with the default Serializer and encodes it.
func Marshal(v any, limit int) ([]byte, error) {
	return defaultSerializer.Marshal(v, limit)
}

// Serialize converts v to a JSON tree. limit bounds the number of rows
// exported from any tabular source found in v.
func (s *Serializer) Serialize(v any, limit int) any {
	return s.serialize(v, limit, 0)
}

// Marshal converts v and encodes the result as JSON.
func (s *Serializer) Marshal(v any, limit int) ([]byte, error) {
	b, err := gojson.Marshal(s.Serialize(v, limit))
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return b, nil
}

// MarshalIndent is like Marshal but indents the output.
func (s *Serializer) MarshalIndent(v any, limit int) ([]byte, error) {
	b, err := gojson.MarshalIndent(s.Serialize(v, limit), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return b, nil
}

func (s *Serializer) serialize(v any, limit, depth int) any {
	val := Classify(v)

	if ce := s.logger.Check(zap.DebugLevel, "serialize value"); ce != nil {
		ce.Write(
			zap.Stringer("kind", val.Kind()),
			zap.String("type", fmt.Sprintf("%T", v)),
			zap.Int("depth", depth),
		)
	}

	if depth >= s.maxDepth && isComposite(val) {
		return fmt.Sprintf("%T", v)
	}

	switch x := val.(type) {
	case Null:
		return nil
	case Table:
		return s.exportTable(x.Source, limit, depth)
	case Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case Int:
		return int64(x)
	case Uint:
		return uint64(x)
	case Bool:
		return bool(x)
	case Decimal:
		return json.Number(x.Text)
	case Sequence:
		out := make([]any, x.Len())
		for i := range out {
			out[i] = s.serialize(x.At(i), limit, depth+1)
		}
		return out
	case Tuple:
		out := make([]any, x.Len())
		for i := range out {
			out[i] = s.serialize(x.At(i), limit, depth+1)
		}
		return out
	case Mapping:
		out := make(map[string]any, x.Len())
		x.Range(func(key string, value any) {
			out[key] = s.serialize(value, limit, depth+1)
		})
		return out
	case JSON:
		return x.Raw
	case Other:
		return x.Text
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isComposite(v Value) bool {
	switch v.Kind() {
	case KindTable, KindSequence, KindTuple, KindMapping:
		return true
	default:
		return false
	}
}
