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
	"fmt"
	"strings"
)

// Filter decides whether a row is kept by Where.
type Filter interface {
	// Evaluate reports whether the row passes. columnNames are the
	// source's column names, in the same order as row.
	Evaluate(row []Value, columnNames []string) (bool, error)

	// Description returns a human readable form of the filter.
	Description() string
}

// EqualsFilter keeps rows whose column formats to exactly Value.
// Null cells never match.
type EqualsFilter struct {
	Column string
	Value  string
}

// Evaluate implements the Filter interface.
func (f *EqualsFilter) Evaluate(row []Value, columnNames []string) (bool, error) {
	for i, name := range columnNames {
		if name != f.Column {
			continue
		}
		if i >= len(row) || row[i].IsNull {
			return false, nil
		}
		return row[i].Formatted == f.Value, nil
	}
	return false, fmt.Errorf("%w: %w: %q", ErrInvalidFilter, ErrColumnNotFound, f.Column)
}

// Description implements the Filter interface.
func (f *EqualsFilter) Description() string {
	return fmt.Sprintf("%s = %q", f.Column, f.Value)
}

// LogicOp represents a logical operator for combining filters.
type LogicOp int

const (
	// LogicAND requires all filters to pass.
	LogicAND LogicOp = iota
	// LogicOR requires at least one filter to pass.
	LogicOR
)

// String returns the string representation of a LogicOp.
func (op LogicOp) String() string {
	switch op {
	case LogicAND:
		return "AND"
	case LogicOR:
		return "OR"
	default:
		return fmt.Sprintf("unknown(%d)", op)
	}
}

// CompositeFilter combines multiple filters with AND or OR logic.
type CompositeFilter struct {
	// Filters is the list of filters to combine.
	Filters []Filter

	// Logic specifies how to combine the filters (AND or OR).
	Logic LogicOp
}

// Evaluate implements the Filter interface.
func (f *CompositeFilter) Evaluate(row []Value, columnNames []string) (bool, error) {
	if len(f.Filters) == 0 {
		return true, nil // Empty filter passes all rows
	}

	switch f.Logic {
	case LogicAND:
		for _, filter := range f.Filters {
			passes, err := filter.Evaluate(row, columnNames)
			if err != nil {
				return false, err
			}
			if !passes {
				return false, nil
			}
		}
		return true, nil

	case LogicOR:
		for _, filter := range f.Filters {
			passes, err := filter.Evaluate(row, columnNames)
			if err != nil {
				return false, err
			}
			if passes {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("%w: unknown logic operator %d", ErrInvalidFilter, f.Logic)
	}
}

// Description implements the Filter interface.
func (f *CompositeFilter) Description() string {
	if len(f.Filters) == 0 {
		return "empty filter"
	}

	descriptions := make([]string, len(f.Filters))
	for i, filter := range f.Filters {
		descriptions[i] = filter.Description()
	}

	return "(" + strings.Join(descriptions, " "+f.Logic.String()+" ") + ")"
}
