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
	"strconv"
	"strings"
)

// CompOp is a comparison operator in a query expression.
type CompOp int

const (
	OpEqual CompOp = iota
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
	OpContains
)

// Operators in match order at a position, so ">=" is found before "=".
var compOps = []struct {
	op     CompOp
	symbol string
}{
	{OpGreaterEqual, ">="},
	{OpLessEqual, "<="},
	{OpNotEqual, "!="},
	{OpEqual, "="},
	{OpGreater, ">"},
	{OpLess, "<"},
	{OpContains, "~"},
}

// String returns the operator symbol.
func (op CompOp) String() string {
	for _, c := range compOps {
		if c.op == op {
			return c.symbol
		}
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// Comparison compares one column against a literal. Equality and
// containment ignore case. Ordering compares numerically when both sides
// parse as numbers and falls back to case-insensitive string order.
// An empty Column with OpContains searches every column.
type Comparison struct {
	Column   string
	Operator CompOp
	Value    string
}

// Evaluate implements the Filter interface. Null cells never match.
func (c *Comparison) Evaluate(row []Value, columnNames []string) (bool, error) {
	if c.Column == "" && c.Operator == OpContains {
		needle := strings.ToLower(c.Value)
		for _, v := range row {
			if !v.IsNull && strings.Contains(strings.ToLower(v.Formatted), needle) {
				return true, nil
			}
		}
		return false, nil
	}

	for i, name := range columnNames {
		if !strings.EqualFold(name, c.Column) {
			continue
		}
		if i >= len(row) || row[i].IsNull {
			return false, nil
		}
		return c.compare(row[i].Formatted), nil
	}
	return false, fmt.Errorf("%w: %w: %q", ErrInvalidFilter, ErrColumnNotFound, c.Column)
}

func (c *Comparison) compare(cell string) bool {
	switch c.Operator {
	case OpEqual:
		return strings.EqualFold(cell, c.Value)
	case OpNotEqual:
		return !strings.EqualFold(cell, c.Value)
	case OpContains:
		return strings.Contains(strings.ToLower(cell), strings.ToLower(c.Value))
	}

	var order int
	a, errA := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	switch {
	case errA == nil && errB == nil && a < b:
		order = -1
	case errA == nil && errB == nil && a > b:
		order = 1
	case errA == nil && errB == nil:
		order = 0
	default:
		order = strings.Compare(strings.ToLower(cell), strings.ToLower(c.Value))
	}

	switch c.Operator {
	case OpGreater:
		return order > 0
	case OpLess:
		return order < 0
	case OpGreaterEqual:
		return order >= 0
	case OpLessEqual:
		return order <= 0
	}
	return false
}

// Description implements the Filter interface.
func (c *Comparison) Description() string {
	if c.Column == "" {
		return fmt.Sprintf("* ~ %q", c.Value)
	}
	return fmt.Sprintf("%s %s %q", c.Column, c.Operator, c.Value)
}

// ParseQuery parses a search expression such as
//
//	age >= 40 AND city = london OR name ~ ada
//
// into a Filter. AND and OR are matched as whole words in any case and
// apply left to right without precedence. A term without an operator
// searches every column for the text. Quotes around values are removed.
func ParseQuery(query string) (Filter, error) {
	var (
		terms []string
		ops   []LogicOp
		words []string
	)
	flush := func() {
		terms = append(terms, strings.Join(words, " "))
		words = nil
	}
	for _, word := range strings.Fields(query) {
		switch strings.ToUpper(word) {
		case "AND":
			flush()
			ops = append(ops, LogicAND)
		case "OR":
			flush()
			ops = append(ops, LogicOR)
		default:
			words = append(words, word)
		}
	}
	flush()

	var result Filter
	for i, term := range terms {
		if term == "" {
			return nil, fmt.Errorf("%w: missing term in %q", ErrInvalidFilter, query)
		}
		f, err := parseComparison(term)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			result = f
			continue
		}
		result = &CompositeFilter{Filters: []Filter{result, f}, Logic: ops[i-1]}
	}
	return result, nil
}

func parseComparison(term string) (*Comparison, error) {
	for idx := 0; idx < len(term); idx++ {
		for _, c := range compOps {
			if !strings.HasPrefix(term[idx:], c.symbol) {
				continue
			}
			if idx == 0 {
				return nil, fmt.Errorf("%w: missing column in %q", ErrInvalidFilter, term)
			}
			return &Comparison{
				Column:   strings.TrimSpace(term[:idx]),
				Operator: c.op,
				Value:    strings.Trim(strings.TrimSpace(term[idx+len(c.symbol):]), `"'`),
			}, nil
		}
	}
	return &Comparison{Operator: OpContains, Value: strings.Trim(term, `"'`)}, nil
}
