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

// Package eval evaluates Go expressions with an embedded interpreter so
// that arbitrary values can be fed to the serializer from the command line.
package eval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ErrEmptyExpression is returned for blank input.
var ErrEmptyExpression = errors.New("expression is empty")

// Symbols exposes packages beyond the standard library to evaluated code.
var Symbols = interp.Exports{
	"github.com/shopspring/decimal/decimal": {
		"Decimal":           reflect.ValueOf((*decimal.Decimal)(nil)),
		"NullDecimal":       reflect.ValueOf((*decimal.NullDecimal)(nil)),
		"New":               reflect.ValueOf(decimal.New),
		"NewFromFloat":      reflect.ValueOf(decimal.NewFromFloat),
		"NewFromInt":        reflect.ValueOf(decimal.NewFromInt),
		"NewFromString":     reflect.ValueOf(decimal.NewFromString),
		"RequireFromString": reflect.ValueOf(decimal.RequireFromString),
	},
}

// Result is the outcome of an evaluation.
type Result struct {
	// Value is the value of the last expression, nil if it has none.
	Value any

	// Output holds anything the code wrote to stdout or stderr.
	Output string
}

// Eval evaluates src and returns the value of its last expression. src may
// be a bare expression or a sequence of statements; fmt, math, math/big,
// strings, time and decimal are imported.
func Eval(ctx context.Context, src string) (Result, error) {
	if strings.TrimSpace(src) == "" {
		return Result{}, ErrEmptyExpression
	}

	var output bytes.Buffer
	i := interp.New(interp.Options{
		Stdout: &output,
		Stderr: &output,
	})

	if err := i.Use(stdlib.Symbols); err != nil {
		return Result{}, fmt.Errorf("error loading stdlib: %w", err)
	}
	if err := i.Use(Symbols); err != nil {
		return Result{}, fmt.Errorf("error loading symbols: %w", err)
	}

	for _, pkg := range []string{"fmt", "math", "math/big", "strings", "time", "github.com/shopspring/decimal"} {
		if _, err := i.EvalWithContext(ctx, fmt.Sprintf("import %q", pkg)); err != nil {
			return Result{}, fmt.Errorf("import %s: %w", pkg, err)
		}
	}

	res, err := i.EvalWithContext(ctx, src)
	if err != nil {
		return Result{Output: output.String()}, fmt.Errorf("execution error: %w", err)
	}

	r := Result{Output: output.String()}
	if res.IsValid() && res.CanInterface() {
		r.Value = res.Interface()
	}
	return r, nil
}
