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

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magpierre/widgetjson/internal/eval"
)

// evalCmd serializes the value of a Go expression
var evalCmd = &cobra.Command{
	Use:   "eval EXPR",
	Short: "Evaluate a Go expression and print its JSON form",
	Long: `Evaluates EXPR with an embedded Go interpreter and prints the value the
way a widget would receive it. The fmt, math, math/big, strings, time and
decimal packages are imported.

  widgetjson eval 'map[string]float64{"a": 1.5, "b": math.NaN()}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := eval.Eval(cmd.Context(), strings.Join(args, " "))
		if res.Output != "" {
			fmt.Fprint(cmd.ErrOrStderr(), res.Output)
		}
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), newSerializer(), res.Value)
	},
}
