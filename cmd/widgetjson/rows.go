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
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/magpierre/widgetjson/jsontable"
)

var rowsAsObjects bool

// rowsCmd reshapes a JSON table into rows
var rowsCmd = &cobra.Command{
	Use:   "rows [FILE]",
	Short: "Print the rows of a JSON table",
	Long: `Reads a JSON table (as printed by export) from FILE or stdin and prints
its data rows, as arrays or, with --objects, as objects keyed by column.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRows,
}

func init() {
	rowsCmd.Flags().BoolVar(&rowsAsObjects, "objects", false, "Print each row as an object keyed by column name")
}

func runRows(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read table: %w", err)
	}

	table, err := jsontable.Decode(data)
	if err != nil {
		return err
	}

	asObjects := cfg.Rows.RowAsObject
	if cmd.Flags().Changed("objects") {
		asObjects = rowsAsObjects
	}
	return writeJSON(cmd.OutOrStdout(), newSerializer(), jsontable.ToRows(table, asObjects))
}
