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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magpierre/widgetjson/internal/loader"
)

var listTables bool

// shareCmd exports a Delta Sharing table
var shareCmd = &cobra.Command{
	Use:   "share [PROFILE] [SHARE.SCHEMA.TABLE]",
	Short: "Export a Delta Sharing table as a JSON table",
	Long: `Loads a table through the Delta Sharing protocol and exports it as a
JSON table. PROFILE defaults to sharing.profile from the configuration.
With --list the tables reachable with the profile are printed instead.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runShare,
}

func init() {
	shareCmd.Flags().BoolVar(&listTables, "list", false, "List the tables available with the profile")
}

func runShare(cmd *cobra.Command, args []string) error {
	profilePath := cfg.Sharing.Profile
	var tablePath string
	switch {
	case len(args) == 2:
		profilePath, tablePath = args[0], args[1]
	case len(args) == 1 && listTables:
		profilePath = args[0]
	case len(args) == 1:
		tablePath = args[0]
	}
	if profilePath == "" {
		return errors.New("no Delta Sharing profile given")
	}

	profile, err := loader.ReadProfile(profilePath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ld := newLoader()
	ser := newSerializer()

	if listTables {
		tables, err := ld.ListSharedTables(ctx, profile, cfg.SharingTimeout())
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), ser, tables)
	}
	if tablePath == "" {
		return fmt.Errorf("no table given: %w", loader.ErrInvalidTablePath)
	}

	filter, err := rowFilter()
	if err != nil {
		return err
	}
	src, err := ld.LoadShared(ctx, profile, tablePath, cfg.Export.Limit, filter, cfg.SharingTimeout())
	if err != nil {
		return err
	}
	defer src.Close()

	if err := prepare(src); err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), ser, ser.ExportTable(src.Table, cfg.Export.Limit))
}
