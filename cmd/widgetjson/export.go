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
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/magpierre/widgetjson/internal/loader"
	"github.com/magpierre/widgetjson/jsontable"
	"github.com/magpierre/widgetjson/serialize"
)

// exportCmd exports data files as JSON tables
var exportCmd = &cobra.Command{
	Use:   "export FILE...",
	Short: "Export CSV, Parquet, JSON or Arrow stream files as JSON tables",
	Long: `Loads every file and exports it as a JSON table with the keys
columns, columnTypes, index and data. A single file prints one table;
several files print an object keyed by file name. Files are loaded
concurrently, bounded by export.workers.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ser := newSerializer()
	ld := newLoader()

	tables, err := exportFiles(cmd.Context(), ld, ser, args)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return writeJSON(cmd.OutOrStdout(), ser, tables[0])
	}
	byName := make(map[string]*jsontable.Table, len(args))
	for i, path := range args {
		byName[path] = tables[i]
	}
	return writeJSON(cmd.OutOrStdout(), ser, byName)
}

// exportFiles loads and exports paths concurrently. The result holds one
// table per path, in order.
func exportFiles(ctx context.Context, ld *loader.Loader, ser *serialize.Serializer, paths []string) ([]*jsontable.Table, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tables := make([]*jsontable.Table, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Export.Workers)
	for i, path := range paths {
		g.Go(func() error {
			src, err := ld.Load(ctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			defer src.Close()

			if err := prepare(src); err != nil {
				return err
			}
			tables[i] = ser.ExportTable(src.Table, cfg.Export.Limit)

			logger.Debug("exported file",
				zap.String("path", path),
				zap.Int("rows", tables[i].Len()),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}
