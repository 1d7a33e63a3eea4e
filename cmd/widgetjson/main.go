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

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/magpierre/widgetjson/datatable"
	"github.com/magpierre/widgetjson/internal/config"
	"github.com/magpierre/widgetjson/internal/loader"
	"github.com/magpierre/widgetjson/serialize"
)

var (
	// Global flags
	configPath string
	limit      int
	verbose    bool
	pretty     bool
	strict     bool
	columns    []string
	where      []string
	matchAny   bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "widgetjson",
	Short: "Serialize values and tables for declarative notebook widgets",
	Long: `widgetjson converts values into the JSON expected by declarative
notebook widgets. Tables are exported as column-oriented documents holding
at most --limit rows; everything else becomes plain JSON.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = buildLogger(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().IntVarP(&limit, "limit", "l", 1000, "Maximum number of rows exported per table")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Indent JSON output")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Reject tables with empty or duplicate column names")
	rootCmd.PersistentFlags().StringSliceVar(&columns, "columns", nil, "Export only these columns, in this order")
	rootCmd.PersistentFlags().StringArrayVar(&where, "where", nil, "Keep rows matching a query such as \"age >= 40 AND city = london\" (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&matchAny, "any", false, "Keep rows matching any --where condition instead of all")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(rowsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// applyFlags lets explicitly set flags override the loaded configuration.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("limit") {
		cfg.Export.Limit = limit
	}
	if flags.Changed("pretty") {
		cfg.Export.Pretty = pretty
	}
	if flags.Changed("strict") {
		cfg.Export.Strict = strict
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}

// buildLogger returns a production logger at the given level.
func buildLogger(level string) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	return zapConfig.Build()
}

func newSerializer() *serialize.Serializer {
	return serialize.New(
		serialize.WithLogger(logger.Named("serialize")),
		serialize.WithMaxDepth(cfg.Export.MaxDepth),
	)
}

func newLoader() *loader.Loader {
	return loader.New(loader.Options{
		Delimiter:  cfg.Delimiter(),
		HasHeaders: cfg.CSV.HasHeaders,
		TrimSpace:  cfg.CSV.TrimSpace,
		NullValues: cfg.CSV.NullValues,
		Logger:     logger.Named("loader"),
	})
}

// rowFilter builds the filter described by the --where flags, nil when
// there are none.
func rowFilter() (datatable.Filter, error) {
	if len(where) == 0 {
		return nil, nil
	}
	composite := &datatable.CompositeFilter{Logic: datatable.LogicAND}
	if matchAny {
		composite.Logic = datatable.LogicOR
	}
	for _, expr := range where {
		f, err := datatable.ParseQuery(expr)
		if err != nil {
			return nil, err
		}
		composite.Filters = append(composite.Filters, f)
	}
	return composite, nil
}

// prepare applies the column selection, row filter and strict validation
// to src.
func prepare(src *loader.Source) error {
	filter, err := rowFilter()
	if err != nil {
		return err
	}
	if err := src.View(columns, filter); err != nil {
		return err
	}
	if cfg.Export.Strict {
		if err := datatable.Validate(src.Table); err != nil {
			return fmt.Errorf("%s: %w", src.Name, err)
		}
	}
	return nil
}

// writeJSON encodes v to w, indented when configured.
func writeJSON(w io.Writer, ser *serialize.Serializer, v any) error {
	var (
		out []byte
		err error
	)
	if cfg.Export.Pretty {
		out, err = ser.MarshalIndent(v, cfg.Export.Limit)
	} else {
		out, err = ser.Marshal(v, cfg.Export.Limit)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
