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

package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	delta_sharing "github.com/magpierre/go_delta_sharing_client"
	"go.uber.org/zap"

	arrowadapter "github.com/magpierre/widgetjson/adapters/arrow"
	"github.com/magpierre/widgetjson/datatable"
)

var (
	// ErrInvalidTablePath is returned for table paths not of the form
	// share.schema.table.
	ErrInvalidTablePath = errors.New("table path must be share.schema.table")

	// ErrNoSharedFiles is returned when a shared table has no data files.
	ErrNoSharedFiles = errors.New("no files found in shared table")
)

// defaultSharingTimeout bounds a single Delta Sharing request.
const defaultSharingTimeout = 60 * time.Second

// createTimeoutContext derives a context bounded by timeout, 60s when unset.
func createTimeoutContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultSharingTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// ParseTablePath splits share.schema.table into a Delta Sharing table.
func ParseTablePath(path string) (delta_sharing.Table, error) {
	parts := strings.Split(path, ".")
	if len(parts) != 3 {
		return delta_sharing.Table{}, fmt.Errorf("%q: %w", path, ErrInvalidTablePath)
	}
	for _, p := range parts {
		if p == "" {
			return delta_sharing.Table{}, fmt.Errorf("%q: %w", path, ErrInvalidTablePath)
		}
	}
	return delta_sharing.Table{Share: parts[0], Schema: parts[1], Name: parts[2]}, nil
}

// ReadProfile returns the contents of the Delta Sharing profile at path.
func ReadProfile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read profile: %w", err)
	}
	if !isDeltaSharingProfile(string(data)) {
		return "", fmt.Errorf("%s: not a Delta Sharing profile: %w", path, ErrUnsupportedFile)
	}
	return string(data), nil
}

// SharingClient is the part of a Delta Sharing server the loader talks to.
type SharingClient interface {
	// Tables returns every reachable table as a share.schema.table path.
	Tables(ctx context.Context) ([]string, error)

	// FileIDs returns the ids of the data files backing table.
	FileIDs(ctx context.Context, table delta_sharing.Table) ([]string, error)

	// LoadFile reads one data file of table into memory.
	LoadFile(ctx context.Context, table delta_sharing.Table, fileID string) (arrow.Table, error)
}

// deltaSharingClient adapts the Delta Sharing REST client.
type deltaSharingClient struct {
	tables   func(ctx context.Context) ([]string, error)
	fileIDs  func(ctx context.Context, table delta_sharing.Table) ([]string, error)
	loadFile func(ctx context.Context, table delta_sharing.Table, fileID string) (arrow.Table, error)
}

func (c *deltaSharingClient) Tables(ctx context.Context) ([]string, error) {
	return c.tables(ctx)
}

func (c *deltaSharingClient) FileIDs(ctx context.Context, table delta_sharing.Table) ([]string, error) {
	return c.fileIDs(ctx, table)
}

func (c *deltaSharingClient) LoadFile(ctx context.Context, table delta_sharing.Table, fileID string) (arrow.Table, error) {
	return c.loadFile(ctx, table, fileID)
}

// newDeltaSharingClient connects to the server described by profile.
func newDeltaSharingClient(profile string) (SharingClient, error) {
	client, err := delta_sharing.NewSharingClientV2FromString(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Delta Sharing client: %w", err)
	}
	return &deltaSharingClient{
		tables: func(ctx context.Context) ([]string, error) {
			tables, _, err := client.ListAllTables_V2(ctx, 0, "", 0)
			if err != nil {
				return nil, err
			}
			paths := make([]string, 0, len(tables))
			for _, t := range tables {
				paths = append(paths, t.Share+"."+t.Schema+"."+t.Name)
			}
			return paths, nil
		},
		fileIDs: func(ctx context.Context, table delta_sharing.Table) ([]string, error) {
			resp, err := client.ListFilesInTable(ctx, table)
			if err != nil {
				return nil, err
			}
			ids := make([]string, 0, len(resp.AddFiles))
			for _, f := range resp.AddFiles {
				ids = append(ids, f.Id)
			}
			return ids, nil
		},
		loadFile: func(ctx context.Context, table delta_sharing.Table, fileID string) (arrow.Table, error) {
			return delta_sharing.LoadArrowTable(ctx, client, table, fileID)
		},
	}, nil
}

// ListSharedTables returns every table reachable with profile as
// share.schema.table paths.
func (l *Loader) ListSharedTables(ctx context.Context, profile string, timeout time.Duration) ([]string, error) {
	client, err := l.newClient(profile)
	if err != nil {
		return nil, err
	}

	ctx, cancel := createTimeoutContext(ctx, timeout)
	defer cancel()
	paths, err := client.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list all tables: %w", err)
	}
	return paths, nil
}

// LoadShared loads the shared table at tablePath. Data files are fetched
// one at a time until at least limit rows pass filter, so a bounded export
// does not download the whole table. A nil filter counts every row. The
// returned source is not filtered; apply filter with Source.View.
func (l *Loader) LoadShared(ctx context.Context, profile, tablePath string, limit int, filter datatable.Filter, timeout time.Duration) (*Source, error) {
	table, err := ParseTablePath(tablePath)
	if err != nil {
		return nil, err
	}

	client, err := l.newClient(profile)
	if err != nil {
		return nil, err
	}

	listCtx, cancel := createTimeoutContext(ctx, timeout)
	ids, err := client.FileIDs(listCtx, table)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: %w", tablePath, ErrNoSharedFiles)
	}

	var (
		tables  []arrow.Table
		matched int
	)
	defer func() {
		for _, t := range tables {
			t.Release()
		}
	}()

	for _, id := range ids {
		if len(tables) > 0 && matched >= limit {
			break
		}
		loadCtx, cancel := createTimeoutContext(ctx, timeout)
		t, err := client.LoadFile(loadCtx, table, id)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to load file %s: %w", id, err)
		}
		if len(tables) > 0 && !t.Schema().Equal(tables[0].Schema()) {
			l.logger.Warn("skipping shared file with a different schema",
				zap.String("table", tablePath),
				zap.String("file", id),
			)
			t.Release()
			continue
		}
		tables = append(tables, t)

		n, err := countMatches(t, filter)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tablePath, err)
		}
		matched += n
	}

	combined := concatTables(tables)
	defer combined.Release()

	ds, err := arrowadapter.NewFromArrowTable(combined)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow data source: %w", err)
	}

	l.logger.Info("loaded shared table",
		zap.String("table", tablePath),
		zap.Int("files", len(tables)),
		zap.Int("rows", ds.RowCount()),
		zap.Int("matched", matched),
		zap.Int("columns", ds.ColumnCount()),
	)
	return &Source{
		Name:    tablePath,
		Type:    FileTypeDeltaSharingProfile,
		Table:   ds,
		closers: []func(){ds.Release},
	}, nil
}

// countMatches returns the number of rows of t that pass filter.
func countMatches(t arrow.Table, filter datatable.Filter) (int, error) {
	if filter == nil {
		return int(t.NumRows()), nil
	}
	ds, err := arrowadapter.NewFromArrowTable(t)
	if err != nil {
		return 0, err
	}
	defer ds.Release()

	view, err := datatable.Where(ds, filter)
	if err != nil {
		return 0, err
	}
	return view.RowCount(), nil
}

// concatTables joins tables sharing one schema into a single table whose
// columns hold the chunks of every input in order.
func concatTables(tables []arrow.Table) arrow.Table {
	if len(tables) == 1 {
		tables[0].Retain()
		return tables[0]
	}

	schema := tables[0].Schema()
	columns := make([]arrow.Column, schema.NumFields())
	var rows int64
	for _, t := range tables {
		rows += t.NumRows()
	}
	for i := range columns {
		var chunks []arrow.Array
		for _, t := range tables {
			chunks = append(chunks, t.Column(i).Data().Chunks()...)
		}
		chunked := arrow.NewChunked(schema.Field(i).Type, chunks)
		columns[i] = *arrow.NewColumn(schema.Field(i), chunked)
		chunked.Release()
	}
	return array.NewTable(schema, columns, rows)
}
