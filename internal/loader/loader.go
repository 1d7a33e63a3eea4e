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

// Package loader turns data files and Delta Sharing tables into tabular
// sources for export.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	arrowadapter "github.com/magpierre/widgetjson/adapters/arrow"
	csvadapter "github.com/magpierre/widgetjson/adapters/csv"
	sliceadapter "github.com/magpierre/widgetjson/adapters/slice"
	"github.com/magpierre/widgetjson/datatable"
)

// Errors returned by the loader.
var (
	// ErrUnsupportedFile is returned for files whose type is not recognized.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrEmptyJSON is returned for JSON files without records.
	ErrEmptyJSON = errors.New("JSON file is empty or has no records")

	// ErrNotRandomAccess is returned when a view needs random access to a
	// streaming source.
	ErrNotRandomAccess = errors.New("source does not support random access")
)

// FileType represents the type of data file
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeCSV
	FileTypeParquet
	FileTypeJSON
	FileTypeArrowStream
	FileTypeDeltaSharingProfile
)

// String returns the name of the file type.
func (ft FileType) String() string {
	switch ft {
	case FileTypeCSV:
		return "csv"
	case FileTypeParquet:
		return "parquet"
	case FileTypeJSON:
		return "json"
	case FileTypeArrowStream:
		return "arrow-stream"
	case FileTypeDeltaSharingProfile:
		return "delta-sharing-profile"
	default:
		return "unknown"
	}
}

// Options configures a Loader.
type Options struct {
	// Delimiter is the CSV delimiter; 0 detects it from the first line.
	Delimiter rune

	HasHeaders bool
	TrimSpace  bool
	NullValues []string

	Logger *zap.Logger
}

// Loader opens data files as tabular sources.
type Loader struct {
	opts      Options
	logger    *zap.Logger
	newClient func(profile string) (SharingClient, error)
}

// New returns a Loader configured by opts.
func New(opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{opts: opts, logger: logger, newClient: newDeltaSharingClient}
}

// Source is a loaded tabular source. Close releases the memory backing it.
type Source struct {
	// Name identifies the source, usually the file name.
	Name string

	// Type is the detected file type.
	Type FileType

	// Table is the loaded data. It is a datatable.DataSource for files read
	// in full and a datatable.RowStreamer for streams.
	Table datatable.Tabular

	closers []func()
}

// Close releases the source.
func (s *Source) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// View narrows the source to the given columns and the rows that pass
// filter. Streaming sources only support an empty view.
func (s *Source) View(columns []string, filter datatable.Filter) error {
	if len(columns) == 0 && filter == nil {
		return nil
	}
	ds, ok := s.Table.(datatable.DataSource)
	if !ok {
		return fmt.Errorf("%s: %w", s.Name, ErrNotRandomAccess)
	}
	ds, err := datatable.Where(ds, filter)
	if err != nil {
		return err
	}
	ds, err = datatable.Select(ds, columns...)
	if err != nil {
		return err
	}
	s.Table = ds
	return nil
}

// DetectFileType determines the type of file based on extension and content
func DetectFileType(filePath string, content string) FileType {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".csv", ".tsv":
		return FileTypeCSV
	case ".parquet":
		return FileTypeParquet
	case ".arrows", ".arrow", ".ipc":
		return FileTypeArrowStream
	case ".json", ".share", ".txt":
		if isDeltaSharingProfile(content) {
			return FileTypeDeltaSharingProfile
		}
		return FileTypeJSON
	default:
		return FileTypeUnknown
	}
}

// isDeltaSharingProfile checks if the content looks like a Delta Sharing profile
func isDeltaSharingProfile(content string) bool {
	var profile map[string]interface{}
	if err := json.Unmarshal([]byte(content), &profile); err != nil {
		return false
	}

	_, hasVersion := profile["shareCredentialsVersion"]
	_, hasEndpoint := profile["endpoint"]
	_, hasBearerToken := profile["bearerToken"]

	return hasVersion && hasEndpoint && hasBearerToken
}

// Load opens the file at path as a tabular source.
func (l *Loader) Load(ctx context.Context, path string) (*Source, error) {
	var content string
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".json" || ext == ".share" || ext == ".txt" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		content = string(data)
	}

	fileType := DetectFileType(path, content)
	l.logger.Debug("loading file",
		zap.String("path", path),
		zap.Stringer("type", fileType),
	)

	switch fileType {
	case FileTypeCSV:
		return l.loadCSV(path)
	case FileTypeParquet:
		return l.loadParquet(ctx, path)
	case FileTypeJSON:
		return l.loadJSON(path, []byte(content))
	case FileTypeArrowStream:
		return l.loadArrowStream(path)
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFile)
	}
}

// loadCSV loads a CSV file using the CSV adapter
func (l *Loader) loadCSV(path string) (*Source, error) {
	separator := l.opts.Delimiter
	if separator == 0 {
		var err error
		separator, err = detectCSVSeparator(path)
		if err != nil {
			return nil, err
		}
	}

	config := csvadapter.DefaultConfig()
	config.HasHeaders = l.opts.HasHeaders
	config.TrimSpace = l.opts.TrimSpace
	config.Delimiter = separator
	if l.opts.NullValues != nil {
		config.NullValues = l.opts.NullValues
	}

	ds, err := csvadapter.NewFromFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to load CSV file: %w", err)
	}

	l.logger.Info("loaded CSV file",
		zap.String("file", filepath.Base(path)),
		zap.Int("rows", ds.RowCount()),
		zap.Int("columns", ds.ColumnCount()),
		zap.String("separator", separatorName(separator)),
	)
	return &Source{Name: filepath.Base(path), Type: FileTypeCSV, Table: ds}, nil
}

// loadParquet reads a Parquet file into an Arrow table.
func (l *Loader) loadParquet(ctx context.Context, path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f, file.WithReadProps(parquet.NewReaderProperties(memory.DefaultAllocator)))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pf.Close()

	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	defer table.Release()

	ds, err := arrowadapter.NewFromArrowTable(table)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow data source: %w", err)
	}

	l.logger.Info("loaded Parquet file",
		zap.String("file", filepath.Base(path)),
		zap.Int("rows", ds.RowCount()),
		zap.Int("columns", ds.ColumnCount()),
	)
	return &Source{
		Name:    filepath.Base(path),
		Type:    FileTypeParquet,
		Table:   ds,
		closers: []func(){ds.Release},
	}, nil
}

// loadJSON loads an array of objects, or a single object, as records.
func (l *Loader) loadJSON(path string, content []byte) (*Source, error) {
	data, err := decodeRecords(content)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyJSON
	}

	ds, err := sliceadapter.NewFromMaps(data)
	if err != nil {
		return nil, fmt.Errorf("failed to create data source from JSON: %w", err)
	}

	l.logger.Info("loaded JSON file",
		zap.String("file", filepath.Base(path)),
		zap.Int("rows", ds.RowCount()),
		zap.Int("columns", ds.ColumnCount()),
	)
	return &Source{Name: filepath.Base(path), Type: FileTypeJSON, Table: ds}, nil
}

func decodeRecords(content []byte) ([]map[string]interface{}, error) {
	var data []map[string]interface{}
	if err := decodeNumbers(content, &data); err == nil {
		return data, nil
	}

	var single map[string]interface{}
	if err := decodeNumbers(content, &single); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return []map[string]interface{}{single}, nil
}

// decodeNumbers decodes keeping numbers as json.Number.
func decodeNumbers(content []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	return dec.Decode(v)
}

// loadArrowStream opens an Arrow IPC stream as a forward-only source.
func (l *Loader) loadArrowStream(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow stream: %w", err)
	}

	reader, err := ipc.NewReader(bufio.NewReader(f), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create arrow stream reader: %w", err)
	}

	stream, err := arrowadapter.NewFromRecordReader(reader)
	if err != nil {
		reader.Release()
		f.Close()
		return nil, err
	}

	l.logger.Info("opened Arrow stream",
		zap.String("file", filepath.Base(path)),
		zap.Int("columns", stream.ColumnCount()),
	)
	return &Source{
		Name:  filepath.Base(path),
		Type:  FileTypeArrowStream,
		Table: stream,
		closers: []func(){
			func() { f.Close() },
			reader.Release,
		},
	}, nil
}

// detectCSVSeparator tries to detect the CSV separator from the first line
func detectCSVSeparator(filePath string) (rune, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return ',', fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return ',', nil
	}

	return separatorOf(scanner.Text()), nil
}

// separatorOf returns the most frequent of the common separators in line,
// preferring comma on ties and when none occurs.
func separatorOf(line string) rune {
	best, bestCount := ',', strings.Count(line, ",")
	for _, sep := range []rune{';', '\t', '|'} {
		if n := strings.Count(line, string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

// separatorName returns a human-readable name for the separator
func separatorName(sep rune) string {
	switch sep {
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	case '|':
		return "pipe"
	default:
		return string(sep)
	}
}
