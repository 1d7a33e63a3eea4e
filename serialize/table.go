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

package serialize

import (
	"go.uber.org/zap"

	"github.com/magpierre/widgetjson/datatable"
	"github.com/magpierre/widgetjson/jsontable"
)

// ExportTable exports src with the default Serializer.
func ExportTable(src datatable.Tabular, limit int) *jsontable.Table {
	return defaultSerializer.ExportTable(src, limit)
}

// ExportTable converts src into a JSON table holding at most limit rows, in
// source order. Rows at or beyond limit are never read. Cells that cannot
// be read are null; columns whose type cannot be read are "Unknown".
func (s *Serializer) ExportTable(src datatable.Tabular, limit int) *jsontable.Table {
	return s.exportTable(src, limit, 0)
}

func (s *Serializer) exportTable(src datatable.Tabular, limit, depth int) *jsontable.Table {
	if limit < 0 {
		limit = 0
	}

	names := datatable.ColumnNames(src)
	labels := make([]string, len(names))
	for i := range names {
		dt, err := src.ColumnType(i)
		if err != nil {
			labels[i] = datatable.LabelUnknown
			continue
		}
		labels[i] = dt.Label()
	}

	out := jsontable.New(names, labels)
	if limit == 0 {
		return out
	}

	switch t := src.(type) {
	case datatable.RowStreamer:
		err := t.StreamRows(func(row []datatable.Value) bool {
			out.Append(s.positionalRow(row, len(names), limit, depth))
			return out.Len() < limit
		})
		if err != nil {
			s.logger.Warn("table stream ended early",
				zap.Int("rows", out.Len()),
				zap.Error(err),
			)
		}

	case datatable.DataSource:
		n := min(limit, t.RowCount())
		_, named := t.(datatable.NamedCellSource)
		for r := 0; r < n; r++ {
			row := make([]any, len(names))
			for c, name := range names {
				var (
					cell datatable.Value
					err  error
				)
				if named {
					cell, err = datatable.CellByName(t, r, name)
				} else {
					cell, err = t.Cell(r, c)
				}
				if err != nil {
					continue
				}
				row[c] = s.cell(cell, limit, depth)
			}
			out.Append(row)
		}
	}

	s.logger.Debug("exported table",
		zap.Int("columns", len(names)),
		zap.Int("rows", out.Len()),
		zap.Int("limit", limit),
	)
	return out
}

// positionalRow serializes a streamed row. Missing trailing cells are null
// and cells beyond the last column are dropped.
func (s *Serializer) positionalRow(cells []datatable.Value, width, limit, depth int) []any {
	row := make([]any, width)
	for c := 0; c < width && c < len(cells); c++ {
		row[c] = s.cell(cells[c], limit, depth)
	}
	return row
}

func (s *Serializer) cell(v datatable.Value, limit, depth int) any {
	if v.IsNull {
		return nil
	}
	return s.serialize(v.Raw, limit, depth+1)
}
