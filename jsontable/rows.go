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

package jsontable

// ToRows shapes the rows of t for display. With rowAsObject false the data
// rows are returned as they are, one []any per row. With rowAsObject true
// each row becomes a map from column name to value; a column without a
// value in the row maps to nil and values beyond the last column are
// dropped. The result is never nil.
func ToRows(t *Table, rowAsObject bool) []any {
	if t == nil || len(t.Data) == 0 {
		return []any{}
	}

	rows := make([]any, len(t.Data))
	for i, row := range t.Data {
		if !rowAsObject {
			rows[i] = row
			continue
		}

		record := make(map[string]any, len(t.Columns))
		for c, name := range t.Columns {
			if c < len(row) {
				record[name] = row[c]
			} else {
				record[name] = nil
			}
		}
		rows[i] = record
	}
	return rows
}
