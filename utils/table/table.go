/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package table renders result rows as a plain-text grid for consoles.
package table

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"
)

// minWidth 列的最小宽度
const minWidth = 4

// Columns orders the column names of rows: names from order first (skipping
// names no row has), then the remaining names sorted.
func Columns(rows []map[string]interface{}, order []string) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			seen[col] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for _, col := range order {
		if seen[col] {
			columns = append(columns, col)
			delete(seen, col)
		}
	}
	rest := make([]string, 0, len(seen))
	for col := range seen {
		rest = append(rest, col)
	}
	sort.Strings(rest)
	return append(columns, rest...)
}

// Cell renders one value. nil is NULL.
func Cell(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

// Render writes rows as a bordered grid followed by a row count.
// A missing value renders as an empty cell.
func Render(w io.Writer, rows []map[string]interface{}, order []string) error {
	if len(rows) == 0 {
		_, err := io.WriteString(w, "(0 rows)\n")
		return err
	}
	columns := Columns(rows, order)

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = max(minWidth, utf8.RuneCountInString(col))
		for _, row := range rows {
			if v, ok := row[col]; ok {
				widths[i] = max(widths[i], utf8.RuneCountInString(Cell(v)))
			}
		}
	}

	var sb strings.Builder
	border(&sb, widths)
	line(&sb, widths, columns)
	border(&sb, widths)
	cells := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			cells[i] = ""
			if v, ok := row[col]; ok {
				cells[i] = Cell(v)
			}
		}
		line(&sb, widths, cells)
	}
	border(&sb, widths)
	fmt.Fprintf(&sb, "(%d rows)\n", len(rows))
	_, err := io.WriteString(w, sb.String())
	return err
}

// String renders rows like Render and returns the text.
func String(rows []map[string]interface{}, order []string) string {
	var sb strings.Builder
	_ = Render(&sb, rows, order)
	return sb.String()
}

func border(sb *strings.Builder, widths []int) {
	sb.WriteByte('+')
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w+2))
		sb.WriteByte('+')
	}
	sb.WriteByte('\n')
}

func line(sb *strings.Builder, widths []int, cells []string) {
	sb.WriteByte('|')
	for i, c := range cells {
		sb.WriteByte(' ')
		sb.WriteString(c)
		sb.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c)))
		sb.WriteString(" |")
	}
	sb.WriteByte('\n')
}
