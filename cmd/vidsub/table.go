package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"vidsub/internal/textutil"
)

// column describes one table column. Cells longer than width runes are
// truncated; zero means unbounded.
type column struct {
	header string
	align  text.Align
	width  int
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.header
		configs[i] = table.ColumnConfig{Number: i + 1, Align: c.align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for i, c := range columns {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			if c.width > 0 {
				cell = textutil.Truncate(cell, c.width)
			}
			cells[i] = cell
		}
		tw.AppendRow(cells)
	}
	return tw.Render()
}
