package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// renderKeyValues prints a two column table.
func renderKeyValues(out io.Writer, title string, rows [][2]string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle(title)
	}
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	tw.Render()
}
