// Package output renders CLI results as aligned tables.
package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// PrintTable writes rows under the given headers as a borderless table.
func PrintTable(w io.Writer, headers []string, rows [][]string) {
	table := newTable(w)
	table.SetHeader(headers)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

// KeyValue prints aligned key/value pairs, one per row.
func KeyValue(w io.Writer, pairs [][2]string) {
	table := newTable(w)
	table.SetColumnSeparator(":")
	for _, pair := range pairs {
		table.Append([]string{pair[0], pair[1]})
	}
	table.Render()
}
