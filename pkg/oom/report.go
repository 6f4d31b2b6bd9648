package oom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/leptonai/memscope/pkg/kernlog"
	"github.com/leptonai/memscope/pkg/units"
)

// ReportOptions configures RenderUsage.
type ReportOptions struct {
	Unit            units.Unit
	ShowUnaccounted bool
	// Verbose prints the unaccounted memory formula after the table.
	Verbose bool
}

// RenderUsage writes the summary table of one section.
// The output is built in memory first so a failure never leaves a partial table.
func RenderUsage(w io.Writer, ts kernlog.Timestamp, u *Usage, opts ReportOptions) error {
	if u == nil {
		return fmt.Errorf("no usage to render")
	}
	unit := opts.Unit
	if unit == "" {
		unit = units.MiB
	}
	format := func(pages int64) string {
		return units.Format(float64(pages), u.PageSizeKB, unit)
	}

	buf := bytes.NewBuffer(nil)
	fmt.Fprintf(buf, "\nTimestamp: %s\n", ts)

	table := tablewriter.NewWriter(buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader([]string{"Category", unit.Label()})

	for _, row := range u.Rows {
		table.Append([]string{row.Label, format(row.Pages)})
	}
	if opts.ShowUnaccounted {
		table.Append([]string{"Unaccounted Memory", format(u.Unaccounted)})
	}
	table.SetFooter([]string{"Total Memory", format(u.TotalPages)})
	table.Render()

	if opts.Verbose {
		writeFormula(buf, u, format)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func writeFormula(buf *bytes.Buffer, u *Usage, format func(int64) string) {
	labels := make([]string, 0, len(u.Accounted)+1)
	values := make([]string, 0, len(u.Accounted)+1)
	labels = append(labels, "Total Memory")
	values = append(values, format(u.TotalPages))
	for _, t := range u.Accounted {
		labels = append(labels, t.Label)
		values = append(values, format(t.Pages))
	}

	fmt.Fprintf(buf, "\nUnaccounted memory = %s\n", strings.Join(labels, " - "))
	fmt.Fprintf(buf, "%s = %s\n", format(u.Unaccounted), strings.Join(values, " - "))
	fmt.Fprintf(buf, "(anon memory from %s, field table %s, policy %s)\n", u.AnonSource, u.Table, u.Policy)
}
