package pageowner

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/leptonai/memscope/pkg/units"
)

func memory(pages int64, u units.Unit) string {
	return units.FormatFloat(units.ScaleBytes(units.PagesToBytes(pages), u))
}

func memoryHeader(u units.Unit) string {
	return "Memory (" + units.ByteLabel(u) + ")"
}

func newTable(buf *bytes.Buffer, header []string, align []int) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	table.SetColumnAlignment(align)
	return table
}

func flush(w io.Writer, buf *bytes.Buffer) error {
	_, err := w.Write(buf.Bytes())
	return err
}

// RenderView writes a top-N view with its exact totals row.
func RenderView(w io.Writer, v View, u units.Unit) error {
	buf := bytes.NewBuffer(nil)
	fmt.Fprintf(buf, "Top %d %s:\n", len(v.Rows), v.Title)
	if len(v.Rows) == 0 {
		fmt.Fprintln(buf, "(none)")
		return flush(w, buf)
	}

	table := newTable(buf,
		[]string{"Name", "Allocations", memoryHeader(u)},
		[]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT},
	)
	for _, row := range v.Rows {
		table.Append([]string{row.Name, strconv.FormatInt(row.Count, 10), memory(row.Pages, u)})
	}
	table.SetFooter([]string{"Total", strconv.FormatInt(v.Total.Count, 10), memory(v.Total.Pages, u)})
	table.Render()

	return flush(w, buf)
}

// RenderCallTraces writes each trace with its count and memory.
func RenderCallTraces(w io.Writer, rows []TraceRow, total Stat, process string, u units.Unit) error {
	buf := bytes.NewBuffer(nil)
	if len(rows) == 0 {
		if process != "" {
			fmt.Fprintf(buf, "No call traces found for process '%s'\n", process)
		} else {
			fmt.Fprintln(buf, "No call traces found")
		}
		return flush(w, buf)
	}

	title := fmt.Sprintf("Top %d Call Traces", len(rows))
	if process != "" {
		title += fmt.Sprintf(" for process '%s'", process)
	}
	fmt.Fprintf(buf, "%s:\n%s\n", title, strings.Repeat("=", 50))
	for _, row := range rows {
		fmt.Fprintf(buf, "#%d: Seen %d times, %s %s\n", row.Rank, row.Count, memory(row.Pages, u), units.ByteLabel(u))
		if row.Trace != nil {
			fmt.Fprintf(buf, "first seen: pid %d, tgid %d (%s), ts %d ns\n", row.Trace.FirstPID, row.Trace.FirstTGID, row.Trace.FirstProcess, row.Trace.FirstTS)
			for _, line := range row.Trace.Lines {
				fmt.Fprintf(buf, " %s\n", line)
			}
		}
		fmt.Fprintln(buf, strings.Repeat("-", 50))
	}
	fmt.Fprintf(buf, "Total: %d allocations, %s %s\n", total.Count, memory(total.Pages, u), units.ByteLabel(u))

	return flush(w, buf)
}

func splitColumns(u units.Unit) []string {
	return []string{"Slab", "Slab " + memoryHeader(u), "Non-Slab", "Non-Slab " + memoryHeader(u), "Total " + memoryHeader(u)}
}

func splitCells(s Split, u units.Unit) []string {
	return []string{
		strconv.FormatInt(s.Slab.Count, 10),
		memory(s.Slab.Pages, u),
		strconv.FormatInt(s.NonSlab.Count, 10),
		memory(s.NonSlab.Pages, u),
		memory(s.Total().Pages, u),
	}
}

var splitAlign = []int{
	tablewriter.ALIGN_LEFT,
	tablewriter.ALIGN_RIGHT,
	tablewriter.ALIGN_RIGHT,
	tablewriter.ALIGN_RIGHT,
	tablewriter.ALIGN_RIGHT,
	tablewriter.ALIGN_RIGHT,
}

// RenderOrders writes the slab/non-slab split per allocation order.
func RenderOrders(w io.Writer, rows []OrderRow, total Split, u units.Unit) error {
	buf := bytes.NewBuffer(nil)
	fmt.Fprintln(buf, "Memory by allocation order:")

	table := newTable(buf, append([]string{"Order"}, splitColumns(u)...), splitAlign)
	for _, row := range rows {
		table.Append(append([]string{strconv.Itoa(row.Order)}, splitCells(row.Split, u)...))
	}
	table.SetFooter(append([]string{"Total"}, splitCells(total, u)...))
	table.Render()

	return flush(w, buf)
}

// RenderProcessSlabUsage writes the slab/non-slab split per process.
func RenderProcessSlabUsage(w io.Writer, rows []SplitRow, total Split, u units.Unit) error {
	buf := bytes.NewBuffer(nil)
	fmt.Fprintf(buf, "Top %d Processes by slab/non-slab memory:\n", len(rows))

	table := newTable(buf, append([]string{"Process"}, splitColumns(u)...), splitAlign)
	for _, row := range rows {
		table.Append(append([]string{row.Name}, splitCells(row.Split, u)...))
	}
	table.SetFooter(append([]string{"Total"}, splitCells(total, u)...))
	table.Render()

	return flush(w, buf)
}

// RenderModuleOrders writes the module x order cells.
func RenderModuleOrders(w io.Writer, rows []ModuleOrderRow, total Stat, u units.Unit) error {
	buf := bytes.NewBuffer(nil)
	fmt.Fprintln(buf, "Memory by module and order:")
	if len(rows) == 0 {
		fmt.Fprintln(buf, "(none)")
		return flush(w, buf)
	}

	table := newTable(buf,
		[]string{"Module", "Order", "Allocations", memoryHeader(u)},
		[]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT},
	)
	for _, row := range rows {
		table.Append([]string{row.Module, strconv.Itoa(row.Order), strconv.FormatInt(row.Count, 10), memory(row.Pages, u)})
	}
	table.SetFooter([]string{"Total", "-", strconv.FormatInt(total.Count, 10), memory(total.Pages, u)})
	table.Render()

	return flush(w, buf)
}

// RenderZones writes the node/zone attribution taken from PFN lines.
func RenderZones(w io.Writer, rows []ZoneRow, total Stat, u units.Unit) error {
	buf := bytes.NewBuffer(nil)
	fmt.Fprintln(buf, "Memory by node and zone:")
	if len(rows) == 0 {
		fmt.Fprintln(buf, "(no PFN line with node and zone flags)")
		return flush(w, buf)
	}

	table := newTable(buf,
		[]string{"Node", "Zone", "Allocations", memoryHeader(u)},
		[]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT},
	)
	for _, row := range rows {
		table.Append([]string{strconv.Itoa(row.Node), strconv.Itoa(row.Zone), strconv.FormatInt(row.Count, 10), memory(row.Pages, u)})
	}
	table.SetFooter([]string{"Total", "-", strconv.FormatInt(total.Count, 10), memory(total.Pages, u)})
	table.Render()

	return flush(w, buf)
}

// RenderSkipped writes the three skip counters and their sum.
func RenderSkipped(w io.Writer, res *Result) error {
	buf := bytes.NewBuffer(nil)
	s := res.Skipped
	fmt.Fprintf(buf, "Total skipped: %d\n", s.Total())
	fmt.Fprintf(buf, " - Missing match: %d\n", s.MissingMatch)
	fmt.Fprintf(buf, " - Incomplete trace: %d\n", s.IncompleteTrace)
	fmt.Fprintf(buf, " - Invalid order: %d\n", s.InvalidOrder)
	return flush(w, buf)
}
