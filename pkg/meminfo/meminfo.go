// Package meminfo computes the memory /proc/meminfo does not attribute to any category.
package meminfo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/procfs"
)

var (
	// ErrMemTotalNotFound is fatal: nothing can be derived without it.
	ErrMemTotalNotFound = errors.New("MemTotal not found")
	// ErrAnonPagesNotFound means neither AnonPages nor both anon LRU counters are present.
	ErrAnonPagesNotFound = errors.New("AnonPages is not available and cannot be calculated")
)

// Field is one /proc/meminfo counter, in kB unless noted.
type Field struct {
	Name string
	get  func(procfs.Meminfo) *uint64
}

const (
	FieldMemTotal       = "MemTotal"
	FieldMemFree        = "MemFree"
	FieldBuffers        = "Buffers"
	FieldCached         = "Cached"
	FieldSwapCached     = "SwapCached"
	FieldActiveAnon     = "Active(anon)"
	FieldInactiveAnon   = "Inactive(anon)"
	FieldAnonPages      = "AnonPages"
	FieldUnevictable    = "Unevictable"
	FieldSlab           = "Slab"
	FieldKernelStack    = "KernelStack"
	FieldPageTables     = "PageTables"
	FieldPercpu         = "Percpu"
	FieldHugePagesTotal = "HugePages_Total"
	FieldHugepagesize   = "Hugepagesize"

	// FieldHugePages is derived: HugePages_Total * Hugepagesize.
	FieldHugePages = "HugePages"
)

// Fields lists the counters read, in report order.
var Fields = []Field{
	{Name: FieldMemTotal, get: func(m procfs.Meminfo) *uint64 { return m.MemTotal }},
	{Name: FieldMemFree, get: func(m procfs.Meminfo) *uint64 { return m.MemFree }},
	{Name: FieldBuffers, get: func(m procfs.Meminfo) *uint64 { return m.Buffers }},
	{Name: FieldCached, get: func(m procfs.Meminfo) *uint64 { return m.Cached }},
	{Name: FieldSwapCached, get: func(m procfs.Meminfo) *uint64 { return m.SwapCached }},
	{Name: FieldActiveAnon, get: func(m procfs.Meminfo) *uint64 { return m.ActiveAnon }},
	{Name: FieldInactiveAnon, get: func(m procfs.Meminfo) *uint64 { return m.InactiveAnon }},
	{Name: FieldAnonPages, get: func(m procfs.Meminfo) *uint64 { return m.AnonPages }},
	{Name: FieldUnevictable, get: func(m procfs.Meminfo) *uint64 { return m.Unevictable }},
	{Name: FieldSlab, get: func(m procfs.Meminfo) *uint64 { return m.Slab }},
	{Name: FieldKernelStack, get: func(m procfs.Meminfo) *uint64 { return m.KernelStack }},
	{Name: FieldPageTables, get: func(m procfs.Meminfo) *uint64 { return m.PageTables }},
	{Name: FieldPercpu, get: func(m procfs.Meminfo) *uint64 { return m.Percpu }},
	// a count, not kB
	{Name: FieldHugePagesTotal, get: func(m procfs.Meminfo) *uint64 { return m.HugePagesTotal }},
	{Name: FieldHugepagesize, get: func(m procfs.Meminfo) *uint64 { return m.Hugepagesize }},
}

// Term is one subtracted counter.
type Term struct {
	Name string `json:"name"`
	KB   int64  `json:"kb"`
}

// Report is the unaccounted memory of one meminfo snapshot.
type Report struct {
	MemTotalKB int64 `json:"mem_total_kb"`

	// AnonFromField is false when AnonPages was synthesized from the anon LRU counters.
	AnonFromField bool `json:"anon_from_field"`

	// UnevictableKB is displayed but never subtracted,
	// unevictable pages are also on the anon/file LRUs.
	UnevictableKB int64 `json:"unevictable_kb"`

	Accounted     []Term `json:"accounted"`
	AccountedKB   int64  `json:"accounted_kb"`
	UnaccountedKB int64  `json:"unaccounted_kb"`
}

// Read parses <procDir>/meminfo.
func Read(procDir string) (*Report, error) {
	fs, err := procfs.NewFS(procDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open proc dir %q: %w", procDir, err)
	}
	mi, err := fs.Meminfo()
	if err != nil {
		return nil, fmt.Errorf("failed to read meminfo: %w", err)
	}
	return Calculate(mi)
}

// Calculate derives the unaccounted memory from the parsed counters.
func Calculate(mi procfs.Meminfo) (*Report, error) {
	values := make(map[string]int64, len(Fields)+1)
	for _, f := range Fields {
		if v := f.get(mi); v != nil {
			values[f.Name] = int64(*v)
		}
	}

	total, ok := values[FieldMemTotal]
	if !ok {
		return nil, ErrMemTotalNotFound
	}

	r := &Report{MemTotalKB: total, UnevictableKB: values[FieldUnevictable]}

	_, r.AnonFromField = values[FieldAnonPages]
	if !r.AnonFromField {
		active, okA := values[FieldActiveAnon]
		inactive, okI := values[FieldInactiveAnon]
		if !okA || !okI {
			return nil, ErrAnonPagesNotFound
		}
		values[FieldAnonPages] = active + inactive
	}

	for _, f := range Fields {
		switch f.Name {
		case FieldMemTotal, FieldUnevictable, FieldHugePagesTotal, FieldHugepagesize:
			continue
		case FieldAnonPages:
			// synthesized AnonPages is subtracted through the LRU counters
			if !r.AnonFromField {
				continue
			}
		case FieldActiveAnon, FieldInactiveAnon:
			if r.AnonFromField {
				continue
			}
		}
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		r.Accounted = append(r.Accounted, Term{Name: f.Name, KB: v})
	}

	count, okC := values[FieldHugePagesTotal]
	size, okS := values[FieldHugepagesize]
	if okC && okS {
		r.Accounted = append(r.Accounted, Term{Name: FieldHugePages, KB: count * size})
	}

	for _, t := range r.Accounted {
		r.AccountedKB += t.KB
	}
	r.UnaccountedKB = r.MemTotalKB - r.AccountedKB
	return r, nil
}

// Render writes the report table, and the formula when verbose.
func Render(w io.Writer, r *Report, verbose bool) error {
	buf := bytes.NewBuffer(nil)

	if verbose {
		parts := make([]string, 0, len(r.Accounted))
		for _, t := range r.Accounted {
			parts = append(parts, fmt.Sprintf("%s=%d", t.Name, t.KB))
		}
		fmt.Fprintln(buf, "Formula used for calculation:")
		fmt.Fprintf(buf, "  Unaccounted Memory = MemTotal - (%s)\n", strings.Join(parts, " + "))
		fmt.Fprintf(buf, "  Unaccounted Memory = %d - %d\n\n", r.MemTotalKB, r.AccountedKB)
	}

	table := tablewriter.NewWriter(buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Field", "Size (kB)"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	table.Append([]string{FieldMemTotal, humanize.Comma(r.MemTotalKB)})
	for _, t := range r.Accounted {
		table.Append([]string{t.Name, humanize.Comma(t.KB)})
	}
	table.Append([]string{FieldUnevictable + " (not subtracted)", humanize.Comma(r.UnevictableKB)})
	table.SetFooter([]string{"Unaccounted", humanize.Comma(r.UnaccountedKB)})
	table.Render()

	fmt.Fprintf(buf, "Unaccounted: %s kB (%s GB)\n", humanize.Comma(r.UnaccountedKB), humanize.FormatFloat("#,###.##", float64(r.UnaccountedKB)/(1024*1024)))

	_, err := w.Write(buf.Bytes())
	return err
}
