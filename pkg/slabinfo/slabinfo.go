// Package slabinfo ranks slab caches by memory from /proc/slabinfo.
package slabinfo

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/procfs"

	"github.com/leptonai/memscope/pkg/units"
)

// DefaultTopN is the number of caches shown without --all.
const DefaultTopN = 10

// Cache is the memory held by one slab cache.
type Cache struct {
	Name         string `json:"name"`
	PagesPerSlab int64  `json:"pages_per_slab"`
	NumSlabs     int64  `json:"num_slabs"`
	ActiveObjs   int64  `json:"active_objs"`
	NumObjs      int64  `json:"num_objs"`
	ObjSize      int64  `json:"obj_size"`
}

// Pages returns pages_per_slab * num_slabs.
func (c Cache) Pages() int64 {
	return c.PagesPerSlab * c.NumSlabs
}

// Report holds every cache sorted by memory, descending.
type Report struct {
	Caches     []Cache `json:"caches"`
	TotalPages int64   `json:"total_pages"`
}

// Read parses <procDir>/slabinfo (version 2.1).
func Read(procDir string) (*Report, error) {
	fs, err := procfs.NewFS(procDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open proc dir %q: %w", procDir, err)
	}
	si, err := fs.SlabInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to read slabinfo: %w", err)
	}
	return FromSlabInfo(si), nil
}

func FromSlabInfo(si procfs.SlabInfo) *Report {
	r := &Report{Caches: make([]Cache, 0, len(si.Slabs))}
	for _, s := range si.Slabs {
		if s == nil {
			continue
		}
		c := Cache{
			Name:         s.Name,
			PagesPerSlab: s.PagesPerSlab,
			NumSlabs:     s.SlabNum,
			ActiveObjs:   s.ObjActive,
			NumObjs:      s.ObjNum,
			ObjSize:      s.ObjSize,
		}
		r.Caches = append(r.Caches, c)
		r.TotalPages += c.Pages()
	}
	slices.SortFunc(r.Caches, func(a, b Cache) int {
		if c := cmp.Compare(b.Pages(), a.Pages()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return r
}

// Top returns the n largest caches, or all of them if n <= 0.
func (r *Report) Top(n int) []Cache {
	if n <= 0 || n > len(r.Caches) {
		return r.Caches
	}
	return r.Caches[:n]
}

// Render writes the given caches in MiB with the total over every cache.
func Render(w io.Writer, r *Report, shown []Cache, pageSizeKB int64) error {
	buf := bytes.NewBuffer(nil)

	table := tablewriter.NewWriter(buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Memory (MiB)", "Slab Name"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	for _, c := range shown {
		table.Append([]string{units.Format(float64(c.Pages()), pageSizeKB, units.MiB), c.Name})
	}
	table.SetFooter([]string{
		units.Format(float64(r.TotalPages), pageSizeKB, units.MiB),
		fmt.Sprintf("Total (%s GB)", units.Format(float64(r.TotalPages), pageSizeKB, units.GiB)),
	})
	table.Render()

	_, err := w.Write(buf.Bytes())
	return err
}
