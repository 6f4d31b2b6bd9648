package pageowner

import (
	"cmp"
	"slices"
)

const (
	DefaultTopN          = 10
	DefaultTopCallTraces = 5
)

// Row is one line of a top-N view.
type Row struct {
	Name string `json:"name"`
	Stat
}

// View is a sorted, truncated slice of an aggregate.
// Total is computed over the whole aggregate, not only Rows.
type View struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
	Total Stat   `json:"total"`
}

func topN(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// byPages sorts pages descending, then count descending, then name.
func byPages(a, b Row) int {
	if c := cmp.Compare(b.Pages, a.Pages); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

func buildView(title string, m map[string]*Stat, n int) View {
	v := View{Title: title, Rows: make([]Row, 0, len(m))}
	for name, s := range m {
		v.Rows = append(v.Rows, Row{Name: name, Stat: *s})
		v.Total.Count += s.Count
		v.Total.Pages += s.Pages
	}
	slices.SortFunc(v.Rows, byPages)
	if len(v.Rows) > n {
		v.Rows = v.Rows[:n]
	}
	return v
}

func (r *Result) TopProcesses(n int) View {
	return buildView("Processes", r.Processes, topN(n, DefaultTopN))
}

// TopModules only covers allocations with at least one module in their trace.
// An allocation naming two modules is counted under both.
func (r *Result) TopModules(n int) View {
	return buildView("Modules", r.Modules, topN(n, DefaultTopN))
}

func (r *Result) TopSlabFunctions(n int) View {
	return buildView("Slab Functions", r.SlabFunctions, topN(n, DefaultTopN))
}

// ProcessesForModule returns the processes whose allocations went through the module.
func (r *Result) ProcessesForModule(module string, n int) View {
	m := make(map[string]*Stat)
	for k, s := range r.ProcessModules {
		if k.Module != module {
			continue
		}
		st := statOf(m, k.Process)
		st.Count += s.Count
		st.Pages += s.Pages
	}
	return buildView("Processes using module '"+module+"'", m, topN(n, DefaultTopN))
}

// TraceRow is one call trace of TopCallTraces.
type TraceRow struct {
	Rank int `json:"rank"`
	Stat
	Trace *CallTrace `json:"trace"`
}

// TopCallTraces returns the most frequent call traces.
// With a non-empty process, counts and pages only cover that process.
func (r *Result) TopCallTraces(n int, process string) ([]TraceRow, Stat) {
	n = topN(n, DefaultTopCallTraces)

	rows := make([]TraceRow, 0, len(r.CallTraces))
	var total Stat
	if process == "" {
		for _, ct := range r.CallTraces {
			rows = append(rows, TraceRow{Stat: ct.Stat, Trace: ct})
		}
	} else {
		for k, s := range r.ProcessTraces {
			if k.Process != process {
				continue
			}
			rows = append(rows, TraceRow{Stat: *s, Trace: r.CallTraces[k.Key]})
		}
	}
	for _, row := range rows {
		total.Count += row.Count
		total.Pages += row.Pages
	}

	slices.SortFunc(rows, func(a, b TraceRow) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Pages, a.Pages); c != 0 {
			return c
		}
		return cmp.Compare(a.Trace.Key, b.Trace.Key)
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, total
}

// OrderRow is the slab/non-slab split of one allocation order.
type OrderRow struct {
	Order int `json:"order"`
	Split
}

// Orders returns every order, ascending, plus the totals.
func (r *Result) Orders() ([]OrderRow, Split) {
	rows := make([]OrderRow, 0, len(r.OrderStats))
	var total Split
	for order, s := range r.OrderStats {
		rows = append(rows, OrderRow{Order: order, Split: *s})
		total.Slab.Count += s.Slab.Count
		total.Slab.Pages += s.Slab.Pages
		total.NonSlab.Count += s.NonSlab.Count
		total.NonSlab.Pages += s.NonSlab.Pages
	}
	slices.SortFunc(rows, func(a, b OrderRow) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return rows, total
}

// SplitRow is the slab/non-slab split of one process.
type SplitRow struct {
	Name string `json:"name"`
	Split
}

// ProcessSlabUsage returns the processes sorted by combined pages.
func (r *Result) ProcessSlabUsage(n int) ([]SplitRow, Split) {
	n = topN(n, DefaultTopN)

	rows := make([]SplitRow, 0, len(r.ProcessSlab))
	var total Split
	for name, s := range r.ProcessSlab {
		rows = append(rows, SplitRow{Name: name, Split: *s})
		total.Slab.Count += s.Slab.Count
		total.Slab.Pages += s.Slab.Pages
		total.NonSlab.Count += s.NonSlab.Count
		total.NonSlab.Pages += s.NonSlab.Pages
	}
	slices.SortFunc(rows, func(a, b SplitRow) int {
		if c := cmp.Compare(b.Total().Pages, a.Total().Pages); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, total
}

// ModuleOrderRow is one module x order cell.
type ModuleOrderRow struct {
	Module string `json:"module"`
	Order  int    `json:"order"`
	Stat
}

// ModuleOrders returns every module x order cell, by module then order.
// With a non-empty module only its cells are returned.
func (r *Result) ModuleOrders(module string) ([]ModuleOrderRow, Stat) {
	rows := make([]ModuleOrderRow, 0, len(r.ModuleOrderStats))
	var total Stat
	for k, s := range r.ModuleOrderStats {
		if module != "" && k.Module != module {
			continue
		}
		rows = append(rows, ModuleOrderRow{Module: k.Module, Order: k.Order, Stat: *s})
		total.Count += s.Count
		total.Pages += s.Pages
	}
	slices.SortFunc(rows, func(a, b ModuleOrderRow) int {
		if c := cmp.Compare(a.Module, b.Module); c != 0 {
			return c
		}
		return cmp.Compare(a.Order, b.Order)
	})
	return rows, total
}

// ZoneRow is the memory attributed to one node and zone.
type ZoneRow struct {
	NodeZone
	Stat
}

// Zones returns the node/zone attribution by node then zone.
// Allocations without a PFN line naming both are left out.
func (r *Result) Zones() ([]ZoneRow, Stat) {
	rows := make([]ZoneRow, 0, len(r.ZoneStats))
	var total Stat
	for k, s := range r.ZoneStats {
		rows = append(rows, ZoneRow{NodeZone: k, Stat: *s})
		total.Count += s.Count
		total.Pages += s.Pages
	}
	slices.SortFunc(rows, func(a, b ZoneRow) int {
		if c := cmp.Compare(a.Node, b.Node); c != 0 {
			return c
		}
		return cmp.Compare(a.Zone, b.Zone)
	})
	return rows, total
}
