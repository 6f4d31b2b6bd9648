package oom

import (
	"fmt"

	"github.com/leptonai/memscope/pkg/units"
)

// Pseudo field names accepted by an UnaccountedPolicy on top of table fields.
const (
	// TermAnon resolves to anon_pages when the section reports it,
	// or to active_anon and inactive_anon otherwise.
	TermAnon = "anon"
	// TermHugepages resolves to the hugepage pools of every node, in base pages.
	TermHugepages = "hugepages"
)

// UnaccountedPolicy lists the fields subtracted from total_pages_ram.
// Fields derived from others (e.g. the anon counters, see TermAnon) must
// not be listed twice.
type UnaccountedPolicy struct {
	Name    string
	Include []string
}

// DefaultPolicy subtracts every category that does not overlap another one.
// dirty, writeback and mapped are subsets of the file/anon LRUs and
// free_pcp is a subset of free, so none of them are listed.
var DefaultPolicy = UnaccountedPolicy{
	Name: "default",
	Include: []string{
		TermAnon,
		FieldIsolatedAnon,
		FieldPagecache,
		FieldSwapcache,
		FieldSlabReclaimable,
		FieldSlabUnreclaimable,
		FieldPagetables,
		FieldFree,
		FieldReserved,
		FieldUnevictable,
		FieldBounce,
		FieldFreeCMA,
		TermHugepages,
	},
}

// AnonSource records how the anonymous memory figure was obtained.
type AnonSource string

const (
	// AnonFromField means the section reported anon_pages and the
	// active/inactive anon counters are left out of the accounting.
	AnonFromField AnonSource = "anon_pages"
	// AnonSynthesized means anon_pages = active_anon + inactive_anon and
	// the synthetic value is not displayed on its own.
	AnonSynthesized AnonSource = "active_anon+inactive_anon"
)

// Row is one displayed category.
type Row struct {
	Label string `json:"label"`
	Field string `json:"field"`
	Pages int64  `json:"pages"`
}

// Term is one subtracted quantity of the unaccounted memory formula.
type Term struct {
	Label string `json:"label"`
	Field string `json:"field"`
	Pages int64  `json:"pages"`
}

// Swap summarizes swap usage in pages.
type Swap struct {
	TotalPages int64 `json:"total_pages"`
	FreePages  int64 `json:"free_pages"`
	UsedPages  int64 `json:"used_pages"`
}

// Usage is the categorized memory summary of one section.
type Usage struct {
	PageSizeKB int64  `json:"page_size_kb"`
	Table      string `json:"table"`
	TotalPages int64  `json:"total_pages"`

	Rows []Row `json:"rows"`
	Swap Swap  `json:"swap"`

	AnonSource AnonSource `json:"anon_source"`
	AnonPages  int64      `json:"anon_pages"`

	Hugepages HugepageTotals `json:"hugepages"`

	Policy       string `json:"policy"`
	Accounted    []Term `json:"accounted"`
	AccountedSum int64  `json:"accounted_sum"`
	Unaccounted  int64  `json:"unaccounted"`
}

// CalcOptions configures Calculate.
type CalcOptions struct {
	// PageSizeKB defaults to 4.
	PageSizeKB int64
	// Full adds the rows that are not part of the default summary.
	Full bool
	// Policy defaults to DefaultPolicy.
	Policy *UnaccountedPolicy
}

// fields displayed in every summary, in order
var summaryFields = []string{
	FieldActiveFile,
	FieldInactiveFile,
	FieldSlabReclaimable,
	FieldSlabUnreclaimable,
	FieldShmem,
	FieldPagetables,
	FieldFree,
	FieldFreePcp,
	FieldPagecache,
	FieldReserved,
}

// fields only displayed with CalcOptions.Full
var fullFields = []string{
	FieldIsolatedAnon,
	FieldIsolatedFile,
	FieldUnevictable,
	FieldDirty,
	FieldWriteback,
	FieldMapped,
	FieldBounce,
	FieldFreeCMA,
	FieldSwapcache,
}

// Calculate derives the summary of a section.
// Returns ErrTotalPagesRAMNotFound if total_pages_ram is missing or zero.
func Calculate(info *MemoryInfo, huge HugepageTotals, opts CalcOptions) (*Usage, error) {
	if info == nil || !info.Has(FieldTotalPagesRAM) || info.Get(FieldTotalPagesRAM) == 0 {
		return nil, ErrTotalPagesRAMNotFound
	}

	ps := opts.PageSizeKB
	if ps <= 0 {
		ps = units.DefaultPageSizeKB
	}
	policy := opts.Policy
	if policy == nil {
		policy = &DefaultPolicy
	}

	u := &Usage{
		PageSizeKB: ps,
		Table:      info.Table(),
		TotalPages: info.Get(FieldTotalPagesRAM),
		Hugepages:  huge,
		Policy:     policy.Name,
	}

	anonRows := []string{FieldActiveAnon, FieldInactiveAnon}
	if info.Has(FieldAnonPages) {
		u.AnonSource = AnonFromField
		u.AnonPages = info.Get(FieldAnonPages)
		anonRows = []string{FieldAnonPages}
	} else {
		u.AnonSource = AnonSynthesized
		u.AnonPages = info.Get(FieldActiveAnon) + info.Get(FieldInactiveAnon)
	}

	addRow := func(name string) {
		u.Rows = append(u.Rows, Row{Label: info.Label(name), Field: name, Pages: info.Get(name)})
	}
	for _, name := range anonRows {
		addRow(name)
	}
	for _, name := range summaryFields {
		addRow(name)
	}

	hugeTotal := units.KBToPages(huge.TotalKB, ps)
	u.Rows = append(u.Rows,
		Row{Label: "Hugepages Total", Field: TermHugepages, Pages: hugeTotal},
		Row{Label: "Hugepages Used", Field: TermHugepages + "_used", Pages: units.KBToPages(huge.UsedKB, ps)},
	)

	u.Swap.TotalPages = units.KBToPages(info.Get(FieldTotalSwapKB), ps)
	u.Swap.FreePages = units.KBToPages(info.Get(FieldFreeSwapKB), ps)
	u.Swap.UsedPages = u.Swap.TotalPages - u.Swap.FreePages
	u.Rows = append(u.Rows,
		Row{Label: "Swap Total", Field: FieldTotalSwapKB, Pages: u.Swap.TotalPages},
		Row{Label: "Swap Free", Field: FieldFreeSwapKB, Pages: u.Swap.FreePages},
		Row{Label: "Swap Used", Field: "swap_used", Pages: u.Swap.UsedPages},
	)

	if opts.Full {
		for _, name := range fullFields {
			addRow(name)
		}
	}

	terms, err := resolvePolicy(info, policy, u.AnonSource, hugeTotal)
	if err != nil {
		return nil, err
	}
	u.Accounted = terms
	for _, t := range terms {
		u.AccountedSum += t.Pages
	}
	u.Unaccounted = u.TotalPages - u.AccountedSum

	return u, nil
}

func resolvePolicy(info *MemoryInfo, policy *UnaccountedPolicy, anon AnonSource, hugePages int64) ([]Term, error) {
	seen := make(map[string]struct{}, len(policy.Include))
	terms := make([]Term, 0, len(policy.Include)+1)
	add := func(name string, label string, pages int64) error {
		if _, ok := seen[name]; ok {
			return fmt.Errorf("unaccounted policy %q counts %q twice", policy.Name, name)
		}
		seen[name] = struct{}{}
		terms = append(terms, Term{Label: label, Field: name, Pages: pages})
		return nil
	}

	for _, name := range policy.Include {
		var err error
		switch name {
		case TermAnon:
			if anon == AnonFromField {
				err = add(FieldAnonPages, info.Label(FieldAnonPages), info.Get(FieldAnonPages))
				break
			}
			if err = add(FieldActiveAnon, info.Label(FieldActiveAnon), info.Get(FieldActiveAnon)); err != nil {
				break
			}
			err = add(FieldInactiveAnon, info.Label(FieldInactiveAnon), info.Get(FieldInactiveAnon))

		case TermHugepages:
			err = add(TermHugepages, "Huge pages", hugePages)

		case FieldTotalPagesRAM:
			err = fmt.Errorf("unaccounted policy %q cannot subtract %q from itself", policy.Name, name)

		case FieldActiveAnon, FieldInactiveAnon, FieldAnonPages:
			err = fmt.Errorf("unaccounted policy %q must use %q instead of %q", policy.Name, TermAnon, name)

		default:
			if !info.Known(name) {
				err = fmt.Errorf("unaccounted policy %q references unknown field %q", policy.Name, name)
				break
			}
			err = add(name, info.Label(name), info.Get(name))
		}
		if err != nil {
			return nil, err
		}
	}
	return terms, nil
}
