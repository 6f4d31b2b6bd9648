// Package oom extracts and summarizes the memory state dumped by the kernel
// when the OOM killer is invoked ("Mem-Info:" blocks).
package oom

import (
	"fmt"
	"regexp"
	"strings"
)

// Field names used by the calculator.
// Counts are in pages unless the name ends in "_kb".
const (
	FieldActiveAnon        = "active_anon"
	FieldInactiveAnon      = "inactive_anon"
	FieldIsolatedAnon      = "isolated_anon"
	FieldAnonPages         = "anon_pages"
	FieldActiveFile        = "active_file"
	FieldInactiveFile      = "inactive_file"
	FieldIsolatedFile      = "isolated_file"
	FieldUnevictable       = "unevictable"
	FieldDirty             = "dirty"
	FieldWriteback         = "writeback"
	FieldUnstable          = "unstable"
	FieldSlabReclaimable   = "slab_reclaimable"
	FieldSlabUnreclaimable = "slab_unreclaimable"
	FieldMapped            = "mapped"
	FieldShmem             = "shmem"
	FieldPagetables        = "pagetables"
	FieldSecPagetables     = "sec_pagetables"
	FieldBounce            = "bounce"
	FieldKernelMiscReclaim = "kernel_misc_reclaimable"
	FieldFree              = "free"
	FieldFreePcp           = "free_pcp"
	FieldFreeCMA           = "free_cma"
	FieldPagecache         = "pagecache"
	FieldSwapcache         = "swapcache"
	FieldReserved          = "reserved"
	FieldTotalPagesRAM     = "total_pages_ram"
	FieldFreeSwapKB        = "free_swap_kb"
	FieldTotalSwapKB       = "total_swap_kb"
	FieldHugepagesTotal    = "hugepages_total"
	FieldHugepagesFree     = "hugepages_free"
	FieldHugepagesSurp     = "hugepages_surp"
	FieldHugepagesSizeKB   = "hugepages_size_kb"
)

// FieldPattern extracts one integer field from a Mem-Info section.
// The pattern has exactly one capturing group.
type FieldPattern struct {
	Name    string
	Label   string
	Pattern *regexp.Regexp
}

// FieldTable is one versioned schema of the Mem-Info dump.
type FieldTable struct {
	Version string

	// Detect, if set, matches a label only present in this format.
	// A table without Detect matches any section.
	Detect *regexp.Regexp

	Fields []FieldPattern
}

// Field returns the pattern of the named field.
func (t *FieldTable) Field(name string) (FieldPattern, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldPattern{}, false
}

// Validate checks the table is usable by the extractor.
func (t *FieldTable) Validate() error {
	if t.Version == "" {
		return fmt.Errorf("field table has no version")
	}
	seen := make(map[string]struct{}, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("field table %q: field with empty name", t.Version)
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("field table %q: duplicate field %q", t.Version, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Pattern == nil {
			return fmt.Errorf("field table %q: field %q has no pattern", t.Version, f.Name)
		}
		if n := f.Pattern.NumSubexp(); n != 1 {
			return fmt.Errorf("field table %q: field %q pattern must have exactly one capturing group (got %d)", t.Version, f.Name, n)
		}
	}
	if _, ok := seen[FieldTotalPagesRAM]; !ok {
		return fmt.Errorf("field table %q: mandatory field %q is missing", t.Version, FieldTotalPagesRAM)
	}
	return nil
}

func field(name, label, pattern string) FieldPattern {
	return FieldPattern{Name: name, Label: label, Pattern: regexp.MustCompile(pattern)}
}

// Fields shared by every known kernel version.
func commonFields() []FieldPattern {
	return []FieldPattern{
		field(FieldActiveAnon, "Active Anon", `\bactive_anon:(\d+)`),
		field(FieldInactiveAnon, "Inactive Anon", `\binactive_anon:(\d+)`),
		field(FieldIsolatedAnon, "Isolated Anon", `\bisolated_anon:(\d+)`),
		field(FieldAnonPages, "Anon Pages", `\banon_pages:(\d+)`),
		field(FieldActiveFile, "Active File", `\bactive_file:(\d+)`),
		field(FieldInactiveFile, "Inactive File", `\binactive_file:(\d+)`),
		field(FieldIsolatedFile, "Isolated File", `\bisolated_file:(\d+)`),
		field(FieldUnevictable, "Unevictable", `\bunevictable:(\d+)`),
		field(FieldDirty, "Dirty", `\bdirty:(\d+)`),
		field(FieldWriteback, "Writeback", `\bwriteback:(\d+)`),
		field(FieldSlabReclaimable, "Slab Reclaimable", `\bslab_reclaimable:(\d+)`),
		field(FieldSlabUnreclaimable, "Slab Unreclaimable", `\bslab_unreclaimable:(\d+)`),
		field(FieldMapped, "Mapped", `\bmapped:(\d+)`),
		field(FieldShmem, "Shmem", `\bshmem:(\d+)`),
		field(FieldPagetables, "Pagetables", `\bpagetables:(\d+)`),
		field(FieldBounce, "Bounce", `\bbounce:(\d+)`),
		field(FieldFree, "Free", `\bfree:(\d+)`),
		field(FieldFreePcp, "Free Pcp", `\bfree_pcp:(\d+)`),
		field(FieldFreeCMA, "Free CMA", `\bfree_cma:(\d+)`),
		field(FieldPagecache, "Pagecache", `(\d+) total pagecache pages`),
		field(FieldSwapcache, "Swap cache", `(\d+) pages in swap cache`),
		field(FieldReserved, "Reserved", `(\d+) pages reserved`),
		field(FieldTotalPagesRAM, "Total Memory", `(\d+) pages RAM`),
		field(FieldFreeSwapKB, "Free swap", `Free swap\s*=\s*(\d+)kB`),
		field(FieldTotalSwapKB, "Total swap", `Total swap\s*=\s*(\d+)kB`),
		field(FieldHugepagesTotal, "Hugepages Total", `hugepages_total=(\d+)`),
		field(FieldHugepagesFree, "Hugepages Free", `hugepages_free=(\d+)`),
		field(FieldHugepagesSurp, "Hugepages Surplus", `hugepages_surp=(\d+)`),
		field(FieldHugepagesSizeKB, "Hugepage Size", `hugepages_size=(\d+)kB`),
	}
}

// RHEL7Table matches 3.10 kernels, which still report NFS "unstable" pages.
func RHEL7Table() FieldTable {
	fields := commonFields()
	fields = append(fields, field(FieldUnstable, "Unstable", `\bunstable:(\d+)`))
	return FieldTable{
		Version: "rhel7",
		Fields:  fields,
	}
}

// RHEL8Table matches 4.18 and later kernels (RHEL8, RHEL9), which dropped
// "unstable" and added kernel_misc_reclaimable and sec_pagetables.
func RHEL8Table() FieldTable {
	fields := commonFields()
	fields = append(fields,
		field(FieldKernelMiscReclaim, "Kernel Misc Reclaimable", `\bkernel_misc_reclaimable:(\d+)`),
		field(FieldSecPagetables, "Secondary Pagetables", `\bsec_pagetables:(\d+)`),
	)
	return FieldTable{
		Version: "rhel8",
		Detect:  regexp.MustCompile(`\bkernel_misc_reclaimable:\d+`),
		Fields:  fields,
	}
}

// DefaultTables returns the built-in schemas, most specific first.
func DefaultTables() []FieldTable {
	return []FieldTable{RHEL8Table(), RHEL7Table()}
}

// DetectTable returns the first table whose Detect pattern matches the text,
// or the first catch-all table if none does.
// Returns nil if no table applies.
func DetectTable(text string, tables []FieldTable) *FieldTable {
	var fallback *FieldTable
	for i := range tables {
		t := &tables[i]
		if t.Detect == nil {
			if fallback == nil {
				fallback = t
			}
			continue
		}
		if t.Detect.MatchString(text) {
			return t
		}
	}
	return fallback
}

// labelFor returns the display label of a field in the given table,
// or a title-cased form of the name.
func labelFor(t *FieldTable, name string) string {
	if t != nil {
		if f, ok := t.Field(name); ok && f.Label != "" {
			return f.Label
		}
	}
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
