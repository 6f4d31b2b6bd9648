// Package units converts page counts into display units.
package units

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// Unit is a display unit for memory quantities.
type Unit string

const (
	Pages Unit = "P"
	KiB   Unit = "K"
	MiB   Unit = "M"
	GiB   Unit = "G"
)

const (
	// DefaultPageSizeKB is the base page size of x86_64 and most arm64 kernels.
	DefaultPageSizeKB = 4

	// PageSizeBytes is the fixed page size used by the page_owner views.
	PageSizeBytes = 4096
)

// ParseUnit accepts "P", "K", "M", "G" (case-insensitive), and the long
// forms "pages", "kib", "mib", "gib". Empty defaults to MiB.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return MiB, nil
	case "p", "page", "pages":
		return Pages, nil
	case "k", "kb", "kib":
		return KiB, nil
	case "m", "mb", "mib":
		return MiB, nil
	case "g", "gb", "gib":
		return GiB, nil
	}
	return "", fmt.Errorf("unknown unit %q (supported: P, K, M, G)", s)
}

// Label returns the column header used for the unit.
func (u Unit) Label() string {
	switch u {
	case Pages:
		return "Pages"
	case KiB:
		return "KiB"
	case GiB:
		return "GiB"
	default:
		return "MiB"
	}
}

// factor returns the multiplier applied to a KiB quantity.
func (u Unit) factor() float64 {
	switch u {
	case KiB:
		return 1
	case GiB:
		return 1.0 / (1024 * 1024)
	default:
		return 1.0 / 1024
	}
}

// Scale converts a page count into the given unit:
//
//	value = pages * pageSizeKB * factor
//
// where factor is 1 (KiB), 1/1024 (MiB) or 1/1024^2 (GiB).
// Pages returns the count unchanged.
func Scale(pages float64, pageSizeKB int64, u Unit) float64 {
	if u == Pages {
		return pages
	}
	if pageSizeKB <= 0 {
		pageSizeKB = DefaultPageSizeKB
	}
	return pages * float64(pageSizeKB) * u.factor()
}

// ToPages inverts Scale, rounding to the nearest page.
func ToPages(v float64, pageSizeKB int64, u Unit) int64 {
	if u == Pages {
		return int64(math.Round(v))
	}
	if pageSizeKB <= 0 {
		pageSizeKB = DefaultPageSizeKB
	}
	return int64(math.Round(v / u.factor() / float64(pageSizeKB)))
}

// KBToPages converts a KiB quantity to pages by integer division.
func KBToPages(kb int64, pageSizeKB int64) int64 {
	if pageSizeKB <= 0 {
		pageSizeKB = DefaultPageSizeKB
	}
	return kb / pageSizeKB
}

// Format renders a scaled page count: page counts as comma separated
// integers, everything else with two decimals.
func Format(pages float64, pageSizeKB int64, u Unit) string {
	if u == Pages {
		return humanize.Comma(int64(math.Round(pages)))
	}
	return FormatFloat(Scale(pages, pageSizeKB, u))
}

// FormatFloat renders v with thousands separators and two decimals.
func FormatFloat(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// PagesToBytes converts 4 KiB pages to bytes.
func PagesToBytes(pages int64) int64 {
	return pages * PageSizeBytes
}

// ScaleBytes divides bytes by 1024 once per unit step (K, M, G).
// Pages falls back to KiB since the views never print raw page counts.
func ScaleBytes(b int64, u Unit) float64 {
	v := float64(b) / 1024
	switch u {
	case MiB:
		v /= 1024
	case GiB:
		v /= 1024 * 1024
	}
	return v
}

// ByteLabel is the short suffix printed next to ScaleBytes values.
func ByteLabel(u Unit) string {
	switch u {
	case MiB:
		return "MB"
	case GiB:
		return "GB"
	default:
		return "kB"
	}
}

// HumanBytes is the one-line summary form, e.g. "1.5 GiB".
func HumanBytes(b int64) string {
	if b < 0 {
		return "-" + humanize.IBytes(uint64(-b))
	}
	return humanize.IBytes(uint64(b))
}
