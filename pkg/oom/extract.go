package oom

import (
	"errors"
	"strconv"

	"github.com/leptonai/memscope/pkg/kernlog"
)

// ErrTotalPagesRAMNotFound means the section has no "<N> pages RAM" line,
// so no summary can be computed for it.
var ErrTotalPagesRAMNotFound = errors.New("total_pages_ram not found (MemTotal not found)")

// MemoryInfo holds the integer fields extracted from one section.
// Every field of the table is present; unmatched fields read as 0.
type MemoryInfo struct {
	table   *FieldTable
	values  map[string]int64
	matched map[string]bool

	// Invalid lists fields whose label matched but whose value did not fit an int64.
	Invalid []string
}

// Table returns the schema version used for extraction.
func (m *MemoryInfo) Table() string {
	if m == nil || m.table == nil {
		return ""
	}
	return m.table.Version
}

// Get returns the value of the field, or 0.
func (m *MemoryInfo) Get(name string) int64 {
	if m == nil {
		return 0
	}
	return m.values[name]
}

// Has reports whether the field was found in the section text.
func (m *MemoryInfo) Has(name string) bool {
	if m == nil {
		return false
	}
	return m.matched[name]
}

// Known reports whether the field is part of the table.
func (m *MemoryInfo) Known(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[name]
	return ok
}

// Label returns the display label of the field.
func (m *MemoryInfo) Label(name string) string {
	if m == nil {
		return labelFor(nil, name)
	}
	return labelFor(m.table, name)
}

// Extract applies every pattern of the table to the text.
// It returns ErrTotalPagesRAMNotFound along with the extracted fields
// when the mandatory total_pages_ram field is absent.
func Extract(text string, table *FieldTable) (*MemoryInfo, error) {
	info := &MemoryInfo{
		table:   table,
		values:  make(map[string]int64, len(table.Fields)),
		matched: make(map[string]bool, len(table.Fields)),
	}

	for _, f := range table.Fields {
		info.values[f.Name] = 0

		m := f.Pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			info.Invalid = append(info.Invalid, f.Name)
			continue
		}
		info.values[f.Name] = v
		info.matched[f.Name] = true
	}

	if !info.matched[FieldTotalPagesRAM] {
		return info, ErrTotalPagesRAMNotFound
	}
	return info, nil
}

// ExtractSection detects the schema of the section and extracts its fields.
func ExtractSection(s kernlog.Section, tables []FieldTable) (*MemoryInfo, error) {
	text := s.Text()
	table := DetectTable(text, tables)
	if table == nil {
		return nil, errors.New("no field table matches the section")
	}
	return Extract(text, table)
}
