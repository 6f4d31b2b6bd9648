package oom

import (
	"fmt"
	"os"
	"regexp"

	"sigs.k8s.io/yaml"
)

// TableSpec is the YAML form of a FieldTable.
//
// e.g.,
//
//	- version: rhel6
//	  detect: 'unstable:\d+'
//	  fields:
//	    - name: total_pages_ram
//	      pattern: '(\d+) pages RAM'
type TableSpec struct {
	Version string      `json:"version"`
	Detect  string      `json:"detect,omitempty"`
	Fields  []FieldSpec `json:"fields"`

	// Extends names a built-in table ("rhel7", "rhel8") whose fields are
	// copied first; fields listed here override those with the same name.
	Extends string `json:"extends,omitempty"`
}

type FieldSpec struct {
	Name    string `json:"name"`
	Label   string `json:"label,omitempty"`
	Pattern string `json:"pattern"`
}

// LoadFieldTables reads additional field tables from a YAML file.
func LoadFieldTables(path string) ([]FieldTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFieldTables(b)
}

// ParseFieldTables compiles YAML field table specs.
func ParseFieldTables(b []byte) ([]FieldTable, error) {
	var specs []TableSpec
	if err := yaml.Unmarshal(b, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse field tables: %w", err)
	}

	tables := make([]FieldTable, 0, len(specs))
	for _, spec := range specs {
		t, err := spec.compile()
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (spec TableSpec) compile() (FieldTable, error) {
	t := FieldTable{Version: spec.Version}

	if spec.Extends != "" {
		var base *FieldTable
		for _, b := range DefaultTables() {
			if b.Version == spec.Extends {
				base = &b
				break
			}
		}
		if base == nil {
			return FieldTable{}, fmt.Errorf("field table %q extends unknown table %q", spec.Version, spec.Extends)
		}
		t.Fields = append(t.Fields, base.Fields...)
	}

	if spec.Detect != "" {
		re, err := regexp.Compile(spec.Detect)
		if err != nil {
			return FieldTable{}, fmt.Errorf("field table %q: invalid detect pattern: %w", spec.Version, err)
		}
		t.Detect = re
	}

	for _, fs := range spec.Fields {
		re, err := regexp.Compile(fs.Pattern)
		if err != nil {
			return FieldTable{}, fmt.Errorf("field table %q: field %q: invalid pattern: %w", spec.Version, fs.Name, err)
		}
		fp := FieldPattern{Name: fs.Name, Label: fs.Label, Pattern: re}

		replaced := false
		for i := range t.Fields {
			if t.Fields[i].Name == fs.Name {
				if fp.Label == "" {
					fp.Label = t.Fields[i].Label
				}
				t.Fields[i] = fp
				replaced = true
				break
			}
		}
		if !replaced {
			t.Fields = append(t.Fields, fp)
		}
	}

	if err := t.Validate(); err != nil {
		return FieldTable{}, err
	}
	return t, nil
}
