// Package config provides the report settings shared by every memscope command.
package config

import (
	"errors"
	"fmt"

	"github.com/leptonai/memscope/pkg/units"
)

// OutputFormat selects how reports are written.
type OutputFormat string

const (
	OutputFormatPlain OutputFormat = "plain"
	OutputFormatJSON  OutputFormat = "json"
)

// Config provides the report settings of one invocation.
type Config struct {
	// Unit the memory quantities are displayed in.
	Unit units.Unit `json:"unit"`

	// PageSizeKB is the base page size of the host that produced the log.
	PageSizeKB int64 `json:"page_size_kb"`

	// Verbose prints formulas and skip counters.
	Verbose bool `json:"verbose"`

	// Full adds the categories left out of the default summary.
	Full bool `json:"full"`

	// TopN bounds the rows of the top-N views.
	// Zero means the per-view default.
	TopN int `json:"top_n"`

	ShowUnaccounted bool `json:"show_unaccounted"`

	OutputFormat OutputFormat `json:"output_format"`

	// FieldTablesFile is an optional YAML file with additional OOM field tables.
	FieldTablesFile string `json:"field_tables_file,omitempty"`

	// ProcDir is the procfs mount point the meminfo and slab commands read.
	ProcDir string `json:"proc_dir"`

	// KmsgDevice is read instead of a log file when set.
	KmsgDevice string `json:"kmsg_device,omitempty"`
}

var (
	ErrInvalidPageSize = errors.New("page size must be a positive number of kB")
	ErrInvalidTopN     = errors.New("top must not be negative")
)

func (config *Config) Validate() error {
	if _, err := units.ParseUnit(string(config.Unit)); err != nil {
		return err
	}
	if config.PageSizeKB <= 0 {
		return ErrInvalidPageSize
	}
	if config.TopN < 0 {
		return ErrInvalidTopN
	}
	switch config.OutputFormat {
	case OutputFormatPlain, OutputFormatJSON:
	default:
		return fmt.Errorf("unknown output format %q (supported: %s, %s)", config.OutputFormat, OutputFormatPlain, OutputFormatJSON)
	}
	if config.ProcDir == "" {
		return errors.New("proc dir is required")
	}
	return nil
}
