package config

import (
	"fmt"
	stdos "os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

const (
	DefaultProcDir = "/proc"

	// defaultFieldTablesFile is picked up when no --field-tables is given.
	defaultFieldTablesFile = "~/.memscope/field-tables.yaml"
)

func DefaultConfig(opts ...OpOption) (*Config, error) {
	options := &Op{}
	if err := options.ApplyOpts(opts); err != nil {
		return nil, err
	}

	cfg := &Config{
		Unit:            options.Unit,
		PageSizeKB:      options.PageSizeKB,
		Verbose:         options.Verbose,
		Full:            options.Full,
		TopN:            options.TopN,
		ShowUnaccounted: options.ShowUnaccounted,
		OutputFormat:    options.OutputFormat,
		ProcDir:         options.ProcDir,
		KmsgDevice:      options.KmsgDevice,
	}

	var err error
	if options.FieldTablesFile != "" {
		cfg.FieldTablesFile, err = homedir.Expand(options.FieldTablesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to expand field tables path: %w", err)
		}
	} else {
		cfg.FieldTablesFile, err = DefaultFieldTablesFile()
		if err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// DefaultFieldTablesFile returns the per-user field tables file if it exists,
// or an empty string.
func DefaultFieldTablesFile() (string, error) {
	p, err := homedir.Expand(defaultFieldTablesFile)
	if err != nil {
		return "", err
	}
	if _, err := stdos.Stat(p); err != nil {
		if stdos.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return filepath.Clean(p), nil
}
