package config

import (
	"github.com/leptonai/memscope/pkg/units"
)

type Op struct {
	Unit            units.Unit
	PageSizeKB      int64
	Verbose         bool
	Full            bool
	TopN            int
	ShowUnaccounted bool
	OutputFormat    OutputFormat
	FieldTablesFile string
	ProcDir         string
	KmsgDevice      string
}

type OpOption func(*Op)

func (op *Op) ApplyOpts(opts []OpOption) error {
	for _, opt := range opts {
		opt(op)
	}

	if op.Unit == "" {
		op.Unit = units.MiB
	}
	if op.PageSizeKB == 0 {
		op.PageSizeKB = units.DefaultPageSizeKB
	}
	if op.OutputFormat == "" {
		op.OutputFormat = OutputFormatPlain
	}
	if op.ProcDir == "" {
		op.ProcDir = DefaultProcDir
	}

	return nil
}

func WithUnit(u units.Unit) OpOption {
	return func(op *Op) {
		op.Unit = u
	}
}

// WithPageSizeKB sets the base page size of the host the data was taken on.
func WithPageSizeKB(kb int64) OpOption {
	return func(op *Op) {
		op.PageSizeKB = kb
	}
}

func WithVerbose(b bool) OpOption {
	return func(op *Op) {
		op.Verbose = b
	}
}

func WithFull(b bool) OpOption {
	return func(op *Op) {
		op.Full = b
	}
}

func WithTopN(n int) OpOption {
	return func(op *Op) {
		op.TopN = n
	}
}

func WithShowUnaccounted(b bool) OpOption {
	return func(op *Op) {
		op.ShowUnaccounted = b
	}
}

func WithOutputFormat(f OutputFormat) OpOption {
	return func(op *Op) {
		op.OutputFormat = f
	}
}

// WithFieldTablesFile sets a YAML file of additional OOM field tables.
// A leading "~" is expanded to the home directory.
func WithFieldTablesFile(p string) OpOption {
	return func(op *Op) {
		op.FieldTablesFile = p
	}
}

func WithProcDir(p string) OpOption {
	return func(op *Op) {
		op.ProcDir = p
	}
}

// WithKmsgDevice reads the live kernel ring buffer instead of a log file.
func WithKmsgDevice(p string) OpOption {
	return func(op *Op) {
		op.KmsgDevice = p
	}
}
