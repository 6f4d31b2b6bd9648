// Package oomsummary implements the "oom-summary" command.
package oomsummary

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli"

	cmdcommon "github.com/leptonai/memscope/cmd/common"
	"github.com/leptonai/memscope/pkg/config"
	"github.com/leptonai/memscope/pkg/kernlog"
	"github.com/leptonai/memscope/pkg/log"
	pkgoom "github.com/leptonai/memscope/pkg/oom"
	"github.com/leptonai/memscope/pkg/units"
)

type eventOutput struct {
	Timestamp string        `json:"timestamp"`
	Header    string        `json:"header"`
	Usage     *pkgoom.Usage `json:"usage,omitempty"`
	Skipped   string        `json:"skipped,omitempty"`
}

func Command(cliContext *cli.Context) error {
	if err := cmdcommon.SetupLogger(cliContext); err != nil {
		return err
	}
	cfg, err := cmdcommon.ConfigFromContext(cliContext, units.MiB)
	if err != nil {
		return err
	}

	tables, err := loadTables(cfg)
	if err != nil {
		return err
	}

	text, err := cmdcommon.ReadKernelLog(context.Background(), cliContext, cfg)
	if err != nil {
		return err
	}

	events, err := pkgoom.Summarize(text, pkgoom.SummarizeOptions{
		CalcOptions: pkgoom.CalcOptions{
			PageSizeKB: cfg.PageSizeKB,
			Full:       cfg.Full,
		},
		Tables: tables,
	})
	if errors.Is(err, kernlog.ErrNoEvents) {
		return cmdcommon.NoDataError(fmt.Errorf("no Mem-Info events found: %w", err))
	}
	if err != nil {
		return err
	}
	log.Logger.Debugw("summarized log", "sections", len(events))

	stderr := cliContext.App.ErrWriter
	buf := bytes.NewBuffer(nil)
	outputs := make([]eventOutput, 0, len(events))
	summarized := 0
	for _, ev := range events {
		out := eventOutput{
			Timestamp: ev.Section.Timestamp.String(),
			Header:    ev.Section.Header,
			Usage:     ev.Usage,
		}
		if ev.Skipped() {
			out.Skipped = ev.Err.Error()
			if stderr != nil {
				fmt.Fprintf(stderr, "%s skipping section at %s: %v\n", cmdcommon.WarningSign, ev.Section.Timestamp, ev.Err)
			}
			outputs = append(outputs, out)
			continue
		}
		summarized++
		outputs = append(outputs, out)

		if cfg.OutputFormat == config.OutputFormatJSON {
			continue
		}
		if err := pkgoom.RenderUsage(buf, ev.Section.Timestamp, ev.Usage, pkgoom.ReportOptions{
			Unit:            cfg.Unit,
			ShowUnaccounted: cfg.ShowUnaccounted,
			Verbose:         cfg.Verbose,
		}); err != nil {
			return err
		}
	}

	if summarized == 0 {
		return cmdcommon.NoDataError(fmt.Errorf("none of the %d Mem-Info sections could be summarized", len(events)))
	}

	if cfg.OutputFormat == config.OutputFormatJSON {
		return cmdcommon.WriteJSONToWriter(cliContext.App.Writer, outputs)
	}
	_, err = cliContext.App.Writer.Write(buf.Bytes())
	return err
}

// loadTables puts the tables of --field-tables ahead of the built-in ones
// so a custom schema is detected first.
func loadTables(cfg *config.Config) ([]pkgoom.FieldTable, error) {
	tables := pkgoom.DefaultTables()
	if cfg.FieldTablesFile == "" {
		return tables, nil
	}
	custom, err := pkgoom.LoadFieldTables(cfg.FieldTablesFile)
	if err != nil {
		return nil, cmdcommon.FatalError("invalid_field_tables", fmt.Errorf("failed to load field tables %s: %w", cfg.FieldTablesFile, err))
	}
	log.Logger.Debugw("loaded field tables", "file", cfg.FieldTablesFile, "tables", len(custom))
	return append(custom, tables...), nil
}
