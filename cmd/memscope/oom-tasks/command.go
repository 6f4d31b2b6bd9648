// Package oomtasks implements the "oom-tasks" command.
package oomtasks

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
	Timestamp string `json:"timestamp"`
	Truncated bool   `json:"truncated,omitempty"`
	*pkgoom.TaskEvent
	TotalRSSPages  int64 `json:"total_rss_pages"`
	TotalSwapPages int64 `json:"total_swap_pages"`
}

func Command(cliContext *cli.Context) error {
	if err := cmdcommon.SetupLogger(cliContext); err != nil {
		return err
	}
	cfg, err := cmdcommon.ConfigFromContext(cliContext, units.MiB)
	if err != nil {
		return err
	}

	text, err := cmdcommon.ReadKernelLog(context.Background(), cliContext, cfg)
	if err != nil {
		return err
	}

	events, err := pkgoom.SummarizeTasks(text)
	if errors.Is(err, kernlog.ErrNoEvents) {
		return cmdcommon.NoDataError(fmt.Errorf("no oom-killer events found: %w", err))
	}
	if err != nil {
		return err
	}

	if cfg.OutputFormat == config.OutputFormatJSON {
		outputs := make([]eventOutput, 0, len(events))
		for _, ev := range events {
			outputs = append(outputs, eventOutput{
				Timestamp:      ev.Section.Timestamp.String(),
				Truncated:      ev.Section.Truncated,
				TaskEvent:      ev,
				TotalRSSPages:  ev.TotalRSSPages(),
				TotalSwapPages: ev.TotalSwapPages(),
			})
		}
		return cmdcommon.WriteJSONToWriter(cliContext.App.Writer, outputs)
	}

	buf := bytes.NewBuffer(nil)
	for _, ev := range events {
		if ev.Malformed > 0 {
			log.Logger.Warnw("skipped malformed task rows", "timestamp", ev.Section.Timestamp.String(), "rows", ev.Malformed)
		}
		if len(ev.Tasks) == 0 {
			fmt.Fprintf(buf, "\nEvent: %s %s\n(no task dump)\n", ev.Section.Timestamp, ev.Header)
			continue
		}
		if err := pkgoom.RenderTasks(buf, ev, pkgoom.TaskReportOptions{
			Unit:       cfg.Unit,
			PageSizeKB: cfg.PageSizeKB,
			TopN:       cfg.TopN,
			ShowSwap:   cliContext.Bool("swap"),
		}); err != nil {
			return err
		}
	}
	_, err = cliContext.App.Writer.Write(buf.Bytes())
	return err
}
