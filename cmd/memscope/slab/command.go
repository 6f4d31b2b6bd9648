// Package slab implements the "slab" command.
package slab

import (
	"bytes"

	"github.com/urfave/cli"

	cmdcommon "github.com/leptonai/memscope/cmd/common"
	"github.com/leptonai/memscope/pkg/config"
	"github.com/leptonai/memscope/pkg/log"
	"github.com/leptonai/memscope/pkg/slabinfo"
	"github.com/leptonai/memscope/pkg/units"
)

// Output is the JSON form of the report.
type Output struct {
	Caches     []slabinfo.Cache `json:"caches"`
	TotalPages int64            `json:"total_pages"`
	PageSizeKB int64            `json:"page_size_kb"`
}

func Command(cliContext *cli.Context) error {
	if err := cmdcommon.SetupLogger(cliContext); err != nil {
		return err
	}
	cfg, err := cmdcommon.ConfigFromContext(cliContext, units.MiB)
	if err != nil {
		return err
	}

	procDir := cfg.ProcDir
	if dir := cliContext.Args().First(); dir != "" {
		procDir = dir
	}
	log.Logger.Debugw("reading slabinfo", "procDir", procDir)

	r, err := slabinfo.Read(procDir)
	if err != nil {
		return cmdcommon.FatalError("file_not_found", err)
	}

	n := cfg.TopN
	if n == 0 {
		n = slabinfo.DefaultTopN
	}
	if cliContext.Bool("all") {
		n = 0
	}
	shown := r.Top(n)

	if cfg.OutputFormat == config.OutputFormatJSON {
		return cmdcommon.WriteJSONToWriter(cliContext.App.Writer, Output{
			Caches:     shown,
			TotalPages: r.TotalPages,
			PageSizeKB: cfg.PageSizeKB,
		})
	}

	buf := bytes.NewBuffer(nil)
	if err := slabinfo.Render(buf, r, shown, cfg.PageSizeKB); err != nil {
		return err
	}
	_, err = cliContext.App.Writer.Write(buf.Bytes())
	return err
}
