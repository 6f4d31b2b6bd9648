// Package meminfo implements the "meminfo" command.
package meminfo

import (
	"bytes"
	"errors"

	"github.com/urfave/cli"

	cmdcommon "github.com/leptonai/memscope/cmd/common"
	"github.com/leptonai/memscope/pkg/config"
	"github.com/leptonai/memscope/pkg/log"
	pkgmeminfo "github.com/leptonai/memscope/pkg/meminfo"
	"github.com/leptonai/memscope/pkg/units"
)

func Command(cliContext *cli.Context) error {
	if err := cmdcommon.SetupLogger(cliContext); err != nil {
		return err
	}
	cfg, err := cmdcommon.ConfigFromContext(cliContext, units.KiB)
	if err != nil {
		return err
	}

	procDir := cfg.ProcDir
	if dir := cliContext.Args().First(); dir != "" {
		procDir = dir
	}
	log.Logger.Debugw("reading meminfo", "procDir", procDir)

	r, err := pkgmeminfo.Read(procDir)
	switch {
	case errors.Is(err, pkgmeminfo.ErrMemTotalNotFound):
		return cmdcommon.FatalError("mem_total_not_found", err)
	case errors.Is(err, pkgmeminfo.ErrAnonPagesNotFound):
		return cmdcommon.FatalError("anon_pages_not_found", err)
	case err != nil:
		return cmdcommon.FatalError("file_not_found", err)
	}

	if cfg.OutputFormat == config.OutputFormatJSON {
		return cmdcommon.WriteJSONToWriter(cliContext.App.Writer, r)
	}

	buf := bytes.NewBuffer(nil)
	if err := pkgmeminfo.Render(buf, r, cfg.Verbose); err != nil {
		return err
	}
	_, err = cliContext.App.Writer.Write(buf.Bytes())
	return err
}
