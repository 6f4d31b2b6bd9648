// Package pageowner implements the "page-owner" command.
package pageowner

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"

	"github.com/urfave/cli"

	cmdcommon "github.com/leptonai/memscope/cmd/common"
	"github.com/leptonai/memscope/pkg/config"
	"github.com/leptonai/memscope/pkg/log"
	pkgpageowner "github.com/leptonai/memscope/pkg/pageowner"
	"github.com/leptonai/memscope/pkg/units"
)

type output struct {
	Allocations int64                `json:"allocations"`
	Pages       int64                `json:"pages"`
	Skipped     pkgpageowner.Skipped `json:"skipped"`

	Processes     *pkgpageowner.View            `json:"processes,omitempty"`
	Modules       *pkgpageowner.View            `json:"modules,omitempty"`
	SlabFunctions *pkgpageowner.View            `json:"slab_functions,omitempty"`
	CallTraces    []pkgpageowner.TraceRow       `json:"call_traces,omitempty"`
	Orders        []pkgpageowner.OrderRow       `json:"orders,omitempty"`
	SlabUsage     []pkgpageowner.SplitRow       `json:"slab_usage,omitempty"`
	ModuleOrders  []pkgpageowner.ModuleOrderRow `json:"module_orders,omitempty"`
	Zones         []pkgpageowner.ZoneRow        `json:"zones,omitempty"`
}

func Command(cliContext *cli.Context) error {
	if err := cmdcommon.SetupLogger(cliContext); err != nil {
		return err
	}
	cfg, err := cmdcommon.ConfigFromContext(cliContext, units.GiB)
	if err != nil {
		return err
	}
	if cfg.Unit == units.Pages {
		return cmdcommon.NewCommandError("invalid_unit", "page-owner supports -K, -M and -G only", cmdcommon.ExitFatal)
	}

	callTraceProcess := cliContext.String("calltrace-process")
	if callTraceProcess != "" && !cliContext.Bool("calltraces") {
		return cmdcommon.NewCommandError("invalid_flags", "--calltrace-process requires --calltraces", cmdcommon.ExitFatal)
	}
	filterModule := cliContext.String("filter-module")
	if filterModule != "" && !cliContext.Bool("processes") {
		return cmdcommon.NewCommandError("invalid_flags", "--filter-module requires --processes", cmdcommon.ExitFatal)
	}

	path := cliContext.Args().First()
	if path == "" {
		return cmdcommon.FatalError("missing_input", errors.New("a page_owner file argument is required"))
	}

	res, err := pkgpageowner.ParseFile(path)
	if errors.Is(err, pkgpageowner.ErrNoAllocations) {
		if stderr := cliContext.App.ErrWriter; stderr != nil {
			_ = pkgpageowner.RenderSkipped(stderr, res)
		}
		return cmdcommon.NoDataError(fmt.Errorf("%s: %w", path, err))
	}
	if errors.Is(err, fs.ErrNotExist) {
		return cmdcommon.FatalError("file_not_found", err)
	}
	if err != nil {
		return cmdcommon.FatalError("read_failed", err)
	}
	log.Logger.Debugw("parsed page_owner dump", "file", path, "allocations", res.Allocations, "skipped", res.Skipped.Total())

	out := output{
		Allocations: res.Allocations,
		Pages:       res.Pages,
		Skipped:     res.Skipped,
	}

	showProcesses := cliContext.Bool("processes")
	showModules := cliContext.Bool("modules")
	showSlabs := cliContext.Bool("slabs")
	showCallTraces := cliContext.Bool("calltraces")
	showOrders := cliContext.Bool("orders")
	showSlabUsage := cliContext.Bool("slab-usage")
	showModuleOrders := cliContext.Bool("module-orders")
	showZones := cliContext.Bool("zones")
	if !showProcesses && !showModules && !showSlabs && !showCallTraces &&
		!showOrders && !showSlabUsage && !showModuleOrders && !showZones {
		showProcesses = true
	}

	buf := bytes.NewBuffer(nil)
	plain := cfg.OutputFormat == config.OutputFormatPlain
	section := func(render func() error) error {
		if !plain {
			return nil
		}
		if buf.Len() > 0 {
			fmt.Fprintln(buf)
		}
		return render()
	}

	if showProcesses {
		v := res.TopProcesses(cfg.TopN)
		if filterModule != "" {
			v = res.ProcessesForModule(filterModule, cfg.TopN)
		}
		if !res.OwnerInfo {
			log.Logger.Warnw("page_owner headers carry no pid/tgid, processes are reported as Unknown", "file", path)
		}
		out.Processes = &v
		if err := section(func() error { return pkgpageowner.RenderView(buf, v, cfg.Unit) }); err != nil {
			return err
		}
	}
	if showModules {
		v := res.TopModules(cfg.TopN)
		out.Modules = &v
		if err := section(func() error { return pkgpageowner.RenderView(buf, v, cfg.Unit) }); err != nil {
			return err
		}
	}
	if showSlabs {
		v := res.TopSlabFunctions(cfg.TopN)
		out.SlabFunctions = &v
		if err := section(func() error { return pkgpageowner.RenderView(buf, v, cfg.Unit) }); err != nil {
			return err
		}
	}
	if showCallTraces {
		rows, total := res.TopCallTraces(cfg.TopN, callTraceProcess)
		out.CallTraces = rows
		if err := section(func() error {
			return pkgpageowner.RenderCallTraces(buf, rows, total, callTraceProcess, cfg.Unit)
		}); err != nil {
			return err
		}
	}
	if showOrders {
		rows, total := res.Orders()
		out.Orders = rows
		if err := section(func() error { return pkgpageowner.RenderOrders(buf, rows, total, cfg.Unit) }); err != nil {
			return err
		}
	}
	if showSlabUsage {
		rows, total := res.ProcessSlabUsage(cfg.TopN)
		out.SlabUsage = rows
		if err := section(func() error { return pkgpageowner.RenderProcessSlabUsage(buf, rows, total, cfg.Unit) }); err != nil {
			return err
		}
	}
	if showModuleOrders {
		rows, total := res.ModuleOrders(filterModule)
		out.ModuleOrders = rows
		if err := section(func() error { return pkgpageowner.RenderModuleOrders(buf, rows, total, cfg.Unit) }); err != nil {
			return err
		}
	}
	if showZones {
		rows, total := res.Zones()
		out.Zones = rows
		if err := section(func() error { return pkgpageowner.RenderZones(buf, rows, total, cfg.Unit) }); err != nil {
			return err
		}
	}

	if !plain {
		return cmdcommon.WriteJSONToWriter(cliContext.App.Writer, out)
	}
	if cfg.Verbose {
		if err := section(func() error { return pkgpageowner.RenderSkipped(buf, res) }); err != nil {
			return err
		}
	}
	_, err = cliContext.App.Writer.Write(buf.Bytes())
	return err
}
