package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli"

	"github.com/leptonai/memscope/pkg/config"
	"github.com/leptonai/memscope/pkg/kernlog"
	"github.com/leptonai/memscope/pkg/kmsg"
	"github.com/leptonai/memscope/pkg/log"
	"github.com/leptonai/memscope/pkg/units"
)

// LogFlags configure the diagnostic logger, which writes to stderr.
var LogFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "log-level",
		Usage: "set the logging level [debug, info, warn, error, fatal, panic, dpanic] (default: warn)",
	},
	cli.StringFlag{
		Name:  "log-file",
		Usage: "write logs to this file (rotated) instead of stderr",
	},
}

// OutputFlag selects plain tables or JSON.
var OutputFlag = cli.StringFlag{
	Name:  "output,o",
	Usage: "output format [plain, json]",
	Value: string(config.OutputFormatPlain),
}

// UnitFlags select the display unit; at most one may be set.
func UnitFlags(pages bool) []cli.Flag {
	flags := []cli.Flag{
		cli.BoolFlag{Name: "K", Usage: "show memory in KiB"},
		cli.BoolFlag{Name: "M", Usage: "show memory in MiB"},
		cli.BoolFlag{Name: "G", Usage: "show memory in GiB"},
	}
	if pages {
		flags = append(flags, cli.BoolFlag{Name: "P", Usage: "show memory in pages"})
	}
	return flags
}

var PageSizeFlag = cli.Int64Flag{
	Name:  "pagesize",
	Usage: "base page size in kB of the host the data was taken on",
	Value: units.DefaultPageSizeKB,
}

var KmsgFlag = cli.StringFlag{
	Name:  "kmsg",
	Usage: "read the live kernel ring buffer from this device (e.g. /dev/kmsg) instead of a log file",
}

// SetupLogger replaces the default logger from the --log-level and --log-file flags.
func SetupLogger(cliContext *cli.Context) error {
	zapLvl, err := log.ParseLogLevel(cliContext.String("log-level"))
	if err != nil {
		return NewCommandError("invalid_log_level", err.Error(), ExitFatal)
	}
	log.SetLogger(log.CreateLogger(zapLvl, cliContext.String("log-file")))
	return nil
}

// UnitFromContext returns the unit selected by -P/-K/-M/-G, or def.
func UnitFromContext(cliContext *cli.Context, def units.Unit) (units.Unit, error) {
	var selected []units.Unit
	for _, u := range []units.Unit{units.Pages, units.KiB, units.MiB, units.GiB} {
		if cliContext.Bool(string(u)) {
			selected = append(selected, u)
		}
	}
	switch len(selected) {
	case 0:
		return def, nil
	case 1:
		return selected[0], nil
	default:
		return "", errors.New("only one of -P, -K, -M, -G can be set")
	}
}

// ConfigFromContext builds the report settings from the flags
// every subcommand shares. Flags a subcommand does not define read as zero.
func ConfigFromContext(cliContext *cli.Context, defaultUnit units.Unit) (*config.Config, error) {
	unit, err := UnitFromContext(cliContext, defaultUnit)
	if err != nil {
		return nil, NewCommandError("invalid_unit", err.Error(), ExitFatal)
	}
	outputFormat, err := ParseOutputFormat(cliContext.String("output"))
	if err != nil {
		return nil, NewCommandError("invalid_output_format", err.Error(), ExitFatal)
	}

	opts := []config.OpOption{
		config.WithUnit(unit),
		config.WithOutputFormat(outputFormat),
		config.WithVerbose(cliContext.Bool("verbose")),
		config.WithFull(cliContext.Bool("full")),
		config.WithTopN(cliContext.Int("top")),
		config.WithShowUnaccounted(cliContext.Bool("unaccounted")),
		config.WithFieldTablesFile(cliContext.String("field-tables")),
		config.WithKmsgDevice(cliContext.String("kmsg")),
	}
	if ps := cliContext.Int64("pagesize"); ps != 0 {
		opts = append(opts, config.WithPageSizeKB(ps))
	}

	cfg, err := config.DefaultConfig(opts...)
	if err != nil {
		return nil, NewCommandError("invalid_config", err.Error(), ExitFatal)
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewCommandError("invalid_config", err.Error(), ExitFatal)
	}
	return cfg, nil
}

// ReadKernelLog returns the log text of the first argument, or the live
// ring buffer when --kmsg is set.
func ReadKernelLog(ctx context.Context, cliContext *cli.Context, cfg *config.Config) (string, error) {
	if cfg.KmsgDevice != "" {
		msgs, err := kmsg.ReadAll(ctx, cfg.KmsgDevice)
		if err != nil {
			return "", FatalError("kmsg_read_failed", fmt.Errorf("failed to read %s: %w", cfg.KmsgDevice, err))
		}
		log.Logger.Debugw("read kernel ring buffer", "device", cfg.KmsgDevice, "messages", len(msgs))
		return kmsg.FormatDmesg(msgs), nil
	}

	path := cliContext.Args().First()
	if path == "" {
		return "", FatalError("missing_input", errors.New("a log file argument (or --kmsg) is required"))
	}
	text, err := kernlog.ReadFile(path)
	if err != nil {
		return "", FatalError("file_not_found", err)
	}
	return text, nil
}
