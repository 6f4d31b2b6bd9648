package common

import (
	"flag"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"

	"github.com/leptonai/memscope/pkg/config"
	"github.com/leptonai/memscope/pkg/units"
)

func newCLIContext(t *testing.T, args []string) *cli.Context {
	t.Helper()

	app := cli.NewApp()
	flags := flag.NewFlagSet("memscope-common-test", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	_ = flags.Bool("P", false, "")
	_ = flags.Bool("K", false, "")
	_ = flags.Bool("M", false, "")
	_ = flags.Bool("G", false, "")
	_ = flags.String("output", "plain", "")
	_ = flags.Int64("pagesize", 4, "")
	_ = flags.Int("top", 0, "")
	_ = flags.Bool("verbose", false, "")
	_ = flags.String("kmsg", "", "")
	_ = flags.String("log-level", "", "")

	require.NoError(t, flags.Parse(args))
	return cli.NewContext(app, flags, nil)
}

func TestUnitFromContext(t *testing.T) {
	u, err := UnitFromContext(newCLIContext(t, nil), units.GiB)
	require.NoError(t, err)
	assert.Equal(t, units.GiB, u)

	u, err = UnitFromContext(newCLIContext(t, []string{"-K"}), units.GiB)
	require.NoError(t, err)
	assert.Equal(t, units.KiB, u)

	_, err = UnitFromContext(newCLIContext(t, []string{"-K", "-M"}), units.GiB)
	assert.Error(t, err)
}

func TestConfigFromContext(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := ConfigFromContext(newCLIContext(t, []string{"-P", "--pagesize", "64", "--top", "3", "--verbose", "--output", "json"}), units.MiB)
	require.NoError(t, err)
	assert.Equal(t, units.Pages, cfg.Unit)
	assert.Equal(t, int64(64), cfg.PageSizeKB)
	assert.Equal(t, 3, cfg.TopN)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, config.OutputFormatJSON, cfg.OutputFormat)

	_, err = ConfigFromContext(newCLIContext(t, []string{"--output", "xml"}), units.MiB)
	cerr, ok := AsCommandError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid_output_format", cerr.Code())

	_, err = ConfigFromContext(newCLIContext(t, []string{"--top", "-1"}), units.MiB)
	assert.Error(t, err)
}

func TestReadKernelLog(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cliContext := newCLIContext(t, nil)
	cfg, err := ConfigFromContext(cliContext, units.MiB)
	require.NoError(t, err)
	_, err = ReadKernelLog(t.Context(), cliContext, cfg)
	cerr, ok := AsCommandError(err)
	require.True(t, ok)
	assert.Equal(t, "missing_input", cerr.Code())

	cliContext = newCLIContext(t, []string{filepath.Join("testdata", "does-not-exist.log")})
	_, err = ReadKernelLog(t.Context(), cliContext, cfg)
	cerr, ok = AsCommandError(err)
	require.True(t, ok)
	assert.Equal(t, ExitFatal, cerr.ExitStatus())

	cliContext = newCLIContext(t, []string{filepath.Join("testdata", "dmesg.log")})
	text, err := ReadKernelLog(t.Context(), cliContext, cfg)
	require.NoError(t, err)
	assert.Contains(t, text, "Mem-Info:")
}

func TestSetupLogger(t *testing.T) {
	require.NoError(t, SetupLogger(newCLIContext(t, []string{"--log-level", "debug"})))

	err := SetupLogger(newCLIContext(t, []string{"--log-level", "loud"}))
	cerr, ok := AsCommandError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid_log_level", cerr.Code())
}
