package oomsummary

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"

	cmdcommon "github.com/leptonai/memscope/cmd/common"
)

func newCLIContext(t *testing.T, args []string) (*cli.Context, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	stdout, stderr := bytes.NewBuffer(nil), bytes.NewBuffer(nil)
	app := cli.NewApp()
	app.Writer = stdout
	app.ErrWriter = stderr

	flags := flag.NewFlagSet("oom-summary-test", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	for _, name := range []string{"P", "K", "M", "G", "unaccounted", "full", "verbose"} {
		_ = flags.Bool(name, false, "")
	}
	_ = flags.String("output", "plain", "")
	_ = flags.String("field-tables", "", "")
	_ = flags.String("kmsg", "", "")
	_ = flags.String("log-level", "", "")
	_ = flags.Int64("pagesize", 4, "")

	require.NoError(t, flags.Parse(args))
	return cli.NewContext(app, flags, nil), stdout, stderr
}

func TestCommand(t *testing.T) {
	cliContext, stdout, stderr := newCLIContext(t, []string{"--unaccounted", filepath.Join("testdata", "two_sections.log")})
	require.NoError(t, Command(cliContext))

	out := stdout.String()
	assert.Contains(t, out, "Timestamp: uptime 512.100010s")
	assert.Contains(t, out, "Unaccounted Memory")
	assert.Contains(t, out, "1,542.97")
	assert.Contains(t, out, "3,906.25")
	assert.NotContains(t, out, "600.000000")

	assert.Contains(t, stderr.String(), "skipping section at uptime 600.000000s")
}

func TestCommandVerbosePages(t *testing.T) {
	cliContext, stdout, _ := newCLIContext(t, []string{"-P", "--verbose", filepath.Join("testdata", "two_sections.log")})
	require.NoError(t, Command(cliContext))
	assert.Contains(t, stdout.String(), "395,000 = 1,000,000 - 300,000 - 100,000")
}

func TestCommandJSON(t *testing.T) {
	cliContext, stdout, _ := newCLIContext(t, []string{"--output", "json", filepath.Join("testdata", "two_sections.log")})
	require.NoError(t, Command(cliContext))

	var events []eventOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &events))
	require.Len(t, events, 2)
	require.NotNil(t, events[0].Usage)
	assert.Equal(t, int64(1000000), events[0].Usage.TotalPages)
	assert.Equal(t, int64(400000), events[0].Usage.AnonPages)
	assert.Equal(t, int64(395000), events[0].Usage.Unaccounted)
	assert.Nil(t, events[1].Usage)
	assert.NotEmpty(t, events[1].Skipped)
}

func TestCommandErrors(t *testing.T) {
	t.Run("missing argument", func(t *testing.T) {
		cliContext, _, _ := newCLIContext(t, nil)
		err := Command(cliContext)
		assert.Equal(t, cmdcommon.ExitFatal, cmdcommon.ExitStatus(err))
	})

	t.Run("missing file", func(t *testing.T) {
		cliContext, _, _ := newCLIContext(t, []string{filepath.Join("testdata", "missing.log")})
		err := Command(cliContext)
		assert.Equal(t, cmdcommon.ExitFatal, cmdcommon.ExitStatus(err))
	})

	t.Run("no events", func(t *testing.T) {
		cliContext, _, _ := newCLIContext(t, []string{filepath.Join("testdata", "tables.yaml")})
		err := Command(cliContext)
		assert.Equal(t, cmdcommon.ExitNoData, cmdcommon.ExitStatus(err))
	})

	t.Run("invalid field tables", func(t *testing.T) {
		cliContext, _, _ := newCLIContext(t, []string{"--field-tables", filepath.Join("testdata", "two_sections.log"), filepath.Join("testdata", "two_sections.log")})
		err := Command(cliContext)
		cerr, ok := cmdcommon.AsCommandError(err)
		require.True(t, ok)
		assert.Equal(t, "invalid_field_tables", cerr.Code())
	})
}

func TestCommandFieldTables(t *testing.T) {
	cliContext, stdout, _ := newCLIContext(t, []string{"--field-tables", filepath.Join("testdata", "tables.yaml"), "--output", "json", filepath.Join("testdata", "two_sections.log")})
	require.NoError(t, Command(cliContext))

	var events []eventOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &events))
	require.NotNil(t, events[0].Usage)
	assert.Equal(t, "rhel7", events[0].Usage.Table)
}
