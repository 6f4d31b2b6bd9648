package slab

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

func newCLIContext(t *testing.T, args []string) (*cli.Context, *bytes.Buffer) {
	t.Helper()

	stdout := bytes.NewBuffer(nil)
	app := cli.NewApp()
	app.Writer = stdout

	flags := flag.NewFlagSet("slab-test", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	_ = flags.Bool("all", false, "")
	_ = flags.Int("top", 0, "")
	_ = flags.Int64("pagesize", 4, "")
	_ = flags.String("output", "plain", "")

	require.NoError(t, flags.Parse(args))
	return cli.NewContext(app, flags, nil), stdout
}

func TestCommand(t *testing.T) {
	cliContext, stdout := newCLIContext(t, []string{"--top", "1", filepath.Join("testdata", "proc")})
	require.NoError(t, Command(cliContext))

	out := stdout.String()
	assert.Contains(t, out, "kmalloc-4k")
	assert.NotContains(t, out, "dentry")
	assert.Contains(t, out, "106.44")
}

func TestCommandAllJSON(t *testing.T) {
	cliContext, stdout := newCLIContext(t, []string{"--all", "--top", "1", "--output", "json", filepath.Join("testdata", "proc")})
	require.NoError(t, Command(cliContext))

	var out Output
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Len(t, out.Caches, 5)
	assert.Equal(t, int64(27249), out.TotalPages)
	assert.Equal(t, int64(4), out.PageSizeKB)
}

func TestCommandMissingDir(t *testing.T) {
	cliContext, _ := newCLIContext(t, []string{filepath.Join("testdata", "does-not-exist")})
	assert.Equal(t, cmdcommon.ExitFatal, cmdcommon.ExitStatus(Command(cliContext)))
}
