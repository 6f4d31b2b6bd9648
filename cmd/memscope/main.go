package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	cmdcommon "github.com/leptonai/memscope/cmd/common"
	"github.com/leptonai/memscope/cmd/memscope/command"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	app := command.App()
	app.Writer = stdout
	app.ErrWriter = stderr

	err := app.Run(args)
	if err == nil {
		return cmdcommon.ExitOK
	}

	if jsonRequested(args) {
		cerr, ok := cmdcommon.AsCommandError(err)
		if !ok {
			cerr = cmdcommon.NewCommandError("", err.Error(), cmdcommon.ExitFatal)
		}
		if werr := cmdcommon.WriteJSONToWriter(stdout, cerr.Response()); werr == nil {
			return cmdcommon.ExitStatus(err)
		}
	}

	fmt.Fprintf(stderr, "%s %s\n", cmdcommon.WarningSign, err)
	return cmdcommon.ExitStatus(err)
}

// jsonRequested reports whether the arguments select JSON output,
// so errors can be reported in the same format.
func jsonRequested(args []string) bool {
	for i, arg := range args {
		switch {
		case arg == "--output" || arg == "-output" || arg == "-o":
			if i+1 < len(args) && strings.EqualFold(strings.TrimSpace(args[i+1]), "json") {
				return true
			}
		case strings.HasPrefix(arg, "--output="), strings.HasPrefix(arg, "-output="), strings.HasPrefix(arg, "-o="):
			_, v, _ := strings.Cut(arg, "=")
			if strings.EqualFold(strings.TrimSpace(v), "json") {
				return true
			}
		}
	}
	return false
}
