// Package common holds the helpers shared by the memscope subcommands.
package common

const (
	WarningSign = "\033[31m✘\033[0m"
	CheckMark   = "\033[32m✔\033[0m"
)

// Process exit statuses.
const (
	ExitOK = 0
	// ExitFatal is used for missing input files and file-global fields.
	ExitFatal = 1
	// ExitNoData means the input was read but held nothing to report.
	ExitNoData = 2
)
