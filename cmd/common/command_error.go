package common

import (
	"errors"
	"strings"
)

// CommandError carries the exit status and a machine-readable code.
// It must not implement cli.ExitCoder, App.Run would call os.Exit on it.
type CommandError struct {
	code     string
	message  string
	exitCode int
}

type CommandErrorResponse struct {
	Error CommandErrorPayload `json:"error"`
}

type CommandErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewCommandError(code string, message string, exitCode int) *CommandError {
	if code == "" {
		code = "command_error"
	}
	if exitCode == 0 {
		exitCode = ExitFatal
	}
	return &CommandError{
		code:     code,
		message:  message,
		exitCode: exitCode,
	}
}

// NoDataError reports an input that held no event to summarize.
func NoDataError(err error) *CommandError {
	return NewCommandError("no_data", err.Error(), ExitNoData)
}

// FatalError reports a missing input or a missing file-global field.
func FatalError(code string, err error) *CommandError {
	return NewCommandError(code, err.Error(), ExitFatal)
}

func (e *CommandError) Error() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *CommandError) ExitStatus() int {
	if e == nil || e.exitCode == 0 {
		return ExitFatal
	}
	return e.exitCode
}

func (e *CommandError) Code() string {
	if e == nil || e.code == "" {
		return "command_error"
	}
	return e.code
}

func (e *CommandError) Response() CommandErrorResponse {
	if e == nil {
		return CommandErrorResponse{
			Error: CommandErrorPayload{
				Code:    "command_error",
				Message: "",
			},
		}
	}
	return CommandErrorResponse{
		Error: CommandErrorPayload{
			Code:    e.Code(),
			Message: e.message,
		},
	}
}

func AsCommandError(err error) (*CommandError, bool) {
	var cerr *CommandError
	if !errors.As(err, &cerr) {
		return nil, false
	}
	return cerr, true
}

// ExitStatus returns the process exit status for err.
func ExitStatus(err error) int {
	if err == nil {
		return ExitOK
	}
	if cerr, ok := AsCommandError(err); ok {
		return cerr.ExitStatus()
	}
	return ExitFatal
}

// WrapError attaches a code to a plain error, keeping the status of a CommandError.
func WrapError(code string, err error) error {
	if err == nil {
		return nil
	}
	if cerr, ok := AsCommandError(err); ok {
		if strings.TrimSpace(code) == "" {
			code = cerr.Code()
		}
		return NewCommandError(code, err.Error(), cerr.ExitStatus())
	}
	return NewCommandError(code, err.Error(), ExitFatal)
}
