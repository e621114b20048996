package cli

import (
	"github.com/vburojevic/calltrace/internal/output"
)

// emitWarning respects quiet.
func emitWarning(globals *Globals, w output.Writer, msg string) {
	if globals.Quiet {
		return
	}
	if err := w.WriteWarning(msg); err != nil {
		globals.logger().Warn(msg)
	}
}

// emitError always writes the error and returns it as a *CLIError.
func emitError(globals *Globals, w output.Writer, code, msg, hint string) error {
	if err := w.WriteError(code, msg, hint); err != nil {
		globals.logger().Error(msg)
	}
	return &CLIError{Code: code, Message: msg, Hint: hint}
}
