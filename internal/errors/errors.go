// Package errors renders command failures for the terminal. Domain errors
// the user can act on carry a hint line below the message.
package errors

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/lock"
	"github.com/julianstephens/hearth/internal/logger"
	"github.com/julianstephens/hearth/internal/models"
)

var hints = []struct {
	target error
	hint   string
}{
	{models.ErrMemberRequired, "Pass --member with a member name or id."},
	{models.ErrMemberNotFound, "Run '" + constants.AppName + " member list' to see who is in the family."},
	{models.ErrNameTaken, "Names are compared ignoring case; choose another name."},
	{models.ErrNameRequired, "Give the member a non-empty name."},
	{models.ErrUnknownEntryType, "Valid entry types: mood, reflection, gratitude."},
	{models.ErrDuplicateID, "Entry ids must be unique across all logs."},
	{lock.ErrLocked, "Close the other " + constants.AppName + " session or wait for it to finish."},
}

// Hint returns advice for a recognised domain error, or "".
func Hint(err error) string {
	for _, h := range hints {
		if errors.Is(err, h.target) {
			return h.hint
		}
	}
	return ""
}

// Format renders err with the "Error: " prefix and any hint on its own line.
func Format(err error) string {
	if err == nil {
		return ""
	}
	msg := fmt.Sprintf("Error: %v", err)
	if hint := Hint(err); hint != "" {
		msg += "\nHint: " + hint
	}
	return msg
}

// Report logs err and writes its formatted form to w. It reports whether
// there was anything to print.
func Report(w io.Writer, err error) bool {
	if err == nil {
		return false
	}
	logger.Error("Command execution failed", "error", err)
	fmt.Fprintln(w, Format(err))
	return true
}

// Fatal reports err on stderr and exits with status 1. A nil err is a no-op.
func Fatal(err error) {
	if Report(os.Stderr, err) {
		os.Exit(1)
	}
}

// Fatalf reports a formatted message on stderr and exits with status 1.
func Fatalf(format string, args ...any) {
	Fatal(fmt.Errorf(format, args...))
}
