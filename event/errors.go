package event

import "github.com/cockroachdb/errors"

// ErrMalformedInput marks a log line or symbol table line that could not be
// parsed. The offending unit is skipped and processing continues.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputf builds an error marked with ErrMalformedInput.
func MalformedInputf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrMalformedInput)
}
