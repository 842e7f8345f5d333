// Package errors defines diagnostic types and rendering for DASL source
// errors: formatted errors with source locations, caret output, and
// "did you mean" suggestions.
package errors

import "fmt"

// SourceLocation is a 1-based position in DASL source, optionally carrying
// the line of source text the position falls on.
type SourceLocation struct {
	Filename string
	Line     int
	Column   int
	Source   string
}

// String renders the location as "file:line:col", or "line:col" when the
// file is unknown.
func (s SourceLocation) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsZero reports whether the location has not been set.
func (s SourceLocation) IsZero() bool {
	return s.Line == 0 && s.Column == 0
}

// FriendlyError is implemented by errors that can render a human-oriented
// message with source context in addition to the plain Error string.
type FriendlyError interface {
	Error() string
	FriendlyErrorMessage() string
}

// FormattableError is implemented by errors that convert themselves to a
// FormattedError for caret rendering by a Formatter.
type FormattableError interface {
	Error() string
	ToFormatted() *FormattedError
}
