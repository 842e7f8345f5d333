package parser

import (
	"fmt"
	"strings"

	"github.com/daslang/dasl/errors"
	"github.com/daslang/dasl/token"
)

// Kind classifies a parse error.
type Kind string

const (
	ErrUnexpectedToken     Kind = "unexpected token"
	ErrUnexpectedEOF       Kind = "unexpected end of file"
	ErrInvalidAttribute    Kind = "invalid attribute"
	ErrMissingClosingBrace Kind = "missing closing brace"
	ErrInvalidFunctionCall Kind = "invalid function call"
	ErrTypeMismatch        Kind = "type mismatch"
	ErrSemantic            Kind = "semantic error"
)

// Error is a structured parse error. It carries the offending token, the
// expected token set, and the source position, and supports attaching the
// file path and full source text for snippet-with-caret rendering.
type Error struct {
	Kind     Kind
	Message  string
	Got      token.Token
	Expected []string
	Position token.Position
	File     string
	Source   string
	Hints    []string
	Cause    error
}

// Error and Errors satisfy the errors package's rendering interfaces so
// callers can format any parse failure without knowing its concrete type.
var (
	_ errors.FormattableError = (*Error)(nil)
	_ errors.FriendlyError    = (*Error)(nil)
	_ errors.FriendlyError    = (*Errors)(nil)
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Kind == ErrUnexpectedEOF:
		b.WriteString("unexpected end of file")
	default:
		fmt.Fprintf(&b, "unexpected %s", tokenDescription(e.Got))
	}
	if !e.Position.IsZero() {
		fmt.Fprintf(&b, " at line %d, column %d", e.Position.Line, e.Position.Column)
	}
	if len(e.Expected) > 0 {
		fmt.Fprintf(&b, " (expected one of: %s)", strings.Join(e.Expected, ", "))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSource attaches the file path and full source text so the error can
// be rendered with a source snippet and caret.
func (e *Error) WithSource(file, source string) *Error {
	e.File = file
	e.Source = source
	return e
}

// Suggestions returns human-readable guidance for fixing the error,
// combining any hints attached during parsing with generated advice.
func (e *Error) Suggestions() []string {
	out := append([]string(nil), e.Hints...)
	switch e.Kind {
	case ErrUnexpectedEOF, ErrMissingClosingBrace:
		out = append(out, "check for a missing closing brace")
	case ErrUnexpectedToken:
		for _, exp := range e.Expected {
			if exp == ";" {
				out = append(out, "check for a missing semicolon")
				break
			}
		}
		if e.Got.Type == token.IDENT {
			if s := errors.FormatSuggestions(errors.SuggestSimilar(e.Got.Literal, keywordCandidates)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// keywordCandidates are language keywords offered as "did you mean"
// suggestions when an identifier appears where a keyword was expected.
var keywordCandidates = []string{
	"let", "fn", "async", "await", "service", "agent", "spawn", "msg",
	"event", "if", "else", "while", "for", "in", "loop", "break",
	"continue", "try", "catch", "finally", "match", "default", "return",
	"import", "export", "throw", "with",
}

// FriendlyErrorMessage renders the error with source context, no color.
func (e *Error) FriendlyErrorMessage() string {
	return errors.NewFormatter(false).Format(e.ToFormatted())
}

// ToFormatted converts the error to a FormattedError for display.
func (e *Error) ToFormatted() *errors.FormattedError {
	f := &errors.FormattedError{
		Kind:     string(e.Kind),
		Message:  strings.TrimPrefix(e.Error(), string(e.Kind)+": "),
		Filename: e.File,
		Line:     e.Position.LineNumber(),
		Column:   e.Position.ColumnNumber(),
	}
	if line := sourceLine(e.Source, f.Line); line != "" {
		f.SourceLines = []errors.SourceLineEntry{
			{Number: f.Line, Text: line, IsMain: true},
		}
		if lit := e.Got.Literal; lit != "" {
			f.EndColumn = f.Column + len(lit) - 1
		}
	}
	if suggestions := e.Suggestions(); len(suggestions) > 0 {
		f.Hint = suggestions[0]
		if len(suggestions) > 1 {
			f.Note = strings.Join(suggestions[1:], "; ")
		}
	}
	return f
}

// sourceLine extracts the 1-based line from source text, or "".
func sourceLine(source string, line int) string {
	if source == "" || line < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}

func tokenDescription(t token.Token) string {
	switch t.Type {
	case token.EOF:
		return "end of file"
	case "":
		return "end of file"
	default:
		if t.Literal == "" {
			return string(t.Type)
		}
		return fmt.Sprintf("%q", t.Literal)
	}
}

// Errors wraps multiple parse errors for multi-error reporting. It
// implements the error interface so it can be returned from Parse.
type Errors struct {
	errs []*Error
}

// NewErrors creates an Errors from a slice of Error, or nil if empty.
func NewErrors(errs []*Error) *Errors {
	if len(errs) == 0 {
		return nil
	}
	return &Errors{errs: errs}
}

// Error implements the error interface.
func (e *Errors) Error() string {
	if len(e.errs) == 0 {
		return ""
	}
	if len(e.errs) == 1 {
		return e.errs[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.errs[0].Error(), len(e.errs)-1)
}

// Errors returns the underlying slice of parse errors.
func (e *Errors) Errors() []*Error {
	return e.errs
}

// Count returns the number of errors.
func (e *Errors) Count() int {
	return len(e.errs)
}

// First returns the first error, or nil if empty.
func (e *Errors) First() *Error {
	if len(e.errs) == 0 {
		return nil
	}
	return e.errs[0]
}

// FriendlyErrorMessage returns a formatted message showing all errors.
func (e *Errors) FriendlyErrorMessage() string {
	return errors.NewFormatter(false).FormatMultiple(e.ToFormattedMultiple())
}

// ToFormattedMultiple converts all errors to FormattedError for display.
func (e *Errors) ToFormattedMultiple() []*errors.FormattedError {
	formatted := make([]*errors.FormattedError, 0, len(e.errs))
	for _, err := range e.errs {
		formatted = append(formatted, err.ToFormatted())
	}
	return formatted
}

// Unwrap returns the underlying errors for use with errors.Is/As.
func (e *Errors) Unwrap() []error {
	result := make([]error, len(e.errs))
	for i, err := range e.errs {
		result[i] = err
	}
	return result
}
