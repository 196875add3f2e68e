package compiler

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Parse errors
// ---------------------------------------------------------------------------

// ParseErrorKind enumerates the ways parsing can fail.
type ParseErrorKind int

const (
	// ErrUnexpectedToken: a specific kind or category was required.
	ErrUnexpectedToken ParseErrorKind = iota
	// ErrInvalidNumber: numeric literal text does not fit its kind.
	ErrInvalidNumber
	// ErrUnexpectedEOF: input ended where a statement or expression
	// was required.
	ErrUnexpectedEOF
)

func (k ParseErrorKind) String() string {
	switch k {
	case ErrUnexpectedToken:
		return "unexpected token"
	case ErrInvalidNumber:
		return "invalid number"
	case ErrUnexpectedEOF:
		return "unexpected EOF"
	}
	return fmt.Sprintf("ParseErrorKind(%d)", int(k))
}

// ParseError describes a single parse failure. Expected names the kind or
// category that was required ("statement", "identifier", ...); Found is the
// kind actually seen; Text carries offending literal text.
type ParseError struct {
	Kind     ParseErrorKind
	Expected string
	Found    TokenKind
	Text     string
	Span     Span
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrInvalidNumber:
		if e.Found == TokenFloat {
			return fmt.Sprintf("'%s' is not a valid float literal", e.Text)
		}
		return fmt.Sprintf("'%s' is not a valid integer literal", e.Text)
	case ErrUnexpectedEOF:
		return "unexpected EOF"
	}
	return fmt.Sprintf("expected %s, got %s", e.Expected, e.Found)
}

// IsIncomplete reports whether err is a parse error caused by running out
// of input, meaning more source could still complete the statement.
func IsIncomplete(err error) bool {
	var pe *ParseError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Kind == ErrUnexpectedEOF || pe.Found == TokenEOF
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// Diagnostic is a parse error resolved against its source text. Line and
// Column are 0-based.
type Diagnostic struct {
	Line    int
	Column  int
	EndLine int
	EndCol  int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("parse error at %d:%d: %s", d.Line+1, d.Column+1, d.Message)
}

// Diagnose resolves err against src. Errors that are not parse errors map
// to position 0:0.
func Diagnose(err error, src string) Diagnostic {
	var pe *ParseError
	if !errors.As(err, &pe) {
		return Diagnostic{Message: err.Error()}
	}
	d := Diagnostic{Message: pe.Error()}
	d.Line, d.Column = LineColumn(src, pe.Span.Start)
	d.EndLine, d.EndCol = LineColumn(src, pe.Span.End)
	return d
}
