package compiler

import (
	"errors"
	"fmt"
)

// Compilation error codes (E200-E299)
const (
	ErrSyntax           = "E201" // expression does not parse
	ErrUnknownType      = "E202" // type not declared in the model
	ErrUnknownRole      = "E203" // predecessor role not declared on the type
	ErrMissingJoin      = "E204" // match not joined to a bound label
	ErrUnsupportedShape = "E205" // expression outside the recognized query shapes
	ErrTypeMismatch     = "E206" // equality between chains of different types
	ErrUnknownVariable  = "E207" // identifier not in scope
	ErrUnknownCondition = "E208" // named condition not declared on the type
)

// Pos is a 1-based position within the compiled expression.
type Pos struct {
	Line   int
	Column int
}

// IsValid reports whether the position is set.
func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// CompileError reports why an expression cannot become a specification.
// Compilation fails fast: the first error is returned and no partial
// specification is produced.
type CompileError struct {
	Code       string
	Message    string
	Variable   string // offending variable, if any
	Suggestion string // literal clause that would fix the error, if any
	Pos        Pos
}

func (e *CompileError) Error() string {
	msg := e.Message
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s Consider a where clause of the form %q.", msg, e.Suggestion)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Pos, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// IsCompilationError reports whether err is a *CompileError.
func IsCompilationError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// IsMissingJoin reports whether err is a missing join error.
func IsMissingJoin(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Code == ErrMissingJoin
}

func errorf(code string, pos Pos, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Message: fmt.Sprintf(format, args...), Pos: pos}
}
