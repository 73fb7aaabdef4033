// Package asmerr defines the error taxonomy shared by the assembler and
// emulator. Every error carries an Origin and may chain an underlying
// cause, per the error handling design.
package asmerr

import (
	"fmt"

	"github.com/gmofishsauce/sphinx/internal/origin"
)

// Kind classifies an Error. The zero value is never produced by a
// constructor below; it exists only so a missing Kind is visibly wrong
// in tests.
type Kind int

const (
	_ Kind = iota
	Syntax
	NameConflict
	Expression
	Label
	CyclicDependency
	Evaluation
	Usage
	OutOfBounds
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax error"
	case NameConflict:
		return "name conflict"
	case Expression:
		return "expression error"
	case Label:
		return "label error"
	case CyclicDependency:
		return "cyclic dependency"
	case Evaluation:
		return "evaluation error"
	case Usage:
		return "usage error"
	case OutOfBounds:
		return "out of bounds"
	default:
		return "assembler error"
	}
}

// Error is the single error type used throughout the assembler and VM.
// Origin pinpoints the source location (where known); Cause, if non-nil,
// is the error that triggered this one (e.g. an Expression error inside a
// Label resolution becomes a Label error caused by it).
type Error struct {
	Kind    Kind
	Message string
	Origin  origin.Origin
	Cause   error
}

func (e *Error) Error() string {
	if e.Origin.IsUnknown() {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Origin, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, o origin.Origin, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Origin: o, Cause: cause, Message: fmt.Sprintf(format, args...)}
}

func Syntaxf(o origin.Origin, format string, args ...any) *Error {
	return New(Syntax, o, nil, format, args...)
}

// Unhelpful is a syntax error with no further detail, matching the
// original's AssemblerSyntaxError.unhelpful(origin) convenience.
func Unhelpful(o origin.Origin) *Error {
	return New(Syntax, o, nil, "could not parse this line")
}

func NameConflictf(o origin.Origin, format string, args ...any) *Error {
	return New(NameConflict, o, nil, format, args...)
}

func Expressionf(o origin.Origin, format string, args ...any) *Error {
	return New(Expression, o, nil, format, args...)
}

func Labelf(o origin.Origin, cause error, format string, args ...any) *Error {
	return New(Label, o, cause, format, args...)
}

func CyclicDependencyf(o origin.Origin, format string, args ...any) *Error {
	return New(CyclicDependency, o, nil, format, args...)
}

func Evaluationf(o origin.Origin, cause error, format string, args ...any) *Error {
	return New(Evaluation, o, cause, format, args...)
}

func Usagef(format string, args ...any) *Error {
	return New(Usage, origin.Unknown, nil, format, args...)
}

func OutOfBoundsf(o origin.Origin, format string, args ...any) *Error {
	return New(OutOfBounds, o, nil, format, args...)
}

// IsExpressionFamily reports whether err is an *Error whose Kind belongs
// to the expression-evaluation family (Expression, Label,
// CyclicDependency, Evaluation). Label resolution uses this to decide
// whether to wrap a nested failure rather than propagate it verbatim.
func IsExpressionFamily(err error) bool {
	var e *Error
	if !As(err, &e) {
		return false
	}
	switch e.Kind {
	case Expression, Label, CyclicDependency, Evaluation:
		return true
	default:
		return false
	}
}

// As is errors.As specialized to *Error, kept local so callers in this
// module don't need to import both "errors" and this package under two
// names.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
