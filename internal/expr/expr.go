// Package expr implements the lazy, possibly self-referential expression
// tree used for directive sizes and instruction operands. Labels and
// variables resolve late, after the whole program has been parsed, which
// is what lets a directive refer to a label defined further down the
// source.
package expr

import (
	"github.com/gmofishsauce/sphinx/internal/asmerr"
	"github.com/gmofishsauce/sphinx/internal/memfmt"
	"github.com/gmofishsauce/sphinx/internal/origin"
)

// Value is the concrete result of evaluating an Expression: exactly one
// of Int, Bytes, or Str is meaningful, selected by Kind.
type Kind int

const (
	KindInt Kind = iota
	KindBytes
	KindStr
)

type Value struct {
	Kind  Kind
	Int   int64
	Bytes []byte
	Str   string
}

func IntValue(n int64) Value      { return Value{Kind: KindInt, Int: n} }
func BytesValue(b []byte) Value   { return Value{Kind: KindBytes, Bytes: b} }
func StrValue(s string) Value     { return Value{Kind: KindStr, Str: s} }

// Expression is a node in the lazy evaluation tree. Every variant
// implements Evaluate; most also carry an Origin for error reporting.
type Expression interface {
	Evaluate() (Value, error)
}

// literal wraps a Value that is already known.
type literal struct{ v Value }

func Literal(v Value) Expression           { return literal{v} }
func (l literal) Evaluate() (Value, error) { return l.v, nil }

// WordScaled multiplies an inner integer expression by a memory format's
// word size. Used for the assembly source's "10w" ("10 words") syntax.
type WordScaled struct {
	Inner  Expression
	Format *memfmt.Format
}

func (w WordScaled) Evaluate() (Value, error) {
	v, err := w.Inner.Evaluate()
	if err != nil {
		return Value{}, err
	}
	if v.Kind != KindInt {
		return Value{}, asmerr.Expressionf(origin.Unknown, "word-scaled expression must be an integer")
	}
	return IntValue(v.Int * int64(w.Format.WordSize)), nil
}

// Namespace maps a name to the Expression (typically a *Label) that
// defines it. Keys are unique within one program; a second definition of
// the same name is a parser-level NameConflict, not a Namespace concern.
type Namespace map[string]Expression

// Variable looks up name in a Namespace at evaluation time, so a
// variable may reference a name defined later in the source.
type Variable struct {
	Name      string
	Namespace Namespace
	Origin    origin.Origin

	guard bool
}

func (v *Variable) Evaluate() (Value, error) {
	if v.guard {
		return Value{}, asmerr.CyclicDependencyf(v.Origin, "%s depends on itself", v.Name)
	}
	v.guard = true
	defer func() { v.guard = false }()

	target, ok := v.Namespace[v.Name]
	if !ok {
		return Value{}, asmerr.Expressionf(v.Origin, "undefined name %q", v.Name)
	}
	return target.Evaluate()
}

// SizedSection is the slice of directive.Section that Label needs: the
// number of directives declared so far and the cumulative size of the
// first n of them. Keeping this as a small interface (rather than
// importing internal/directive directly) avoids a dependency cycle,
// since directive.Section holds Expression values.
type SizedSection interface {
	DirectiveCount() int
	SizeUpTo(n int) (int64, error)
}

// Label is a named position within a section: the sum of the sizes of
// the directives preceding it. Resolution is memoised on first success
// and guarded against self-reference the same way Variable is.
type Label struct {
	Name    string
	Section SizedSection
	Index   int
	Origin  origin.Origin

	guard    bool
	resolved bool
	value    int64
}

func (l *Label) Evaluate() (Value, error) {
	if l.resolved {
		return IntValue(l.value), nil
	}
	if l.guard {
		return Value{}, asmerr.CyclicDependencyf(l.Origin, "label %q depends on itself", l.Name)
	}
	l.guard = true
	defer func() { l.guard = false }()

	sum, err := l.Section.SizeUpTo(l.Index)
	if err != nil {
		if asmerr.IsExpressionFamily(err) {
			return Value{}, asmerr.Labelf(l.Origin, err, "label %q did not have a concrete address", l.Name)
		}
		return Value{}, err
	}
	l.value = sum
	l.resolved = true
	return IntValue(l.value), nil
}

// Operation applies an n-ary function to the evaluated values of its
// dependencies, e.g. the `+` in `a + b`.
type Operation struct {
	Name   string
	Fn     func(args []Value) (Value, error)
	Deps   []Expression
	Origin origin.Origin
}

func (o Operation) Evaluate() (Value, error) {
	args := make([]Value, len(o.Deps))
	for i, d := range o.Deps {
		v, err := d.Evaluate()
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	v, err := o.Fn(args)
	if err != nil {
		if asmerr.IsExpressionFamily(err) {
			return Value{}, err
		}
		return Value{}, asmerr.Evaluationf(o.Origin, err, "%s: %v", o.Name, err)
	}
	return v, nil
}

// Tagged wraps an inner expression's evaluated value with a string tag,
// used for instruction operands so the VM can recover whether an operand
// was written as an immediate, a state reference, or a const reference.
type Tagged struct {
	Tag   string
	Inner Expression
}

type TaggedValue struct {
	Tag   string
	Value Value
}

func (t Tagged) Evaluate() (TaggedValue, error) {
	v, err := t.Inner.Evaluate()
	if err != nil {
		return TaggedValue{}, err
	}
	return TaggedValue{Tag: t.Tag, Value: v}, nil
}
