// Package directive models the assembled-size-known placeholders a
// source line produces: fixed-content byte runs, fill regions, and
// instruction tuples. A Section is the ordered sequence of these that
// backs label address resolution.
package directive

import (
	"github.com/gmofishsauce/sphinx/internal/asmerr"
	"github.com/gmofishsauce/sphinx/internal/expr"
	"github.com/gmofishsauce/sphinx/internal/memfmt"
	"github.com/gmofishsauce/sphinx/internal/origin"
)

// Directive is a single source-level emission. Size is computable
// without fully evaluating content (it may still trigger label
// resolution recursively, e.g. a Fill's length expression).
type Directive interface {
	Size() (int64, error)
	Origin() origin.Origin
}

// Fill emits `count` copies of a filler byte value.
type Fill struct {
	FillExpr   expr.Expression
	LengthExpr expr.Expression
	Org        origin.Origin
}

func (f Fill) Origin() origin.Origin { return f.Org }

func (f Fill) Size() (int64, error) {
	v, err := f.LengthExpr.Evaluate()
	if err != nil {
		return 0, err
	}
	if v.Kind != expr.KindInt || v.Int < 0 {
		return 0, asmerr.Expressionf(f.Org, ".fill length must be a non-negative integer")
	}
	return v.Int, nil
}

// Bytes resolves the filler and length, returning the actual byte run.
func (f Fill) Bytes() ([]byte, error) {
	length, err := f.Size()
	if err != nil {
		return nil, err
	}
	fv, err := f.FillExpr.Evaluate()
	if err != nil {
		return nil, err
	}
	if fv.Kind != expr.KindInt {
		return nil, asmerr.Expressionf(f.Org, ".fill value must be an integer")
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = byte(fv.Int)
	}
	return out, nil
}

// Ascii emits a fixed byte string as-is (`.ascii`), NUL-terminated
// (`.asciiz`), or word-length-prefixed (`.asciip`).
type Ascii struct {
	Content  []byte
	Mode     AsciiMode
	Format   *memfmt.Format
	Org      origin.Origin
}

type AsciiMode int

const (
	AsciiPlain AsciiMode = iota
	AsciiZ
	AsciiP
)

func (a Ascii) Origin() origin.Origin { return a.Org }

func (a Ascii) Size() (int64, error) {
	switch a.Mode {
	case AsciiZ:
		return int64(len(a.Content)) + 1, nil
	case AsciiP:
		// One word length prefix, per original_source/spasm/parser.py's
		// add_data_direc: always a full word, never a byte, regardless
		// of string length.
		return int64(len(a.Content)) + int64(a.Format.WordSize), nil
	default:
		return int64(len(a.Content)), nil
	}
}

// Bytes materialises the directive's content according to Mode.
func (a Ascii) Bytes() ([]byte, error) {
	switch a.Mode {
	case AsciiZ:
		out := make([]byte, len(a.Content)+1)
		copy(out, a.Content)
		return out, nil
	case AsciiP:
		prefix := a.Format.IntBytes(int64(len(a.Content)))
		out := make([]byte, 0, len(prefix)+len(a.Content))
		out = append(out, prefix...)
		out = append(out, a.Content...)
		return out, nil
	default:
		return append([]byte(nil), a.Content...), nil
	}
}

// Word emits one word per expression.
type Word struct {
	Exprs  []expr.Expression
	Format *memfmt.Format
	Org    origin.Origin
}

func (w Word) Origin() origin.Origin { return w.Org }
func (w Word) Size() (int64, error)  { return int64(len(w.Exprs)) * int64(w.Format.WordSize), nil }

func (w Word) Bytes() ([]byte, error) {
	out := make([]byte, 0, len(w.Exprs)*w.Format.WordSize)
	for _, e := range w.Exprs {
		v, err := e.Evaluate()
		if err != nil {
			return nil, err
		}
		if v.Kind != expr.KindInt {
			return nil, asmerr.Expressionf(w.Org, ".word operand must be an integer")
		}
		out = append(out, w.Format.IntBytes(v.Int)...)
	}
	return out, nil
}

// Byte emits one byte per expression.
type Byte struct {
	Exprs []expr.Expression
	Org   origin.Origin
}

func (b Byte) Origin() origin.Origin { return b.Org }
func (b Byte) Size() (int64, error)  { return int64(len(b.Exprs)), nil }

func (b Byte) Bytes() ([]byte, error) {
	out := make([]byte, len(b.Exprs))
	for i, e := range b.Exprs {
		v, err := e.Evaluate()
		if err != nil {
			return nil, err
		}
		if v.Kind != expr.KindInt {
			return nil, asmerr.Expressionf(b.Org, ".byte operand must be an integer")
		}
		out[i] = byte(v.Int)
	}
	return out, nil
}

// Instruction is a single code-table slot: an opcode name plus its
// operand expressions, tagged by addressing mode (im/sv/cv). It always
// declares size 1, since code is instruction-addressed, not
// byte-addressed.
type Instruction struct {
	Name   string
	Args   []expr.Tagged
	Org    origin.Origin
}

func (i Instruction) Origin() origin.Origin { return i.Org }
func (i Instruction) Size() (int64, error)  { return 1, nil }

// Resolve evaluates every tagged operand, producing the concrete
// (tag, value) pairs the VM's CodeTable stores.
func (i Instruction) Resolve() (string, []expr.TaggedValue, error) {
	out := make([]expr.TaggedValue, len(i.Args))
	for idx, a := range i.Args {
		tv, err := a.Evaluate()
		if err != nil {
			return "", nil, err
		}
		out[idx] = tv
	}
	return i.Name, out, nil
}
