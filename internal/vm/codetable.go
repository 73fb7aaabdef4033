// Package vm implements the bytecode program model: the code table,
// value specifiers, per-instruction execution semantics, and the
// cycle-aware branch oracle (find_cycle) that lets provably halt-free
// loops terminate deterministically without ever running them for real.
package vm

import "strconv"

// SpecTag selects how a ValueSpec's Value is interpreted: a literal, a
// state-memory address, or a const-memory address.
type SpecTag int

const (
	Immediate SpecTag = iota
	StateRef
	ConstRef
)

func (t SpecTag) String() string {
	switch t {
	case Immediate:
		return "im"
	case StateRef:
		return "sv"
	case ConstRef:
		return "cv"
	default:
		return "?"
	}
}

// ValueSpec is a resolved instruction operand: a tagged variant over
// immediate/state/const, matching §3's "instruction argument" entity.
type ValueSpec struct {
	Tag   SpecTag
	Value int64
}

func Im(v int64) ValueSpec { return ValueSpec{Tag: Immediate, Value: v} }
func Sv(v int64) ValueSpec { return ValueSpec{Tag: StateRef, Value: v} }
func Cv(v int64) ValueSpec { return ValueSpec{Tag: ConstRef, Value: v} }

// Instr is one code-table slot: an opcode name and its resolved
// operands. Flag carries `flag ident`'s bare identifier operand, which
// unlike every other instruction's operands is not a value specifier.
type Instr struct {
	Op   string
	Args []ValueSpec
	Flag string
}

// haltInstr is what every out-of-range CodeTable access yields. A fixed
// value (not freshly allocated per call) so callers can compare by op
// name alone.
var haltInstr = Instr{Op: "halt"}

// CodeTable is the immutable, instruction-addressed sequence of decoded
// instructions produced by assembly. Indexing out of range yields an
// implicit halt — load-bearing: the cycle oracle relies on walking off
// either end of the table to terminate a speculative path.
type CodeTable struct {
	instr []Instr
}

func NewCodeTable(instr []Instr) CodeTable {
	return CodeTable{instr: instr}
}

func (c CodeTable) Len() int { return len(c.instr) }

func (c CodeTable) Get(addr int) Instr {
	if addr < 0 || addr >= len(c.instr) {
		return haltInstr
	}
	return c.instr[addr]
}

// String renders the table as readable (if not quite re-parseable)
// assembly, one instruction per line.
func (c CodeTable) String() string {
	var out []byte
	for _, in := range c.instr {
		out = append(out, in.Op...)
		out = append(out, ' ')
		for i, a := range in.Args {
			if i > 0 {
				out = append(out, ", "...)
			}
			out = append(out, formatArg(a)...)
		}
		out = append(out, '\n')
	}
	return string(out)
}

func formatArg(a ValueSpec) string {
	switch a.Tag {
	case StateRef:
		return "[" + strconv.FormatInt(a.Value, 10) + "]"
	case ConstRef:
		return "{" + strconv.FormatInt(a.Value, 10) + "}"
	default:
		return strconv.FormatInt(a.Value, 10)
	}
}
