package vm

import (
	"fmt"

	"github.com/gmofishsauce/sphinx/internal/memfmt"
)

// Program is the assembled, directly executable form: a shared
// instruction table and const buffer plus an owned, mutable state
// buffer and program counter.
type Program struct {
	Format *memfmt.Format
	Code   CodeTable
	Const  []byte
	State  []byte
	PC     int
}

// New constructs a Program at pc 0.
func New(mf *memfmt.Format, code CodeTable, constBuf, state []byte) *Program {
	return &Program{Format: mf, Code: code, Const: constBuf, State: state}
}

// resolveBytes, signed, and unsigned read a ValueSpec as bytes, signed, or unsigned, matching
// Program.read_spec's three accessor methods.
func (p *Program) resolveBytes(v ValueSpec) ([]byte, error) {
	switch v.Tag {
	case Immediate:
		return p.Format.IntBytes(v.Value), nil
	case ConstRef:
		return p.Format.ReadWord(p.Const, int(v.Value))
	case StateRef:
		return p.Format.ReadWord(p.State, int(v.Value))
	default:
		return nil, fmt.Errorf("vm: invalid value specifier %v", v)
	}
}

func (p *Program) signed(v ValueSpec) (int64, error) {
	if v.Tag == Immediate {
		return v.Value, nil
	}
	b, err := p.resolveBytes(v)
	if err != nil {
		return 0, err
	}
	return p.Format.DecodeSigned(b), nil
}

func (p *Program) unsigned(v ValueSpec) (uint64, error) {
	if v.Tag == Immediate {
		return uint64(v.Value), nil
	}
	b, err := p.resolveBytes(v)
	if err != nil {
		return 0, err
	}
	return p.Format.DecodeUnsigned(b), nil
}

// shiftAmount reduces a shift count modulo word_size*8+1, per §6's
// instruction semantics for asl/asr.
func (p *Program) shiftAmount(v ValueSpec) (uint, error) {
	s, err := p.signed(v)
	if err != nil {
		return 0, err
	}
	m := int64(p.Format.WordSize)*8 + 1
	return uint(floorMod(s, m)), nil
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func binArgs(p *Program, left, right ValueSpec) (int64, int64, error) {
	l, err := p.signed(left)
	if err != nil {
		return 0, 0, err
	}
	r, err := p.signed(right)
	if err != nil {
		return 0, 0, err
	}
	return l, r, nil
}

// condition evaluates a conditional-halt's two operands per its
// mnemonic's comparison, signed unless the mnemonic carries a trailing
// "u".
func (p *Program) condition(op string, left, right ValueSpec) (bool, error) {
	unsigned := len(op) > 0 && op[len(op)-1] == 'u'
	base := op
	if unsigned {
		base = op[:len(op)-1]
	}
	if unsigned {
		l, err := p.unsigned(left)
		if err != nil {
			return false, err
		}
		r, err := p.unsigned(right)
		if err != nil {
			return false, err
		}
		return compareUnsigned(base, l, r), nil
	}
	l, r, err := binArgs(p, left, right)
	if err != nil {
		return false, err
	}
	return compareSigned(base, l, r), nil
}

func compareSigned(base string, l, r int64) bool {
	switch base {
	case "heq":
		return l == r
	case "hne":
		return l != r
	case "hlt":
		return l < r
	case "hle":
		return l <= r
	case "hgt":
		return l > r
	case "hge":
		return l >= r
	default:
		return false
	}
}

func compareUnsigned(base string, l, r uint64) bool {
	switch base {
	case "heq":
		return l == r
	case "hne":
		return l != r
	case "hlt":
		return l < r
	case "hle":
		return l <= r
	case "hgt":
		return l > r
	case "hge":
		return l >= r
	default:
		return false
	}
}

var conditionalHalts = map[string]bool{
	"heq": true, "hne": true, "hlt": true, "hle": true, "hgt": true, "hge": true,
	"hequ": true, "hneu": true, "hltu": true, "hleu": true, "hgtu": true, "hgeu": true,
}

// Exec executes the instruction at PC, calling ctx.BeforeExec first, and
// returns the Step describing how PC should move next. PC is not
// advanced here; callers (Run / RunUntilBranch / the cycle oracle)
// decide what to do with the Step.
func (p *Program) Exec(ctx Context) (Step, error) {
	ctx.BeforeExec(p)
	in := p.Code.Get(p.PC)

	if conditionalHalts[in.Op] {
		cond, err := p.condition(in.Op, in.Args[0], in.Args[1])
		if err != nil {
			return Step{}, err
		}
		if cond {
			return Step{Kind: StepHalt}, nil
		}
		return Step{Kind: StepBranch, Next: p.PC + 1, Jump: haltSentinel}, nil
	}

	switch in.Op {
	case "halt":
		return Step{Kind: StepHalt}, nil

	case "j":
		target, err := p.signed(in.Args[0])
		if err != nil {
			return Step{}, err
		}
		return Step{Kind: StepBranch, Next: p.PC + 1, Jump: int(target)}, nil

	case "yield":
		b, err := p.resolveBytes(in.Args[0])
		if err != nil {
			return Step{}, err
		}
		ctx.Output(b)

	case "sleep":
		ms, err := p.unsigned(in.Args[0])
		if err != nil {
			return Step{}, err
		}
		ctx.Sleep(int64(ms))

	case "flag":
		ctx.OnFlag(p, in.Flag)

	case "add", "sub", "mul", "and", "or", "xor":
		l, r, err := binArgs(p, in.Args[1], in.Args[2])
		if err != nil {
			return Step{}, err
		}
		var v int64
		switch in.Op {
		case "add":
			v = l + r
		case "sub":
			v = l - r
		case "mul":
			v = l * r
		case "and":
			v = l & r
		case "or":
			v = l | r
		case "xor":
			v = l ^ r
		}
		if err := p.Format.WriteInt(p.State, int(in.Args[0].Value), v); err != nil {
			return Step{}, err
		}

	case "div", "mod":
		l, r, err := binArgs(p, in.Args[1], in.Args[2])
		if err != nil {
			return Step{}, err
		}
		if r != 0 {
			var v int64
			if in.Op == "div" {
				v = floorDiv(l, r)
			} else {
				v = floorMod(l, r)
			}
			if err := p.Format.WriteInt(p.State, int(in.Args[0].Value), v); err != nil {
				return Step{}, err
			}
		}

	case "asl", "asr":
		l, err := p.signed(in.Args[1])
		if err != nil {
			return Step{}, err
		}
		shift, err := p.shiftAmount(in.Args[2])
		if err != nil {
			return Step{}, err
		}
		var v int64
		if in.Op == "asl" {
			v = l << shift
		} else {
			v = l >> shift
		}
		if err := p.Format.WriteInt(p.State, int(in.Args[0].Value), v); err != nil {
			return Step{}, err
		}

	case "mov":
		b, err := p.resolveBytes(in.Args[1])
		if err != nil {
			return Step{}, err
		}
		if err := p.Format.WriteWord(p.State, int(in.Args[0].Value), b); err != nil {
			return Step{}, err
		}

	case "lws", "lwc":
		buf := p.State
		if in.Op == "lwc" {
			buf = p.Const
		}
		addr, err := p.unsigned(in.Args[1])
		if err != nil {
			return Step{}, err
		}
		word, err := p.Format.ReadWord(buf, int(addr))
		if err != nil {
			return Step{}, err
		}
		if err := p.Format.WriteWord(p.State, int(in.Args[0].Value), word); err != nil {
			return Step{}, err
		}

	case "lbs", "lbc":
		buf := p.State
		if in.Op == "lbc" {
			buf = p.Const
		}
		addr, err := p.unsigned(in.Args[1])
		if err != nil {
			return Step{}, err
		}
		b, err := p.Format.ReadByte(buf, int(addr))
		if err != nil {
			return Step{}, err
		}
		if err := p.Format.WriteInt(p.State, int(in.Args[0].Value), int64(b)); err != nil {
			return Step{}, err
		}

	case "lwso", "lwco":
		buf := p.State
		if in.Op == "lwco" {
			buf = p.Const
		}
		base, err := p.unsigned(in.Args[1])
		if err != nil {
			return Step{}, err
		}
		off, err := p.signed(in.Args[2])
		if err != nil {
			return Step{}, err
		}
		word, err := p.Format.ReadWord(buf, int(base)+int(off))
		if err != nil {
			return Step{}, err
		}
		if err := p.Format.WriteWord(p.State, int(in.Args[0].Value), word); err != nil {
			return Step{}, err
		}

	case "lbso", "lbco":
		buf := p.State
		if in.Op == "lbco" {
			buf = p.Const
		}
		base, err := p.unsigned(in.Args[1])
		if err != nil {
			return Step{}, err
		}
		off, err := p.signed(in.Args[2])
		if err != nil {
			return Step{}, err
		}
		b, err := p.Format.ReadByte(buf, int(base)+int(off))
		if err != nil {
			return Step{}, err
		}
		if err := p.Format.WriteInt(p.State, int(in.Args[0].Value), int64(b)); err != nil {
			return Step{}, err
		}

	case "sws", "sbs":
		addr, err := p.unsigned(in.Args[0])
		if err != nil {
			return Step{}, err
		}
		v, err := p.signed(in.Args[1])
		if err != nil {
			return Step{}, err
		}
		if in.Op == "sws" {
			err = p.Format.WriteInt(p.State, int(addr), v)
		} else {
			err = p.Format.WriteByte(p.State, int(addr), v)
		}
		if err != nil {
			return Step{}, err
		}

	case "swso", "sbso":
		base, err := p.unsigned(in.Args[0])
		if err != nil {
			return Step{}, err
		}
		off, err := p.signed(in.Args[1])
		if err != nil {
			return Step{}, err
		}
		v, err := p.signed(in.Args[2])
		if err != nil {
			return Step{}, err
		}
		addr := int(base) + int(off)
		if in.Op == "swso" {
			err = p.Format.WriteInt(p.State, addr, v)
		} else {
			err = p.Format.WriteByte(p.State, addr, v)
		}
		if err != nil {
			return Step{}, err
		}

	default:
		return Step{}, fmt.Errorf("vm: unimplemented instruction %q", in.Op)
	}

	return Step{Kind: StepNext, Next: p.PC + 1}, nil
}

// RunUntilBranch executes instructions until one returns other than
// StepNext, returning that Step (or an error).
func (p *Program) RunUntilBranch(ctx Context) (Step, error) {
	for {
		step, err := p.Exec(ctx)
		if err != nil {
			return Step{}, err
		}
		if step.Kind != StepNext {
			return step, nil
		}
		p.PC = step.Next
	}
}

// Save encodes (pc, state) as a byte string, packing pc into the
// minimum number of signed bytes it needs. Used as a hash key for
// visited states during cycle search.
func (p *Program) Save() []byte {
	n := memfmt.SignedBytesNeeded(int64(p.PC))
	out := make([]byte, n+len(p.State))
	v := p.PC
	for i := 0; i < n; i++ {
		out[i] = byte(v)
		v >>= 8
	}
	copy(out[n:], p.State)
	return out
}

// Restore is the inverse of Save.
func (p *Program) Restore(sb []byte) {
	n := len(sb) - len(p.State)
	var v int64
	for i := n - 1; i >= 0; i-- {
		v = (v << 8) | int64(sb[i])
	}
	// Sign-extend from n bytes.
	shift := uint(64 - 8*n)
	v = (v << shift) >> shift
	p.PC = int(v)
	copy(p.State, sb[n:])
}

// Fork returns a new Program with an independently-owned copy of state;
// Const and Code are shared, read-only.
func (p *Program) Fork() *Program {
	state := make([]byte, len(p.State))
	copy(state, p.State)
	return &Program{Format: p.Format, Code: p.Code, Const: p.Const, State: state, PC: p.PC}
}

// Jump returns a shallow alias of p at a different PC: state is shared,
// not copied. Used to build a save-key at a hypothetical address
// without the cost of a full Fork.
func (p *Program) Jump(pc int) *Program {
	return &Program{Format: p.Format, Code: p.Code, Const: p.Const, State: p.State, PC: pc}
}
