package asm

import (
	"github.com/gmofishsauce/sphinx/internal/asmerr"
	"github.com/gmofishsauce/sphinx/internal/directive"
	"github.com/gmofishsauce/sphinx/internal/expr"
	"github.com/gmofishsauce/sphinx/internal/memfmt"
)

// argShape describes the argument list a given instruction mnemonic
// expects, mirroring original_source/spasm/parser.py's instr_table.
type argShape int

const (
	shapeNone        argShape = iota // halt
	shapeOne                         // j, yield, sleep: :inst_arg:
	shapeTwo                         // hXX, sws, sbs: :inst_arg:,:inst_arg:
	shapeDstOne                      // mov, lws, lwc, lbs, lbc: [:expr:],:inst_arg:
	shapeDstTwo                      // add, sub, ..., lwso, ...: [:expr:],:inst_arg:,:inst_arg:
	shapeThree                       // swso, sbso: :inst_arg:,:inst_arg:,:inst_arg:
	shapeIdent                       // flag: :ident:
)

// instrShapes matches, per mnemonic, the argument shape from the
// instruction semantics table in the specification. The hXX family
// includes every signed/unsigned pair internal/vm dispatches, including
// hequ/hneu (redundant with heq/hne, but harmless to accept).
var instrShapes = map[string]argShape{
	"halt": shapeNone,

	"j": shapeOne, "yield": shapeOne, "sleep": shapeOne,

	"heq": shapeTwo, "hne": shapeTwo, "hlt": shapeTwo, "hle": shapeTwo, "hgt": shapeTwo, "hge": shapeTwo,
	"hequ": shapeTwo, "hneu": shapeTwo, "hltu": shapeTwo, "hleu": shapeTwo, "hgtu": shapeTwo, "hgeu": shapeTwo,
	"sws": shapeTwo, "sbs": shapeTwo,

	"mov": shapeDstOne, "lws": shapeDstOne, "lwc": shapeDstOne, "lbs": shapeDstOne, "lbc": shapeDstOne,

	"add": shapeDstTwo, "sub": shapeDstTwo, "mul": shapeDstTwo, "div": shapeDstTwo, "mod": shapeDstTwo,
	"and": shapeDstTwo, "or": shapeDstTwo, "xor": shapeDstTwo, "asl": shapeDstTwo, "asr": shapeDstTwo,
	"lwso": shapeDstTwo, "lwco": shapeDstTwo, "lbso": shapeDstTwo, "lbco": shapeDstTwo,

	"swso": shapeThree, "sbso": shapeThree,

	"flag": shapeIdent,
}

// parseInstrArg reads one `:inst_arg:` slot: `[expr]` (state), `{expr}`
// (const), or a bare expression (immediate).
func (s *Scanner) parseInstrArg(ns expr.Namespace, mf *memfmt.Format) (expr.Tagged, error) {
	s.skipIgnore()
	switch {
	case s.ReadString("["):
		e, err := s.ParseExpression(ns, mf)
		if err != nil {
			return expr.Tagged{}, err
		}
		s.skipIgnore()
		if !s.ReadString("]") {
			return expr.Tagged{}, asmerr.Unhelpful(s.Origin())
		}
		return expr.Tagged{Tag: "sv", Inner: e}, nil
	case s.ReadString("{"):
		e, err := s.ParseExpression(ns, mf)
		if err != nil {
			return expr.Tagged{}, err
		}
		s.skipIgnore()
		if !s.ReadString("}") {
			return expr.Tagged{}, asmerr.Unhelpful(s.Origin())
		}
		return expr.Tagged{Tag: "cv", Inner: e}, nil
	default:
		e, err := s.ParseExpression(ns, mf)
		if err != nil {
			return expr.Tagged{}, err
		}
		return expr.Tagged{Tag: "im", Inner: e}, nil
	}
}

// parseDstArg reads a bracketed `[expr]` destination address, which
// (unlike an :inst_arg:) is always a plain expression, never sv/cv
// tagged, because it's a state offset rather than a value.
func (s *Scanner) parseDstArg(ns expr.Namespace, mf *memfmt.Format) (expr.Expression, error) {
	s.skipIgnore()
	if !s.ReadString("[") {
		return nil, asmerr.Unhelpful(s.Origin())
	}
	e, err := s.ParseExpression(ns, mf)
	if err != nil {
		return nil, err
	}
	s.skipIgnore()
	if !s.ReadString("]") {
		return nil, asmerr.Unhelpful(s.Origin())
	}
	return e, nil
}

func (s *Scanner) expectComma() error {
	s.skipIgnore()
	if !s.ReadString(",") {
		return asmerr.Syntaxf(s.Origin(), "expected ','")
	}
	return nil
}

// ParseInstruction reads an opcode name and its arguments, producing a
// directive.Instruction ready to be appended to the code section.
func (s *Scanner) ParseInstruction(ns expr.Namespace, mf *memfmt.Format) (directive.Instruction, error) {
	o := s.Origin()
	name, ok := s.ReadDirecIdent()
	if !ok {
		return directive.Instruction{}, asmerr.Unhelpful(o)
	}

	shape, ok := instrShapes[name]
	if !ok {
		return directive.Instruction{}, asmerr.Syntaxf(o, "%s is not an instruction", name)
	}

	var args []expr.Tagged

	switch shape {
	case shapeNone:
		// no operands

	case shapeOne:
		if err := s.ExpectSpace(); err != nil {
			return directive.Instruction{}, err
		}
		a, err := s.parseInstrArg(ns, mf)
		if err != nil {
			return directive.Instruction{}, err
		}
		args = []expr.Tagged{a}

	case shapeTwo:
		if err := s.ExpectSpace(); err != nil {
			return directive.Instruction{}, err
		}
		a, err := s.parseInstrArg(ns, mf)
		if err != nil {
			return directive.Instruction{}, err
		}
		if err := s.expectComma(); err != nil {
			return directive.Instruction{}, err
		}
		b, err := s.parseInstrArg(ns, mf)
		if err != nil {
			return directive.Instruction{}, err
		}
		args = []expr.Tagged{a, b}

	case shapeThree:
		if err := s.ExpectSpace(); err != nil {
			return directive.Instruction{}, err
		}
		a, err := s.parseInstrArg(ns, mf)
		if err != nil {
			return directive.Instruction{}, err
		}
		if err := s.expectComma(); err != nil {
			return directive.Instruction{}, err
		}
		b, err := s.parseInstrArg(ns, mf)
		if err != nil {
			return directive.Instruction{}, err
		}
		if err := s.expectComma(); err != nil {
			return directive.Instruction{}, err
		}
		c, err := s.parseInstrArg(ns, mf)
		if err != nil {
			return directive.Instruction{}, err
		}
		args = []expr.Tagged{a, b, c}

	case shapeDstOne:
		if err := s.ExpectSpace(); err != nil {
			return directive.Instruction{}, err
		}
		dst, err := s.parseDstArg(ns, mf)
		if err != nil {
			return directive.Instruction{}, err
		}
		if err := s.expectComma(); err != nil {
			return directive.Instruction{}, err
		}
		v, err := s.parseInstrArg(ns, mf)
		if err != nil {
			return directive.Instruction{}, err
		}
		args = []expr.Tagged{{Tag: "im", Inner: dst}, v}

	case shapeDstTwo:
		if err := s.ExpectSpace(); err != nil {
			return directive.Instruction{}, err
		}
		dst, err := s.parseDstArg(ns, mf)
		if err != nil {
			return directive.Instruction{}, err
		}
		if err := s.expectComma(); err != nil {
			return directive.Instruction{}, err
		}
		a, err := s.parseInstrArg(ns, mf)
		if err != nil {
			return directive.Instruction{}, err
		}
		if err := s.expectComma(); err != nil {
			return directive.Instruction{}, err
		}
		b, err := s.parseInstrArg(ns, mf)
		if err != nil {
			return directive.Instruction{}, err
		}
		args = []expr.Tagged{{Tag: "im", Inner: dst}, a, b}

	case shapeIdent:
		if err := s.ExpectSpace(); err != nil {
			return directive.Instruction{}, err
		}
		ident, ok := s.ReadIdent()
		if !ok {
			return directive.Instruction{}, asmerr.Syntaxf(s.Origin(), "expected identifier")
		}
		args = []expr.Tagged{{Tag: "ident", Inner: expr.Literal(expr.StrValue(ident))}}
	}

	if !s.IsEnd() {
		return directive.Instruction{}, asmerr.Syntaxf(s.Origin(), "too many arguments")
	}

	return directive.Instruction{Name: name, Args: args, Org: o}, nil
}
