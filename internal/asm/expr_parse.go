package asm

import (
	"github.com/gmofishsauce/sphinx/internal/asmerr"
	"github.com/gmofishsauce/sphinx/internal/expr"
	"github.com/gmofishsauce/sphinx/internal/memfmt"
	"github.com/gmofishsauce/sphinx/internal/origin"
)

// exprTok is either an operator/paren (Op non-empty) or an already-built
// leaf expression (Val set), produced by the expression tokenizer and
// consumed by shunt.
type exprTok struct {
	Op     string
	Val    expr.Expression
	Origin origin.Origin
}

// prec gives each binary/unary operator's precedence, low to high.
// Deliberately NOT C-like: `+`/`-` bind looser than `|`/`^`, `&` binds
// tighter than `*`/`/`, and shifts bind tighter than all of them, per the
// instruction-set's own convention.
var prec = map[string]int{
	"+": 0, "-": 0,
	"|": 1, "^": 1,
	"*": 2, "/": 2,
	"&": 3,
	"<<": 4, ">>": 4,
	"u+": 5, "u-": 5, "u~": 5,
}

// readNumberLiteral reads a numeric or character literal, optionally
// followed by a `w` (word-scaled) suffix. Returns nil, nil if the
// scanner isn't positioned at one.
func (s *Scanner) readNumberLiteral(mf *memfmt.Format) (expr.Expression, error) {
	save := s.pos
	switch {
	case s.ReadString("0x"):
		digits := s.readWhile(func(b byte) bool { return isHexDigit(b) || b == '_' })
		if digits == "" {
			s.pos = save
			return nil, nil
		}
		return s.wordScaled(parseRadix(digits, 16), mf), nil
	case s.ReadString("0o"):
		digits := s.readWhile(func(b byte) bool { return isOctDigit(b) || b == '_' })
		if digits == "" {
			s.pos = save
			return nil, nil
		}
		return s.wordScaled(parseRadix(digits, 8), mf), nil
	case s.ReadString("0b"):
		digits := s.readWhile(func(b byte) bool { return isBinDigit(b) || b == '_' })
		if digits == "" {
			s.pos = save
			return nil, nil
		}
		return s.wordScaled(parseRadix(digits, 2), mf), nil
	}

	if s.pos < len(s.src) && isDigit(s.src[s.pos]) {
		digits := s.readWhile(func(b byte) bool { return isDigit(b) || b == '_' })
		return s.wordScaled(parseRadix(digits, 10), mf), nil
	}

	if s.pos < len(s.src) && s.src[s.pos] == '\'' {
		if s.pos+2 < len(s.src) && s.src[s.pos+1] != '\\' && s.src[s.pos+2] == '\'' {
			v := int64(s.src[s.pos+1])
			s.pos += 3
			return expr.Literal(expr.IntValue(v)), nil
		}
		if s.pos+1 < len(s.src) && s.src[s.pos+1] == '\\' {
			s.pos += 2
			code, err := s.readEscapeCode()
			if err != nil {
				return nil, err
			}
			s.ReadString("'")
			return expr.Literal(expr.IntValue(int64(code))), nil
		}
	}

	return nil, nil
}

func (s *Scanner) wordScaled(v int64, mf *memfmt.Format) expr.Expression {
	lit := expr.Literal(expr.IntValue(v))
	if mf == nil {
		return lit
	}
	if s.ReadString("w") {
		return expr.WordScaled{Inner: lit, Format: mf}
	}
	return lit
}

// parseRadix parses digits (possibly containing `_` separators) in the
// given base. Malformed input (which the caller's character classes
// should prevent) yields 0.
func parseRadix(digits string, base int64) int64 {
	var v int64
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c == '_' {
			continue
		}
		var d int64
		switch {
		case isDigit(c):
			d = int64(c - '0')
		case c >= 'a' && c <= 'f':
			d = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int64(c-'A') + 10
		}
		v = v*base + d
	}
	return v
}

var exprOps = []string{">>", "<<", "(", ")", "+", "-", "*", "/", "&", "|", "^", "~"}

func (s *Scanner) readOp() string {
	for _, op := range exprOps {
		if s.ReadString(op) {
			return op
		}
	}
	return ""
}

// readExpressionTokens tokenizes a run of expression syntax: operators,
// parens, identifiers (resolved against ns), and numeric literals.
func (s *Scanner) readExpressionTokens(ns expr.Namespace, mf *memfmt.Format) ([]exprTok, error) {
	var toks []exprTok
	for s.More() {
		s.skipIgnore()
		matchedAny := false

		if op := s.readOp(); op != "" {
			toks = append(toks, exprTok{Op: op, Origin: s.Origin()})
			matchedAny = true
		}

		prefixed := s.ReadString("$")
		if ident, ok := s.ReadIdent(); ok {
			name := ident
			if prefixed {
				name = "$" + ident
			}
			o := s.Origin()
			toks = append(toks, exprTok{Val: &expr.Variable{Name: name, Namespace: ns, Origin: o}, Origin: o})
			matchedAny = true
		} else if prefixed {
			return nil, asmerr.Syntaxf(s.Origin(), "expected identifier after '$'")
		}

		o := s.Origin()
		lit, err := s.readNumberLiteral(mf)
		if err != nil {
			return nil, err
		}
		if lit != nil {
			toks = append(toks, exprTok{Val: lit, Origin: o})
			matchedAny = true
		}

		if !matchedAny {
			break
		}
	}
	return toks, nil
}

// shunt runs the shunting-yard algorithm over tokens, producing a single
// expression tree. `+`, `-`, and `~` are reinterpreted as their unary
// forms whenever they don't follow a completed sub-expression.
func shunt(tokens []exprTok) (expr.Expression, error) {
	var rpn []expr.Expression
	var ops []exprTok
	exprPrev := false

	push := func(top exprTok) error {
		if len(top.Op) > 0 && top.Op[0] == 'u' {
			if len(rpn) < 1 {
				return asmerr.Unhelpful(top.Origin)
			}
			arg := rpn[len(rpn)-1]
			rpn = rpn[:len(rpn)-1]
			rpn = append(rpn, expr.UnaryOp(top.Op[1:], arg, top.Origin))
			return nil
		}
		if len(rpn) < 2 {
			return asmerr.Unhelpful(top.Origin)
		}
		right := rpn[len(rpn)-1]
		left := rpn[len(rpn)-2]
		rpn = rpn[:len(rpn)-2]
		rpn = append(rpn, expr.BinaryOp(top.Op, left, right, top.Origin))
		return nil
	}

	for _, t := range tokens {
		tok := t.Op
		if tok != "" && !exprPrev {
			switch tok {
			case "+":
				tok = "u+"
			case "-":
				tok = "u-"
			case "~":
				tok = "u~"
			}
		}

		switch {
		case tok == "(":
			ops = append(ops, exprTok{Op: tok, Origin: t.Origin})
			exprPrev = false
			continue
		case tok == ")":
			found := false
			for len(ops) > 0 {
				top := ops[len(ops)-1]
				ops = ops[:len(ops)-1]
				if top.Op == "(" {
					found = true
					break
				}
				if err := push(top); err != nil {
					return nil, err
				}
			}
			if !found {
				return nil, asmerr.Syntaxf(t.Origin, "no matching opening parenthesis")
			}
			exprPrev = true
			continue
		case tok != "":
			for len(ops) > 0 && ops[len(ops)-1].Op != "(" {
				topPrec := prec[ops[len(ops)-1].Op]
				curPrec := prec[tok]
				if topPrec < curPrec {
					break
				}
				if len(ops[len(ops)-1].Op) > 0 && ops[len(ops)-1].Op[0] == 'u' && tok[0] == 'u' {
					break
				}
				top := ops[len(ops)-1]
				ops = ops[:len(ops)-1]
				if err := push(top); err != nil {
					return nil, err
				}
			}
			ops = append(ops, exprTok{Op: tok, Origin: t.Origin})
			exprPrev = false
			continue
		default:
			rpn = append(rpn, t.Val)
			exprPrev = true
			continue
		}
	}

	for len(ops) > 0 {
		top := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		if err := push(top); err != nil {
			return nil, err
		}
	}

	if len(rpn) == 0 {
		return nil, asmerr.Unhelpful(origin.Unknown)
	}
	result := rpn[len(rpn)-1]
	if len(rpn) > 1 {
		return nil, asmerr.Unhelpful(tokens[len(tokens)-1].Origin)
	}
	return result, nil
}

// ParseExpression reads and shunts one expression, failing if none is
// present.
func (s *Scanner) ParseExpression(ns expr.Namespace, mf *memfmt.Format) (expr.Expression, error) {
	toks, err := s.readExpressionTokens(ns, mf)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, asmerr.Syntaxf(s.Origin(), "expected expression")
	}
	return shunt(toks)
}

// ParseMultiExpr reads a comma-separated list of expressions, used by
// `.word` and `.byte`.
func (s *Scanner) ParseMultiExpr(ns expr.Namespace, mf *memfmt.Format) ([]expr.Expression, error) {
	var out []expr.Expression
	for s.More() {
		e, err := s.ParseExpression(ns, mf)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		s.skipIgnore()
		if !s.ReadString(",") {
			break
		}
	}
	return out, nil
}
