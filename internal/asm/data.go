package asm

import (
	"github.com/gmofishsauce/sphinx/internal/asmerr"
	"github.com/gmofishsauce/sphinx/internal/directive"
	"github.com/gmofishsauce/sphinx/internal/expr"
	"github.com/gmofishsauce/sphinx/internal/memfmt"
	"github.com/gmofishsauce/sphinx/internal/origin"
)

// ArgSpec is one parsed `%argv` positional slot: `<name>` (min=max=1),
// `<name>...` (min=1, max=-1 meaning unbounded), `[<name>]` (min=0,
// max=1), `[<name>...]` (min=0, max=-1).
type ArgSpec struct {
	Name string
	Min  int
	Max  int // -1 means unbounded
}

// readArgvArgSpec reads one argv spec token: `<name>`, `[<name>]`,
// optionally followed by `...`.
func (s *Scanner) readArgvArgSpec() (ArgSpec, bool, error) {
	switch {
	case s.ReadString("<"):
		name, ok := s.ReadIdent()
		if !ok || !s.ReadString(">") {
			return ArgSpec{}, false, asmerr.Unhelpful(s.Origin())
		}
		spec := ArgSpec{Name: name, Min: 1, Max: 1}
		if s.ReadString("...") {
			spec.Max = -1
		}
		return spec, true, nil
	case s.ReadString("["):
		spec, ok, err := s.readArgvArgSpec()
		if err != nil {
			return ArgSpec{}, false, err
		}
		if !s.ReadString("]") {
			return ArgSpec{}, false, asmerr.Unhelpful(s.Origin())
		}
		if ok {
			spec.Min = 0
		}
		if s.ReadString("...") {
			spec.Max = -1
		}
		return spec, ok, nil
	default:
		return ArgSpec{}, false, nil
	}
}

// ProcessArgv parses a `%argv` spec string against the actual positional
// arguments. Trailing mandatory `<name>` specs bind first, from the right,
// consuming one value each starting from the end; the remaining specs are
// then matched left to right, each taking as many values as its maximum
// allows (so `<a> <b>...` with 3 args gives a=[arg1], b=[arg2,arg3]).
func ProcessArgv(s *Scanner, args []string) (map[string][]string, string, error) {
	start := s.pos
	end := s.pos
	var specs []ArgSpec

	for s.More() {
		spec, ok, err := s.readArgvArgSpec()
		if err != nil {
			return nil, "", err
		}
		if ok {
			end = s.pos
			specs = append(specs, spec)
			if s.ReadWhitespace() {
				s.skipIgnore()
				continue
			}
		}
		if !s.IsEnd() {
			return nil, "", asmerr.Unhelpful(s.Origin())
		}
	}

	usage := string(s.src[start:end])

	remaining := append([]string(nil), args...)
	tail := map[string][]string{}

	for len(specs) > 0 {
		last := specs[len(specs)-1]
		if last.Min == 1 && last.Max == 1 {
			if len(remaining) == 0 {
				return nil, usage, nil
			}
			specs = specs[:len(specs)-1]
			tail[last.Name] = append(tail[last.Name], remaining[len(remaining)-1])
			remaining = remaining[:len(remaining)-1]
			continue
		}
		break
	}

	result := map[string][]string{}
	for _, spec := range specs {
		max := spec.Max
		if max < 0 || max > len(remaining) {
			max = len(remaining)
		}
		matching := remaining[:max]
		remaining = remaining[max:]
		if len(matching) < spec.Min {
			return nil, usage, nil
		}
		result[spec.Name] = append(result[spec.Name], matching...)
	}

	for name, vals := range tail {
		result[name] = append(result[name], vals...)
	}

	if len(remaining) > 0 {
		return nil, usage, nil
	}
	return result, usage, nil
}

// parseDataDirective reads one data-section directive line (`.word`,
// `.ascii`, `.arg`, etc.) and appends the directives it produces to
// section.
func parseDataDirective(s *Scanner, ns expr.Namespace, mf *memfmt.Format, section *directive.Section, argv map[string][]string) error {
	o := s.Origin()
	name, ok := s.ReadDirecIdent()
	if !ok {
		return asmerr.Unhelpful(o)
	}

	switch name {
	case ".ascii", ".asciiz":
		if err := s.ExpectSpace(); err != nil {
			return err
		}
		lit, ok, err := s.ReadStringLiteral()
		if err != nil {
			return err
		}
		if !ok {
			return asmerr.Syntaxf(s.Origin(), "expected string literal")
		}
		if name == ".asciiz" {
			lit = append(append([]byte(nil), lit...), 0)
		}
		section.Append(directive.Ascii{Content: lit, Mode: directive.AsciiPlain, Format: mf, Org: o})

	case ".asciip":
		if err := s.ExpectSpace(); err != nil {
			return err
		}
		lit, ok, err := s.ReadStringLiteral()
		if err != nil {
			return err
		}
		if !ok {
			return asmerr.Syntaxf(s.Origin(), "expected string literal")
		}
		section.Append(directive.Ascii{Content: lit, Mode: directive.AsciiP, Format: mf, Org: o})

	case ".word":
		if err := s.ExpectSpace(); err != nil {
			return err
		}
		exprs, err := s.ParseMultiExpr(ns, mf)
		if err != nil {
			return err
		}
		section.Append(directive.Word{Exprs: exprs, Format: mf, Org: o})

	case ".byte":
		if err := s.ExpectSpace(); err != nil {
			return err
		}
		exprs, err := s.ParseMultiExpr(ns, mf)
		if err != nil {
			return err
		}
		section.Append(directive.Byte{Exprs: exprs, Org: o})

	case ".fill":
		if err := s.ExpectSpace(); err != nil {
			return err
		}
		fillExpr, err := s.ParseExpression(ns, mf)
		if err != nil {
			return err
		}
		if err := s.expectComma(); err != nil {
			return err
		}
		lengthExpr, err := s.ParseExpression(ns, mf)
		if err != nil {
			return err
		}
		section.Append(directive.Fill{FillExpr: fillExpr, LengthExpr: lengthExpr, Org: o})

	case ".zero":
		if err := s.ExpectSpace(); err != nil {
			return err
		}
		lengthExpr, err := s.ParseExpression(ns, mf)
		if err != nil {
			return err
		}
		section.Append(directive.Fill{FillExpr: expr.Literal(expr.IntValue(0)), LengthExpr: lengthExpr, Org: o})

	case ".arg":
		return parseArgDirective(s, section, mf, argv)

	default:
		return asmerr.Syntaxf(o, "%s is not a data directive", name)
	}

	if !s.IsEnd() {
		return asmerr.Unhelpful(s.Origin())
	}
	return nil
}

// parseArgDirective reads `.arg <name> <fmt>[ array]`, binding a
// previously-declared `%argv` slot to concrete directives.
func parseArgDirective(s *Scanner, section *directive.Section, mf *memfmt.Format, argv map[string][]string) error {
	if err := s.ExpectSpace(); err != nil {
		return err
	}
	varName, ok := s.ReadIdent()
	if !ok {
		return asmerr.Syntaxf(s.Origin(), "expected argument variable name")
	}
	args, ok := argv[varName]
	if !ok {
		return asmerr.Usagef("no argument variable %s", varName)
	}
	if err := s.ExpectSpace(); err != nil {
		return err
	}
	format, ok := s.ReadIdent()
	if !ok {
		return asmerr.Syntaxf(s.Origin(), "expected argument format")
	}

	o := s.Origin()
	switch format {
	case "word", "byte":
		values := make([]expr.Expression, 0, len(args))
		for _, a := range args {
			n, err := parseArgInt(a)
			if err != nil {
				return asmerr.Usagef("argument <%s> got invalid int value: %s", varName, a)
			}
			values = append(values, expr.Literal(expr.IntValue(n)))
		}
		if format == "word" {
			section.Append(directive.Word{Exprs: values, Format: mf, Org: o})
		} else {
			section.Append(directive.Byte{Exprs: values, Org: o})
		}

	case "ascii", "asciiz", "asciip":
		addArray := false
		if s.ReadWhitespace() {
			s.skipIgnore()
			addArray = s.ReadString("array")
		}

		type entry struct {
			directives []directive.Directive
		}
		var entries []entry
		if len(args) == 0 {
			entries = append(entries, entry{})
		}

		switch format {
		case "ascii":
			vals := args
			if len(vals) > 0 && !addArray {
				vals = []string{joinWithSpaces(vals)}
			}
			for _, a := range vals {
				entries = append(entries, entry{directives: []directive.Directive{
					directive.Ascii{Content: []byte(a), Mode: directive.AsciiPlain, Format: mf, Org: o},
				}})
			}
			entries = append(entries, entry{})
		case "asciiz":
			for _, a := range args {
				content := append([]byte(a), 0)
				entries = append(entries, entry{directives: []directive.Directive{
					directive.Ascii{Content: content, Mode: directive.AsciiPlain, Format: mf, Org: o},
				}})
			}
		case "asciip":
			for _, a := range args {
				entries = append(entries, entry{directives: []directive.Directive{
					directive.Ascii{Content: []byte(a), Mode: directive.AsciiP, Format: mf, Org: o},
				}})
			}
		}

		if addArray {
			idx := section.DirectiveCount() + len(entries)
			for _, e := range entries {
				section.Append(directive.Word{
					Exprs:  []expr.Expression{&expr.Label{Name: "$arg", Section: section, Index: idx, Origin: o}},
					Format: mf, Org: o,
				})
				idx += len(e.directives)
			}
		}
		for _, e := range entries {
			for _, d := range e.directives {
				section.Append(d)
			}
		}

	default:
		return asmerr.Syntaxf(s.Origin(), "unknown argument format %s", format)
	}

	if !s.IsEnd() {
		return asmerr.Unhelpful(s.Origin())
	}
	return nil
}

func joinWithSpaces(vals []string) string {
	out := ""
	for i, v := range vals {
		if i > 0 {
			out += " "
		}
		out += v
	}
	return out
}

func parseArgInt(s string) (int64, error) {
	sc := NewScanner("<argv>", 0, []byte(s))
	neg := sc.ReadString("-")
	e, err := sc.readNumberLiteral(nil)
	if err != nil || e == nil || !sc.IsEnd() {
		return 0, asmerr.Syntaxf(origin.Unknown, "invalid integer")
	}
	v, err := e.Evaluate()
	if err != nil {
		return 0, err
	}
	if neg {
		return -v.Int, nil
	}
	return v.Int, nil
}
