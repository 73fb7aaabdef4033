package asm

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/gmofishsauce/sphinx/internal/asmerr"
	"github.com/gmofishsauce/sphinx/internal/directive"
	"github.com/gmofishsauce/sphinx/internal/expr"
	"github.com/gmofishsauce/sphinx/internal/memfmt"
	"github.com/gmofishsauce/sphinx/internal/origin"
	"github.com/gmofishsauce/sphinx/internal/vm"
)

// sectionOrder lists the three fixed sections a program may populate, in
// the order %section accepts them.
var sectionOrder = []string{"code", "const", "state"}

// Parser accumulates a program's sections, symbol namespace, and format
// settings across one or more source files, then realises a vm.Program.
// A bad line doesn't abort the pass: it's recorded in Errors and parsing
// continues with the next line, matching the teacher's "report all
// errors, then fail" assemble() behavior.
type Parser struct {
	Sources  map[string][][]byte
	Namespace expr.Namespace
	Format   map[string]any
	Sections map[string]*directive.Section
	Args     []string
	Argv     map[string][]string
	Errors   []error

	section string
}

// NewParser constructs an empty Parser. args are the program's
// command-line arguments, bound by a later `%argv` directive.
func NewParser(args []string) *Parser {
	if args == nil {
		args = []string{}
	}
	p := &Parser{
		Sources: map[string][][]byte{},
		Format:  map[string]any{},
		Sections: map[string]*directive.Section{
			"code": directive.NewSection("code"), "const": directive.NewSection("const"), "state": directive.NewSection("state"),
		},
		Args:    args,
		Argv:    map[string][]string{},
		section: "code",
	}
	p.Namespace = expr.Namespace{"$argc": expr.Literal(expr.IntValue(int64(len(args))))}
	return p
}

// Err collects every accumulated error into one via errors.Join, or nil
// if parsing produced none.
func (p *Parser) Err() error {
	return errors.Join(p.Errors...)
}

// ParseFile reads fname and parses it.
func (p *Parser) ParseFile(fname string) error {
	content, err := os.ReadFile(fname)
	if err != nil {
		return err
	}
	return p.ParseLines(bytes.Split(content, []byte("\n")), fname)
}

// prepareSection appends an implicit halt when re-entering the code
// section after it already held instructions, matching
// original_source/spasm/parser.py's prepare_section.
func (p *Parser) prepareSection(name string) {
	if name != "code" {
		return
	}
	code := p.Sections["code"]
	if code.DirectiveCount() > 0 {
		code.Append(directive.Instruction{Name: "halt", Org: origin.Unknown})
	}
}

// ParseLines parses a whole source file's lines, already split, into
// this Parser's sections and namespace.
func (p *Parser) ParseLines(lines [][]byte, file string) error {
	p.Sources[file] = lines
	p.prepareSection(p.section)

	for i, line := range lines {
		lineNum := i + 1
		if err := p.parseLine(line, file, lineNum); err != nil {
			p.Errors = append(p.Errors, err)
		}
	}
	return nil
}

func (p *Parser) parseLine(line []byte, file string, lineNum int) error {
	s := NewScanner(file, lineNum, line)

	for s.More() {
		s.skipIgnore()
		if !s.More() {
			break
		}

		if name, ok := s.PeekLabel(); ok {
			if _, exists := p.Namespace[name]; exists {
				return asmerr.NameConflictf(s.Origin(), "label %q cannot be redefined", name)
			}
			sec := p.Sections[p.section]
			p.Namespace[name] = &expr.Label{Name: name, Section: sec, Index: sec.DirectiveCount(), Origin: s.Origin()}
			continue
		}

		if s.ReadString("%") {
			if err := p.parsePreproc(s); err != nil {
				return err
			}
			if !s.IsEnd() {
				return asmerr.Unhelpful(s.Origin())
			}
		}
		break
	}

	if s.IsEnd() {
		return nil
	}

	if p.section == "code" {
		instr, err := s.ParseInstruction(p.Namespace, p.mf())
		if err != nil {
			return err
		}
		p.Sections["code"].Append(instr)
		return nil
	}

	return parseDataDirective(s, p.Namespace, p.mf(), p.Sections[p.section], p.Argv)
}

func (p *Parser) parsePreproc(s *Scanner) error {
	name, ok := s.ReadIdent()
	if !ok {
		return asmerr.Unhelpful(s.Origin())
	}
	switch name {
	case "section":
		if err := s.ExpectSpace(); err != nil {
			return err
		}
		sec, ok := s.ReadIdent()
		if !ok || !s.IsEnd() {
			return asmerr.Unhelpful(s.Origin())
		}
		if _, ok := p.Sections[sec]; !ok {
			return asmerr.Syntaxf(s.Origin(), "section must be one of %v, not %s", sectionOrder, sec)
		}
		p.section = sec
		p.prepareSection(sec)

	case "format":
		if err := s.ExpectSpace(); err != nil {
			return err
		}
		item, setting, err := p.readFormatSpec(s)
		if err != nil {
			return err
		}
		if prev, ok := p.Format[item]; ok && prev != setting {
			return asmerr.Syntaxf(s.Origin(), "the %s format was previously set to %v, which conflicts with the value %v", item, prev, setting)
		}
		p.Format[item] = setting

	case "argv":
		if err := s.ExpectSpace(); err != nil {
			return err
		}
		argv, usage, err := ProcessArgv(s, p.Args)
		if err != nil {
			return err
		}
		if argv == nil {
			return asmerr.Usagef("usage: %s %s", s.file, usage)
		}
		p.Argv = argv

	default:
		return asmerr.Syntaxf(s.Origin(), "no such preprocessor command %q", name)
	}
	return nil
}

func (p *Parser) readFormatSpec(s *Scanner) (string, any, error) {
	name, ok := s.ReadIdent()
	if !ok {
		return "", nil, asmerr.Unhelpful(s.Origin())
	}
	switch name {
	case "word":
		if err := s.ExpectSpace(); err != nil {
			return "", nil, err
		}
		if s.ReadString("inf") {
			return "", nil, asmerr.New(asmerr.Syntax, s.Origin(), memfmt.ErrUnsupportedWordSize, "word size \"inf\" is not supported")
		}
		lit, err := s.readNumberLiteral(nil)
		if err != nil {
			return "", nil, err
		}
		if lit == nil {
			return "", nil, asmerr.Syntaxf(s.Origin(), "invalid word size: must be positive integer or inf")
		}
		v, _ := lit.Evaluate()
		if v.Int <= 0 {
			return "", nil, asmerr.Syntaxf(s.Origin(), "invalid word size: must be positive integer or inf")
		}
		if v.Int > memfmt.MaxWordSize {
			return "", nil, asmerr.New(asmerr.Syntax, s.Origin(), memfmt.ErrUnsupportedWordSize, "word size %d is not supported", v.Int)
		}
		return "word", v.Int, nil

	case "output":
		if err := s.ExpectSpace(); err != nil {
			return "", nil, err
		}
		output, ok := s.ReadIdent()
		if !ok {
			return "", nil, asmerr.Unhelpful(s.Origin())
		}
		if output != "byte" && output != "signed" && output != "unsigned" {
			return "", nil, asmerr.Syntaxf(s.Origin(), "invalid output format: %s, must be byte, signed, or unsigned", output)
		}
		return "output", output, nil

	default:
		return "", nil, asmerr.Syntaxf(s.Origin(), "invalid format specifier %s", name)
	}
}

// mf returns the shared memory format, defaulting to a 2-byte word until
// %format word overrides it. The actual word size doesn't matter until
// GetProgram locks it in; expressions only need a non-nil *Format to
// support the `w` word-scaling suffix.
func (p *Parser) mf() *memfmt.Format {
	size := 2
	if v, ok := p.Format["word"]; ok {
		if n, ok := v.(int64); ok {
			size = int(n)
		}
	}
	f, err := memfmt.New(size)
	if err != nil {
		f, _ = memfmt.New(2)
	}
	return f
}

// OutputContext returns the output context name selected by
// `%format output`, defaulting to "signed".
func (p *Parser) OutputContext() string {
	if v, ok := p.Format["output"]; ok {
		return v.(string)
	}
	return "signed"
}

// GetProgram realises every directive into bytes and builds the
// immutable vm.Program, printing (non-fatal) overflow warnings to
// stderr the way original_source/spasm/parser.py's get_program does.
func (p *Parser) GetProgram() (*vm.Program, error) {
	mf := p.mf()

	instrs := make([]vm.Instr, 0, p.Sections["code"].DirectiveCount())
	for _, d := range p.Sections["code"].Directives() {
		in, ok := d.(directive.Instruction)
		if !ok {
			return nil, fmt.Errorf("asm: non-instruction directive in code section")
		}
		name, args, err := in.Resolve()
		if err != nil {
			return nil, err
		}
		vi := vm.Instr{Op: name}
		if name == "flag" {
			vi.Flag = args[0].Value.Str
		} else {
			vi.Args = make([]vm.ValueSpec, len(args))
			for i, a := range args {
				vi.Args[i] = taggedToSpec(a)
			}
		}
		instrs = append(instrs, vi)
	}

	var constBuf, stateBuf []byte
	for _, d := range p.Sections["const"].Directives() {
		b, err := directiveBytes(d)
		if err != nil {
			return nil, err
		}
		constBuf = append(constBuf, b...)
	}
	for _, d := range p.Sections["state"].Directives() {
		b, err := directiveBytes(d)
		if err != nil {
			return nil, err
		}
		stateBuf = append(stateBuf, b...)
	}

	if !mf.IsSafeUnsigned(int64(len(stateBuf))) {
		fmt.Fprintf(os.Stderr, "Warning: state section too large (%d bytes) to be word-addressable\n", len(stateBuf))
	}
	if !mf.IsSafeUnsigned(int64(len(constBuf))) {
		fmt.Fprintf(os.Stderr, "Warning: const section too large (%d bytes) to be word-addressable\n", len(constBuf))
	}
	if !mf.IsSafeSigned(int64(len(instrs))) {
		fmt.Fprintf(os.Stderr, "Warning: code section too large (%d instructions) to be word-addressable\n", len(instrs))
	}

	return vm.New(mf, vm.NewCodeTable(instrs), constBuf, stateBuf), nil
}

func taggedToSpec(tv expr.TaggedValue) vm.ValueSpec {
	switch tv.Tag {
	case "sv":
		return vm.Sv(tv.Value.Int)
	case "cv":
		return vm.Cv(tv.Value.Int)
	default:
		return vm.Im(tv.Value.Int)
	}
}

func directiveBytes(d directive.Directive) ([]byte, error) {
	switch v := d.(type) {
	case directive.Fill:
		return v.Bytes()
	case directive.Ascii:
		return v.Bytes()
	case directive.Word:
		return v.Bytes()
	case directive.Byte:
		return v.Bytes()
	default:
		return nil, fmt.Errorf("asm: unknown directive type %T in data section", d)
	}
}
