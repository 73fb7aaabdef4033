// Package asm implements the assembler front end: a hand-rolled,
// character-at-a-time scanner (no regexp package, matching
// gmofishsauce-wut4's lexer.go style), a shunting-yard expression parser,
// and the line-shape dispatcher that builds directive.Section values and
// the expr.Namespace of labels and variables from source text.
package asm

import (
	"github.com/gmofishsauce/sphinx/internal/asmerr"
	"github.com/gmofishsauce/sphinx/internal/origin"
)

// Scanner reads one source line at a time, tracking a byte position for
// origin reporting. It never looks past the line it was constructed with.
type Scanner struct {
	file string
	line int
	src  []byte
	pos  int
}

func NewScanner(file string, line int, src []byte) *Scanner {
	return &Scanner{file: file, line: line, src: src}
}

func (s *Scanner) More() bool { return s.pos < len(s.src) }

func (s *Scanner) Origin() origin.Origin {
	return origin.Origin{File: s.file, Line: s.line, Column: s.pos + 1}
}

func (s *Scanner) rest() []byte { return s.src[s.pos:] }

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
func isOctDigit(b byte) bool { return b >= '0' && b <= '7' }
func isBinDigit(b byte) bool { return b == '0' || b == '1' }
func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isIdentCont(b byte) bool { return isIdentStart(b) || isDigit(b) }

// skipIgnore consumes whitespace and a trailing `;...` comment.
func (s *Scanner) skipIgnore() {
	for s.pos < len(s.src) {
		b := s.src[s.pos]
		if isSpace(b) {
			s.pos++
			continue
		}
		if b == ';' {
			s.pos = len(s.src)
			return
		}
		return
	}
}

// IsEnd reports whether nothing but whitespace/comment remains.
func (s *Scanner) IsEnd() bool {
	s.skipIgnore()
	return !s.More()
}

// ReadString consumes lit if it appears literally at the current
// position (no surrounding whitespace skip).
func (s *Scanner) ReadString(lit string) bool {
	if len(s.src)-s.pos < len(lit) {
		return false
	}
	if string(s.src[s.pos:s.pos+len(lit)]) != lit {
		return false
	}
	s.pos += len(lit)
	return true
}

// ReadWhitespace consumes one or more whitespace bytes, reporting whether
// any were consumed.
func (s *Scanner) ReadWhitespace() bool {
	start := s.pos
	for s.pos < len(s.src) && isSpace(s.src[s.pos]) {
		s.pos++
	}
	return s.pos > start
}

// ExpectSpace requires at least one whitespace byte; at end of line it
// reports a missing argument.
func (s *Scanner) ExpectSpace() error {
	if s.ReadWhitespace() {
		return nil
	}
	if s.IsEnd() {
		return asmerr.Syntaxf(s.Origin(), "expected argument")
	}
	return asmerr.Syntaxf(s.Origin(), "expected space")
}

// readWhile consumes a maximal run of bytes satisfying pred.
func (s *Scanner) readWhile(pred func(byte) bool) string {
	start := s.pos
	for s.pos < len(s.src) && pred(s.src[s.pos]) {
		s.pos++
	}
	return string(s.src[start:s.pos])
}

// ReadIdent reads `[a-zA-Z_]\w*`.
func (s *Scanner) ReadIdent() (string, bool) {
	if s.pos >= len(s.src) || !isIdentStart(s.src[s.pos]) {
		return "", false
	}
	return s.readWhile(isIdentCont), true
}

// ReadDirecIdent reads `[a-zA-Z_.][\w.]*`, the wider charset directive and
// instruction names use (so `.word`, `.asciiz` scan as one token).
func (s *Scanner) ReadDirecIdent() (string, bool) {
	if s.pos >= len(s.src) {
		return "", false
	}
	first := s.src[s.pos]
	if !isIdentStart(first) && first != '.' {
		return "", false
	}
	return s.readWhile(func(b byte) bool { return isIdentCont(b) || b == '.' }), true
}

// PeekLabel reports whether the scanner, after skipping leading
// whitespace, sits at `ident:` — and if so, returns the label name and
// leaves the scanner positioned just past the colon.
func (s *Scanner) PeekLabel() (string, bool) {
	s.skipIgnore()
	save := s.pos
	name, ok := s.ReadIdent()
	if !ok || !s.ReadString(":") {
		s.pos = save
		return "", false
	}
	return name, true
}

var escCodes = map[byte]byte{
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t',
	'0': 0, '\'': '\'', '"': '"', '\\': '\\',
}

// readEscapeCode reads one escape sequence body (the part after `\`):
// either `xHH` or one of the named codes.
func (s *Scanner) readEscapeCode() (byte, error) {
	if s.pos+2 < len(s.src) && s.src[s.pos] == 'x' && isHexDigit(s.src[s.pos+1]) && isHexDigit(s.src[s.pos+2]) {
		hex := string(s.src[s.pos+1 : s.pos+3])
		s.pos += 3
		var v int
		for _, c := range []byte(hex) {
			v <<= 4
			switch {
			case isDigit(c):
				v |= int(c - '0')
			case c >= 'a' && c <= 'f':
				v |= int(c-'a') + 10
			default:
				v |= int(c-'A') + 10
			}
		}
		return byte(v), nil
	}
	if s.pos < len(s.src) {
		if code, ok := escCodes[s.src[s.pos]]; ok {
			s.pos++
			return code, nil
		}
	}
	return 0, asmerr.Syntaxf(s.Origin(), "invalid escape sequence")
}

// ReadStringLiteral reads a double-quoted string, processing escapes. ok
// is false if the scanner wasn't positioned at an opening quote.
func (s *Scanner) ReadStringLiteral() (content []byte, ok bool, err error) {
	if !s.ReadString(`"`) {
		return nil, false, nil
	}
	var out []byte
	for s.More() {
		b := s.src[s.pos]
		switch {
		case b == '"':
			s.pos++
			return out, true, nil
		case b == '\\':
			s.pos++
			code, err := s.readEscapeCode()
			if err != nil {
				return nil, true, err
			}
			out = append(out, code)
		default:
			out = append(out, b)
			s.pos++
		}
	}
	return nil, true, asmerr.Syntaxf(s.Origin(), "unterminated string literal")
}
