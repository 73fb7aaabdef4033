package runctx

import (
	"bufio"
	"fmt"
	"io"

	"github.com/gmofishsauce/sphinx/internal/memfmt"
)

// IntSink prints the decoded integer (signed or unsigned, per the
// `%format output signed|unsigned` selection) on its own line.
type IntSink struct {
	Format *memfmt.Format
	Signed bool
	Out    *bufio.Writer
}

func NewIntSink(mf *memfmt.Format, signed bool, out io.Writer) *IntSink {
	return &IntSink{Format: mf, Signed: signed, Out: bufio.NewWriter(out)}
}

func (s *IntSink) Write(word []byte) {
	if s.Signed {
		fmt.Fprintln(s.Out, s.Format.DecodeSigned(word))
	} else {
		fmt.Fprintln(s.Out, s.Format.DecodeUnsigned(word))
	}
	s.Out.Flush()
}

func (s *IntSink) Flush() { s.Out.Flush() }

// ByteSink writes the low byte of each yielded word directly, matching
// `%format output byte`'s raw-stream behavior.
type ByteSink struct {
	Out      *bufio.Writer
	lastByte byte
}

func NewByteSink(out io.Writer) *ByteSink {
	return &ByteSink{Out: bufio.NewWriter(out), lastByte: '\n'}
}

func (s *ByteSink) Write(word []byte) {
	b := word[0]
	s.Out.WriteByte(b)
	s.lastByte = b
	if b == '\n' {
		s.Out.Flush()
	}
}

func (s *ByteSink) Flush() { s.Out.Flush() }

// NewSink is the output-context registry: constructs the sink named by
// a `%format output` directive.
func NewSink(name string, mf *memfmt.Format, out io.Writer) (OutputSink, error) {
	switch name {
	case "byte":
		return NewByteSink(out), nil
	case "signed":
		return NewIntSink(mf, true, out), nil
	case "unsigned":
		return NewIntSink(mf, false, out), nil
	default:
		return nil, fmt.Errorf("runctx: unknown output context %q", name)
	}
}
