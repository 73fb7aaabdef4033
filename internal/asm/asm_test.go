package asm

import (
	"bytes"
	"testing"

	"github.com/gmofishsauce/sphinx/internal/memfmt"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, source string, args ...string) *Parser {
	t.Helper()
	p := NewParser(args)
	require.NoError(t, p.ParseLines(bytes.Split([]byte(source), []byte("\n")), "test.s"))
	return p
}

// TestScenarioOneStateLayout exercises testable scenario 1: a state
// section mixing .ascii, .byte, .word, and .fill whose length depends on
// labels, where the leading state byte must equal 5+1+2+4+2 = 14.
func TestScenarioOneStateLayout(t *testing.T) {
	source := `%format word 2
%section state
.word end - begin
begin: .ascii "Hello"
.byte 0
.word 0
.zero 2*begin
.fill end, begin
end:
`
	p := parseSource(t, source)
	require.NoError(t, p.Err())

	prog, err := p.GetProgram()
	require.NoError(t, err)
	require.Equal(t, int64(14), prog.Format.DecodeSigned(prog.State[0:2]))
}

// TestScenarioTwoSelfReferentialZeroIsCyclicDependency exercises testable
// scenario 2: a .zero directive whose own size is needed to resolve the
// label that immediately follows it.
func TestScenarioTwoSelfReferentialZeroIsCyclicDependency(t *testing.T) {
	source := `%format word 2
%section state
.zero after
after:
`
	p := parseSource(t, source)
	require.NoError(t, p.Err())

	_, err := p.GetProgram()
	require.Error(t, err)
}

func TestExpressionPrecedenceDiffersFromC(t *testing.T) {
	source := `%format word 2
%section state
.word 1 << 4 - 1
.word 1 + 2 & 2
`
	p := parseSource(t, source)
	require.NoError(t, p.Err())

	prog, err := p.GetProgram()
	require.NoError(t, err)
	require.Equal(t, uint64(15), prog.Format.DecodeUnsigned(prog.State[0:2]))
	require.Equal(t, uint64(3), prog.Format.DecodeUnsigned(prog.State[2:4]))
}

func TestFormatWordConflictIsAssemblerError(t *testing.T) {
	source := "%format word 2\n%format word 3\n"
	p := parseSource(t, source)
	require.Error(t, p.Err())
	require.Contains(t, p.Err().Error(), "conflict")
}

func TestFormatWordInfIsRejected(t *testing.T) {
	source := "%format word inf\n"
	p := parseSource(t, source)
	require.Error(t, p.Err())
	require.ErrorIs(t, p.Err(), memfmt.ErrUnsupportedWordSize)
}

func TestImplicitHaltInsertedBetweenCodeSections(t *testing.T) {
	source := `%section code
halt
%section state
.word 1
%section code
halt
`
	p := parseSource(t, source)
	require.NoError(t, p.Err())
	prog, err := p.GetProgram()
	require.NoError(t, err)
	require.Equal(t, 3, prog.Code.Len())
	require.Equal(t, "halt", prog.Code.Get(1).Op)
}

func TestArgvCountdownProgramAssemblesAndYields(t *testing.T) {
	source := `%format word 2
%argv <count>
%section state
counter: .arg count word
%section code
loop: yield [counter]
sub [counter], [counter], 1
j loop
hge [counter], 0
flag done
tnt: j tnt
halt
`
	p := parseSource(t, source, "3")
	require.NoError(t, p.Err())

	prog, err := p.GetProgram()
	require.NoError(t, err)
	require.Equal(t, int64(3), prog.Format.DecodeSigned(prog.State[0:2]))
	require.Equal(t, 7, prog.Code.Len())
	require.Equal(t, "yield", prog.Code.Get(0).Op)
	require.Equal(t, "j", prog.Code.Get(5).Op)
}

func TestArgvMismatchIsUsageError(t *testing.T) {
	source := "%argv <count>\n"
	p := parseSource(t, source)
	require.Error(t, p.Err())
}

func TestLabelRedeclarationIsNameConflict(t *testing.T) {
	source := `%section state
x: .word 1
x: .word 2
`
	p := parseSource(t, source)
	require.Error(t, p.Err())
}

func TestUnknownInstructionIsSyntaxError(t *testing.T) {
	source := "nonesuch 1, 2\n"
	p := parseSource(t, source)
	require.Error(t, p.Err())
}

func TestFlagInstructionCarriesIdentAsFlag(t *testing.T) {
	source := "flag win\n"
	p := parseSource(t, source)
	require.NoError(t, p.Err())
	prog, err := p.GetProgram()
	require.NoError(t, err)
	require.Equal(t, "win", prog.Code.Get(0).Flag)
}
