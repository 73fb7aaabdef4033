package directive

import (
	"testing"

	"github.com/gmofishsauce/sphinx/internal/expr"
	"github.com/gmofishsauce/sphinx/internal/memfmt"
	"github.com/gmofishsauce/sphinx/internal/origin"
	"github.com/stretchr/testify/require"
)

func mustFormat(t *testing.T, wordSize int) *memfmt.Format {
	t.Helper()
	f, err := memfmt.New(wordSize)
	require.NoError(t, err)
	return f
}

// Scenario 1 from the testable-properties list: a state section whose
// byte 0 must equal 5+1+2+4+2 = 14 once every directive's size is
// resolved.
func TestSectionSizeUpToMatchesScenarioOne(t *testing.T) {
	mf := mustFormat(t, 2)
	sec := NewSection("state")

	// `.word end - begin`: only its 2-byte size matters for the layout.
	sec.Append(Word{Exprs: []expr.Expression{expr.Literal(expr.IntValue(0))}, Format: mf, Org: origin.Unknown})
	beginIdx := sec.Append(Ascii{Content: []byte("Hello"), Mode: AsciiPlain, Format: mf, Org: origin.Unknown})
	sec.Append(Byte{Exprs: []expr.Expression{expr.Literal(expr.IntValue(0))}, Org: origin.Unknown})
	sec.Append(Word{Exprs: []expr.Expression{expr.Literal(expr.IntValue(0))}, Format: mf, Org: origin.Unknown})

	begin := &expr.Label{Name: "begin", Section: sec, Index: beginIdx, Origin: origin.Unknown}
	zeroCount := expr.BinaryOp("*", expr.Literal(expr.IntValue(2)), begin, origin.Unknown)
	sec.Append(Fill{FillExpr: expr.Literal(expr.IntValue(0)), LengthExpr: zeroCount, Org: origin.Unknown})

	// `.fill end, begin` followed by `end:`.
	endIdx := len(sec.Directives()) + 1
	end := &expr.Label{Name: "end", Section: sec, Index: endIdx, Origin: origin.Unknown}
	sec.Append(Fill{FillExpr: end, LengthExpr: begin, Org: origin.Unknown})

	diff, err := expr.BinaryOp("-", end, begin, origin.Unknown).Evaluate()
	require.NoError(t, err)
	require.Equal(t, int64(14), diff.Int)
}

func TestFillRejectsNegativeLength(t *testing.T) {
	f := Fill{
		FillExpr:   expr.Literal(expr.IntValue(0)),
		LengthExpr: expr.Literal(expr.IntValue(-1)),
		Org:        origin.Unknown,
	}
	_, err := f.Size()
	require.Error(t, err)
}

func TestAsciiPAlwaysUsesOneWordPrefix(t *testing.T) {
	mf := mustFormat(t, 2)
	a := Ascii{Content: []byte("x"), Mode: AsciiP, Format: mf, Org: origin.Unknown}

	size, err := a.Size()
	require.NoError(t, err)
	require.Equal(t, int64(3), size) // 2-byte word prefix + 1 content byte

	b, err := a.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0, 'x'}, b)
}

func TestInstructionAlwaysDeclaresSizeOne(t *testing.T) {
	i := Instruction{Name: "halt", Org: origin.Unknown}
	size, err := i.Size()
	require.NoError(t, err)
	require.Equal(t, int64(1), size)
}

// Scenario 2: `.zero after` where `after` is declared by the very next
// directive never has a concrete size, since .zero's own length is
// "after"'s address, and "after"'s address is the size of everything
// before it — including the .zero itself. Must fail as a Label error,
// not loop forever.
func TestLabelCannotResolveItsOwnZeroDirective(t *testing.T) {
	sec := NewSection("state")
	after := &expr.Label{Name: "after", Section: sec, Index: 1, Origin: origin.Unknown}
	sec.Append(Fill{FillExpr: expr.Literal(expr.IntValue(0)), LengthExpr: after, Org: origin.Unknown})

	_, err := sec.TotalSize()
	require.Error(t, err)
}
