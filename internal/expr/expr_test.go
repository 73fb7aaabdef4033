package expr

import (
	"testing"

	"github.com/gmofishsauce/sphinx/internal/asmerr"
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

func TestVariableResolvesThroughNamespace(t *testing.T) {
	ns := Namespace{}
	ns["x"] = Literal(IntValue(42))
	v := &Variable{Name: "x", Namespace: ns, Origin: origin.Unknown}

	got, err := v.Evaluate()
	require.NoError(t, err)
	require.Equal(t, int64(42), got.Int)
}

func TestVariableUndefinedIsExpressionError(t *testing.T) {
	v := &Variable{Name: "missing", Namespace: Namespace{}, Origin: origin.Unknown}
	_, err := v.Evaluate()
	require.Error(t, err)
}

func TestVariableSelfReferenceIsCyclicDependency(t *testing.T) {
	ns := Namespace{}
	v := &Variable{Name: "x", Namespace: ns, Origin: origin.Unknown}
	ns["x"] = v

	_, err := v.Evaluate()
	require.Error(t, err)
	require.False(t, v.guard, "guard must be released even on error")
}

// fakeSection is a minimal SizedSection for testing Label in isolation.
type fakeSection struct {
	sizes []int64
	err   error
}

func (f *fakeSection) DirectiveCount() int { return len(f.sizes) }
func (f *fakeSection) SizeUpTo(n int) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var sum int64
	for i := 0; i < n && i < len(f.sizes); i++ {
		sum += f.sizes[i]
	}
	return sum, nil
}

func TestLabelSumsPrecedingDirectiveSizes(t *testing.T) {
	sec := &fakeSection{sizes: []int64{2, 4, 1}}
	l := &Label{Name: "loop", Section: sec, Index: 2, Origin: origin.Unknown}

	got, err := l.Evaluate()
	require.NoError(t, err)
	require.Equal(t, int64(6), got.Int)
}

func TestLabelMemoizesAfterFirstSuccess(t *testing.T) {
	sec := &fakeSection{sizes: []int64{3}}
	l := &Label{Name: "x", Section: sec, Index: 1, Origin: origin.Unknown}

	first, err := l.Evaluate()
	require.NoError(t, err)

	sec.sizes = []int64{999}
	second, err := l.Evaluate()
	require.NoError(t, err)
	require.Equal(t, first.Int, second.Int)
}

func TestLabelWrapsExpressionFailureAsLabelError(t *testing.T) {
	sec := &fakeSection{err: asmerr.Expressionf(origin.Unknown, "undefined name %q", "y")}
	l := &Label{Name: "x", Section: sec, Index: 0, Origin: origin.Unknown}

	_, err := l.Evaluate()
	require.Error(t, err)
}

func TestFloorDivisionMatchesPythonSemantics(t *testing.T) {
	require.Equal(t, int64(-4), floorDiv(-7, 2))
	require.Equal(t, int64(3), floorDiv(7, 2))
	require.Equal(t, int64(1), floorMod(-7, 2))
	require.Equal(t, int64(0), floorMod(6, 2))
}

func TestBinaryOpDivisionByZero(t *testing.T) {
	op := BinaryOp("/", Literal(IntValue(1)), Literal(IntValue(0)), origin.Unknown)
	_, err := op.Evaluate()
	require.Error(t, err)
}

func TestWordScaled(t *testing.T) {
	f := mustFormat(t, 2)
	w := WordScaled{Inner: Literal(IntValue(10)), Format: f}
	got, err := w.Evaluate()
	require.NoError(t, err)
	require.Equal(t, int64(20), got.Int)
}
