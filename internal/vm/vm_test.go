package vm

import (
	"testing"

	"github.com/gmofishsauce/sphinx/internal/memfmt"
	"github.com/stretchr/testify/require"
)

// recordingContext is a minimal real Context: it records yielded words
// and flags, and its virtual twin is a pure no-op sink (per §4.7's
// contract that the oracle never observes side effects).
type recordingContext struct {
	yields []int64
	flags  []string
	mf     *memfmt.Format
	cycles int
}

func (c *recordingContext) BeforeExec(p *Program) { c.cycles++ }
func (c *recordingContext) Output(word []byte)    { c.yields = append(c.yields, c.mf.DecodeSigned(word)) }
func (c *recordingContext) OnFlag(p *Program, flag string) { c.flags = append(c.flags, flag) }
func (c *recordingContext) Sleep(millis int64)              {}
func (c *recordingContext) Virtualize() Context             { return &virtualContext{cycles: &c.cycles} }

type virtualContext struct{ cycles *int }

func (v *virtualContext) BeforeExec(p *Program)         { *v.cycles++ }
func (v *virtualContext) Output(word []byte)            {}
func (v *virtualContext) OnFlag(p *Program, flag string) {}
func (v *virtualContext) Sleep(millis int64)             {}
func (v *virtualContext) Virtualize() Context            { return v }

func mustFormat(t *testing.T, wordSize int) *memfmt.Format {
	t.Helper()
	f, err := memfmt.New(wordSize)
	require.NoError(t, err)
	return f
}

func TestExecAddWritesToState(t *testing.T) {
	mf := mustFormat(t, 2)
	code := NewCodeTable([]Instr{
		{Op: "add", Args: []ValueSpec{Sv(0), Im(2), Im(3)}},
	})
	p := New(mf, code, nil, make([]byte, 2))
	ctx := &recordingContext{mf: mf}

	step, err := p.Exec(ctx)
	require.NoError(t, err)
	require.Equal(t, StepNext, step.Kind)

	word, err := mf.ReadWord(p.State, 0)
	require.NoError(t, err)
	require.Equal(t, int64(5), mf.DecodeSigned(word))
}

func TestDivisionByZeroIsNoOp(t *testing.T) {
	mf := mustFormat(t, 2)
	state := make([]byte, 2)
	require.NoError(t, mf.WriteInt(state, 0, 99))
	code := NewCodeTable([]Instr{
		{Op: "div", Args: []ValueSpec{Sv(0), Im(10), Im(0)}},
	})
	p := New(mf, code, nil, state)
	ctx := &recordingContext{mf: mf}

	_, err := p.Exec(ctx)
	require.NoError(t, err)

	word, _ := mf.ReadWord(p.State, 0)
	require.Equal(t, int64(99), mf.DecodeSigned(word))
}

func TestConditionalHaltTrueIsImmediateHalt(t *testing.T) {
	mf := mustFormat(t, 2)
	code := NewCodeTable([]Instr{
		{Op: "hge", Args: []ValueSpec{Im(5), Im(0)}},
	})
	p := New(mf, code, nil, make([]byte, 0))
	ctx := &recordingContext{mf: mf}

	step, err := p.Exec(ctx)
	require.NoError(t, err)
	require.Equal(t, StepHalt, step.Kind)
}

func TestConditionalHaltFalseIsBranch(t *testing.T) {
	mf := mustFormat(t, 2)
	code := NewCodeTable([]Instr{
		{Op: "hge", Args: []ValueSpec{Im(-1), Im(0)}},
	})
	p := New(mf, code, nil, make([]byte, 0))
	ctx := &recordingContext{mf: mf}

	step, err := p.Exec(ctx)
	require.NoError(t, err)
	require.Equal(t, StepBranch, step.Kind)
	require.Equal(t, 1, step.Next)
	require.Equal(t, haltSentinel, step.Jump)
}

func TestJIsBranch(t *testing.T) {
	mf := mustFormat(t, 2)
	code := NewCodeTable([]Instr{
		{Op: "j", Args: []ValueSpec{Im(0)}},
	})
	p := New(mf, code, nil, make([]byte, 0))
	ctx := &recordingContext{mf: mf}

	step, err := p.Exec(ctx)
	require.NoError(t, err)
	require.Equal(t, StepBranch, step.Kind)
	require.Equal(t, 0, step.Jump)
}

func TestOutOfRangeCodeTableIsImplicitHalt(t *testing.T) {
	code := NewCodeTable(nil)
	in := code.Get(5)
	require.Equal(t, "halt", in.Op)
	in = code.Get(-1)
	require.Equal(t, "halt", in.Op)
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	mf := mustFormat(t, 2)
	state := make([]byte, 4)
	require.NoError(t, mf.WriteInt(state, 0, 1234))
	p := New(mf, NewCodeTable(nil), nil, state)
	p.PC = 7

	sb := p.Save()

	p.PC = 0
	copy(p.State, make([]byte, 4))
	p.Restore(sb)

	require.Equal(t, 7, p.PC)
	word, _ := mf.ReadWord(p.State, 0)
	require.Equal(t, int64(1234), mf.DecodeSigned(word))
}

func TestSaveRestoreNegativePC(t *testing.T) {
	mf := mustFormat(t, 1)
	p := New(mf, NewCodeTable(nil), nil, make([]byte, 1))
	p.PC = -1

	sb := p.Save()
	p.PC = 0
	p.Restore(sb)
	require.Equal(t, -1, p.PC)
}

func TestForkCopiesStateIndependently(t *testing.T) {
	mf := mustFormat(t, 1)
	p := New(mf, NewCodeTable(nil), nil, []byte{5})
	child := p.Fork()
	child.State[0] = 9

	require.Equal(t, byte(5), p.State[0])
	require.Equal(t, byte(9), child.State[0])
}

func TestJumpSharesState(t *testing.T) {
	mf := mustFormat(t, 1)
	p := New(mf, NewCodeTable(nil), nil, []byte{5})
	aliased := p.Jump(3)
	aliased.State[0] = 9

	require.Equal(t, 3, aliased.PC)
	require.Equal(t, byte(9), p.State[0])
}

// Scenario 5: `loop: j loop` with no halts. find_cycle must terminate
// and return a cyclic schedule; the schedule must never halt when
// replayed.
func TestFindCycleOnTrivialSelfLoop(t *testing.T) {
	mf := mustFormat(t, 1)
	code := NewCodeTable([]Instr{
		{Op: "j", Args: []ValueSpec{Im(0)}},
	})
	p := New(mf, code, nil, nil)
	ctx := &recordingContext{mf: mf}

	node, err := FindCycle(p, ctx.Virtualize())
	require.NoError(t, err)
	require.NotNil(t, node)

	// Walk the schedule for a bounded number of steps; it must never
	// reach a nil tail (which would mean the schedule terminates).
	cur := node
	for i := 0; i < 1000; i++ {
		require.NotNil(t, cur)
		cur = cur.Tail
	}
}

// Scenario 4's tail: a program with a genuine infinite loop reachable
// only via a conditional-halt's "continue" arm proves halt-free via the
// oracle, matching the `tnt: j tnt` self-loop after `done` in the
// specification's worked example.
func TestFindCycleThroughConditionalHaltContinueArm(t *testing.T) {
	mf := mustFormat(t, 2)
	code := NewCodeTable([]Instr{
		{Op: "hge", Args: []ValueSpec{Im(-1), Im(0)}}, // 0: false -> continue to 1
		{Op: "flag", Flag: "done"},                    // 1
		{Op: "j", Args: []ValueSpec{Im(2)}},            // 2: tnt: j tnt
	})
	p := New(mf, code, nil, nil)
	ctx := &recordingContext{mf: mf}

	node, err := FindCycle(p, ctx.Virtualize())
	require.NoError(t, err)
	require.NotNil(t, node)
	require.Empty(t, ctx.flags, "virtual context must never observe side effects")
}
