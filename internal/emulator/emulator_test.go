package emulator

import (
	"testing"

	"github.com/gmofishsauce/sphinx/internal/memfmt"
	"github.com/gmofishsauce/sphinx/internal/vm"
	"github.com/stretchr/testify/require"
)

// fixtureContext is a small conformance-test harness: a real context
// that records yields and flags in memory, standing in for
// gmofishsauce-wut4's hardware-exerciser idiom (exer/cex) without any
// of its serial-protocol framing, which has no equivalent concern here.
type fixtureContext struct {
	mf     *memfmt.Format
	yields []int64
	flags  []string
	vctx   *fixtureVirtual
}

func newFixtureContext(mf *memfmt.Format) *fixtureContext {
	return &fixtureContext{mf: mf, vctx: &fixtureVirtual{}}
}

func (c *fixtureContext) BeforeExec(p *vm.Program) {}
func (c *fixtureContext) Output(word []byte) {
	c.yields = append(c.yields, c.mf.DecodeSigned(word))
}
func (c *fixtureContext) OnFlag(p *vm.Program, flag string) { c.flags = append(c.flags, flag) }
func (c *fixtureContext) Sleep(millis int64)                {}
func (c *fixtureContext) Virtualize() vm.Context            { return c.vctx }

type fixtureVirtual struct{ cycles int }

func (v *fixtureVirtual) BeforeExec(p *vm.Program)       { v.cycles++ }
func (v *fixtureVirtual) Output(word []byte)             {}
func (v *fixtureVirtual) OnFlag(p *vm.Program, flag string) {}
func (v *fixtureVirtual) Sleep(millis int64)             {}
func (v *fixtureVirtual) Virtualize() vm.Context         { return v }

// buildCountdownProgram is testable scenario 4 from the specification:
// a counting-down loop that yields count, count-1, ..., 0, reaches the
// `done` flag, then falls into a provably-infinite `tnt: j tnt` loop
// that the oracle must let a real run spin on indefinitely without
// ever reaching the final `halt`.
func buildCountdownProgram(t *testing.T, count int64) (*vm.Program, *memfmt.Format) {
	t.Helper()
	mf, err := memfmt.New(2)
	require.NoError(t, err)

	code := vm.NewCodeTable([]vm.Instr{
		{Op: "yield", Args: []vm.ValueSpec{vm.Sv(0)}},                              // 0: loop
		{Op: "sub", Args: []vm.ValueSpec{vm.Sv(0), vm.Sv(0), vm.Im(1)}},             // 1
		{Op: "j", Args: []vm.ValueSpec{vm.Im(0)}},                                  // 2
		{Op: "hge", Args: []vm.ValueSpec{vm.Sv(0), vm.Im(0)}},                      // 3
		{Op: "flag", Flag: "done"},                                                 // 4
		{Op: "j", Args: []vm.ValueSpec{vm.Im(5)}},                                  // 5: tnt
		{Op: "halt"},                                                               // 6
	})

	state := make([]byte, 2)
	require.NoError(t, mf.WriteInt(state, 0, count))

	return vm.New(mf, code, nil, state), mf
}

func TestScenarioFourCountdownAndHaltFreeTail(t *testing.T) {
	prog, _ := buildCountdownProgram(t, 3)
	ctx := newFixtureContext(prog.Format)
	em := New(prog, ctx)

	const maxSteps = 200
	reachedDone := false
	for i := 0; i < maxSteps; i++ {
		more, err := em.Step()
		require.NoError(t, err)
		if !more {
			t.Fatalf("program halted at step %d; expected it to spin forever on tnt", i)
		}
		for _, f := range ctx.flags {
			if f == "done" {
				reachedDone = true
			}
		}
		if reachedDone && i > len(ctx.yields)+20 {
			break
		}
	}

	require.True(t, reachedDone)
	require.Equal(t, []int64{3, 2, 1, 0}, ctx.yields)
	require.Equal(t, []string{"done"}, ctx.flags)
}
