// Package runctx implements the two ExecutionContext kinds the cycle
// oracle depends on: a real context with observable side effects, and
// a virtual context that counts cycles but never touches the outside
// world. A real context's virtual twin is what find_cycle drives.
package runctx

import (
	"fmt"
	"io"
	"time"

	"github.com/gmofishsauce/sphinx/internal/sphlog"
	"github.com/gmofishsauce/sphinx/internal/vm"
)

// Virtual is a no-op sink: before_exec still counts cycles (so a
// real/virtual pair can report emulator efficiency), but output, flags,
// and sleeps are all swallowed. The oracle must never be able to
// observe anything through this context.
type Virtual struct {
	Cycles int
}

func NewVirtual() *Virtual { return &Virtual{} }

func (v *Virtual) BeforeExec(p *vm.Program)       { v.Cycles++ }
func (v *Virtual) Output(word []byte)             {}
func (v *Virtual) OnFlag(p *vm.Program, flag string) {}
func (v *Virtual) Sleep(millis int64)             {}
func (v *Virtual) Virtualize() vm.Context         { return v }

// CycleCount reports cycles counted so far, for callers (e.g.
// internal/tui) that want to display progress without depending on the
// concrete type.
func (v *Virtual) CycleCount() int { return v.Cycles }

// OutputSink receives a program's yielded words, already decoded as the
// output format selected by `%format output`.
type OutputSink interface {
	Write(word []byte)
}

// Real is the observable context: its Output is delegated to an
// OutputSink selected by `%format output`, its flags print a banner to
// Stderr (matching the teacher CLI's plain fmt.Fprintf messaging) and
// are mirrored to sphlog's structured flag channel for debug/progress.
type Real struct {
	Cycles       int
	Sink         OutputSink
	Stderr       io.Writer
	vctx         *Virtual
	lastFlagAt   int
	haveLastFlag bool
}

// NewReal constructs a Real context writing yielded output through sink
// and human messages to stderr.
func NewReal(sink OutputSink, stderr io.Writer) *Real {
	return &Real{Sink: sink, Stderr: stderr, vctx: NewVirtual()}
}

func (r *Real) BeforeExec(p *vm.Program) { r.Cycles++ }

func (r *Real) Output(word []byte) {
	r.Sink.Write(word)
}

func (r *Real) Sleep(millis int64) {
	time.Sleep(time.Duration(millis) * time.Millisecond)
}

func (r *Real) Virtualize() vm.Context { return r.vctx }

// CycleCount reports cycles counted so far, for callers (e.g.
// internal/tui) that want to display progress without depending on the
// concrete type.
func (r *Real) CycleCount() int { return r.Cycles }

// recognizedFlags get a cycle-accounting summary printed alongside the
// "reached" banner; all others are reported verbatim, per §4.7.
var recognizedFlags = map[string]bool{"done": true, "error": true, "win": true, "lose": true}

func (r *Real) OnFlag(p *vm.Program, flag string) {
	// Real contexts must flush buffered output before printing on_flag
	// messages, so a byte-output program's partial line doesn't trail
	// the flag banner.
	if f, ok := r.Sink.(interface{ Flush() }); ok {
		f.Flush()
	}

	fmt.Fprintf(r.Stderr, "Reached %s flag\n", flag)
	sphlog.Flag(flag, p.PC, r.Cycles)

	switch {
	case recognizedFlags[flag]:
		total := r.vctx.Cycles + r.Cycles
		fmt.Fprintf(r.Stderr, "    CPU time: %d clock cycles\n", r.Cycles)
		if total > 0 {
			fmt.Fprintf(r.Stderr, "    Emulator efficiency: %.2f%%\n", 100*float64(r.Cycles)/float64(total))
		}
	case flag == "progress":
		msg := fmt.Sprintf("    CPU time: %d clock cycles", r.Cycles)
		if r.haveLastFlag {
			msg += fmt.Sprintf(" (%d since last progress)", r.Cycles-r.lastFlagAt)
		}
		r.lastFlagAt = r.Cycles
		r.haveLastFlag = true
		fmt.Fprintln(r.Stderr, msg)
	case flag == "debug":
		fmt.Fprintf(r.Stderr, "    PC: %d\n", p.PC)
		fmt.Fprintf(r.Stderr, "    State: % x\n", p.State)
	}
}
