package vm

//go:generate stringer -type=StepKind

// StepKind classifies the result of one Program.Exec call.
type StepKind int

const (
	// StepNext is a deterministic single next PC.
	StepNext StepKind = iota
	// StepBranch is a two-outcome instruction: Next is the "continue"
	// PC, Jump is the "jump" PC. Only `j` and the conditional-halt
	// family (hXX) produce this.
	StepBranch
	// StepHalt is a terminal stop: execution ends here.
	StepHalt
)

// haltSentinel is the PC a conditional-halt instruction's "jump" arm
// targets when its condition is false (a true condition halts at once,
// with no branch). It is deliberately out of any
// valid code table range so CodeTable.Get's out-of-range contract turns
// a walk onto it into an implicit halt, letting the oracle "walk past"
// a halt during speculative search the same way it walks past any other
// branch outcome.
const haltSentinel = -1

// Step is the outcome of executing one instruction.
type Step struct {
	Kind StepKind
	Next int // valid for StepNext and StepBranch
	Jump int // valid for StepBranch only
}

// Branches reports whether s is a two-outcome step (the only kind
// find_cycle and the emulator's schedule-consulting step need to care
// about).
func (s Step) Branches() bool { return s.Kind == StepBranch }
