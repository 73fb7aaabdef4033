// Package emulator drives a vm.Program to completion, consulting the
// cycle oracle (vm.FindCycle) whenever a two-outcome step is reached
// with no cached schedule yet.
package emulator

import "github.com/gmofishsauce/sphinx/internal/vm"

// Emulator owns one real execution and a cached cycle schedule, if any
// has been adopted.
type Emulator struct {
	Program *vm.Program
	Real    vm.Context
	Virtual vm.Context

	cycle *vm.CycleNode
}

func New(prog *vm.Program, real vm.Context) *Emulator {
	return &Emulator{Program: prog, Real: real, Virtual: real.Virtualize()}
}

// Step executes one instruction against the real context and reports
// whether execution should continue.
func (e *Emulator) Step() (bool, error) {
	step, err := e.Program.Exec(e.Real)
	if err != nil {
		return false, err
	}

	switch step.Kind {
	case vm.StepNext:
		e.Program.PC = step.Next
	case vm.StepBranch:
		if e.cycle != nil {
			if e.cycle.DoJump {
				e.Program.PC = step.Jump
			} else {
				e.Program.PC = step.Next
			}
			e.cycle = e.cycle.Tail
			break
		}

		node, err := vm.FindCycle(e.Program.Jump(step.Next), e.Virtual)
		if err != nil {
			return false, err
		}
		if node == nil {
			e.Program.PC = step.Jump
		} else {
			e.cycle = node
			e.Program.PC = step.Next
		}
	case vm.StepHalt:
		return false, nil
	}
	return true, nil
}

// Run steps until the program halts.
func (e *Emulator) Run() error {
	for {
		more, err := e.Step()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// RunLimited steps until the program halts or maxCycles real-context
// steps have executed, whichever comes first; maxCycles <= 0 means
// unlimited. halted reports whether the program actually reached a
// halt, as opposed to the cap being hit.
func (e *Emulator) RunLimited(maxCycles int) (halted bool, err error) {
	steps := 0
	for {
		if maxCycles > 0 && steps >= maxCycles {
			return false, nil
		}
		more, err := e.Step()
		if err != nil {
			return false, err
		}
		if !more {
			return true, nil
		}
		steps++
	}
}
