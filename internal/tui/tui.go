// Package tui implements the optional -monitor live view: a
// bubbletea/lipgloss scrolling pane showing PC, cycle count, and the
// last N yielded words, grounded on hejops-gone's cpu.Debug debugger.
// Unlike that debugger it isn't interactive — it only renders — so it
// wraps a real vm.Context and forwards every observable event to a
// running tea.Program instead of driving execution itself.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gmofishsauce/sphinx/internal/memfmt"
	"github.com/gmofishsauce/sphinx/internal/vm"
)

const historyLimit = 16

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	flagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

type stepMsg struct {
	pc     int
	cycles int
}

type outputMsg struct{ word int64 }

type flagMsg struct{ name string }

type model struct {
	pc, cycles int
	yields     []int64
	lastFlag   string
	quit       bool
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepMsg:
		m.pc, m.cycles = msg.pc, msg.cycles
	case outputMsg:
		m.yields = append(m.yields, msg.word)
		if len(m.yields) > historyLimit {
			m.yields = m.yields[len(m.yields)-historyLimit:]
		}
	case flagMsg:
		m.lastFlag = msg.name
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quit = true
			return m, tea.Quit
		}
	case quitMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	if m.quit {
		return ""
	}
	words := make([]string, len(m.yields))
	for i, w := range m.yields {
		words[i] = fmt.Sprintf("%d", w)
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerStyle.Render(fmt.Sprintf("pc=%d cycles=%d", m.pc, m.cycles)),
		"yields: "+strings.Join(words, " "),
		flagStyle.Render("flag: "+m.lastFlag),
		"(press q to quit the monitor)",
	)
}

type quitMsg struct{}

// Monitor wraps a vm.Context, forwarding every observable event to a
// running tea.Program while still delegating to inner so the emulator's
// actual behavior (output sink, sleep, virtualization) is unaffected.
type Monitor struct {
	inner vm.Context
	mf    *memfmt.Format
	prog  *tea.Program
	done  chan struct{}
}

// Start launches the monitor's tea.Program on its own goroutine and
// returns a Monitor ready to wrap a real vm.Context.
func Start(inner vm.Context, mf *memfmt.Format) *Monitor {
	p := tea.NewProgram(model{})
	m := &Monitor{inner: inner, mf: mf, prog: p, done: make(chan struct{})}
	go func() {
		defer close(m.done)
		p.Run()
	}()
	return m
}

// Stop quits the tea.Program and waits for its goroutine to exit.
func (m *Monitor) Stop() {
	m.prog.Send(quitMsg{})
	<-m.done
}

func (m *Monitor) BeforeExec(p *vm.Program) {
	m.inner.BeforeExec(p)
	m.prog.Send(stepMsg{pc: p.PC, cycles: cyclesOf(m.inner)})
}

func (m *Monitor) Output(word []byte) {
	m.inner.Output(word)
	m.prog.Send(outputMsg{word: m.mf.DecodeSigned(word)})
}

func (m *Monitor) OnFlag(p *vm.Program, flag string) {
	m.inner.OnFlag(p, flag)
	m.prog.Send(flagMsg{name: flag})
}

func (m *Monitor) Sleep(millis int64) { m.inner.Sleep(millis) }

func (m *Monitor) Virtualize() vm.Context { return m.inner.Virtualize() }

// cyclesOf reports the cycle count of contexts that track one (runctx's
// Real and Virtual both do); other implementations report 0.
func cyclesOf(c vm.Context) int {
	if cc, ok := c.(interface{ CycleCount() int }); ok {
		return cc.CycleCount()
	}
	return 0
}
