// Command sphinx assembles a Sphinx source file, then executes it: the
// CLI driver, grounded on gmofishsauce-wut4's emul/main.go (flag-based
// options, a startup banner, an exit-time statistics summary) minus the
// UART/raw-terminal concerns that have no Sphinx equivalent.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/gmofishsauce/sphinx/internal/asm"
	"github.com/gmofishsauce/sphinx/internal/config"
	"github.com/gmofishsauce/sphinx/internal/emulator"
	"github.com/gmofishsauce/sphinx/internal/expr"
	"github.com/gmofishsauce/sphinx/internal/runctx"
	"github.com/gmofishsauce/sphinx/internal/tui"
	"github.com/gmofishsauce/sphinx/internal/vm"
)

var (
	traceFile      = flag.String("trace", "", "Write an execution trace to file")
	traceCompress  = flag.Bool("trace-compress", false, "zstd-compress the execution trace")
	monitor        = flag.Bool("monitor", false, "Show a live bubbletea monitor of PC, cycles, and yields")
	dumpState      = flag.Bool("dump-state", false, "Dump the full Program via go-spew after execution")
	dumpSymbols    = flag.Bool("dump-symbols", false, "Print the resolved symbol table and section sizes, then exit")
	disasm         = flag.Bool("disasm", false, "Assemble, print the code table's disassembly, then exit without running")
	configPath     = flag.String("config", "", "Path to sphinx.yaml (default: sphinx.yaml next to the source file)")
	maxCyclesFlag  = flag.Uint64("max-cycles", 0, "Stop after N real-context cycles (0 = unlimited, or sphinx.yaml's maxCycles)")
	outputOverride = flag.String("output", "", "Override %format output: byte, signed, or unsigned")
	showVersion    = flag.Bool("version", false, "Show version and exit")
)

const version = "1.0.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <source-file> [program-args...]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Sphinx assembler and emulator\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nprogram-args are bound to the source file's %%argv directive, if any.\n")
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("Sphinx v%s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}
	sourceFile, programArgs := args[0], args[1:]

	if err := run(sourceFile, programArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(sourceFile string, programArgs []string) error {
	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = filepath.Join(filepath.Dir(sourceFile), "sphinx.yaml")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	p := asm.NewParser(programArgs)
	if err := p.ParseFile(sourceFile); err != nil {
		return err
	}
	if p.Err() != nil {
		return p.Err()
	}

	if *dumpSymbols {
		dumpSymbolTable(p)
		return nil
	}

	prog, err := p.GetProgram()
	if err != nil {
		return err
	}

	if *disasm {
		fmt.Print(prog.Code.String())
		return nil
	}

	outputName := *outputOverride
	if _, ok := p.Format["output"]; ok && outputName == "" {
		outputName = p.OutputContext()
	}
	if outputName == "" {
		outputName = cfg.OutputContext
	}
	if outputName == "" {
		outputName = p.OutputContext()
	}
	sink, err := runctx.NewSink(outputName, prog.Format, os.Stdout)
	if err != nil {
		return err
	}

	var ctx vm.Context = runctx.NewReal(sink, os.Stderr)

	var traceCloser io.Closer
	if *traceFile != "" {
		tc, w, err := openTrace(*traceFile, *traceCompress, sourceFile)
		if err != nil {
			return err
		}
		traceCloser = tc
		defer traceCloser.Close()
		ctx = &tracingContext{inner: ctx, w: w}
	}

	var mon *tui.Monitor
	if *monitor {
		mon = tui.Start(ctx, prog.Format)
		ctx = mon
	}

	em := emulator.New(prog, ctx)

	maxCycles := int(*maxCyclesFlag)
	if maxCycles == 0 {
		maxCycles = cfg.MaxCycles
	}

	startTime := time.Now()
	halted, err := em.RunLimited(maxCycles)
	elapsed := time.Since(startTime)

	if mon != nil {
		mon.Stop()
	}

	if *dumpState {
		fmt.Fprintln(os.Stderr, spew.Sdump(prog))
	}

	fmt.Fprintf(os.Stderr, "\n----------------------------------------\n")
	fmt.Fprintf(os.Stderr, "Execution finished\n")
	fmt.Fprintf(os.Stderr, "Time: %v\n", elapsed.Round(time.Millisecond))
	if !halted && err == nil {
		fmt.Fprintf(os.Stderr, "Max cycles reached (%d)\n", maxCycles)
	}
	if err != nil {
		return err
	}
	return nil
}

// openTrace creates the trace file (zstd-compressed if requested) and
// writes its run-identifying header, grounded on emul/main.go's trace
// preamble plus a UUID run header per component.
func openTrace(path string, compress bool, sourceFile string) (io.Closer, io.Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating trace file: %w", err)
	}

	var w io.Writer = f
	var closer io.Closer = f
	if compress {
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("creating zstd trace writer: %w", err)
		}
		w = zw
		closer = multiCloser{zw, f}
	}

	fmt.Fprintf(w, "Sphinx execution trace\n")
	fmt.Fprintf(w, "Run: %s\n", uuid.New())
	fmt.Fprintf(w, "Source: %s\n", sourceFile)
	fmt.Fprintf(w, "----------------------------------------\n")
	return closer, w, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// tracingContext wraps a vm.Context, writing one line per instruction
// step to the trace writer. It never suppresses inner's real behavior;
// it only observes.
type tracingContext struct {
	inner  vm.Context
	w      io.Writer
	cycles int
}

func (t *tracingContext) BeforeExec(p *vm.Program) {
	t.inner.BeforeExec(p)
	t.cycles++
	fmt.Fprintf(t.w, "cycle=%d pc=%d\n", t.cycles, p.PC)
}

func (t *tracingContext) Output(word []byte) { t.inner.Output(word) }

func (t *tracingContext) OnFlag(p *vm.Program, flag string) {
	t.inner.OnFlag(p, flag)
	fmt.Fprintf(t.w, "flag=%s pc=%d\n", flag, p.PC)
}

func (t *tracingContext) Sleep(millis int64)  { t.inner.Sleep(millis) }
func (t *tracingContext) Virtualize() vm.Context { return t.inner.Virtualize() }

// dumpSymbolTable prints every label in the program's namespace along
// with its resolved value, and each section's total size, in
// deterministic sorted order (the namespace and section maps are
// otherwise unordered).
func dumpSymbolTable(p *asm.Parser) {
	names := maps.Keys(p.Namespace)
	slices.Sort(names)

	fmt.Println("Symbols:")
	for _, name := range names {
		v, err := p.Namespace[name].Evaluate()
		if err != nil {
			fmt.Printf("  %-20s <error: %v>\n", name, err)
			continue
		}
		switch v.Kind {
		case expr.KindInt:
			fmt.Printf("  %-20s %d\n", name, v.Int)
		default:
			fmt.Printf("  %-20s %v\n", name, v)
		}
	}

	sectionNames := maps.Keys(p.Sections)
	slices.Sort(sectionNames)
	fmt.Println("Sections:")
	for _, name := range sectionNames {
		sec := p.Sections[name]
		size, err := sec.TotalSize()
		if err != nil {
			fmt.Printf("  %-10s %d directives, <error: %v>\n", name, sec.DirectiveCount(), err)
			continue
		}
		fmt.Printf("  %-10s %d directives, size %d\n", name, sec.DirectiveCount(), size)
	}
}
