// Package driver owns the list of (module, output-path) pairs a build
// produces: it parses and lowers each translation unit independently
// (each with its own registry set, per-unit diagnostic sink, and llir
// module, mirroring the teacher's goroutine-per-package Generate loop
// in cmd/compiler.go), then realizes the requested emission mode by
// shelling out to the external llc/lli binaries the way the teacher
// shells out to llc.exe and link.exe.
package driver

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/llir/llvm/ir"
	"golang.org/x/sync/errgroup"

	"github.com/yohashinoio/twkl/internal/codegen"
	"github.com/yohashinoio/twkl/internal/parser"
	"github.com/yohashinoio/twkl/internal/report"
	"github.com/yohashinoio/twkl/internal/sym"
)

// EmitMode selects one of the four artifacts the driver can produce.
type EmitMode int

const (
	EmitIR EmitMode = iota
	EmitAsm
	EmitObj
	EmitJIT
)

// ParseEmitMode maps a CLI selector string to an EmitMode.
func ParseEmitMode(s string) (EmitMode, bool) {
	switch s {
	case "ir":
		return EmitIR, true
	case "asm":
		return EmitAsm, true
	case "obj":
		return EmitObj, true
	case "jit":
		return EmitJIT, true
	}
	return 0, false
}

// Options configures one build: the emission selector, the
// optimization level, a target triple override, the relocation model,
// and an output path template, following the CLI surface spec.md §6
// describes.
type Options struct {
	Emit     EmitMode
	OptLevel int // 0-3
	Target   string
	PIC      bool // true: position-independent, false: static
	Output   string

	// LLCPath and LLIPath override the llc/lli binaries invoked for
	// the obj/asm and jit emission modes; empty means resolve "llc"
	// and "lli" off $PATH, overridable by TWKLC_LLC/TWKLC_LLI.
	LLCPath string
	LLIPath string
}

// Driver compiles a set of translation units and realizes the
// requested emission mode for each of their lowered modules.
type Driver struct {
	opts Options
	sink *report.Sink
	mu   sync.Mutex
}

// New creates a driver against an empty aggregated sink.
func New(opts Options) *Driver {
	return &Driver{opts: opts, sink: report.NewSink()}
}

// Sink returns the diagnostics aggregated across every translation
// unit processed so far.
func (d *Driver) Sink() *report.Sink { return d.sink }

// unit is one compiled translation unit: its lowered module, pending
// emission.
type unit struct {
	file string
	mod  *ir.Module
}

// Build compiles every file and emits the requested non-JIT artifact
// for each, returning the output paths in input order. Per spec.md
// §5, each translation unit is compiled on its own goroutine with its
// own registry set; only the final merge into d.sink is synchronized.
func (d *Driver) Build(files []string) ([]string, error) {
	if d.opts.Emit == EmitJIT {
		return nil, fmt.Errorf("JIT mode has no output artifacts; use Run")
	}

	units, err := d.compileAll(files)
	if err != nil {
		return nil, err
	}

	multi := len(files) > 1
	outputs := make([]string, len(units))
	var g errgroup.Group
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			out, err := d.emit(u, multi)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// Run compiles exactly one file and JIT-executes it, returning main's
// integer return value as a process exit code. The back-end
// collaborator contract's JIT engine is realized by shelling out to
// lli rather than linking against an execution engine in-process
// (see DESIGN.md); a combined multi-file JIT program is out of scope
// for this pass since each unit lowers against its own registry set.
func (d *Driver) Run(files []string) (int, error) {
	if len(files) != 1 {
		return -1, fmt.Errorf("run accepts exactly one source file, got %d", len(files))
	}

	units, err := d.compileAll(files)
	if err != nil {
		return -1, err
	}

	irPath, cleanup, err := writeTempIR(units[0].mod.String())
	if err != nil {
		d.sink.Error(&report.IOError{Path: irPath, Err: err})
		return -1, err
	}
	defer cleanup()

	cmd := exec.Command(d.lliPath(), irPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		be := &report.BackendError{Stage: "jit", Msg: err.Error()}
		d.sink.Error(be)
		return -1, be
	}
	return 0, nil
}

// compileAll parses and lowers every file concurrently, each against
// its own fresh registry set and sink, merging every unit's sink into
// d.sink before reporting aggregate success or failure -- the
// "aggregates per-unit failures" behavior spec.md §7 requires of the
// driver.
func (d *Driver) compileAll(files []string) ([]*unit, error) {
	units := make([]*unit, len(files))
	var g errgroup.Group
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			u, err := d.compileUnit(f)
			units[i] = u
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if d.sink.HasErrors() {
		return nil, fmt.Errorf("compilation failed with %d error(s)", d.sink.Count())
	}
	return units, nil
}

func (d *Driver) compileUnit(file string) (*unit, error) {
	f, err := os.Open(file)
	if err != nil {
		ioErr := &report.IOError{Path: file, Err: err}
		d.mu.Lock()
		d.sink.Error(ioErr)
		d.mu.Unlock()
		return nil, ioErr
	}
	defer f.Close()

	sink := report.NewSink()
	r := newSourceReader(f)

	p := parser.New(file, r, sink)
	res, ok := p.Parse()

	var mod *ir.Module
	if ok {
		regs := sym.NewRegistries()
		g := codegen.New(file, sink, res.Spans, regs)
		g.Generate(res.File)
		mod = g.Module()
	}

	d.mu.Lock()
	d.sink.Merge(sink)
	d.mu.Unlock()

	if !ok || sink.HasErrors() {
		return nil, fmt.Errorf("%s: compilation failed", file)
	}

	return &unit{file: file, mod: mod}, nil
}

// newSourceReader wraps f in a buffered reader with any UTF-8 BOM
// stripped, per spec.md §6's source-file format.
func newSourceReader(f *os.File) *bufio.Reader {
	br := bufio.NewReader(f)
	bom, err := br.Peek(3)
	if err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}
	return br
}

// emit realizes d.opts.Emit for one compiled unit.
func (d *Driver) emit(u *unit, multi bool) (string, error) {
	out := d.outputPath(u.file, multi)
	irText := u.mod.String()

	switch d.opts.Emit {
	case EmitIR:
		if err := os.WriteFile(out, []byte(irText), 0644); err != nil {
			ioErr := &report.IOError{Path: out, Err: err}
			d.mu.Lock()
			d.sink.Error(ioErr)
			d.mu.Unlock()
			return "", ioErr
		}
		return out, nil
	case EmitAsm, EmitObj:
		irPath, cleanup, err := writeTempIR(irText)
		if err != nil {
			d.mu.Lock()
			d.sink.Error(&report.IOError{Path: irPath, Err: err})
			d.mu.Unlock()
			return "", err
		}
		defer cleanup()
		if err := d.runLLC(irPath, out, d.opts.Emit == EmitAsm); err != nil {
			return "", err
		}
		return out, nil
	}
	return "", fmt.Errorf("unsupported emit mode for Build")
}

// runLLC shells out to llc to turn one translation unit's textual IR
// into an object or assembly file, mirroring compileLLVMModule in the
// teacher's cmd/compiler.go.
func (d *Driver) runLLC(irPath, outPath string, asm bool) error {
	filetype := "obj"
	if asm {
		filetype = "asm"
	}

	args := []string{
		"-filetype", filetype,
		fmt.Sprintf("-O=%d", d.opts.OptLevel),
		"-o", outPath,
	}
	if d.opts.Target != "" {
		args = append(args, "-mtriple="+d.opts.Target)
	}
	if d.opts.PIC {
		args = append(args, "-relocation-model=pic")
	} else {
		args = append(args, "-relocation-model=static")
	}
	args = append(args, irPath)

	cmd := exec.Command(d.llcPath(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		be := &report.BackendError{Stage: "emit", Msg: stderr.String()}
		d.mu.Lock()
		d.sink.Error(be)
		d.mu.Unlock()
		return be
	}
	return nil
}

// writeTempIR writes mod's textual IR to a temporary file, returning
// the path and a cleanup function that removes it.
func writeTempIR(irText string) (string, func(), error) {
	f, err := os.CreateTemp("", "twklc-*.ll")
	if err != nil {
		return "", func() {}, err
	}
	path := f.Name()
	if _, err := f.WriteString(irText); err != nil {
		f.Close()
		os.Remove(path)
		return path, func() {}, err
	}
	f.Close()
	return path, func() { os.Remove(path) }, nil
}

// outputPath derives the output path for one unit: d.opts.Output
// verbatim for a single-file build, or (when Output is set and more
// than one file is being built) a directory Output is joined with a
// per-file basename, since a single literal path cannot serve more
// than one unit's artifact.
func (d *Driver) outputPath(file string, multi bool) string {
	ext := map[EmitMode]string{EmitIR: ".ll", EmitAsm: ".s", EmitObj: ".o"}[d.opts.Emit]
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + ext

	if d.opts.Output == "" {
		return base
	}
	if !multi {
		return d.opts.Output
	}
	return filepath.Join(d.opts.Output, base)
}

func (d *Driver) llcPath() string {
	if d.opts.LLCPath != "" {
		return d.opts.LLCPath
	}
	if p := os.Getenv("TWKLC_LLC"); p != "" {
		return p
	}
	return "llc"
}

func (d *Driver) lliPath() string {
	if d.opts.LLIPath != "" {
		return d.opts.LLIPath
	}
	if p := os.Getenv("TWKLC_LLI"); p != "" {
		return p
	}
	return "lli"
}
