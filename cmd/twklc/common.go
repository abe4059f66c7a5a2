package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yohashinoio/twkl/internal/driver"
	"github.com/yohashinoio/twkl/internal/report"
)

// registerCommonFlags attaches the flags every build-like subcommand
// shares: optimization level, target triple override, relocation
// model, and output path template, mirroring spec.md §6's CLI surface.
func registerCommonFlags(cmd *cobra.Command, defaultEmit string) {
	cmd.Flags().String("emit", defaultEmit, "emission mode: ir|asm|obj|jit")
	cmd.Flags().IntP("opt", "O", 0, "optimization level 0-3")
	cmd.Flags().String("target", "", "target triple override")
	cmd.Flags().Bool("pic", false, "emit position-independent code")
	cmd.Flags().Bool("static", false, "emit statically relocatable code (default)")
	cmd.Flags().StringP("output", "o", "", "output path template")
	cmd.Flags().String("llc", "", "path to the llc binary")
	cmd.Flags().String("lli", "", "path to the lli binary")
}

// optionsFromFlags reads the flags registerCommonFlags attaches into
// a driver.Options, rejecting a simultaneous --pic and --static.
func optionsFromFlags(cmd *cobra.Command) (driver.Options, error) {
	emitStr, _ := cmd.Flags().GetString("emit")
	opt, _ := cmd.Flags().GetInt("opt")
	target, _ := cmd.Flags().GetString("target")
	pic, _ := cmd.Flags().GetBool("pic")
	static, _ := cmd.Flags().GetBool("static")
	output, _ := cmd.Flags().GetString("output")
	llc, _ := cmd.Flags().GetString("llc")
	lli, _ := cmd.Flags().GetString("lli")

	if pic && static {
		return driver.Options{}, fmt.Errorf("--pic and --static are mutually exclusive")
	}
	if opt < 0 || opt > 3 {
		return driver.Options{}, fmt.Errorf("optimization level must be 0-3, got %d", opt)
	}

	emit, ok := driver.ParseEmitMode(emitStr)
	if !ok {
		return driver.Options{}, fmt.Errorf("unknown emission mode %q (want ir, asm, obj, or jit)", emitStr)
	}

	return driver.Options{
		Emit:     emit,
		OptLevel: opt,
		Target:   target,
		PIC:      pic,
		Output:   output,
		LLCPath:  llc,
		LLIPath:  lli,
	}, nil
}

// reportAndExit renders every diagnostic in sink via the pterm-backed
// display package and returns an error carrying the final error
// count, the value RunE hands back to cobra to drive the non-zero
// exit code spec.md §6 requires.
func reportAndExit(sink *report.Sink) error {
	for _, w := range sink.Warnings() {
		report.DisplayWarning(w)
	}
	for _, e := range sink.Errors() {
		report.Display(e)
	}
	if sink.HasErrors() {
		return fmt.Errorf("%d error(s)", sink.Count())
	}
	return nil
}
