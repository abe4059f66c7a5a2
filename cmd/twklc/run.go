package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yohashinoio/twkl/internal/driver"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] FILE",
	Short: "JIT-execute a twkl source file and exit with main's return value",
	Args:  cobra.ExactArgs(1),
	RunE:  runJIT,
}

func init() {
	registerCommonFlags(runCmd, "jit")
}

func runJIT(cmd *cobra.Command, args []string) error {
	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}
	opts.Emit = driver.EmitJIT

	d := driver.New(opts)

	color.New(color.FgCyan).Fprintln(os.Stderr, "running...")

	exitCode, runErr := d.Run(args)
	if reportErr := reportAndExit(d.Sink()); reportErr != nil {
		return reportErr
	}
	if runErr != nil {
		return runErr
	}

	statusColor := color.New(color.FgGreen)
	if exitCode != 0 {
		statusColor = color.New(color.FgRed)
	}
	statusColor.Fprintf(os.Stderr, "exit code %d\n", exitCode)

	os.Exit(exitCode)
	return nil
}
