package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yohashinoio/twkl/internal/driver"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] FILE...",
	Short: "Compile one or more twkl source files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBuild,
}

func init() {
	registerCommonFlags(buildCmd, "obj")
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}
	if opts.Emit == driver.EmitJIT {
		return fmt.Errorf("build does not support --emit=jit; use the run command")
	}

	d := driver.New(opts)
	outputs, err := d.Build(args)
	if reportErr := reportAndExit(d.Sink()); reportErr != nil {
		return reportErr
	}
	if err != nil {
		return err
	}

	for _, out := range outputs {
		fmt.Fprintln(os.Stdout, out)
	}
	return nil
}
