// Command twklc is the compiler driver's CLI front end: a cobra
// command tree with a build command for the textual-IR/assembly/
// object emission modes and a run command that aliases build with
// --emit=jit, following the command-tree shape of the cmd/surge
// example CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "twklc",
	Short: "twklc compiles twkl source files",
}

func main() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
