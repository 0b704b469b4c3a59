// Command bundlecore exposes the compilation engine as a CLI, the role
// cmd/esbuild plays against the teacher's internal/bundler and
// internal/linker: it owns flag/config parsing and terminal output, and
// delegates every compile decision to internal/engine.
package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bundlecore",
	Short: "Module graph, tree-shaking and code-splitting engine",
	Long: `bundlecore consumes an already-factorized module graph (modules,
dependencies, async blocks) and runs it through the four-phase compile
lifecycle: make, finish-modules, seal, code-generation. It does not resolve
import specifiers to files or parse source itself.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
