// concord classifies local documents with the dual-evaluator consensus
// workflow and prints the decisions as JSON.
//
// Usage:
//
//	concord classify report.pdf notes.docx
//	concord classify --offline --force-disagreement -o decisions.json *.txt
//	concord version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "concord",
	Short: "Dual-evaluator consensus document classification",
	Long: "Concord assigns RESTRICTED, CONFIDENTIAL, or PUBLIC to documents.\n" +
		"Two independent evaluators vote each round; a supervisor arbitrates the final decision.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
