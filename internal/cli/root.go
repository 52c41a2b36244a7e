// Package cli implements the bench command-line interface: layered
// configuration, the run command that drives one benchmark end to end, and
// a version command.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information set at build time.
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	cfgFile string
	verbose bool
	quiet   bool
)

// rootCmd is the base "bench" command.
var rootCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load generator and performance profiler for streaming LLM endpoints",
	Long: `bench issues concurrent streaming chat/responses/messages requests against
an LLM inference endpoint, measures time-to-first-token, inter-token latency,
and generation throughput per request, and writes a per-request log plus an
aggregated statistical summary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./llmprobe.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress table output; JSON logs only")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("bench %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		return nil
	},
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
