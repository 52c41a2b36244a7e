// Command bench is the load generator and performance profiler CLI for
// streaming LLM inference endpoints.
package main

import (
	"os"

	"github.com/shantoislamdev/llmprobe/internal/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.BuildDate = buildDate

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
