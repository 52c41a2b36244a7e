// Package sinks writes the two on-disk run artifacts (individual_responses.jsonl
// and summary.json) and renders the terminal summary table.
package sinks

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// resultsRoot is the platform-appropriate state directory results live
// under: the XDG state directory when one resolves, otherwise the local
// data directory. overrideDir, when non-empty, takes precedence over both.
func resultsRoot(overrideDir string) string {
	if overrideDir != "" {
		return overrideDir
	}
	if xdg.StateHome != "" {
		return filepath.Join(xdg.StateHome, "llmprobe")
	}
	return filepath.Join(xdg.DataHome, "llmprobe")
}

// RunDir returns the directory a given run's two artifacts are written to:
// <resultsRoot>/results/<slug>/<runID>/.
func RunDir(overrideDir, slug, runID string) string {
	return filepath.Join(resultsRoot(overrideDir), "results", slug, runID)
}
