package summary

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// slugUnsafe matches any character not safe to use in a directory name on
// every major filesystem.
var slugUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Slug builds the benchmark_slug identifying a run's configuration:
// {sanitized_model}_{mean_in}_{mean_out_or_"none"}.
func Slug(model string, meanInputTokens int, meanOutputTokens *int) string {
	sanitized := sanitizeModel(model)
	out := "none"
	if meanOutputTokens != nil {
		out = fmt.Sprintf("%d", *meanOutputTokens)
	}
	return fmt.Sprintf("%s_%d_%s", sanitized, meanInputTokens, out)
}

func sanitizeModel(model string) string {
	replaced := strings.NewReplacer("/", "-", ".", "-").Replace(model)
	return slugUnsafe.ReplaceAllString(replaced, "-")
}

// RunID builds the run_id from a wall-clock instant: "{unix_secs}_{unix_nanos:09}".
func RunID(at time.Time) string {
	return fmt.Sprintf("%d_%09d", at.Unix(), int64(at.Nanosecond()))
}
