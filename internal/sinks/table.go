package sinks

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/shantoislamdev/llmprobe/internal/summary"
)

// RenderTable writes a faithful projection of s's stats to w; it performs
// no computation of its own beyond formatting.
func RenderTable(w io.Writer, s summary.Summary) {
	fmt.Fprintf(w, "Benchmark %s (%s)\n", s.BenchmarkID, s.BenchmarkSlug)
	fmt.Fprintf(w, "requests: %d completed, %d errored (error rate %.1f%%) in %.2fs\n\n",
		s.NumCompletedRequests, s.NumErroredRequests, s.ErrorRate*100, s.BenchmarkDurationS)

	metrics := table.NewWriter()
	metrics.SetOutputMirror(w)
	metrics.AppendHeader(table.Row{"metric", "unit", "mean", "min", "p50", "p95", "p99", "max"})
	for _, row := range []struct {
		name string
		m    summary.Metric
	}{
		{"request latency", s.RequestLatency},
		{"ttft", s.TTFT},
		{"ttfo", s.TTFO},
		{"inter-token latency", s.InterTokenLatency},
		{"inter-event latency", s.InterEventLatency},
		{"output throughput", s.OutputThroughput},
		{"input tokens", s.InputTokenLengths},
		{"output tokens", s.OutputTokenLengths},
		{"reasoning tokens", s.ReasoningTokenLengths},
	} {
		if !row.m.Stats.HasData {
			continue
		}
		st := row.m.Stats
		metrics.AppendRow(table.Row{
			row.name, row.m.Unit,
			fmt.Sprintf("%.3f", st.Mean), fmt.Sprintf("%.3f", st.Min),
			fmt.Sprintf("%.3f", st.Quantiles[50]), fmt.Sprintf("%.3f", st.Quantiles[95]),
			fmt.Sprintf("%.3f", st.Quantiles[99]), fmt.Sprintf("%.3f", st.Max),
		})
	}
	metrics.Render()

	fmt.Fprintln(w)
	totals := table.NewWriter()
	totals.SetOutputMirror(w)
	totals.AppendHeader(table.Row{"request throughput (req/s)", "output tok/s", "total tok/s", "total tokens"})
	totals.AppendRow(table.Row{
		fmt.Sprintf("%.3f", s.RequestThroughput),
		fmt.Sprintf("%.3f", s.OutputTokenThroughput),
		fmt.Sprintf("%.3f", s.TotalTokenThroughput),
		s.TotalTokens,
	})
	totals.Render()

	if len(s.Errors) > 0 {
		fmt.Fprintln(w)
		errs := table.NewWriter()
		errs.SetOutputMirror(w)
		errs.AppendHeader(table.Row{"count", "error"})
		for _, e := range s.Errors {
			errs.AppendRow(table.Row{e.Count, e.Message})
		}
		errs.Render()
	}
}
