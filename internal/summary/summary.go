// Package summary assembles the run-level record the concurrency pump's
// output feeds into, plus the benchmark slug and run id. Writing the on-disk
// artifacts and rendering the terminal table is done by package sinks.
package summary

import (
	"sort"
	"time"

	"github.com/shantoislamdev/llmprobe/internal/config"
	"github.com/shantoislamdev/llmprobe/internal/pump"
	"github.com/shantoislamdev/llmprobe/internal/stats"
)

const schemaVersion = "2.0"

// Metric is one named Stats block with its unit, ready for JSON rendering.
type Metric struct {
	Unit  string
	Stats stats.Stats
}

// Summary is the full run-level record serialized into summary.json.
type Summary struct {
	SchemaVersion   string
	BenchmarkID     string
	BenchmarkSlug   string
	StartTimeUnixNs int64
	EndTimeUnixNs   int64
	Config          *config.Config

	RequestLatency        Metric
	TTFT                  Metric
	TTFO                  Metric // HasData false when no request had a content arrival
	InterTokenLatency     Metric
	InterEventLatency     Metric
	OutputThroughput      Metric
	InputTokenLengths     Metric
	OutputTokenLengths    Metric
	ReasoningTokenLengths Metric

	BenchmarkDurationS    float64
	NumRequests           int
	NumCompletedRequests  int
	NumErroredRequests    int
	ErrorRate             float64
	RequestThroughput     float64 // requests/sec
	OutputTokenThroughput float64 // tokens/sec
	TotalTokenThroughput  float64 // tokens/sec
	TotalOutputTokens     int
	TotalTokens           int
	Errors                []ErrorGroup
}

// ErrorGroup counts how many requests failed with an identical message.
type ErrorGroup struct {
	Message string
	Count   int
}

// Build assembles a Summary from one pump run's output.
func Build(benchmarkID string, slug string, out pump.Output, cfg *config.Config) Summary {
	var latencies, ttfts, ttfos, interToken, interEvent, throughputs []float64
	var inputLens, outputLens, reasoningLens []float64
	errorCounts := make(map[string]int)

	numCompleted := 0
	totalOutputTokens := 0
	totalTokens := 0

	for _, rec := range out.Records {
		if !rec.Succeeded() {
			errorCounts[rec.Err]++
			continue
		}
		numCompleted++
		r := rec.Result

		latencies = append(latencies, msOf(r.TotalLatency))
		ttfts = append(ttfts, msOf(r.TTFT))
		if r.TTFO != nil {
			ttfos = append(ttfos, msOf(*r.TTFO))
		}
		interToken = append(interToken, r.InterTokenLatencyS)
		interEvent = append(interEvent, r.InterEventLatencyS)
		throughputs = append(throughputs, r.Throughput)
		inputLens = append(inputLens, float64(r.Tokens.Input))
		outputLens = append(outputLens, float64(r.Tokens.Output))
		reasoningLens = append(reasoningLens, float64(r.Tokens.Reasoning))

		totalOutputTokens += r.Tokens.Output
		totalTokens += r.Tokens.Total
	}

	numRequests := len(out.Records)
	durationS := out.EndAt.Sub(out.StartAt).Seconds()

	errorRate := 0.0
	if numRequests > 0 {
		errorRate = float64(numRequests-numCompleted) / float64(numRequests)
	}

	requestThroughput := 0.0
	outputTokenThroughput := 0.0
	totalTokenThroughput := 0.0
	if durationS > 0 {
		requestThroughput = float64(numCompleted) / durationS
		outputTokenThroughput = float64(totalOutputTokens) / durationS
		totalTokenThroughput = float64(totalTokens) / durationS
	}

	return Summary{
		SchemaVersion:   schemaVersion,
		BenchmarkID:     benchmarkID,
		BenchmarkSlug:   slug,
		StartTimeUnixNs: out.StartUnixNs,
		EndTimeUnixNs:   out.EndUnixNs,
		// The config echo ends up in summary.json and the --json render;
		// never the resolved credential.
		Config: cfg.Redacted(),

		RequestLatency:        Metric{Unit: "ms", Stats: stats.Describe(latencies)},
		TTFT:                  Metric{Unit: "ms", Stats: stats.Describe(ttfts)},
		TTFO:                  Metric{Unit: "ms", Stats: stats.Describe(ttfos)},
		InterTokenLatency:     Metric{Unit: "s", Stats: stats.Describe(interToken)},
		InterEventLatency:     Metric{Unit: "s", Stats: stats.Describe(interEvent)},
		OutputThroughput:      Metric{Unit: "tokens/s", Stats: stats.Describe(throughputs)},
		InputTokenLengths:     Metric{Unit: "tokens", Stats: stats.Describe(inputLens)},
		OutputTokenLengths:    Metric{Unit: "tokens", Stats: stats.Describe(outputLens)},
		ReasoningTokenLengths: Metric{Unit: "tokens", Stats: stats.Describe(reasoningLens)},

		BenchmarkDurationS:    durationS,
		NumRequests:           numRequests,
		NumCompletedRequests:  numCompleted,
		NumErroredRequests:    numRequests - numCompleted,
		ErrorRate:             errorRate,
		RequestThroughput:     requestThroughput,
		OutputTokenThroughput: outputTokenThroughput,
		TotalTokenThroughput:  totalTokenThroughput,
		TotalOutputTokens:     totalOutputTokens,
		TotalTokens:           totalTokens,
		Errors:                groupErrors(errorCounts),
	}
}

func groupErrors(counts map[string]int) []ErrorGroup {
	groups := make([]ErrorGroup, 0, len(counts))
	for msg, count := range counts {
		groups = append(groups, ErrorGroup{Message: msg, Count: count})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Count > groups[j].Count })
	return groups
}

func msOf(d time.Duration) float64 { return d.Seconds() * 1000 }
