package sinks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shantoislamdev/llmprobe/internal/summary"
)

// quantileKeys fixes the JSON rendering order for a Stats' quantile map.
var quantileKeys = []int{1, 5, 10, 25, 50, 75, 90, 95, 99}

type statsJSON struct {
	Unit      string             `json:"unit"`
	Count     int                `json:"count"`
	Mean      float64            `json:"mean"`
	Min       float64            `json:"min"`
	Max       float64            `json:"max"`
	StdDev    float64            `json:"stddev"`
	Quantiles map[string]float64 `json:"quantiles"`
}

func metricJSON(m summary.Metric) *statsJSON {
	if !m.Stats.HasData {
		return nil
	}
	quantiles := make(map[string]float64, len(quantileKeys))
	for _, p := range quantileKeys {
		quantiles[percentileKey(p)] = m.Stats.Quantiles[p]
	}
	return &statsJSON{
		Unit:      m.Unit,
		Count:     m.Stats.Count,
		Mean:      m.Stats.Mean,
		Min:       m.Stats.Min,
		Max:       m.Stats.Max,
		StdDev:    m.Stats.StdDev,
		Quantiles: quantiles,
	}
}

func percentileKey(p int) string { return fmt.Sprintf("p%d", p) }

type errorGroupJSON struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// summaryJSON is the on-disk shape of summary.json: schema version 2.0.
type summaryJSON struct {
	SchemaVersion   string `json:"schema_version"`
	BenchmarkID     string `json:"benchmark_id"`
	BenchmarkSlug   string `json:"benchmark_slug"`
	StartTimeUnixNs int64  `json:"start_time_unix_ns"`
	EndTimeUnixNs   int64  `json:"end_time_unix_ns"`
	Config          any    `json:"config"`

	RequestLatency        *statsJSON `json:"request_latency,omitempty"`
	TTFT                  *statsJSON `json:"ttft,omitempty"`
	TTFO                  *statsJSON `json:"ttfo,omitempty"`
	InterTokenLatency     *statsJSON `json:"inter_token_latency,omitempty"`
	InterEventLatency     *statsJSON `json:"inter_event_latency,omitempty"`
	OutputThroughput      *statsJSON `json:"output_throughput,omitempty"`
	InputTokenLengths     *statsJSON `json:"input_token_lengths,omitempty"`
	OutputTokenLengths    *statsJSON `json:"output_token_lengths,omitempty"`
	ReasoningTokenLengths *statsJSON `json:"reasoning_token_lengths,omitempty"`

	BenchmarkDurationS    float64          `json:"benchmark_duration_s"`
	NumRequests           int              `json:"num_requests"`
	NumCompletedRequests  int              `json:"num_completed_requests"`
	NumErroredRequests    int              `json:"num_errored_requests"`
	ErrorRate             float64          `json:"error_rate"`
	RequestThroughput     float64          `json:"request_throughput"`
	OutputTokenThroughput float64          `json:"output_token_throughput"`
	TotalTokenThroughput  float64          `json:"total_token_throughput"`
	TotalOutputTokens     int              `json:"total_output_tokens"`
	TotalTokens           int              `json:"total_tokens"`
	Errors                []errorGroupJSON `json:"errors"`
}

func toSummaryJSON(s summary.Summary) summaryJSON {
	errs := make([]errorGroupJSON, 0, len(s.Errors))
	for _, e := range s.Errors {
		errs = append(errs, errorGroupJSON{Message: e.Message, Count: e.Count})
	}

	return summaryJSON{
		SchemaVersion:   s.SchemaVersion,
		BenchmarkID:     s.BenchmarkID,
		BenchmarkSlug:   s.BenchmarkSlug,
		StartTimeUnixNs: s.StartTimeUnixNs,
		EndTimeUnixNs:   s.EndTimeUnixNs,
		Config:          s.Config,

		RequestLatency:        metricJSON(s.RequestLatency),
		TTFT:                  metricJSON(s.TTFT),
		TTFO:                  metricJSON(s.TTFO),
		InterTokenLatency:     metricJSON(s.InterTokenLatency),
		InterEventLatency:     metricJSON(s.InterEventLatency),
		OutputThroughput:      metricJSON(s.OutputThroughput),
		InputTokenLengths:     metricJSON(s.InputTokenLengths),
		OutputTokenLengths:    metricJSON(s.OutputTokenLengths),
		ReasoningTokenLengths: metricJSON(s.ReasoningTokenLengths),

		BenchmarkDurationS:    s.BenchmarkDurationS,
		NumRequests:           s.NumRequests,
		NumCompletedRequests:  s.NumCompletedRequests,
		NumErroredRequests:    s.NumErroredRequests,
		ErrorRate:             s.ErrorRate,
		RequestThroughput:     s.RequestThroughput,
		OutputTokenThroughput: s.OutputTokenThroughput,
		TotalTokenThroughput:  s.TotalTokenThroughput,
		TotalOutputTokens:     s.TotalOutputTokens,
		TotalTokens:           s.TotalTokens,
		Errors:                errs,
	}
}

// WriteSummaryJSON marshals s to path as indented JSON. Parent directories
// are created as needed.
func WriteSummaryJSON(path string, s summary.Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(toSummaryJSON(s), "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	return os.WriteFile(path, data, 0o644)
}

// RenderJSON writes s's JSON rendering (the same shape summary.json uses)
// to w, for --output-format json.
func RenderJSON(w io.Writer, s summary.Summary) error {
	data, err := json.MarshalIndent(toSummaryJSON(s), "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
