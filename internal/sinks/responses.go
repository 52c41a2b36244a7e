package sinks

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shantoislamdev/llmprobe/internal/benchmark"
)

// metricValue pairs a metric's numeric value with its own unit string, per
// the per-request record shape.
type metricValue struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// errorBlock is the optional per-request error detail: a synthetic code (1
// for any request error today), the transporterr.Kind classification, and
// the error message.
type errorBlock struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// responseRecord is one line of individual_responses.jsonl.
type responseRecord struct {
	RequestIndex   int                    `json:"request_index"`
	RequestStartNs int64                  `json:"request_start_ns"`
	RequestEndNs   int64                  `json:"request_end_ns"`
	BenchmarkPhase string                 `json:"benchmark_phase"`
	Metrics        map[string]metricValue `json:"metrics,omitempty"`
	Error          *errorBlock            `json:"error,omitempty"`
}

// WriteIndividualResponses writes one JSON line per dispatched request, in
// dispatch order (RunRecord.Index), to path. Parent directories are created
// as needed.
func WriteIndividualResponses(path string, records []benchmark.RunRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	ordered := make([]benchmark.RunRecord, len(records))
	copy(ordered, records)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	w := bufio.NewWriterSize(file, 64*1024)
	for _, rec := range ordered {
		line := toResponseRecord(rec)
		data, err := json.Marshal(line)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

func toResponseRecord(rec benchmark.RunRecord) responseRecord {
	out := responseRecord{
		RequestIndex:   rec.Index,
		RequestStartNs: rec.StartUnixNs,
		RequestEndNs:   rec.EndUnixNs,
		BenchmarkPhase: "profiling",
	}

	if !rec.Succeeded() {
		out.Error = &errorBlock{Code: 1, Type: rec.ErrKind, Message: rec.Err}
		return out
	}

	r := rec.Result
	metrics := map[string]metricValue{
		"ttft":                  {Value: msOf(r.TTFT), Unit: "ms"},
		"total_latency":         {Value: msOf(r.TotalLatency), Unit: "ms"},
		"throughput":            {Value: r.Throughput, Unit: "tokens/s"},
		"inter_token_latency_s": {Value: r.InterTokenLatencyS, Unit: "s"},
		"inter_event_latency_s": {Value: r.InterEventLatencyS, Unit: "s"},
		"input_tokens":          {Value: float64(r.Tokens.Input), Unit: "tokens"},
		"output_tokens":         {Value: float64(r.Tokens.Output), Unit: "tokens"},
		"reasoning_tokens":      {Value: float64(r.Tokens.Reasoning), Unit: "tokens"},
		"total_tokens":          {Value: float64(r.Tokens.Total), Unit: "tokens"},
	}
	if r.TTFO != nil {
		metrics["ttfo"] = metricValue{Value: msOf(*r.TTFO), Unit: "ms"}
	}
	out.Metrics = metrics
	return out
}

func msOf(d time.Duration) float64 { return d.Seconds() * 1000 }
