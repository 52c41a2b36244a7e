package sinks

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shantoislamdev/llmprobe/internal/benchmark"
)

func ttfoPtr(d time.Duration) *time.Duration { return &d }

func sampleRecords() []benchmark.RunRecord {
	return []benchmark.RunRecord{
		// Completion order differs from dispatch order on purpose.
		{
			Index:       1,
			StartUnixNs: 2000,
			EndUnixNs:   2500,
			Result: &benchmark.BenchmarkResult{
				TTFT:         80 * time.Millisecond,
				TotalLatency: 400 * time.Millisecond,
				Throughput:   55.5,
				Tokens:       benchmark.TokenCounts{Input: 10, Output: 20, Total: 30},
			},
		},
		{
			Index:       0,
			StartUnixNs: 1000,
			EndUnixNs:   1500,
			Result: &benchmark.BenchmarkResult{
				TTFT:         64 * time.Millisecond,
				TTFO:         ttfoPtr(64 * time.Millisecond),
				TotalLatency: 192 * time.Millisecond,
				Throughput:   23.4375,
				Tokens:       benchmark.TokenCounts{Input: 10, Output: 3, Total: 13},
			},
		},
		{
			Index:       2,
			StartUnixNs: 3000,
			EndUnixNs:   3100,
			Err:         "protocol: stream request failed",
			ErrKind:     "protocol",
		},
	}
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		lines = append(lines, line)
	}
	return lines
}

func TestWriteIndividualResponses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "individual_responses.jsonl")

	if err := WriteIndividualResponses(path, sampleRecords()); err != nil {
		t.Fatalf("WriteIndividualResponses failed: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}

	// Lines come out in dispatch order regardless of completion order.
	for i, line := range lines {
		if got := int(line["request_index"].(float64)); got != i {
			t.Errorf("line %d request_index = %d, want %d", i, got, i)
		}
		if line["benchmark_phase"] != "profiling" {
			t.Errorf("line %d phase = %v, want profiling", i, line["benchmark_phase"])
		}
	}

	first := lines[0]
	metrics, ok := first["metrics"].(map[string]any)
	if !ok {
		t.Fatal("line 0 missing metrics block")
	}
	ttft := metrics["ttft"].(map[string]any)
	if ttft["value"] != 64.0 || ttft["unit"] != "ms" {
		t.Errorf("ttft = %v, want 64 ms", ttft)
	}
	if _, hasTTFO := metrics["ttfo"]; !hasTTFO {
		t.Error("line 0 should carry ttfo")
	}
	if _, hasErr := first["error"]; hasErr {
		t.Error("successful record must not carry an error block")
	}

	second := lines[1]
	if _, hasTTFO := second["metrics"].(map[string]any)["ttfo"]; hasTTFO {
		t.Error("line 1 has no content arrival, ttfo must be omitted")
	}

	failed := lines[2]
	if _, hasMetrics := failed["metrics"]; hasMetrics {
		t.Error("failed record must not carry metrics")
	}
	errBlock, ok := failed["error"].(map[string]any)
	if !ok {
		t.Fatal("failed record missing error block")
	}
	if errBlock["code"] != 1.0 {
		t.Errorf("error code = %v, want 1", errBlock["code"])
	}
	if errBlock["type"] != "protocol" {
		t.Errorf("error type = %v, want protocol", errBlock["type"])
	}
	if errBlock["message"] != "protocol: stream request failed" {
		t.Errorf("error message = %v", errBlock["message"])
	}
}
