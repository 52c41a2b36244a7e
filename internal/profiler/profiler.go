// Package profiler drives one streaming request end to end and derives its
// latency and throughput metrics from the normalized event sequence the
// transport layer produces.
package profiler

import (
	"context"
	"sort"
	"time"

	"github.com/shantoislamdev/llmprobe/internal/benchmark"
	"github.com/shantoislamdev/llmprobe/internal/streamevent"
	"github.com/shantoislamdev/llmprobe/internal/tokenizer"
	"github.com/shantoislamdev/llmprobe/internal/transport"
	"github.com/shantoislamdev/llmprobe/internal/transporterr"
)

// Input is everything one profiler run needs besides the transport itself.
type Input struct {
	Prompt              string
	MaxOutputTokens     *int
	UseServerTokenCount bool
}

// Run opens one streaming request against tr and measures it. It returns a
// classified *transporterr.Error on any failure; the caller (the
// concurrency pump) turns that into a RunRecord rather than aborting peers.
func Run(ctx context.Context, tr transport.Transport, tok tokenizer.Tokenizer, in Input) (*benchmark.BenchmarkResult, error) {
	tStart := time.Now()
	unixStart := tStart.UnixNano()

	stream, err := tr.Open(ctx, transport.Request{
		Prompt:          in.Prompt,
		MaxOutputTokens: in.MaxOutputTokens,
	})
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var arrivals []benchmark.Arrival
	var contentBuf, reasoningBuf []byte
	var usage *streamevent.TokenUsage

	for {
		ev, ok := stream.Next(ctx)
		if !ok {
			break
		}

		switch ev.Kind {
		case streamevent.ContentDelta:
			if ev.Text == "" {
				continue
			}
			arrivals = append(arrivals, benchmark.Arrival{At: time.Now(), Kind: benchmark.ArrivalContent, Text: ev.Text})
			contentBuf = append(contentBuf, ev.Text...)
		case streamevent.ReasoningDelta:
			if ev.Text == "" {
				continue
			}
			arrivals = append(arrivals, benchmark.Arrival{At: time.Now(), Kind: benchmark.ArrivalReasoning, Text: ev.Text})
			reasoningBuf = append(reasoningBuf, ev.Text...)
		case streamevent.Usage:
			u := ev.Usage
			usage = &u
		case streamevent.ErrorEvent:
			return nil, ev.Err
		case streamevent.Other:
			// ignored
		}
	}

	tEnd := time.Now()
	unixEnd := tEnd.UnixNano()

	tokens, err := resolveTokenCounts(in, usage, string(contentBuf), string(reasoningBuf), tok)
	if err != nil {
		return nil, err
	}

	result := deriveMetrics(tStart, tEnd, arrivals, tokens)
	result.RequestStartUnixNs = unixStart
	result.RequestEndUnixNs = unixEnd
	return result, nil
}

func resolveTokenCounts(in Input, usage *streamevent.TokenUsage, contentText, reasoningText string, tok tokenizer.Tokenizer) (benchmark.TokenCounts, error) {
	if in.UseServerTokenCount {
		if usage == nil {
			return benchmark.TokenCounts{}, transporterr.UsageRequired()
		}
		reasoning := 0
		if usage.ReasoningTokens != nil {
			reasoning = *usage.ReasoningTokens
		}
		completion := 0
		if usage.OutputTokens != nil {
			completion = *usage.OutputTokens
		}
		output := saturatingSub(completion, reasoning)
		input := 0
		if usage.InputTokens != nil {
			input = *usage.InputTokens
		}
		total := input + output + reasoning
		if usage.TotalTokens != nil {
			total = *usage.TotalTokens
		}
		return benchmark.TokenCounts{Input: input, Output: output, Reasoning: reasoning, Total: total}, nil
	}

	input, err := tok.Count(in.Prompt)
	if err != nil {
		return benchmark.TokenCounts{}, transporterr.Tokenization("counting prompt tokens", err)
	}
	output, err := tok.Count(contentText)
	if err != nil {
		return benchmark.TokenCounts{}, transporterr.Tokenization("counting output tokens", err)
	}
	reasoning := 0
	if reasoningText != "" {
		reasoning, err = tok.Count(reasoningText)
		if err != nil {
			return benchmark.TokenCounts{}, transporterr.Tokenization("counting reasoning tokens", err)
		}
	}
	return benchmark.TokenCounts{
		Input:     input,
		Output:    output,
		Reasoning: reasoning,
		Total:     input + output + reasoning,
	}, nil
}

// saturatingSub defends against servers that report reasoning tokens
// greater than completion tokens.
func saturatingSub(a, b int) int {
	if a < b {
		return 0
	}
	return a - b
}

func deriveMetrics(tStart, tEnd time.Time, arrivals []benchmark.Arrival, tokens benchmark.TokenCounts) *benchmark.BenchmarkResult {
	var firstContent, firstReasoning *time.Time
	var reasoningArrived bool

	for i := range arrivals {
		a := arrivals[i]
		switch a.Kind {
		case benchmark.ArrivalContent:
			if firstContent == nil {
				firstContent = &a.At
			}
		case benchmark.ArrivalReasoning:
			reasoningArrived = true
			if firstReasoning == nil {
				firstReasoning = &a.At
			}
		}
	}

	ttft := time.Duration(0)
	switch {
	case firstContent != nil && firstReasoning != nil:
		ttft = minDuration(firstContent.Sub(tStart), firstReasoning.Sub(tStart))
	case firstContent != nil:
		ttft = firstContent.Sub(tStart)
	case firstReasoning != nil:
		ttft = firstReasoning.Sub(tStart)
	}

	var ttfo *time.Duration
	if firstContent != nil {
		d := firstContent.Sub(tStart)
		ttfo = &d
	}

	sorted := make([]time.Time, len(arrivals))
	for i, a := range arrivals {
		sorted[i] = a.At
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	interEventLatencyS := 0.0
	if len(sorted) >= 2 {
		var sum float64
		for i := 0; i < len(sorted)-1; i++ {
			sum += sorted[i+1].Sub(sorted[i]).Seconds()
		}
		interEventLatencyS = sum / float64(len(sorted)-1)
	}

	generationWindow := time.Duration(0)
	if len(sorted) >= 2 {
		generationWindow = sorted[len(sorted)-1].Sub(sorted[0])
	}

	usageOnlyReasoning := tokens.Reasoning > 0 && !reasoningArrived

	g := tokens.Output
	if !usageOnlyReasoning {
		g += tokens.Reasoning
	}

	interTokenLatencyS := 0.0
	if generationWindow > 0 && g >= 2 {
		interTokenLatencyS = generationWindow.Seconds() / float64(g-1)
	}

	throughput := 0.0
	if generationWindow > 0 {
		throughput = float64(g) / generationWindow.Seconds()
	}

	return &benchmark.BenchmarkResult{
		TTFT:               ttft,
		TTFO:               ttfo,
		TotalLatency:       tEnd.Sub(tStart),
		Throughput:         throughput,
		InterTokenLatencyS: interTokenLatencyS,
		InterEventLatencyS: interEventLatencyS,
		Tokens:             tokens,
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
