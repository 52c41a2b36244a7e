// Package pump implements the bounded concurrent request coordinator: it
// keeps up to C profilers in flight until either the prompt plan is
// exhausted or a wall-clock deadline trips, then drains whatever is still
// running rather than cancelling it.
package pump

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/shantoislamdev/llmprobe/internal/benchmark"
	"github.com/shantoislamdev/llmprobe/internal/profiler"
	"github.com/shantoislamdev/llmprobe/internal/tokenizer"
	"github.com/shantoislamdev/llmprobe/internal/transport"
	"github.com/shantoislamdev/llmprobe/internal/transporterr"
)

// Options configures one pump run.
type Options struct {
	Concurrency         int
	Deadline            time.Duration
	UseServerTokenCount bool
	// OnProgress is called after every completion, with the number of
	// records collected so far and the plan's total. May be nil.
	OnProgress func(completed, total int)
	// Log receives one info line per completed request and one warn line
	// per per-request error. Defaults to zap.NewNop() when nil.
	Log *zap.Logger
}

// Output is everything the summary builder needs about the run as a whole.
type Output struct {
	Records         []benchmark.RunRecord
	StartAt         time.Time
	EndAt           time.Time
	StartUnixNs     int64
	EndUnixNs       int64
	DeadlineTripped bool
}

type completion struct {
	index       int
	result      *benchmark.BenchmarkResult
	err         error
	startUnixNs int64
	endUnixNs   int64
}

// Run dispatches plan's prompts against tr, respecting opts.Concurrency and
// opts.Deadline, and returns exactly one RunRecord per dispatched prompt.
func Run(ctx context.Context, plan benchmark.PromptPlan, tr transport.Transport, tok tokenizer.Tokenizer, opts Options) Output {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	n := len(plan.Prompts)
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	startAt := time.Now()
	startUnix := startAt.UnixNano()

	deadlineTimer := time.NewTimer(opts.Deadline)
	defer deadlineTimer.Stop()

	completions := make(chan completion, concurrency)
	var wg conc.WaitGroup

	nextIndex := 0
	inFlight := 0
	deadlineTripped := false
	records := make([]benchmark.RunRecord, 0, n)

	dispatch := func(idx int) {
		prompt := plan.Prompts[idx]
		wg.Go(func() {
			// The profiler measures its own request-start/stream-end
			// bracket; this outer one only stamps failed attempts, which
			// produce no result to read it from.
			reqStart := time.Now().UnixNano()
			res, err := profiler.Run(ctx, tr, tok, profiler.Input{
				Prompt:              prompt.Text,
				MaxOutputTokens:     prompt.MaxOutputTokens,
				UseServerTokenCount: opts.UseServerTokenCount,
			})
			c := completion{index: idx, result: res, err: err}
			if res != nil {
				c.startUnixNs = res.RequestStartUnixNs
				c.endUnixNs = res.RequestEndUnixNs
			} else {
				c.startUnixNs = reqStart
				c.endUnixNs = time.Now().UnixNano()
			}
			completions <- c
		})
	}

	for {
		for nextIndex < n && inFlight < concurrency && !deadlineTripped {
			dispatch(nextIndex)
			nextIndex++
			inFlight++
		}

		if inFlight == 0 && (nextIndex == n || deadlineTripped) {
			break
		}

		select {
		case <-deadlineTimer.C:
			if !deadlineTripped {
				deadlineTripped = true
				log.Info("deadline reached, no longer admitting new requests",
					zap.Int("dispatched", nextIndex), zap.Int("total", n))
			}
		case c := <-completions:
			inFlight--
			record := benchmark.RunRecord{
				Index:       c.index,
				StartUnixNs: c.startUnixNs,
				EndUnixNs:   c.endUnixNs,
			}
			if c.err != nil {
				record.Err = c.err.Error()
				if kind, ok := transporterr.KindOf(c.err); ok {
					record.ErrKind = string(kind)
				}
				log.Warn("request failed", zap.Int("index", c.index), zap.String("kind", record.ErrKind), zap.Error(c.err))
			} else {
				record.Result = c.result
				log.Info("request completed", zap.Int("index", c.index), zap.Duration("total_latency", c.result.TotalLatency))
			}
			records = append(records, record)
			if opts.OnProgress != nil {
				opts.OnProgress(len(records), n)
			}
		}
	}

	wg.Wait()

	endAt := time.Now()
	return Output{
		Records:         records,
		StartAt:         startAt,
		EndAt:           endAt,
		StartUnixNs:     startUnix,
		EndUnixNs:       endAt.UnixNano(),
		DeadlineTripped: deadlineTripped,
	}
}
