package prompt

import (
	"strings"
	"testing"

	"github.com/shantoislamdev/llmprobe/internal/corpus"
)

// repeatTokenizer emits a fixed id run per encode call and decodes every id
// back to the same word, so window sizes map directly onto word counts.
type repeatTokenizer struct{}

func (repeatTokenizer) Count(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (repeatTokenizer) Encode(text string) ([]uint32, error) {
	return []uint32{1, 2, 3, 4, 5, 6, 7, 8}, nil
}

func (r repeatTokenizer) EncodeBatch(texts []string) ([][]uint32, error) {
	batches := make([][]uint32, len(texts))
	for i, text := range texts {
		batches[i], _ = r.Encode(text)
	}
	return batches, nil
}

func (repeatTokenizer) Decode(ids []uint32) (string, error) {
	return strings.TrimSpace(strings.Repeat("w ", len(ids))), nil
}

func (repeatTokenizer) Close() error { return nil }

func TestSampleTokenCount_ZeroStddev(t *testing.T) {
	if got := sampleTokenCount(100, 0); got != 100 {
		t.Errorf("sampleTokenCount(100, 0) = %d, want 100", got)
	}
	if got := sampleTokenCount(0, 0); got != 1 {
		t.Errorf("sampleTokenCount(0, 0) = %d, want the floor of 1", got)
	}
}

func TestSampleTokenCount_AlwaysPositive(t *testing.T) {
	// With mean 1 and a large stddev, most raw draws land below 1 and must
	// be resampled rather than clamped.
	for i := 0; i < 1000; i++ {
		if got := sampleTokenCount(1, 50); got < 1 {
			t.Fatalf("sampleTokenCount(1, 50) = %d, want >= 1", got)
		}
	}
}

func TestSampleWindow_WithinBounds(t *testing.T) {
	tokens := []uint32{10, 11, 12, 13, 14}

	for i := 0; i < 100; i++ {
		window := sampleWindow(tokens, 3)
		if len(window) != 3 {
			t.Fatalf("window length = %d, want 3", len(window))
		}
	}
}

func TestSampleWindow_WrapsAround(t *testing.T) {
	tokens := []uint32{10, 11, 12}

	// Requesting the full corpus forces every start offset except 0 to wrap.
	sawWrap := false
	for i := 0; i < 100; i++ {
		window := sampleWindow(tokens, 3)
		if len(window) != 3 {
			t.Fatalf("window length = %d, want 3", len(window))
		}
		if window[0] != 10 {
			sawWrap = true
		}
		// Every window is a rotation of the corpus.
		for j := 1; j < len(window); j++ {
			prev, cur := window[j-1], window[j]
			if cur != prev+1 && !(prev == 12 && cur == 10) {
				t.Fatalf("window %v is not a contiguous wrapped run", window)
			}
		}
	}
	if !sawWrap {
		t.Error("expected at least one wrapped window in 100 draws")
	}
}

func TestSampleWindow_RepeatsWhenLongerThanCorpus(t *testing.T) {
	tokens := []uint32{1, 2}
	window := sampleWindow(tokens, 5)
	if len(window) != 5 {
		t.Fatalf("window length = %d, want the requested 5", len(window))
	}
	for i := 1; i < len(window); i++ {
		if window[i] == window[i-1] {
			t.Fatalf("window %v is not an alternating repetition of the corpus", window)
		}
	}
}

func TestGenerate(t *testing.T) {
	gen := NewGenerator("test-model", repeatTokenizer{}, corpus.NewCache())

	t.Run("output shaping disabled", func(t *testing.T) {
		plan, err := gen.Generate(Shape{MeanInputTokens: 5, StddevInputTokens: 0})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if plan.Prompt == "" {
			t.Error("expected non-empty prompt text")
		}
		if plan.InputTokens != 5 {
			t.Errorf("input tokens = %d, want 5", plan.InputTokens)
		}
		if plan.MaxOutputTokens != nil {
			t.Errorf("max output tokens = %v, want nil when shaping is disabled", *plan.MaxOutputTokens)
		}
	})

	t.Run("output shaping enabled", func(t *testing.T) {
		mean := 64
		plan, err := gen.Generate(Shape{
			MeanInputTokens:    5,
			StddevInputTokens:  0,
			MeanOutputTokens:   &mean,
			StddevOutputTokens: 0,
		})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if plan.MaxOutputTokens == nil || *plan.MaxOutputTokens != 64 {
			t.Errorf("max output tokens = %v, want 64", plan.MaxOutputTokens)
		}
	})
}
