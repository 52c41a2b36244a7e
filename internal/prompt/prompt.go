// Package prompt builds input prompts by sampling a token-level window out
// of the corpus package's tokenized text, sized to a Normal(mean, stddev)
// token count.
package prompt

import (
	"math"
	"math/rand/v2"

	"github.com/shantoislamdev/llmprobe/internal/corpus"
	"github.com/shantoislamdev/llmprobe/internal/tokenizer"
)

// Plan is one request's sampled shape: the prompt text plus the token
// counts it was built from and the output-token ceiling to request, if any.
type Plan struct {
	Prompt          string
	InputTokens     int
	MaxOutputTokens *int
}

// Generator samples prompts for one tokenizer identifier, sharing a
// tokenized corpus across every call.
type Generator struct {
	tokenizerID string
	tok         tokenizer.Tokenizer
	corpus      *corpus.Cache
}

// NewGenerator builds a Generator backed by tok, identified by
// tokenizerID for corpus caching purposes.
func NewGenerator(tokenizerID string, tok tokenizer.Tokenizer, corpusCache *corpus.Cache) *Generator {
	return &Generator{tokenizerID: tokenizerID, tok: tok, corpus: corpusCache}
}

// Shape describes the distributions a prompt should be sampled from.
type Shape struct {
	MeanInputTokens    int
	StddevInputTokens  int
	MeanOutputTokens   *int
	StddevOutputTokens int
}

// Generate samples one prompt per Shape, returning its text, the length of
// the sampled token window it was decoded from (the decoded text is not
// re-counted), and the output-token ceiling to request.
func (g *Generator) Generate(shape Shape) (Plan, error) {
	tokens, err := g.corpus.Tokens(g.tokenizerID, g.tok)
	if err != nil {
		return Plan{}, err
	}

	numTokens := sampleTokenCount(shape.MeanInputTokens, shape.StddevInputTokens)
	window := sampleWindow(tokens, numTokens)

	text, err := g.tok.Decode(window)
	if err != nil {
		return Plan{}, err
	}

	var maxOutput *int
	if shape.MeanOutputTokens != nil {
		n := sampleTokenCount(*shape.MeanOutputTokens, shape.StddevOutputTokens)
		maxOutput = &n
	}

	return Plan{
		Prompt:          text,
		InputTokens:     len(window),
		MaxOutputTokens: maxOutput,
	}, nil
}

// sampleWindow returns a contiguous run of numTokens ids starting at a
// uniformly random offset, wrapping around the corpus as often as needed
// when the window runs past its end.
func sampleWindow(corpusTokens []uint32, numTokens int) []uint32 {
	if len(corpusTokens) == 0 || numTokens <= 0 {
		return nil
	}

	size := len(corpusTokens)
	start := rand.IntN(size)

	out := make([]uint32, numTokens)
	for i := range out {
		out[i] = corpusTokens[(start+i)%size]
	}
	return out
}

// sampleTokenCount draws from Normal(mean, stddev), resampling until the
// draw is at least 1, then rounds up. A zero stddev returns mean outright
// (floored at 1) since Normal(mean, 0) is degenerate.
func sampleTokenCount(mean, stddev int) int {
	if stddev == 0 {
		if mean < 1 {
			return 1
		}
		return mean
	}

	for {
		sample := float64(mean) + rand.NormFloat64()*float64(stddev)
		if sample >= 1.0 {
			return int(math.Ceil(sample))
		}
	}
}
