// Package corpus provides the token-level text source the prompt generator
// samples windows from: an embedded public-domain text, chunked and
// tokenized once per tokenizer identifier and cached for reuse across a
// whole benchmark run.
package corpus

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/shantoislamdev/llmprobe/internal/tokenizer"
)

//go:embed assets/shakespeare.txt
var shakespeare string

// maxCharsPerChunk keeps chunk boundaries deterministic while letting the
// tokenizer batch-encode call process the corpus in manageable pieces.
const maxCharsPerChunk = 10_000

func buildChunks(text string) []string {
	var chunks []string
	var b strings.Builder
	charCount := 0

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lineLen := len([]rune(line))

		if charCount > 0 && charCount+1+lineLen > maxCharsPerChunk {
			chunks = append(chunks, b.String())
			b.Reset()
			charCount = 0
		}
		if charCount > 0 {
			b.WriteByte(' ')
			charCount++
		}
		b.WriteString(line)
		charCount += lineLen
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// Cache memoizes the tokenized corpus per tokenizer identifier. Tokenizing
// the corpus is the same cost regardless of how many requests a benchmark
// run issues, so every prompt built from the same model shares one pass.
type Cache struct {
	mu   sync.Mutex
	byID map[string][]uint32
}

// NewCache builds an empty tokenized-corpus cache.
func NewCache() *Cache {
	return &Cache{byID: make(map[string][]uint32)}
}

// Tokens returns the full corpus encoded as a flat token id sequence for the
// given tokenizer, computing and caching it on first use.
func (c *Cache) Tokens(tokenizerID string, tok tokenizer.Tokenizer) ([]uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ids, ok := c.byID[tokenizerID]; ok {
		return ids, nil
	}

	batches, err := tok.EncodeBatch(buildChunks(shakespeare))
	if err != nil {
		return nil, err
	}
	var ids []uint32
	for _, chunkIDs := range batches {
		ids = append(ids, chunkIDs...)
	}

	c.byID[tokenizerID] = ids
	return ids, nil
}
