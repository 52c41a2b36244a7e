// Package tokenizer counts, encodes, and decodes tokens against a
// Hugging-Face-compatible model identifier, the same identifier the prompt
// generator and the profiler's local token counting both key off of.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/daulet/tokenizers"

	"github.com/shantoislamdev/llmprobe/internal/transporterr"
)

// Tokenizer counts and encodes/decodes text for one model's vocabulary.
type Tokenizer interface {
	// Count returns the number of tokens text encodes to.
	Count(text string) (int, error)
	// Encode returns the token ids for text.
	Encode(text string) ([]uint32, error)
	// EncodeBatch returns the token ids for each text in texts.
	EncodeBatch(texts []string) ([][]uint32, error)
	// Decode reconstructs text from token ids.
	Decode(ids []uint32) (string, error)
	// Close releases the underlying native tokenizer.
	Close() error
}

// hfTokenizer wraps a Hugging Face tokenizer loaded from its pretrained
// identifier (e.g. "gpt2", "meta-llama/Llama-3.1-8B").
type hfTokenizer struct {
	inner *tokenizers.Tokenizer
}

// FromPretrained downloads (or reads from the local HF cache) the tokenizer
// for modelID and returns a Tokenizer backed by it.
func FromPretrained(modelID string) (Tokenizer, error) {
	inner, err := tokenizers.FromPretrained(modelID)
	if err != nil {
		return nil, transporterr.Tokenization(fmt.Sprintf("loading tokenizer %q", modelID), err)
	}
	return &hfTokenizer{inner: inner}, nil
}

func (t *hfTokenizer) Count(text string) (int, error) {
	ids, err := t.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (t *hfTokenizer) Encode(text string) ([]uint32, error) {
	ids, _ := t.inner.Encode(text, false)
	return ids, nil
}

func (t *hfTokenizer) EncodeBatch(texts []string) ([][]uint32, error) {
	batches := make([][]uint32, len(texts))
	for i, text := range texts {
		ids, err := t.Encode(text)
		if err != nil {
			return nil, err
		}
		batches[i] = ids
	}
	return batches, nil
}

func (t *hfTokenizer) Decode(ids []uint32) (string, error) {
	text := t.inner.Decode(ids, true)
	return text, nil
}

func (t *hfTokenizer) Close() error {
	return t.inner.Close()
}

// Cache memoizes one Tokenizer per model identifier, since loading a
// tokenizer (a filesystem read plus vocabulary parse) is expensive enough
// that every prompt-generator and profiler call sharing one model should
// reuse it rather than reload it.
type Cache struct {
	mu   sync.Mutex
	byID map[string]Tokenizer
	errs map[string]error
}

// NewCache builds an empty tokenizer cache.
func NewCache() *Cache {
	return &Cache{
		byID: make(map[string]Tokenizer),
		errs: make(map[string]error),
	}
}

// Get returns the cached Tokenizer for modelID, loading it on first use.
// A prior load failure for the same modelID is returned again without
// retrying, since a bad identifier will not start working.
func (c *Cache) Get(modelID string) (Tokenizer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok, ok := c.byID[modelID]; ok {
		return tok, nil
	}
	if err, ok := c.errs[modelID]; ok {
		return nil, err
	}

	tok, err := FromPretrained(modelID)
	if err != nil {
		c.errs[modelID] = err
		return nil, err
	}
	c.byID[modelID] = tok
	return tok, nil
}

// Close releases every tokenizer the cache has loaded.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, tok := range c.byID {
		if err := tok.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
