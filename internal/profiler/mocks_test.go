package profiler

import (
	"context"
	"strings"

	"github.com/shantoislamdev/llmprobe/internal/streamevent"
	"github.com/shantoislamdev/llmprobe/internal/transport"
)

// wordTokenizer counts whitespace-separated words, making local token
// resolution deterministic in tests.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (wordTokenizer) Encode(text string) ([]uint32, error) {
	return make([]uint32, len(strings.Fields(text))), nil
}

func (w wordTokenizer) EncodeBatch(texts []string) ([][]uint32, error) {
	batches := make([][]uint32, len(texts))
	for i, text := range texts {
		batches[i], _ = w.Encode(text)
	}
	return batches, nil
}

func (wordTokenizer) Decode(ids []uint32) (string, error) {
	return strings.TrimSpace(strings.Repeat("w ", len(ids))), nil
}

func (wordTokenizer) Close() error { return nil }

// scriptedTransport replays a fixed event sequence for every request.
type scriptedTransport struct {
	events []streamevent.Event
}

func (tr *scriptedTransport) Open(ctx context.Context, req transport.Request) (transport.Stream, error) {
	return &scriptedStream{events: tr.events}, nil
}

type scriptedStream struct {
	events []streamevent.Event
	pos    int
}

func (s *scriptedStream) Next(ctx context.Context) (streamevent.Event, bool) {
	if s.pos >= len(s.events) {
		return streamevent.Event{}, false
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, true
}

func (s *scriptedStream) Close() error { return nil }
