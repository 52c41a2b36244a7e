package pump

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shantoislamdev/llmprobe/internal/streamevent"
	"github.com/shantoislamdev/llmprobe/internal/transport"
	"github.com/shantoislamdev/llmprobe/internal/transporterr"
)

// mockTokenizer counts whitespace-separated words so locally-resolved token
// counts are deterministic without a real vocabulary.
type mockTokenizer struct{}

func (mockTokenizer) Count(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (mockTokenizer) Encode(text string) ([]uint32, error) {
	ids := make([]uint32, len(strings.Fields(text)))
	return ids, nil
}

func (m mockTokenizer) EncodeBatch(texts []string) ([][]uint32, error) {
	batches := make([][]uint32, len(texts))
	for i, text := range texts {
		batches[i], _ = m.Encode(text)
	}
	return batches, nil
}

func (mockTokenizer) Decode(ids []uint32) (string, error) {
	return strings.TrimSpace(strings.Repeat("w ", len(ids))), nil
}

func (mockTokenizer) Close() error { return nil }

// mockTransport serves every request the same scripted event sequence after
// an optional delay, tracking the number of streams open at once.
type mockTransport struct {
	events []streamevent.Event
	delay  time.Duration
	// fail makes Open return a protocol error instead of a stream.
	fail bool

	opens     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
}

func (m *mockTransport) Open(ctx context.Context, req transport.Request) (transport.Stream, error) {
	m.opens.Add(1)
	if m.fail {
		return nil, transporterr.Protocol("mock transport refused", nil)
	}

	current := m.active.Add(1)
	for {
		max := m.maxActive.Load()
		if current <= max {
			break
		}
		if m.maxActive.CompareAndSwap(max, current) {
			break
		}
	}

	return &mockStream{owner: m, events: m.events, delay: m.delay}, nil
}

type mockStream struct {
	owner  *mockTransport
	events []streamevent.Event
	delay  time.Duration

	mu        sync.Mutex
	pos       int
	delayDone bool
	closed    bool
}

func (s *mockStream) Next(ctx context.Context) (streamevent.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.delayDone {
		s.delayDone = true
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return streamevent.Event{}, false
		}
	}

	if s.pos >= len(s.events) {
		return streamevent.Event{}, false
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, true
}

func (s *mockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.owner.active.Add(-1)
	}
	return nil
}
