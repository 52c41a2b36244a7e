// Package transport implements the streaming HTTP clients the profiler
// consumes: each adapter returns a lazy sequence of streamevent.Event
// values. One adapter per protocol flavor (chat, responses,
// anthropic-messages) owns its own raw net/http request and SSE read loop
// rather than delegating to a provider SDK's stream wrapper, because the
// profiler needs arrival timestamps taken in the exact order events are
// pulled off the wire.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shantoislamdev/llmprobe/internal/config"
	"github.com/shantoislamdev/llmprobe/internal/streamevent"
	"github.com/shantoislamdev/llmprobe/internal/transporterr"
)

// maxResponseBodySize caps how much of a non-2xx error body is read.
const maxResponseBodySize int64 = 1 * 1024 * 1024

// Request is a single generation request for one profiler run.
type Request struct {
	Prompt          string
	MaxOutputTokens *int
}

// Stream is the lazy sequence of normalized events for one request. Events
// must be received in the order they arrive on the wire; Close must be
// called once the caller is done, whether or not the stream was drained.
type Stream interface {
	Next(ctx context.Context) (streamevent.Event, bool)
	Close() error
}

// Transport issues one streaming request and returns its event Stream.
type Transport interface {
	Open(ctx context.Context, req Request) (Stream, error)
}

// New builds the transport for the configured protocol flavor.
func New(cfg *config.Config, client *http.Client) (Transport, error) {
	if client == nil {
		client = http.DefaultClient
	}
	switch cfg.API {
	case config.FlavorChat:
		return &chatTransport{cfg: cfg, client: client}, nil
	case config.FlavorResponses:
		return &responsesTransport{cfg: cfg, client: client}, nil
	case config.FlavorAnthropicMessages:
		return &anthropicTransport{cfg: cfg, client: client}, nil
	default:
		return nil, fmt.Errorf("transport: unsupported api flavor %q", cfg.API)
	}
}

// doPostStream issues a streaming POST and returns the open response body.
// Non-2xx responses are read (bounded) and turned into a protocol error; the
// caller owns resp.Body on success and must close it.
func doPostStream(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, transporterr.Protocol("stream request failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		return nil, transporterr.Protocol(
			fmt.Sprintf("non-2xx status %d: %s", resp.StatusCode, string(errBody)), nil)
	}

	return resp, nil
}

// authHeaders builds the credential header for the configured flavor.
func authHeaders(cfg *config.Config) map[string]string {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.API == config.FlavorAnthropicMessages {
		return map[string]string{
			"x-api-key":         cfg.APIKey,
			"anthropic-version": "2023-06-01",
		}
	}
	return map[string]string{"Authorization": "Bearer " + cfg.APIKey}
}

// channelStream adapts a producer goroutine feeding a channel of events into
// the Stream interface. It is the common backbone for all three adapters:
// each one runs its own read loop in a goroutine and pushes normalized
// events; Next blocks on the channel or ctx.Done.
type channelStream struct {
	events chan streamevent.Event
	done   chan struct{}
	body   io.Closer
}

func newChannelStream(body io.Closer) *channelStream {
	return &channelStream{
		events: make(chan streamevent.Event, 16),
		done:   make(chan struct{}),
		body:   body,
	}
}

func (s *channelStream) Next(ctx context.Context) (streamevent.Event, bool) {
	select {
	case ev, ok := <-s.events:
		return ev, ok
	case <-ctx.Done():
		return streamevent.Event{}, false
	}
}

func (s *channelStream) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.body != nil {
		return s.body.Close()
	}
	return nil
}

// emit sends ev unless the stream has already been closed by the consumer,
// which unblocks the read loop when a profiler abandons a stream early.
func (s *channelStream) emit(ev streamevent.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *channelStream) finish() {
	close(s.events)
}
